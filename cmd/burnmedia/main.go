// BurnMedia - A tool for burning files and folders onto CD and DVD data discs
// Copyright (C) 2025 The BurnMedia Authors
//
// This program is free software: you can redistribute it and/or modify it under the terms
// of the GNU General Public License as published by the Free Software Foundation,
// either version 3 of the License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along with this program.
// If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/burnmedia/burnmedia/internal/logging"
)

var (
	version = "1.0.0"
)

func main() {
	rootCmd := newRootCmd(&app{})
	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "burnmedia",
		Short: "Burn files and folders onto CD and DVD data discs",
		Long: `BurnMedia writes files and folders onto writable CDs and DVDs as an
ISO9660/Joliet data disc. It detects drives and media, estimates the free
space left for the queued items and streams the image to the recorder while
reporting progress. Appendable discs get a new session.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ~/.config/burnmedia/config.yaml)")
	rootCmd.PersistentFlags().StringP("device", "d", "", "recorder device, e.g. /dev/sr0 (default: first usable)")
	rootCmd.PersistentFlags().String("log-level", "", "also log to stderr at this level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(createDrivesCmd(a))
	rootCmd.AddCommand(createMediaCmd(a))
	rootCmd.AddCommand(createBurnCmd(a))
	rootCmd.AddCommand(createEjectCmd(a))
	rootCmd.AddCommand(createHistoryCmd(a))
	rootCmd.AddCommand(createListMediaTypesCmd())
	rootCmd.AddCommand(createConfigCmd(a))

	return rootCmd
}
