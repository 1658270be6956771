package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/burnmedia/burnmedia/internal/history"
)

func createHistoryCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "Show past burns",
		Long: `List finished burns, newest first. With an ID (or a unique prefix of one)
the full record of that burn is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.History.Enabled {
				return errors.New("burn history is disabled (history.enabled: false)")
			}
			store, err := history.Open(a.cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				rec, err := store.Get(args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				return history.Write(cmd.OutOrStdout(), []history.Record{rec}, "yaml")
			}

			records, err := store.List(a.cfg.History.Limit)
			if err != nil {
				return err
			}
			return history.Write(cmd.OutOrStdout(), records, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or yaml")
	cmd.Flags().IntP("limit", "n", 0, "Number of burns to list, 0 for all (default: history.limit)")

	return cmd
}
