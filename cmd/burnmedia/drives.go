package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/burnmedia/burnmedia/internal/recorder"
	"github.com/burnmedia/burnmedia/internal/workspace"
)

// driveView is the listing form of a recorder.
type driveView struct {
	Device   string   `yaml:"device"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Vendor   string   `yaml:"vendor,omitempty"`
	Model    string   `yaml:"model,omitempty"`
	CD       bool     `yaml:"cd"`
	DVD      bool     `yaml:"dvd"`
	Ready    bool     `yaml:"ready"`
	Profiles []string `yaml:"profiles,omitempty"`
}

func viewOf(r recorder.Recorder) driveView {
	v := driveView{
		Device:  r.Device,
		Aliases: r.VolumePaths,
		Vendor:  r.Vendor,
		Model:   r.Model,
		CD:      r.CanBurnCD,
		DVD:     r.CanBurnDVD,
		Ready:   r.IsReady,
	}
	for _, t := range r.Profiles {
		v.Profiles = append(v.Profiles, t.String())
	}
	return v
}

func createDrivesCmd(a *app) *cobra.Command {
	var (
		output string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "drives",
		Short: "List optical recorders",
		Long:  "List the optical drives that can burn data discs, with the media types they write.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				recs []recorder.Recorder
				err  error
			)
			if all {
				recs, err = a.service().Recorders(ctx)
			} else {
				recs, err = workspace.New(a.service(), nil).Recorders(ctx)
			}
			if err != nil {
				return err
			}
			return writeDrives(cmd.OutOrStdout(), recs, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or yaml")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include drives that cannot burn")

	return cmd
}

func writeDrives(w io.Writer, recs []recorder.Recorder, format string) error {
	views := make([]driveView, 0, len(recs))
	for _, r := range recs {
		views = append(views, viewOf(r))
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DRIVE\tCD\tDVD\tWRITES")
		for i, v := range views {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", recs[i], yesNo(v.CD), yesNo(v.DVD), strings.Join(v.Profiles, ", "))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (must be table or yaml)", format)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func createMediaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "media",
		Short: "Detect the media in the recorder",
		Long:  "Detect the media in the selected recorder and show its type, state and capacity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl := workspace.New(a.service(), nil)
			if err := a.selectRecorder(cmd.Context(), ctl); err != nil {
				return err
			}
			sel, _ := ctl.Selected()
			info, _ := ctl.Media()
			writeMedia(cmd.OutOrStdout(), sel, info, ctl.SpaceSummary())
			return nil
		},
	}
}

func writeMedia(w io.Writer, rec recorder.Recorder, info recorder.MediaInfo, summary string) {
	state := "closed"
	switch {
	case info.Blank:
		state = "blank"
	case info.Multisession != nil:
		state = "appendable"
	}

	fmt.Fprintf(w, "Recorder: %s\n", rec)
	fmt.Fprintf(w, "Media:    %s (%s)\n", info.Type, state)
	fmt.Fprintf(w, "Capacity: %s, %s free\n",
		humanize.IBytes(uint64(info.TotalBytes())), humanize.IBytes(uint64(info.FreeBytes())))
	if ms := info.Multisession; ms != nil {
		fmt.Fprintf(w, "Next session starts at sector %d\n", ms.NextWritable)
	}
	fmt.Fprintln(w, summary)
}

func createEjectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "eject",
		Short: "Eject the disc",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := a.service()
			id, err := a.recorderID(ctx, workspace.New(svc, nil))
			if err != nil {
				return err
			}
			dev, err := svc.Open(ctx, id)
			if err != nil {
				return err
			}
			defer dev.Close()
			return dev.Eject(ctx)
		},
	}
}

func createListMediaTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-media-types",
		Short: "List known media types",
		Long:  "List all media types the recorder drivers recognize, grouped by disc family",
		Run: func(cmd *cobra.Command, args []string) {
			recorder.ListProfiles(cmd.OutOrStdout())
		},
	}
}
