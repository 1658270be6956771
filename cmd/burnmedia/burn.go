package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/burnmedia/burnmedia/internal/burn"
	"github.com/burnmedia/burnmedia/internal/history"
	"github.com/burnmedia/burnmedia/internal/workspace"
)

func createBurnCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burn PATH...",
		Short: "Burn files and folders onto the disc",
		Long: `Queue the given files and folders and burn them onto the media in the
recorder as an ISO9660/Joliet data disc. Folders are added with their whole
tree. Appendable discs get a new session.

Press Ctrl+C once to cancel the burn at the next safe point, twice to abort.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.burnPaths(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	cmd.Flags().StringP("label", "l", "", "Volume label (default: today's date)")
	cmd.Flags().Bool("eject", false, "Eject the disc after a successful burn")
	cmd.Flags().Bool("close", true, "Close the disc so no further sessions can be appended")
	cmd.Flags().String("verify", "none", "Read-back verification: none, quick or full")
	cmd.Flags().Bool("simulate", false, "Simulate the burn with the laser off")

	return cmd
}

// burnPaths handles the main burning logic
func (a *app) burnPaths(ctx context.Context, out io.Writer, paths []string) error {
	var store *history.Store
	if a.cfg.History.Enabled {
		s, err := history.Open(a.cfg.HistoryPath())
		if err != nil {
			a.log.Warn("burn history unavailable", "path", a.cfg.HistoryPath(), "err", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	ctl := a.controller(func(res burn.Result) {
		if store == nil {
			return
		}
		if err := store.Put(history.FromResult(res)); err != nil {
			a.log.Warn("failed to record burn", "job", res.JobID, "err", err)
		}
	})

	if err := a.selectRecorder(ctx, ctl); err != nil {
		return err
	}
	sel, _ := ctl.Selected()
	fmt.Fprintf(out, "Recorder: %s\n", sel)
	if info, ok := ctl.Media(); ok {
		fmt.Fprintf(out, "Media: %s\n", info.Type)
	}

	for _, path := range paths {
		item, err := ctl.AddPath(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Queued %s\n", item)
	}
	fmt.Fprintf(out, "%s, Queued: %d MB\n", ctl.SpaceSummary(), ctl.QueuedSpace())
	if ctl.OverCapacity() {
		fmt.Fprintln(out, "Warning: the queued items do not fit on the media; the burn will likely fail.")
	}

	opts := workspace.BurnOptions{
		VolumeLabel:     a.cfg.Label(time.Now()),
		CloseMedia:      a.cfg.Burn.CloseMedia,
		EjectAfterWrite: a.cfg.Burn.Eject,
		Verification:    a.cfg.Verification(),
		Simulate:        a.cfg.Burn.Simulate,
	}

	// Handle Ctrl+C: the first signal cancels cooperatively, the second one
	// kills the native tools through the context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run, err := ctl.StartBurn(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Burning %q...\n", run.Job().VolumeLabel)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		interrupts := 0
		for {
			select {
			case <-sigChan:
				interrupts++
				if interrupts == 1 {
					fmt.Fprintf(out, "\nReceived interrupt signal, cancelling...\n")
					ctl.RequestCancel()
					continue
				}
				fmt.Fprintf(out, "\nAborting.\n")
				cancel()
				return
			case <-run.Done():
				return
			}
		}
	}()

	bar := newProgressBar(out)
	for st := range run.Status() {
		bar.Describe(st.Message)
		_ = bar.Set(st.Percent)
		a.log.Debug("status", "phase", st.Phase, "percent", st.Percent, "message", st.Message)
	}
	res := run.Wait()

	// Ensure progress bar finishes cleanly
	_ = bar.Finish()
	fmt.Fprintf(out, "\n")

	return reportResult(out, res)
}

func newProgressBar(out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Preparing"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond), // Update at most every 100ms
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// reportResult prints the outcome of a burn. Only failures are returned as
// errors; a cancelled burn is not an error.
func reportResult(out io.Writer, res burn.Result) error {
	fmt.Fprintln(out, res.Message)
	switch res.Phase {
	case burn.Completed:
		fmt.Fprintf(out, "Burned %d item(s), %s in %v\n",
			res.Items, humanize.IBytes(uint64(res.Bytes)), res.Duration().Truncate(time.Second))
		if res.EjectErr != nil {
			fmt.Fprintf(out, "Warning: %v\n", res.EjectErr)
		}
		return nil
	case burn.Cancelled:
		return nil
	default:
		if res.Err == nil {
			return errors.New(res.Message)
		}
		if res.Code != 0 {
			return fmt.Errorf("%w (code %d)", res.Err, res.Code)
		}
		return res.Err
	}
}
