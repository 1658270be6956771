package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/burnmedia/burnmedia/internal/burn"
	"github.com/burnmedia/burnmedia/internal/config"
	"github.com/burnmedia/burnmedia/internal/fsimage"
	"github.com/burnmedia/burnmedia/internal/fsimage/mkisofs"
	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/recorder/cdrecord"
	"github.com/burnmedia/burnmedia/internal/workspace"
)

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"device":            "device",
	"logging.console":   "log-level",
	"volume_label":      "label",
	"burn.eject":        "eject",
	"burn.close_media":  "close",
	"burn.verification": "verify",
	"burn.simulate":     "simulate",
	"history.limit":     "limit",
}

// app carries the loaded configuration shared by all commands.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     *logging.Logger
}

// load reads the configuration, binds the executing command's flags over
// it and starts logging.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogConfig()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	a.v = v
	a.cfg = cfg
	a.log = logging.Get("cli")
	a.log.Debug("configuration loaded", "file", v.ConfigFileUsed(), "command", cmd.CommandPath())
	return nil
}

func (a *app) service() *cdrecord.Service {
	return cdrecord.New(a.cfg.Tools.Recorder)
}

// controller wires the native drivers into a workspace. onFinish may be nil.
func (a *app) controller(onFinish func(burn.Result)) *workspace.Controller {
	svc := a.service()
	orch := burn.New(burn.Options{
		Service:      svc,
		Assembler:    fsimage.NewAssembler(mkisofs.NewFunc(a.cfg.Tools.ImageBuilder)),
		Messages:     a.cfg.Phrases(),
		StatusBuffer: a.cfg.Burn.StatusBuffer,
		OnFinish:     onFinish,
	})
	return workspace.New(svc, orch)
}

// recorderID returns the configured device, or the first usable one.
func (a *app) recorderID(ctx context.Context, ctl *workspace.Controller) (string, error) {
	if a.cfg.Device != "" {
		return a.cfg.Device, nil
	}
	recs, err := ctl.Recorders(ctx)
	if err != nil {
		return "", err
	}
	return recs[0].ID, nil
}

// selectRecorder selects the recorder and detects its media.
func (a *app) selectRecorder(ctx context.Context, ctl *workspace.Controller) error {
	id, err := a.recorderID(ctx, ctl)
	if err != nil {
		return err
	}
	if _, err := ctl.SelectRecorder(ctx, id); err != nil {
		return fmt.Errorf("selecting %s: %w", id, err)
	}
	return nil
}
