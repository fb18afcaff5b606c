package cmd

import (
	"context"
	"errors"

	"github.com/achilleasa/mirage/agent"
	"github.com/achilleasa/mirage/asset/texture"
	"github.com/achilleasa/mirage/config"
	"github.com/achilleasa/mirage/desktop"
	"github.com/achilleasa/mirage/handshake"
	"github.com/achilleasa/mirage/helper"
	"github.com/achilleasa/mirage/platform"
	"github.com/achilleasa/mirage/renderer"
	"github.com/achilleasa/mirage/renderer/mirror"
	"github.com/achilleasa/mirage/session"
	"github.com/achilleasa/mirage/xr"
	"github.com/thejerf/suture/v4"
	"github.com/urfave/cli"
)

// Run the compositor until the session exits.
func Run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := platform.NewSignals()
	defer signals.Close()

	// Runtime setup
	inst := newRuntime(cfg)
	defer func() {
		if err := inst.Destroy(); err != nil {
			logger.Debugf("runtime teardown: %v", err)
		}
	}()
	inst.SetDebugMessenger(xr.LogDebugMessage)
	props := inst.Properties()
	logger.Noticef("runtime: %s %s", props.RuntimeName, props.RuntimeVersion)

	preferred, _ := xr.ParseBlendMode(cfg.Runtime.BlendMode)
	negotiated, err := xr.Negotiate(inst, preferred)
	if err != nil {
		return err
	}

	xrSession, err := inst.CreateSession()
	if err != nil {
		return err
	}
	machine := session.NewStateMachine(xrSession, negotiated.ViewConfig)
	defer func() {
		if err := machine.Destroy(); err != nil {
			logger.Warningf("could not destroy session: %v", err)
		}
	}()

	format, err := xr.SelectFormat(xrSession)
	if err != nil {
		return err
	}

	// Compositor setup
	registry := desktop.NewRegistry(desktop.Options{
		Spacing:   cfg.Desktop.Spacing,
		Smoothing: cfg.Desktop.Smoothing,
	})

	background, err := loadBackground(runCtx, cfg)
	if err != nil {
		return err
	}

	opts := renderer.DefaultOptions()
	opts.BlendMode = negotiated.BlendMode
	opts.Format = format
	opts.PixelsPerUnit = cfg.Desktop.PixelsPerUnit
	opts.CornerRadius = cfg.Desktop.CornerRadius
	opts.BlurWidth = cfg.Background.BlurWidth
	opts.BlurSigma = cfg.Background.BlurSigma
	opts.SubmitEnvironment = cfg.Background.SubmitLayer

	comp, err := renderer.New(xrSession, negotiated.Views, registry, background, opts)
	if err != nil {
		return err
	}
	defer func() { comp.Teardown(machine.Lenient()) }()

	if cfg.Mirror.Enabled {
		m, err := mirror.New(mirror.Options{
			Width:   cfg.Mirror.Width,
			Height:  cfg.Mirror.Height,
			Title:   "mirage",
			OnClose: cancel,
			Blocks:  func() []uint32 { return firstEyeBlocks(comp.Stats()) },
		})
		if err != nil {
			logger.Warningf("mirror disabled: %v", err)
		} else {
			comp.SetMirror(m)
			defer m.Close()
		}
	}

	// Producer side services
	sup := suture.New("mirage", suture.Spec{
		EventHook: func(ev suture.Event) {
			logger.Infof("supervisor: %s", ev)
		},
	})
	if cfg.Handshake.Enabled {
		sup.Add(&handshake.Service{
			Socket: cfg.Handshake.Socket,
			Binder: handshake.BinderFunc(func(_ context.Context, h handshake.Handle) error {
				sup.Add(agent.New(h, registry.Callbacks()))
				return nil
			}),
		})
	}
	if cfg.Helper.Path != "" {
		sup.Add(helper.ProcessFromConfig(cfg.Helper))
	}
	supDone := sup.ServeBackground(runCtx)

	loop := &session.Loop{
		Pump:     session.NewPump(signals.Events(), inst.Events()),
		Machine:  machine,
		Renderer: comp,
		Platform: platform.NewState(),
	}
	err = loop.Run(runCtx)

	cancel()
	if supErr := <-supDone; supErr != nil && !errors.Is(supErr, context.Canceled) {
		logger.Warningf("supervisor: %v", supErr)
	}

	displayFrameStats(comp.Stats(), registry.Stats())
	return err
}

// Load the environment image. An empty path yields a dim gradient so panes
// still get a frosted tint.
func loadBackground(ctx context.Context, cfg *config.Config) (*texture.Texture, error) {
	if cfg.Background.Image == "" {
		return texture.Gradient(256, 128, defaultSky, defaultGround), nil
	}
	return texture.Load(ctx, cfg.Background.Image, cfg.Source, texture.Options{
		MaxWidth: cfg.Background.MaxWidth,
	})
}

func firstEyeBlocks(stats renderer.FrameStats) []uint32 {
	if len(stats.Eyes) == 0 {
		return nil
	}
	blocks := make([]uint32, len(stats.Eyes[0].Blocks))
	for i, b := range stats.Eyes[0].Blocks {
		blocks[i] = b.BlockH
	}
	return blocks
}
