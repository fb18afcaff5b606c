package cmd

import (
	"github.com/achilleasa/mirage/config"
	"github.com/achilleasa/mirage/xr/sim"
	"github.com/urfave/cli"
)

// Load the config file named by the global --config flag (or the defaults)
// and apply command line overrides. Logging is set up from the result.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if ctx.IsSet("socket") {
		cfg.Handshake.Socket = ctx.String("socket")
	}
	if ctx.Bool("no-handshake") {
		cfg.Handshake.Enabled = false
	}
	if ctx.IsSet("background") {
		cfg.Background.Image = ctx.String("background")
	}
	if ctx.Bool("mirror") {
		cfg.Mirror.Enabled = true
	}
	if ctx.IsSet("helper") {
		cfg.Helper.Path = ctx.String("helper")
	}
	if ctx.IsSet("refresh-rate") {
		cfg.Runtime.RefreshRate = ctx.Float64("refresh-rate")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setupLogging(ctx, cfg.Log.Directive); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Create the display runtime described by the runtime config section.
func newRuntime(cfg *config.Config) *sim.Instance {
	opts := sim.DefaultOptions()
	opts.Views = cfg.Runtime.Views
	opts.Width = cfg.Runtime.EyeWidth
	opts.Height = cfg.Runtime.EyeHeight
	opts.ImageCount = cfg.Runtime.ImageCount
	opts.RefreshRate = cfg.Runtime.RefreshRate
	opts.FovDegrees = cfg.Runtime.FovDegrees
	opts.Asymmetry = cfg.Runtime.Asymmetry
	opts.IPD = cfg.Runtime.IPD
	return sim.New(opts)
}
