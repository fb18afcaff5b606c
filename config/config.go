package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoViews          = errors.New("config: runtime must expose at least one view")
	ErrBadResolution    = errors.New("config: eye resolution must be non-zero")
	ErrBadImageCount    = errors.New("config: swapchains need at least one image")
	ErrBadSmoothing     = errors.New("config: smoothing factor must be in (0, 1]")
	ErrBadSpacing       = errors.New("config: window spacing must be positive")
	ErrMissingSocket    = errors.New("config: handshake socket name must not be empty")
	ErrBadMirrorSize    = errors.New("config: mirror window size must be non-zero")
	ErrUnknownBlendMode = errors.New("config: unknown environment blend mode")
)

// Config holds all tunables for a compositor run.
type Config struct {
	Runtime    Runtime    `yaml:"runtime"`
	Desktop    Desktop    `yaml:"desktop"`
	Background Background `yaml:"background"`
	Handshake  Handshake  `yaml:"handshake"`
	Helper     Helper     `yaml:"helper"`
	Log        Log        `yaml:"log"`
	Mirror     Mirror     `yaml:"mirror"`

	// Path of the file this config was loaded from, if any. Relative
	// resource paths are resolved against it.
	Source string `yaml:"-"`
}

// Runtime configures the simulated display runtime.
type Runtime struct {
	Views       int     `yaml:"views"`
	EyeWidth    uint32  `yaml:"eye_width"`
	EyeHeight   uint32  `yaml:"eye_height"`
	ImageCount  int     `yaml:"image_count"`
	RefreshRate float64 `yaml:"refresh_rate"`
	// Horizontal field of view per eye in degrees; the inner half-angle is
	// reduced by Asymmetry degrees to model off-axis lenses.
	FovDegrees float64 `yaml:"fov_degrees"`
	Asymmetry  float64 `yaml:"asymmetry_degrees"`
	IPD        float32 `yaml:"ipd"`
	BlendMode  string  `yaml:"blend_mode"`
}

// Desktop configures window layout and animation.
type Desktop struct {
	// Angular spacing between adjacent windows in radians.
	Spacing float32 `yaml:"spacing"`
	// Per-frame exponential smoothing factor.
	Smoothing float32 `yaml:"smoothing"`
	// Window pixels per world unit.
	PixelsPerUnit float32 `yaml:"pixels_per_unit"`
	CornerRadius  float32 `yaml:"corner_radius"`
}

// Background configures the environment image.
type Background struct {
	// Local path or http(s) URL; empty disables the environment.
	Image       string  `yaml:"image"`
	BlurSigma   float64 `yaml:"blur_sigma"`
	BlurWidth   int     `yaml:"blur_width"`
	MaxWidth    int     `yaml:"max_width"`
	SubmitLayer bool    `yaml:"submit_layer"`
}

// Handshake configures the producer rendezvous socket.
type Handshake struct {
	Enabled bool   `yaml:"enabled"`
	Socket  string `yaml:"socket"`
}

// Helper configures the producer helper process.
type Helper struct {
	Path         string   `yaml:"path"`
	Args         []string `yaml:"args"`
	Interface    string   `yaml:"interface"`
	LibraryPath  string   `yaml:"library_path"`
	NodesPath    string   `yaml:"nodes_path"`
	LockPath     string   `yaml:"lock_path"`
	HostIDPath   string   `yaml:"host_id_path"`
	DriverPath   string   `yaml:"driver_path"`
	Verbosity    string   `yaml:"verbosity"`
	LineBuffered bool     `yaml:"line_buffered"`
}

// Log configures local log verbosity.
type Log struct {
	Directive string `yaml:"directive"`
}

// Mirror configures the optional desktop preview window.
type Mirror struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
}

// Create a config populated with defaults.
func Default() *Config {
	return &Config{
		Runtime: Runtime{
			Views:       2,
			EyeWidth:    1024,
			EyeHeight:   1024,
			ImageCount:  3,
			RefreshRate: 72,
			FovDegrees:  100,
			Asymmetry:   8,
			IPD:         0.064,
			BlendMode:   "opaque",
		},
		Desktop: Desktop{
			Spacing:       math.Pi / 7,
			Smoothing:     0.1,
			PixelsPerUnit: 300,
			CornerRadius:  0.05,
		},
		Background: Background{
			BlurSigma: 8,
			BlurWidth: 512,
			MaxWidth:  4096,
		},
		Handshake: Handshake{
			Enabled: true,
			Socket:  "mirage.vr",
		},
		Helper: Helper{
			Verbosity:    "*=v",
			LineBuffered: true,
		},
		Log: Log{
			Directive: "*=n",
		},
		Mirror: Mirror{
			Width:  1024,
			Height: 512,
		},
	}
}

// Load a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: could not read %s: %w", path, err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: could not parse %s: %w", path, err)
	}
	cfg.Source = path

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate the config contents.
func (c *Config) Validate() error {
	switch {
	case c.Runtime.Views < 1:
		return ErrNoViews
	case c.Runtime.EyeWidth == 0 || c.Runtime.EyeHeight == 0:
		return ErrBadResolution
	case c.Runtime.ImageCount < 1:
		return ErrBadImageCount
	case c.Desktop.Smoothing <= 0 || c.Desktop.Smoothing > 1:
		return ErrBadSmoothing
	case c.Desktop.Spacing <= 0:
		return ErrBadSpacing
	case c.Handshake.Enabled && c.Handshake.Socket == "":
		return ErrMissingSocket
	case c.Mirror.Enabled && (c.Mirror.Width <= 0 || c.Mirror.Height <= 0):
		return ErrBadMirrorSize
	}

	switch c.Runtime.BlendMode {
	case "opaque", "additive", "alpha_blend":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBlendMode, c.Runtime.BlendMode)
	}
	return nil
}

// Marshal the config back to YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
