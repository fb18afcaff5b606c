package renderer

import (
	"runtime"
	"time"

	"github.com/achilleasa/mirage/xr"
)

type Options struct {
	// Clip planes.
	Near float32
	Far  float32

	// Blend mode and pixel format negotiated with the runtime.
	BlendMode xr.BlendMode
	Format    xr.PixelFormat

	// Swapchain image wait timeout.
	WaitTimeout time.Duration

	// Window pixels per world unit and pane corner radius.
	PixelsPerUnit float32
	CornerRadius  float32

	// Pane placement: panes orbit at OrbitRadius around a pivot OrbitOffset
	// units behind the viewer, lifted by PaneLift.
	OrbitRadius float32
	OrbitOffset float32
	PaneLift    float32

	// Environment preparation. The blurred copy tints the area behind
	// translucent window pixels.
	BlurWidth int
	BlurSigma float64

	// Submit the environment as an equirect layer below the projection
	// layer. When false the environment is drawn into each eye instead.
	SubmitEnvironment bool

	// Number of goroutines rasterizing each eye.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		Near:              0.1,
		Far:               500,
		BlendMode:         xr.BlendOpaque,
		Format:            xr.FormatSRGBA8,
		WaitTimeout:       time.Second,
		PixelsPerUnit:     300,
		CornerRadius:      0.05,
		OrbitRadius:       10,
		OrbitOffset:       7,
		PaneLift:          0.3,
		BlurWidth:         512,
		BlurSigma:         8,
		SubmitEnvironment: true,
		Workers:           runtime.NumCPU(),
	}
}
