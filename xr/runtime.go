package xr

import (
	"context"
	"image"
	"time"
)

// Extensions required by the compositor.
const (
	ExtGraphicsEnable = "XR_graphics_enable"
	ExtDebugUtils     = "XR_EXT_debug_utils"
	ExtEquirect2      = "XR_KHR_composition_layer_equirect2"
)

// API layers enabled when the runtime offers them.
var WantedAPILayers = []string{
	"XR_APILAYER_core_validation",
}

// Instance is the top-level runtime connection.
type Instance interface {
	Properties() InstanceProperties
	APILayers() []string
	Extensions() []string

	// Enable API layers and extensions. Must be called before any session
	// is created.
	Enable(layers, extensions []string) error

	System() SystemProperties
	ViewConfigurations() []ViewConfigType
	ViewConfigurationViews(ViewConfigType) ([]ViewConfigViewInfo, error)
	BlendModes(ViewConfigType) []BlendMode

	// Register a debug message callback. Passing nil removes it.
	SetDebugMessenger(DebugCallback)

	CreateSession() (Session, error)

	// Events returns the channel runtime events are delivered on.
	Events() <-chan Event

	Destroy() error
}

// ViewConfigViewInfo wraps the per-view recommendation with its limits.
type ViewConfigViewInfo struct {
	ViewConfigView
	MaxWidth      uint32
	MaxHeight     uint32
	MaxImageCount int
}

// Session is the bound runtime context for one run.
type Session interface {
	Handle() Handle

	SwapchainFormats() []PixelFormat
	CreateReferenceSpace() (Handle, error)
	CreateSwapchain(SwapchainCreateInfo) (Swapchain, error)

	Begin(ViewConfigType) error
	End() error
	RequestExit() error

	// WaitFrame blocks until the runtime is ready for the next frame.
	WaitFrame(ctx context.Context) (FrameState, error)
	BeginFrame() error
	EndFrame(FrameEndInfo) error

	LocateViews(displayTime time.Time, space Handle) ([]View, error)

	Destroy() error
}

// Swapchain is a ring of render target images.
type Swapchain interface {
	Handle() Handle
	Width() uint32
	Height() uint32

	// Images returns the render target backing each ring slot.
	Images() []*image.RGBA

	Acquire() (int, error)
	Wait(timeout time.Duration) error
	Release() error

	Destroy() error
}
