package xr

import "errors"

var (
	ErrMissingExtension      = errors.New("xr: required extension not supported")
	ErrNoStereoView          = errors.New("xr: primary stereo view configuration not supported")
	ErrNoBlendMode           = errors.New("xr: no supported environment blend mode")
	ErrNoSwapchainFormat     = errors.New("xr: runtime offers no swapchain formats")
	ErrViewConfigUnsupported = errors.New("xr: view configuration unsupported")
	ErrFormatUnsupported     = errors.New("xr: swapchain format unsupported")
	ErrImageSizeUnsupported  = errors.New("xr: swapchain image size unsupported")
	ErrSessionExists         = errors.New("xr: a session already exists for this instance")
	ErrSessionNotReady       = errors.New("xr: session is not ready")
	ErrSessionNotRunning     = errors.New("xr: session is not running")
	ErrSessionRunning        = errors.New("xr: session is already running")
	ErrSessionNotStopping    = errors.New("xr: session is not stopping")
	ErrSessionLost           = errors.New("xr: session lost")
	ErrCallOrder             = errors.New("xr: call order invalid")
	ErrFrameNotBegun         = errors.New("xr: frame not begun")
	ErrNoImageAcquired       = errors.New("xr: no swapchain image acquired")
	ErrSwapchainExhausted    = errors.New("xr: all swapchain images acquired")
	ErrHandleInvalid         = errors.New("xr: invalid handle")
	ErrLayerInvalid          = errors.New("xr: invalid composition layer")
	ErrTooManyLayers         = errors.New("xr: too many composition layers")
)
