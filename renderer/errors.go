package renderer

import "errors"

var (
	ErrNoViews          = errors.New("renderer: runtime reported no views")
	ErrSwapchainCreate  = errors.New("renderer: could not create swapchain")
	ErrReferenceSpace   = errors.New("renderer: could not create reference space")
	ErrViewCount        = errors.New("renderer: located view count does not match swapchains")
	ErrEnvironmentSetup = errors.New("renderer: could not set up environment")
)
