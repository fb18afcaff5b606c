package xr

import "fmt"

// Negotiated holds the runtime capabilities selected for a run.
type Negotiated struct {
	APILayers  []string
	Extensions []string
	ViewConfig ViewConfigType
	Views      []ViewConfigViewInfo
	BlendMode  BlendMode
}

// Negotiate enables the wanted API layers that the runtime offers and the
// required extensions, then selects the primary stereo view configuration
// and an environment blend mode. A missing extension, view configuration
// or blend mode is fatal.
//
// If preferred is supported it is used; otherwise the first opaque or
// additive mode reported by the runtime is picked.
func Negotiate(inst Instance, preferred BlendMode) (*Negotiated, error) {
	n := &Negotiated{
		ViewConfig: ViewConfigPrimaryStereo,
	}

	available := inst.APILayers()
	for _, wanted := range WantedAPILayers {
		if contains(available, wanted) {
			n.APILayers = append(n.APILayers, wanted)
		} else {
			logger.Infof("API layer %s not available", wanted)
		}
	}

	extensions := inst.Extensions()
	for _, required := range []string{ExtGraphicsEnable, ExtDebugUtils, ExtEquirect2} {
		if !contains(extensions, required) {
			return nil, fmt.Errorf("%w: %s", ErrMissingExtension, required)
		}
		n.Extensions = append(n.Extensions, required)
	}

	if err := inst.Enable(n.APILayers, n.Extensions); err != nil {
		return nil, err
	}

	var hasStereo bool
	for _, vc := range inst.ViewConfigurations() {
		if vc == ViewConfigPrimaryStereo {
			hasStereo = true
			break
		}
	}
	if !hasStereo {
		return nil, ErrNoStereoView
	}

	views, err := inst.ViewConfigurationViews(n.ViewConfig)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNoStereoView
	}
	n.Views = views

	modes := inst.BlendModes(n.ViewConfig)
	for _, mode := range modes {
		if mode == preferred {
			n.BlendMode = mode
			break
		}
	}
	if n.BlendMode == 0 {
		for _, mode := range modes {
			if mode == BlendOpaque || mode == BlendAdditive {
				n.BlendMode = mode
				break
			}
		}
	}
	if n.BlendMode == 0 {
		return nil, ErrNoBlendMode
	}
	if n.BlendMode != preferred {
		logger.Noticef("blend mode %s not supported; using %s", preferred, n.BlendMode)
	}

	return n, nil
}

// SelectFormat returns the runtime's preferred swapchain format.
func SelectFormat(s Session) (PixelFormat, error) {
	formats := s.SwapchainFormats()
	if len(formats) == 0 {
		return 0, ErrNoSwapchainFormat
	}
	return formats[0], nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
