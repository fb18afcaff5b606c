package renderer

import (
	"fmt"
	"math"
	"time"

	"github.com/achilleasa/mirage/asset/texture"
	"github.com/achilleasa/mirage/types"
	"github.com/achilleasa/mirage/xr"
)

// Environment is the static background surrounding the viewer. The sharp
// image is uploaded once into its own swapchain and submitted as an
// equirect layer; a blurred copy tints the area behind window panes.
type Environment struct {
	sharp   *texture.Texture
	blurred *texture.Texture

	swapchain   xr.Swapchain
	waitTimeout time.Duration
}

// NewEnvironment prepares the background. If opts.SubmitEnvironment is set
// a single image swapchain is created and the image uploaded into it.
func NewEnvironment(session xr.Session, tex *texture.Texture, opts Options) (*Environment, error) {
	env := &Environment{
		sharp:   tex,
		blurred: tex.Blurred(opts.BlurWidth, opts.BlurSigma),
	}
	if !opts.SubmitEnvironment {
		return env, nil
	}

	sc, err := session.CreateSwapchain(xr.SwapchainCreateInfo{
		Format:     opts.Format,
		Width:      uint32(tex.Width),
		Height:     uint32(tex.Height),
		ImageCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentSetup, err)
	}
	env.swapchain = sc
	env.waitTimeout = opts.WaitTimeout

	index, err := sc.Acquire()
	if err != nil {
		sc.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentSetup, err)
	}
	if err = sc.Wait(env.waitTimeout); err != nil {
		sc.Release()
		sc.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentSetup, err)
	}
	tex.Upload(sc.Images()[index])
	if err = sc.Release(); err != nil {
		sc.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentSetup, err)
	}

	logger.Infof("uploaded %dx%d environment", tex.Width, tex.Height)
	return env, nil
}

// Submitted reports whether the environment is presented as its own layer.
func (env *Environment) Submitted() bool {
	return env.swapchain != nil
}

// Layer cycles the environment swapchain so the runtime always has a
// released image and returns the equirect layer covering the full sphere.
// Returns false if the environment is not submitted or the swapchain could
// not be cycled.
func (env *Environment) Layer(space xr.Handle) (xr.EquirectLayer, bool) {
	if env.swapchain == nil {
		return xr.EquirectLayer{}, false
	}

	if _, err := env.swapchain.Acquire(); err != nil {
		logger.Warningf("could not acquire environment image: %v", err)
		return xr.EquirectLayer{}, false
	}
	waitErr := env.swapchain.Wait(env.waitTimeout)
	if err := env.swapchain.Release(); err != nil {
		logger.Warningf("could not release environment image: %v", err)
		return xr.EquirectLayer{}, false
	}
	if waitErr != nil {
		logger.Warningf("could not wait for environment image: %v", waitErr)
		return xr.EquirectLayer{}, false
	}

	return xr.EquirectLayer{
		Space: space,
		Pose:  xr.Pose{Orientation: types.QuatIdent()},
		SubImage: xr.SwapchainImage{
			Swapchain: env.swapchain.Handle(),
			Rect:      xr.Rect{Width: env.sharp.Width, Height: env.sharp.Height},
		},
		Radius:       0,
		CentralAngle: 2 * math.Pi,
		UpperAngle:   math.Pi / 2,
		LowerAngle:   -math.Pi / 2,
	}, true
}

// Destroy the environment swapchain.
func (env *Environment) Destroy() error {
	if env.swapchain == nil {
		return nil
	}
	err := env.swapchain.Destroy()
	env.swapchain = nil
	return err
}
