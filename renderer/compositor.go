package renderer

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/achilleasa/mirage/asset/texture"
	"github.com/achilleasa/mirage/desktop"
	"github.com/achilleasa/mirage/log"
	"github.com/achilleasa/mirage/xr"
)

var logger = log.New("renderer")

// A Presenter receives the first eye's image after it has been rendered,
// before it is released to the runtime.
type Presenter interface {
	Present(img *image.RGBA)
}

// Compositor renders the window registry into the session swapchains,
// one frame per Render call.
type Compositor struct {
	opts     Options
	session  xr.Session
	registry *desktop.Registry

	space      xr.Handle
	swapchains []xr.Swapchain
	env        *Environment
	textures   *textureCache
	raster     *rasterizer
	mirror     Presenter

	// Release functions for acquired resources, run in reverse order.
	closers []func() error

	mu    sync.Mutex
	stats FrameStats
}

// New creates one swapchain per view and, if background is not nil, the
// environment. On failure every resource created so far is released in
// reverse order.
func New(session xr.Session, views []xr.ViewConfigViewInfo, registry *desktop.Registry, background *texture.Texture, opts Options) (*Compositor, error) {
	if len(views) == 0 {
		return nil, ErrNoViews
	}

	c := &Compositor{
		opts:     opts,
		session:  session,
		registry: registry,
		textures: newTextureCache(),
		raster:   newRasterizer(len(views), opts.Workers),
		stats:    FrameStats{Eyes: make([]EyeStat, len(views))},
	}

	var err error
	if c.space, err = session.CreateReferenceSpace(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReferenceSpace, err)
	}

	for eye, view := range views {
		sc, err := session.CreateSwapchain(xr.SwapchainCreateInfo{
			Format:     opts.Format,
			Width:      view.RecommendedWidth,
			Height:     view.RecommendedHeight,
			ImageCount: view.RecommendedImageCount,
		})
		if err != nil {
			c.unwind(false)
			return nil, fmt.Errorf("%w: eye %d: %w", ErrSwapchainCreate, eye, err)
		}
		logger.Infof("created %dx%d swapchain for eye %d", sc.Width(), sc.Height(), eye)
		c.swapchains = append(c.swapchains, sc)
		c.closers = append(c.closers, sc.Destroy)
	}

	if background != nil {
		if c.env, err = NewEnvironment(session, background, opts); err != nil {
			c.unwind(false)
			return nil, err
		}
		c.closers = append(c.closers, c.env.Destroy)
	}

	return c, nil
}

// SetMirror registers a presenter for the first eye. Must be called from
// the render goroutine.
func (c *Compositor) SetMirror(p Presenter) {
	c.mirror = p
}

// Render waits for the next frame and submits it. Layers are only rendered
// when active is true and the runtime asks for content; otherwise the frame
// is ended without layers. Per-eye failures drop that eye from the frame.
func (c *Compositor) Render(ctx context.Context, active bool) error {
	state, err := c.session.WaitFrame(ctx)
	if err != nil {
		return fmt.Errorf("renderer: wait frame: %w", err)
	}
	if err = c.session.BeginFrame(); err != nil {
		return fmt.Errorf("renderer: begin frame: %w", err)
	}

	start := time.Now()
	var (
		layers []xr.Layer
		panes  int
	)
	if active && state.ShouldRender {
		layers, panes = c.renderLayers(state.PredictedDisplayTime)
	}

	err = c.session.EndFrame(xr.FrameEndInfo{
		DisplayTime: state.PredictedDisplayTime,
		BlendMode:   c.opts.BlendMode,
		Layers:      layers,
	})
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.EndFailures++
		return fmt.Errorf("renderer: end frame: %w", err)
	}
	c.stats.Frames++
	if len(layers) == 0 {
		c.stats.EmptyFrames++
	}
	c.stats.PanesDrawn += panes
	c.stats.RenderTime += elapsed
	c.stats.LastRenderTime = elapsed
	c.stats.MaxRenderTime = max(c.stats.MaxRenderTime, elapsed)
	return nil
}

// Render all eyes and assemble the frame's layers. The registry snapshot is
// taken once and shared by every eye.
func (c *Compositor) renderLayers(displayTime time.Time) ([]xr.Layer, int) {
	frame := c.registry.Snapshot()
	c.textures.sync(frame)

	views, err := c.session.LocateViews(displayTime, c.space)
	if err != nil {
		logger.Warningf("could not locate views: %v", err)
		return nil, 0
	}
	if len(views) != len(c.swapchains) {
		logger.Warningf("%v: %d views for %d swapchains", ErrViewCount, len(views), len(c.swapchains))
		return nil, 0
	}

	scene := c.buildScene(frame)
	var projViews []xr.ProjectionView
	for eye, view := range views {
		if pv, ok := c.renderEye(eye, view, scene); ok {
			projViews = append(projViews, pv)
		}
	}

	var layers []xr.Layer
	if c.env != nil {
		if layer, ok := c.env.Layer(c.space); ok {
			layers = append(layers, layer)
		}
	}
	if len(projViews) > 0 {
		layers = append(layers, xr.ProjectionLayer{Space: c.space, Views: projViews})
	}
	return layers, len(scene.panes) * len(projViews)
}

func (c *Compositor) buildScene(frame desktop.Frame) *rasterScene {
	scene := &rasterScene{}
	if c.env != nil {
		scene.tint = c.env.blurred
		if !c.env.Submitted() {
			scene.background = c.env.sharp
		}
	}

	for _, w := range frame.Windows {
		tex := c.textures.get(w.ID)
		if tex == nil {
			continue
		}
		if p, ok := newPane(tex, w.Rot, w.HeightScale, &c.opts); ok {
			scene.panes = append(scene.panes, p)
		}
	}
	return scene
}

// Render a single eye. The swapchain image is released whenever it was
// acquired. Returns false if the eye must be left out of the frame.
func (c *Compositor) renderEye(eye int, view xr.View, scene *rasterScene) (xr.ProjectionView, bool) {
	sc := c.swapchains[eye]

	index, err := sc.Acquire()
	if err != nil {
		logger.Warningf("eye %d: could not acquire swapchain image: %v", eye, err)
		c.countEye(eye, func(s *EyeStat) { s.AcquireFailures++ })
		return xr.ProjectionView{}, false
	}

	if err = sc.Wait(c.opts.WaitTimeout); err != nil {
		logger.Warningf("eye %d: could not wait for swapchain image: %v", eye, err)
		c.countEye(eye, func(s *EyeStat) { s.WaitFailures++ })
		if err = sc.Release(); err != nil {
			logger.Errorf("eye %d: could not release swapchain image: %v", eye, err)
		}
		return xr.ProjectionView{}, false
	}

	img := sc.Images()[index]
	blocks := c.raster.draw(eye, img, newEyeCamera(view, c.opts.Near, c.opts.Far), scene)
	if eye == 0 && c.mirror != nil {
		c.mirror.Present(img)
	}

	if err = sc.Release(); err != nil {
		logger.Errorf("eye %d: could not release swapchain image: %v", eye, err)
		c.countEye(eye, func(s *EyeStat) { s.ReleaseFailures++ })
		return xr.ProjectionView{}, false
	}

	c.countEye(eye, func(s *EyeStat) {
		s.Rendered++
		s.Blocks = append(s.Blocks[:0], blocks...)
	})
	return xr.ProjectionView{
		Pose: view.Pose,
		Fov:  view.Fov,
		SubImage: xr.SwapchainImage{
			Swapchain: sc.Handle(),
			Rect:      xr.Rect{Width: int(sc.Width()), Height: int(sc.Height())},
		},
	}, true
}

func (c *Compositor) countEye(eye int, fn func(*EyeStat)) {
	c.mu.Lock()
	fn(&c.stats.Eyes[eye])
	c.mu.Unlock()
}

// Stats returns a copy of the render statistics.
func (c *Compositor) Stats() FrameStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.stats
	out.Eyes = make([]EyeStat, len(c.stats.Eyes))
	for i, eye := range c.stats.Eyes {
		out.Eyes[i] = eye
		out.Eyes[i].Blocks = append([]BlockStat(nil), eye.Blocks...)
	}
	return out
}

// Textures returns the number of window textures held.
func (c *Compositor) Textures() int {
	return c.textures.len()
}

// Close releases all swapchains and the environment.
func (c *Compositor) Close() {
	c.unwind(false)
}

// Teardown releases all resources. When lenient is set, release errors are
// expected (the runtime is going away) and only logged at debug level.
func (c *Compositor) Teardown(lenient bool) {
	c.unwind(lenient)
}

func (c *Compositor) unwind(lenient bool) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			if lenient {
				logger.Debugf("ignoring release error during teardown: %v", err)
			} else {
				logger.Warningf("release error during teardown: %v", err)
			}
		}
	}
	c.closers = nil
	c.swapchains = nil
	c.env = nil
}
