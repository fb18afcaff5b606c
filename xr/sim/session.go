package sim

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/achilleasa/mirage/types"
	"github.com/achilleasa/mirage/xr"
	"golang.org/x/image/draw"
)

// Session is a simulated runtime session.
type Session struct {
	inst *Instance
	id   xr.Handle

	mu            sync.Mutex
	state         xr.SessionState
	running       bool
	exitRequested bool
	lost          bool
	destroyed     bool

	// Frame bookkeeping.
	frameWaited bool
	frameBegun  bool
	lastFrame   time.Time
	frameCount  int
	emptyFrames int
	lastEnd     xr.FrameEndInfo
	display     *image.RGBA

	spaces     map[xr.Handle]bool
	swapchains map[xr.Handle]*Swapchain
}

func newSession(inst *Instance) *Session {
	return &Session{
		inst:       inst,
		id:         newHandle(),
		spaces:     make(map[xr.Handle]bool),
		swapchains: make(map[xr.Handle]*Swapchain),
	}
}

func (s *Session) Handle() xr.Handle {
	return s.id
}

// State returns the current session state.
func (s *Session) State() xr.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state xr.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.inst.emit(xr.SessionStateChanged{
		Session: s.id,
		State:   state,
		Time:    time.Now(),
	})
}

func (s *Session) lose() {
	s.mu.Lock()
	s.lost = true
	s.running = false
	s.mu.Unlock()

	s.setState(xr.StateLossPending)
}

// Check common preconditions. Must be called with s.mu held.
func (s *Session) usable() error {
	switch {
	case s.destroyed:
		return xr.ErrHandleInvalid
	case s.lost:
		return xr.ErrSessionLost
	}
	return nil
}

func (s *Session) SwapchainFormats() []xr.PixelFormat {
	return s.inst.opts.Formats
}

func (s *Session) CreateReferenceSpace() (xr.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return xr.Handle{}, err
	}

	id := newHandle()
	s.spaces[id] = true
	return id, nil
}

func (s *Session) CreateSwapchain(info xr.SwapchainCreateInfo) (xr.Swapchain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return nil, err
	}

	var formatOK bool
	for _, f := range s.inst.opts.Formats {
		formatOK = formatOK || f == info.Format
	}
	if !formatOK {
		return nil, fmt.Errorf("%w: %s", xr.ErrFormatUnsupported, info.Format)
	}

	limit := s.inst.opts.MaxImageSize
	if info.Width == 0 || info.Height == 0 || info.Width > limit || info.Height > limit {
		return nil, fmt.Errorf("%w: %dx%d", xr.ErrImageSizeUnsupported, info.Width, info.Height)
	}
	if info.ImageCount < 1 {
		return nil, fmt.Errorf("sim: invalid swapchain image count %d", info.ImageCount)
	}

	sc := newSwapchain(s, info)
	s.swapchains[sc.id] = sc
	return sc, nil
}

func (s *Session) removeSwapchain(sc *Swapchain) {
	s.mu.Lock()
	delete(s.swapchains, sc.id)
	s.mu.Unlock()
}

func (s *Session) Begin(vc xr.ViewConfigType) error {
	if _, err := s.inst.viewCount(vc); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.running {
		s.mu.Unlock()
		return xr.ErrSessionRunning
	}
	if s.state != xr.StateReady {
		s.mu.Unlock()
		return xr.ErrSessionNotReady
	}
	s.running = true
	s.mu.Unlock()

	s.setState(xr.StateSynchronized)
	s.setState(xr.StateVisible)
	s.setState(xr.StateFocused)
	return nil
}

// RequestExit asks the runtime to stop the session. The runtime replies by
// moving to the stopping state.
func (s *Session) RequestExit() error {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.running {
		s.mu.Unlock()
		return xr.ErrSessionNotRunning
	}
	s.exitRequested = true
	s.mu.Unlock()

	s.setState(xr.StateStopping)
	return nil
}

// Unfocus simulates the user switching to another application. The session
// keeps running but no longer receives focus.
func (s *Session) Unfocus() {
	s.setState(xr.StateVisible)
}

// Hide simulates the headset being taken off. Frames are still paced but
// their content is not displayed.
func (s *Session) Hide() {
	s.setState(xr.StateSynchronized)
}

func (s *Session) End() error {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state != xr.StateStopping {
		s.mu.Unlock()
		return xr.ErrSessionNotStopping
	}
	s.running = false
	s.frameWaited, s.frameBegun = false, false
	exit := s.exitRequested
	s.mu.Unlock()

	s.setState(xr.StateIdle)
	if exit {
		s.setState(xr.StateExiting)
	}
	return nil
}

// WaitFrame blocks until the next display period.
func (s *Session) WaitFrame(ctx context.Context) (xr.FrameState, error) {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return xr.FrameState{}, err
	}
	if !s.running {
		s.mu.Unlock()
		return xr.FrameState{}, xr.ErrSessionNotRunning
	}

	var period time.Duration
	if s.inst.opts.RefreshRate > 0 {
		period = time.Duration(float64(time.Second) / s.inst.opts.RefreshRate)
	}
	next := s.lastFrame.Add(period)
	s.mu.Unlock()

	if delay := time.Until(next); period > 0 && delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return xr.FrameState{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.lastFrame = now
	s.frameWaited = true

	return xr.FrameState{
		PredictedDisplayTime: now.Add(period),
		PredictedPeriod:      period,
		ShouldRender:         s.state == xr.StateVisible || s.state == xr.StateFocused,
	}, nil
}

func (s *Session) BeginFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if !s.running {
		return xr.ErrSessionNotRunning
	}
	if !s.frameWaited {
		return xr.ErrCallOrder
	}

	s.frameWaited = false
	s.frameBegun = true
	return nil
}

func (s *Session) EndFrame(info xr.FrameEndInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if !s.frameBegun {
		return xr.ErrFrameNotBegun
	}
	s.frameBegun = false

	if err := s.validateFrame(info); err != nil {
		s.inst.debugf(xr.SeverityError, xr.TypeValidation, "EndFrame", "%v", err)
		return err
	}

	s.frameCount++
	if len(info.Layers) == 0 {
		s.emptyFrames++
	} else {
		s.compose(info)
	}
	s.lastEnd = info
	return nil
}

// Validate submitted layers. Must be called with s.mu held.
func (s *Session) validateFrame(info xr.FrameEndInfo) error {
	var blendOK bool
	for _, mode := range s.inst.opts.BlendModes {
		blendOK = blendOK || mode == info.BlendMode
	}
	if !blendOK {
		return fmt.Errorf("%w: blend mode %s", xr.ErrLayerInvalid, info.BlendMode)
	}
	if len(info.Layers) > s.inst.opts.MaxLayers {
		return xr.ErrTooManyLayers
	}

	for index, layer := range info.Layers {
		switch l := layer.(type) {
		case xr.ProjectionLayer:
			if !s.spaces[l.Space] {
				return fmt.Errorf("%w: layer %d: unknown space", xr.ErrHandleInvalid, index)
			}
			if len(l.Views) == 0 {
				return fmt.Errorf("%w: layer %d: no views", xr.ErrLayerInvalid, index)
			}
			for _, view := range l.Views {
				if err := s.validateSubImage(view.SubImage); err != nil {
					return fmt.Errorf("layer %d: %w", index, err)
				}
			}
		case xr.EquirectLayer:
			if !s.spaces[l.Space] {
				return fmt.Errorf("%w: layer %d: unknown space", xr.ErrHandleInvalid, index)
			}
			if err := s.validateSubImage(l.SubImage); err != nil {
				return fmt.Errorf("layer %d: %w", index, err)
			}
		default:
			return fmt.Errorf("%w: layer %d: unsupported type %T", xr.ErrLayerInvalid, index, layer)
		}
	}
	return nil
}

func (s *Session) validateSubImage(sub xr.SwapchainImage) error {
	sc, ok := s.swapchains[sub.Swapchain]
	if !ok {
		return fmt.Errorf("%w: unknown swapchain", xr.ErrHandleInvalid)
	}

	r := sub.Rect
	if r.X < 0 || r.Y < 0 || r.Width <= 0 || r.Height <= 0 ||
		r.X+r.Width > int(sc.width) || r.Y+r.Height > int(sc.height) {
		return fmt.Errorf("%w: sub-image rect %+v outside %dx%d swapchain", xr.ErrLayerInvalid, r, sc.width, sc.height)
	}
	if sc.Presentable() == nil {
		return fmt.Errorf("%w: swapchain has no released image", xr.ErrLayerInvalid)
	}
	return nil
}

// Compose the projection views side by side into the display image. Must
// be called with s.mu held.
func (s *Session) compose(info xr.FrameEndInfo) {
	for _, layer := range info.Layers {
		proj, ok := layer.(xr.ProjectionLayer)
		if !ok {
			continue
		}

		var width, height int
		for _, view := range proj.Views {
			width += view.SubImage.Rect.Width
			if view.SubImage.Rect.Height > height {
				height = view.SubImage.Rect.Height
			}
		}
		if s.display == nil || s.display.Bounds().Dx() != width || s.display.Bounds().Dy() != height {
			s.display = image.NewRGBA(image.Rect(0, 0, width, height))
		}

		var x int
		for _, view := range proj.Views {
			r := view.SubImage.Rect
			src := s.swapchains[view.SubImage.Swapchain].Presentable()
			dst := image.Rect(x, 0, x+r.Width, r.Height)
			draw.Draw(s.display, dst, src, image.Pt(r.X, r.Y), draw.Src)
			x += r.Width
		}
	}
}

// LocateViews returns the eye views for the given display time. Eyes are
// spread along the head's x axis by the configured IPD.
func (s *Session) LocateViews(displayTime time.Time, space xr.Handle) ([]xr.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return nil, err
	}
	if !s.spaces[space] {
		return nil, xr.ErrHandleInvalid
	}

	head := types.QuatIdent()
	if s.inst.opts.HeadYaw != nil {
		head = types.QuatFromAxisAngle(types.XYZ(0, 1, 0), s.inst.opts.HeadYaw(displayTime))
	}

	count := s.inst.opts.Views
	views := make([]xr.View, count)
	for eye := range views {
		var offset float32
		if count > 1 {
			offset = -s.inst.opts.IPD/2 + s.inst.opts.IPD*float32(eye)/float32(count-1)
		}
		views[eye] = xr.View{
			Pose: xr.Pose{
				Orientation: head,
				Position:    head.Rotate(types.XYZ(offset, 0, 0)),
			},
			Fov: s.inst.eyeFov(eye, count),
		}
	}
	return views, nil
}

func (s *Session) Destroy() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return xr.ErrHandleInvalid
	}
	s.destroyed = true
	lost := s.lost
	s.mu.Unlock()

	s.inst.releaseSession(s)
	if lost {
		return xr.ErrSessionLost
	}
	return nil
}

// Display returns a copy of the last composed frame or nil if no frame with
// content was submitted yet.
func (s *Session) Display() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.display == nil {
		return nil
	}
	out := image.NewRGBA(s.display.Bounds())
	copy(out.Pix, s.display.Pix)
	return out
}

// LastFrame returns the last successfully submitted frame.
func (s *Session) LastFrame() xr.FrameEndInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEnd
}

// FrameCount returns the number of submitted frames and how many of them
// carried no layers.
func (s *Session) FrameCount() (total, empty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount, s.emptyFrames
}
