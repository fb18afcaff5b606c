package desktop

import (
	"math"
	"sync"

	"github.com/achilleasa/mirage/log"
)

var logger = log.New("desktop")

type Options struct {
	// Angular spacing between adjacent windows in radians.
	Spacing float32

	// Fraction of the remaining distance covered per snapshot by the
	// rotation and height animations.
	Smoothing float32
}

func DefaultOptions() Options {
	return Options{
		Spacing:   math.Pi / 7,
		Smoothing: 0.1,
	}
}

// Stats holds registry counters.
type Stats struct {
	Live    int
	Updates uint64
	Dropped uint64
	Reaped  uint64
}

// Registry owns all windows. A single mutex guards the registry; it is held
// for one update or one snapshot and never while rendering.
type Registry struct {
	opts Options

	mu      sync.Mutex
	windows map[uint32]*Window
	order   []*Window

	// Ids of reaped windows. Updates for these are dropped so that a
	// destroyed window never comes back.
	tombstones map[uint32]struct{}

	stats Stats
}

// Create an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:       opts,
		windows:    make(map[uint32]*Window),
		tombstones: make(map[uint32]struct{}),
	}
}

// Upsert applies a tile update, creating the window on first sight. The
// update is validated before any state changes; malformed updates are
// logged and dropped.
func (r *Registry) Upsert(u TileUpdate) error {
	if err := u.Validate(); err != nil {
		logger.Errorf("dropping update for window %d: %v", u.ID, err)
		r.mu.Lock()
		r.stats.Dropped++
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, reaped := r.tombstones[u.ID]; reaped {
		logger.Debugf("dropping update for destroyed window %d", u.ID)
		r.stats.Dropped++
		return nil
	}

	w, ok := r.windows[u.ID]
	if !ok {
		logger.Infof("new window %d (%dx%d)", u.ID, u.Width, u.Height)
		w = newWindow(u.ID)
		r.windows[u.ID] = w
		r.order = append(r.order, w)
	}

	if w.fb.Resize(u.Width, u.Height) && ok {
		logger.Debugf("window %d resized to %dx%d", u.ID, u.Width, u.Height)
	}
	w.fb.applyTiles(&u)
	w.version++
	r.stats.Updates++
	return nil
}

// MarkDestroyed flags a window for removal. The window is reaped by the
// next snapshot. Marking an already destroyed window is a no-op.
func (r *Registry) MarkDestroyed(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, reaped := r.tombstones[id]; reaped {
		return nil
	}

	w, ok := r.windows[id]
	if !ok {
		logger.Errorf("cannot destroy window %d: %v", id, ErrUnknownWindow)
		return ErrUnknownWindow
	}

	if !w.destroyed {
		logger.Infof("window %d marked for removal", id)
	}
	w.destroyed = true
	return nil
}

// Snapshot reaps destroyed windows and returns copies of the live ones with
// their layout advanced by one animation step. Must only be called from the
// render goroutine, once per frame.
func (r *Registry) Snapshot() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	var frame Frame

	live := r.order[:0]
	for _, w := range r.order {
		if !w.destroyed {
			live = append(live, w)
			continue
		}

		delete(r.windows, w.ID)
		r.tombstones[w.ID] = struct{}{}
		r.stats.Reaped++
		if w.created {
			frame.Reaped = append(frame.Reaped, w.ID)
		}
		logger.Debugf("reaped window %d", w.ID)
	}
	for i := len(live); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = live

	targets := ArcTargets(len(live), r.opts.Spacing)
	frame.Windows = make([]WindowView, len(live))
	for j, w := range live {
		w.targetRot = targets[j]
		w.rot = Smooth(w.rot, w.targetRot, r.opts.Smoothing)
		w.height = Smooth(w.height, w.targetHeight, r.opts.Smoothing)

		view := WindowView{
			ID:          w.ID,
			Width:       w.fb.Width,
			Height:      w.fb.Height,
			Version:     w.version,
			Fresh:       !w.created,
			Rot:         w.rot,
			HeightScale: w.height,
		}
		if !w.created || w.handedOut != w.version {
			view.Pix = make([]byte, len(w.fb.Pix))
			copy(view.Pix, w.fb.Pix)
			w.handedOut = w.version
		}
		w.created = true
		frame.Windows[j] = view
	}

	r.stats.Live = len(live)
	return frame
}

// Stats returns a copy of the registry counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Len returns the number of windows held, including those awaiting reaping.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
