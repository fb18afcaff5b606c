package sim

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/achilleasa/mirage/xr"
)

// ErrInjected is returned by operations that were set up to fail.
var ErrInjected = errors.New("sim: injected failure")

// Swapchain is a ring of host memory images.
type Swapchain struct {
	session *Session
	id      xr.Handle
	width   uint32
	height  uint32
	format  xr.PixelFormat

	mu        sync.Mutex
	images    []*image.RGBA
	next      int
	acquired  []int
	waited    bool
	released  int
	destroyed bool

	failAcquire int
	failWait    int
}

func newSwapchain(s *Session, info xr.SwapchainCreateInfo) *Swapchain {
	sc := &Swapchain{
		session:  s,
		id:       newHandle(),
		width:    info.Width,
		height:   info.Height,
		format:   info.Format,
		images:   make([]*image.RGBA, info.ImageCount),
		released: -1,
	}
	for i := range sc.images {
		sc.images[i] = image.NewRGBA(image.Rect(0, 0, int(info.Width), int(info.Height)))
	}
	return sc
}

func (sc *Swapchain) Handle() xr.Handle { return sc.id }
func (sc *Swapchain) Width() uint32     { return sc.width }
func (sc *Swapchain) Height() uint32    { return sc.height }

func (sc *Swapchain) Images() []*image.RGBA {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.images
}

// Acquire the next image in the ring and return its index.
func (sc *Swapchain) Acquire() (int, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.destroyed {
		return -1, xr.ErrHandleInvalid
	}
	if sc.failAcquire > 0 {
		sc.failAcquire--
		return -1, ErrInjected
	}
	if len(sc.acquired) == len(sc.images) {
		return -1, xr.ErrSwapchainExhausted
	}

	index := sc.next
	sc.next = (sc.next + 1) % len(sc.images)
	sc.acquired = append(sc.acquired, index)
	return index, nil
}

// Wait until the oldest acquired image is ready to be rendered to.
func (sc *Swapchain) Wait(timeout time.Duration) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.destroyed {
		return xr.ErrHandleInvalid
	}
	if len(sc.acquired) == 0 {
		return xr.ErrNoImageAcquired
	}
	if sc.waited {
		return xr.ErrCallOrder
	}
	if sc.failWait > 0 {
		sc.failWait--
		return ErrInjected
	}

	sc.waited = true
	return nil
}

// Release the oldest acquired image. Releasing an image that was never
// successfully waited on returns it to the ring without making it
// presentable.
func (sc *Swapchain) Release() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.destroyed {
		return xr.ErrHandleInvalid
	}
	if len(sc.acquired) == 0 {
		return xr.ErrNoImageAcquired
	}

	index := sc.acquired[0]
	sc.acquired = sc.acquired[1:]
	if sc.waited {
		sc.released = index
	} else {
		sc.released = -1
	}
	sc.waited = false
	return nil
}

// Presentable returns the most recently released image or nil.
func (sc *Swapchain) Presentable() *image.RGBA {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.released < 0 || sc.destroyed {
		return nil
	}
	return sc.images[sc.released]
}

// Outstanding returns the number of acquired but not yet released images.
func (sc *Swapchain) Outstanding() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.acquired)
}

// FailAcquire makes the next n Acquire calls fail.
func (sc *Swapchain) FailAcquire(n int) {
	sc.mu.Lock()
	sc.failAcquire = n
	sc.mu.Unlock()
}

// FailWait makes the next n Wait calls fail.
func (sc *Swapchain) FailWait(n int) {
	sc.mu.Lock()
	sc.failWait = n
	sc.mu.Unlock()
}

func (sc *Swapchain) Destroy() error {
	sc.mu.Lock()
	if sc.destroyed {
		sc.mu.Unlock()
		return xr.ErrHandleInvalid
	}
	sc.destroyed = true
	sc.images = nil
	sc.acquired = nil
	sc.mu.Unlock()

	sc.session.removeSwapchain(sc)
	return nil
}
