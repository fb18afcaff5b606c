package desktop

// Window is a producer fed pixel surface.
type Window struct {
	ID uint32
	fb Framebuffer

	// Render resources have been handed out for this window.
	created bool

	// Marked for removal; reaped by the next snapshot.
	destroyed bool

	// Animation state.
	rot          float32
	targetRot    float32
	height       float32
	targetHeight float32

	// Content version; bumped by every applied update. handedOut records
	// the version last copied into a snapshot.
	version   uint64
	handedOut uint64
}

func newWindow(id uint32) *Window {
	return &Window{
		ID:           id,
		targetHeight: 1,
	}
}

// WindowView is an immutable copy of a window handed to the renderer for
// one frame.
type WindowView struct {
	ID     uint32
	Width  uint32
	Height uint32

	// Pixel data, copied out of the registry. Nil when the content has not
	// changed since the previous snapshot that included this window.
	Pix []byte

	Version uint64

	// First snapshot that includes this window.
	Fresh bool

	// Animated rotation around the viewer in radians and vertical scale.
	Rot         float32
	HeightScale float32
}

// Frame is the result of a registry snapshot.
type Frame struct {
	// Live windows in insertion order.
	Windows []WindowView

	// Windows reaped by this snapshot whose render resources must be
	// released.
	Reaped []uint32
}
