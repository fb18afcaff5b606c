package xr

import (
	"time"

	"github.com/achilleasa/mirage/types"
	"github.com/google/uuid"
)

// Handle identifies runtime objects (sessions, swapchains, spaces).
type Handle = uuid.UUID

// Session lifecycle states as reported by the runtime.
type SessionState uint8

const (
	StateUnknown SessionState = iota
	StateIdle
	StateReady
	StateSynchronized
	StateVisible
	StateFocused
	StateStopping
	StateLossPending
	StateExiting
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateSynchronized:
		return "synchronized"
	case StateVisible:
		return "visible"
	case StateFocused:
		return "focused"
	case StateStopping:
		return "stopping"
	case StateLossPending:
		return "loss-pending"
	case StateExiting:
		return "exiting"
	}
	return "unknown"
}

// Active returns true for the states in which the runtime displays frame
// content.
func (s SessionState) Active() bool {
	return s == StateSynchronized || s == StateVisible || s == StateFocused
}

type ViewConfigType uint8

const (
	ViewConfigMono ViewConfigType = iota + 1
	ViewConfigPrimaryStereo
)

func (v ViewConfigType) String() string {
	switch v {
	case ViewConfigMono:
		return "mono"
	case ViewConfigPrimaryStereo:
		return "primary-stereo"
	}
	return "unknown"
}

type BlendMode uint8

const (
	BlendOpaque BlendMode = iota + 1
	BlendAdditive
	BlendAlpha
)

func (b BlendMode) String() string {
	switch b {
	case BlendOpaque:
		return "opaque"
	case BlendAdditive:
		return "additive"
	case BlendAlpha:
		return "alpha_blend"
	}
	return "unknown"
}

// Parse a blend mode name as used in config files.
func ParseBlendMode(s string) (BlendMode, bool) {
	for _, b := range []BlendMode{BlendOpaque, BlendAdditive, BlendAlpha} {
		if b.String() == s {
			return b, true
		}
	}
	return 0, false
}

// Fov holds the four frustum half-angles in radians. Left and Down are
// usually negative.
type Fov struct {
	AngleLeft  float32
	AngleRight float32
	AngleUp    float32
	AngleDown  float32
}

// A Pose locates a view inside a reference space.
type Pose struct {
	Orientation types.Quat
	Position    types.Vec3
}

// View describes one eye for a predicted display time.
type View struct {
	Pose Pose
	Fov  Fov
}

// ViewConfigView holds the recommended rendering parameters for one view.
type ViewConfigView struct {
	RecommendedWidth      uint32
	RecommendedHeight     uint32
	RecommendedImageCount int
}

type FrameState struct {
	PredictedDisplayTime time.Time
	PredictedPeriod      time.Duration
	ShouldRender         bool
}

// Rect is an image sub-rectangle in pixels.
type Rect struct {
	X, Y          int
	Width, Height int
}

// SwapchainImage references a sub-rectangle of a swapchain.
type SwapchainImage struct {
	Swapchain Handle
	Rect      Rect
}

// Layer is implemented by all composition layer types.
type Layer interface {
	layer()
}

type ProjectionView struct {
	Pose     Pose
	Fov      Fov
	SubImage SwapchainImage
}

// ProjectionLayer carries one rendered view per eye.
type ProjectionLayer struct {
	Space Handle
	Views []ProjectionView
}

// EquirectLayer maps an equirectangular image onto a sphere around the
// viewer. A zero radius means infinite.
type EquirectLayer struct {
	Space        Handle
	Pose         Pose
	SubImage     SwapchainImage
	Radius       float32
	CentralAngle float32
	UpperAngle   float32
	LowerAngle   float32
}

func (ProjectionLayer) layer() {}
func (EquirectLayer) layer()   {}

// FrameEndInfo is submitted by EndFrame.
type FrameEndInfo struct {
	DisplayTime time.Time
	BlendMode   BlendMode
	Layers      []Layer
}

type SwapchainCreateInfo struct {
	Format     PixelFormat
	Width      uint32
	Height     uint32
	ImageCount int
}

type PixelFormat uint8

const (
	FormatRGBA8 PixelFormat = iota + 1
	FormatSRGBA8
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatSRGBA8:
		return "srgb8_alpha8"
	}
	return "unknown"
}

type InstanceProperties struct {
	RuntimeName    string
	RuntimeVersion string
}

type SystemProperties struct {
	SystemName   string
	MaxLayers    int
	MaxImageSize uint32
}
