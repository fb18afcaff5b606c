// Package sim implements an in-process display runtime that renders into
// host memory. It follows the same session lifecycle and frame timing
// contract as a hardware runtime and is used for headless runs and tests.
package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/achilleasa/mirage/log"
	"github.com/achilleasa/mirage/xr"
	"github.com/google/uuid"
)

var logger = log.New("sim")

// Size of the runtime event queue. Events emitted while the queue is full
// are dropped and reported through an xr.EventsLost event.
const eventQueueSize = 64

type Options struct {
	Views       int
	Width       uint32
	Height      uint32
	ImageCount  int
	RefreshRate float64

	// Horizontal field of view in degrees and the amount in degrees by
	// which the nasal half-angle is narrowed.
	FovDegrees float64
	Asymmetry  float64
	IPD        float32

	APILayers  []string
	Extensions []string
	BlendModes []xr.BlendMode
	Formats    []xr.PixelFormat

	MaxLayers    int
	MaxImageSize uint32

	// Optional head yaw in radians as a function of display time.
	HeadYaw func(time.Time) float32
}

// Return options describing a generic stereo headset.
func DefaultOptions() Options {
	return Options{
		Views:        2,
		Width:        1024,
		Height:       1024,
		ImageCount:   3,
		RefreshRate:  72,
		FovDegrees:   100,
		Asymmetry:    8,
		IPD:          0.064,
		APILayers:    []string{"XR_APILAYER_core_validation"},
		Extensions:   []string{xr.ExtGraphicsEnable, xr.ExtDebugUtils, xr.ExtEquirect2},
		BlendModes:   []xr.BlendMode{xr.BlendOpaque, xr.BlendAlpha},
		Formats:      []xr.PixelFormat{xr.FormatSRGBA8, xr.FormatRGBA8},
		MaxLayers:    16,
		MaxImageSize: 8192,
	}
}

// Instance is a simulated runtime instance.
type Instance struct {
	opts Options

	mu        sync.Mutex
	events    chan xr.Event
	lost      int
	debug     xr.DebugCallback
	enabled   map[string]bool
	session   *Session
	destroyed bool
}

// Create a new simulated runtime instance.
func New(opts Options) *Instance {
	if opts.MaxLayers == 0 {
		opts.MaxLayers = 16
	}
	if opts.MaxImageSize == 0 {
		opts.MaxImageSize = 8192
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []xr.PixelFormat{xr.FormatRGBA8}
	}

	return &Instance{
		opts:    opts,
		events:  make(chan xr.Event, eventQueueSize),
		enabled: make(map[string]bool),
	}
}

func (inst *Instance) Properties() xr.InstanceProperties {
	return xr.InstanceProperties{
		RuntimeName:    "mirage-sim",
		RuntimeVersion: "1.0.0",
	}
}

func (inst *Instance) APILayers() []string {
	return inst.opts.APILayers
}

func (inst *Instance) Extensions() []string {
	return inst.opts.Extensions
}

func (inst *Instance) Enable(layers, extensions []string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.session != nil {
		return xr.ErrCallOrder
	}

	for _, ext := range extensions {
		if !contains(inst.opts.Extensions, ext) {
			return fmt.Errorf("%w: %s", xr.ErrMissingExtension, ext)
		}
		inst.enabled[ext] = true
	}
	for _, layer := range layers {
		if !contains(inst.opts.APILayers, layer) {
			return fmt.Errorf("sim: unknown API layer %s", layer)
		}
		inst.enabled[layer] = true
	}
	return nil
}

func (inst *Instance) System() xr.SystemProperties {
	return xr.SystemProperties{
		SystemName:   "Simulated HMD",
		MaxLayers:    inst.opts.MaxLayers,
		MaxImageSize: inst.opts.MaxImageSize,
	}
}

func (inst *Instance) ViewConfigurations() []xr.ViewConfigType {
	if inst.opts.Views >= 2 {
		return []xr.ViewConfigType{xr.ViewConfigPrimaryStereo, xr.ViewConfigMono}
	}
	return []xr.ViewConfigType{xr.ViewConfigMono}
}

func (inst *Instance) viewCount(vc xr.ViewConfigType) (int, error) {
	switch {
	case vc == xr.ViewConfigMono:
		return 1, nil
	case vc == xr.ViewConfigPrimaryStereo && inst.opts.Views >= 2:
		return inst.opts.Views, nil
	}
	return 0, fmt.Errorf("%w: %s", xr.ErrViewConfigUnsupported, vc)
}

func (inst *Instance) ViewConfigurationViews(vc xr.ViewConfigType) ([]xr.ViewConfigViewInfo, error) {
	count, err := inst.viewCount(vc)
	if err != nil {
		return nil, err
	}

	views := make([]xr.ViewConfigViewInfo, count)
	for i := range views {
		views[i] = xr.ViewConfigViewInfo{
			ViewConfigView: xr.ViewConfigView{
				RecommendedWidth:      inst.opts.Width,
				RecommendedHeight:     inst.opts.Height,
				RecommendedImageCount: inst.opts.ImageCount,
			},
			MaxWidth:      inst.opts.MaxImageSize,
			MaxHeight:     inst.opts.MaxImageSize,
			MaxImageCount: 8,
		}
	}
	return views, nil
}

func (inst *Instance) BlendModes(vc xr.ViewConfigType) []xr.BlendMode {
	if _, err := inst.viewCount(vc); err != nil {
		return nil
	}
	return inst.opts.BlendModes
}

func (inst *Instance) SetDebugMessenger(cb xr.DebugCallback) {
	inst.mu.Lock()
	inst.debug = cb
	inst.mu.Unlock()
}

// Deliver a debug message if a messenger is registered and debug utils are
// enabled.
func (inst *Instance) debugf(severity xr.DebugSeverity, kind xr.DebugType, function, format string, args ...interface{}) {
	inst.mu.Lock()
	cb := inst.debug
	enabled := inst.enabled[xr.ExtDebugUtils]
	inst.mu.Unlock()

	if cb == nil || !enabled {
		return
	}
	cb(xr.DebugMessage{
		Severity: severity,
		Type:     kind,
		Function: function,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (inst *Instance) CreateSession() (xr.Session, error) {
	inst.mu.Lock()
	if inst.destroyed {
		inst.mu.Unlock()
		return nil, xr.ErrHandleInvalid
	}
	if inst.session != nil {
		inst.mu.Unlock()
		return nil, xr.ErrSessionExists
	}

	s := newSession(inst)
	inst.session = s
	inst.mu.Unlock()

	inst.debugf(xr.SeverityInfo, xr.TypeGeneral, "CreateSession", "session %s created", s.id)

	// A freshly created session is idle and becomes ready right away.
	s.setState(xr.StateIdle)
	s.setState(xr.StateReady)
	return s, nil
}

func (inst *Instance) Events() <-chan xr.Event {
	return inst.events
}

// Queue an event without blocking. Dropped events are counted and reported
// ahead of the next event that fits.
func (inst *Instance) emit(ev xr.Event) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.destroyed {
		return
	}

	if inst.lost > 0 {
		select {
		case inst.events <- xr.EventsLost{Count: inst.lost}:
			inst.lost = 0
		default:
			inst.lost++
			return
		}
	}

	select {
	case inst.events <- ev:
	default:
		if inst.lost == 0 {
			logger.Warningf("event queue full; dropping %T", ev)
		}
		inst.lost++
	}
}

// LoseInstance simulates the runtime going away. The session moves to the
// loss pending state and every subsequent call fails.
func (inst *Instance) LoseInstance() {
	logger.Warning("simulating instance loss")
	inst.emit(xr.InstanceLossPending{LossTime: time.Now()})

	inst.mu.Lock()
	s := inst.session
	inst.mu.Unlock()

	if s != nil {
		s.lose()
	}
}

// Session returns the active session, if any.
func (inst *Instance) Session() *Session {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.session
}

func (inst *Instance) releaseSession(s *Session) {
	inst.mu.Lock()
	if inst.session == s {
		inst.session = nil
	}
	inst.mu.Unlock()
}

func (inst *Instance) Destroy() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.destroyed {
		return xr.ErrHandleInvalid
	}
	inst.destroyed = true
	return nil
}

// Compute the per-eye fov. The nasal half-angle is narrowed by the
// configured asymmetry.
func (inst *Instance) eyeFov(eye, count int) xr.Fov {
	half := float32(inst.opts.FovDegrees * math.Pi / 360)
	asym := float32(inst.opts.Asymmetry * math.Pi / 180)
	aspect := float32(inst.opts.Height) / float32(inst.opts.Width)
	vertical := float32(math.Atan(math.Tan(float64(half)) * float64(aspect)))

	fov := xr.Fov{
		AngleLeft:  -half,
		AngleRight: half,
		AngleUp:    vertical,
		AngleDown:  -vertical,
	}
	switch {
	case count < 2:
	case eye == 0:
		fov.AngleRight -= asym
	case eye == count-1:
		fov.AngleLeft += asym
	}
	return fov
}

func newHandle() xr.Handle {
	return uuid.New()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

var (
	_ xr.Instance  = (*Instance)(nil)
	_ xr.Session   = (*Session)(nil)
	_ xr.Swapchain = (*Swapchain)(nil)
)
