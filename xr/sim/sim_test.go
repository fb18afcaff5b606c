package sim

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/achilleasa/mirage/xr"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Width, opts.Height = 16, 8
	opts.RefreshRate = 0
	return opts
}

func drainStates(t *testing.T, inst *Instance) []xr.SessionState {
	var states []xr.SessionState
	for {
		select {
		case ev := <-inst.Events():
			if sc, ok := ev.(xr.SessionStateChanged); ok {
				states = append(states, sc.State)
			}
		default:
			return states
		}
	}
}

func expStates(t *testing.T, got []xr.SessionState, exp ...xr.SessionState) {
	t.Helper()
	if len(got) != len(exp) {
		t.Fatalf("expected states %v; got %v", exp, got)
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("expected states %v; got %v", exp, got)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	inst := New(testOptions())
	session, err := inst.CreateSession()
	if err != nil {
		t.Fatal(err)
	}
	expStates(t, drainStates(t, inst), xr.StateIdle, xr.StateReady)

	if _, err = inst.CreateSession(); !errors.Is(err, xr.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists; got %v", err)
	}

	if err = session.End(); !errors.Is(err, xr.ErrSessionNotStopping) {
		t.Fatalf("expected ErrSessionNotStopping; got %v", err)
	}

	if err = session.Begin(xr.ViewConfigPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	expStates(t, drainStates(t, inst), xr.StateSynchronized, xr.StateVisible, xr.StateFocused)

	if err = session.Begin(xr.ViewConfigPrimaryStereo); !errors.Is(err, xr.ErrSessionRunning) {
		t.Fatalf("expected ErrSessionRunning; got %v", err)
	}

	if err = session.RequestExit(); err != nil {
		t.Fatal(err)
	}
	expStates(t, drainStates(t, inst), xr.StateStopping)

	if err = session.End(); err != nil {
		t.Fatal(err)
	}
	expStates(t, drainStates(t, inst), xr.StateIdle, xr.StateExiting)

	if _, err = session.WaitFrame(context.Background()); !errors.Is(err, xr.ErrSessionNotRunning) {
		t.Fatalf("expected ErrSessionNotRunning; got %v", err)
	}

	if err = session.Destroy(); err != nil {
		t.Fatal(err)
	}
	if inst.Session() != nil {
		t.Fatal("expected destroyed session to be released by the instance")
	}
}

func TestInstanceLoss(t *testing.T) {
	inst := New(testOptions())
	session, err := inst.CreateSession()
	if err != nil {
		t.Fatal(err)
	}
	if err = session.Begin(xr.ViewConfigPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	drainStates(t, inst)

	inst.LoseInstance()

	var sawLossPending, sawState bool
	for done := false; !done; {
		select {
		case ev := <-inst.Events():
			switch e := ev.(type) {
			case xr.InstanceLossPending:
				sawLossPending = true
			case xr.SessionStateChanged:
				sawState = e.State == xr.StateLossPending
			}
		default:
			done = true
		}
	}
	if !sawLossPending || !sawState {
		t.Fatalf("expected loss pending events; got instance=%t session=%t", sawLossPending, sawState)
	}

	if _, err = session.WaitFrame(context.Background()); !errors.Is(err, xr.ErrSessionLost) {
		t.Fatalf("expected ErrSessionLost; got %v", err)
	}
	if err = session.Destroy(); !errors.Is(err, xr.ErrSessionLost) {
		t.Fatalf("expected destroy after loss to report ErrSessionLost; got %v", err)
	}
}

func TestEventOverflow(t *testing.T) {
	inst := New(testOptions())
	for i := 0; i < eventQueueSize+5; i++ {
		inst.emit(xr.Ignored{Kind: "test"})
	}

	// Make room and emit again; the lost count must be reported first.
	for i := 0; i < 2; i++ {
		<-inst.Events()
	}
	inst.emit(xr.Ignored{Kind: "after"})

	var lost xr.EventsLost
	var found bool
	for done := false; !done; {
		select {
		case ev := <-inst.Events():
			if e, ok := ev.(xr.EventsLost); ok {
				lost, found = e, true
			}
		default:
			done = true
		}
	}
	if !found || lost.Count != 5 {
		t.Fatalf("expected an EventsLost event with count 5; got found=%t count=%d", found, lost.Count)
	}
}

func TestSwapchainRing(t *testing.T) {
	inst := New(testOptions())
	session, _ := inst.CreateSession()
	sc, err := session.CreateSwapchain(xr.SwapchainCreateInfo{Format: xr.FormatRGBA8, Width: 4, Height: 4, ImageCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	sim := sc.(*Swapchain)

	type spec struct {
		op       string
		expIndex int
		expErr   error
	}
	specs := []spec{
		{"wait", 0, xr.ErrNoImageAcquired},
		{"release", 0, xr.ErrNoImageAcquired},
		{"acquire", 0, nil},
		{"acquire", 1, nil},
		{"acquire", 0, xr.ErrSwapchainExhausted},
		{"wait", 0, nil},
		{"wait", 0, xr.ErrCallOrder},
		{"release", 0, nil},
		{"acquire", 0, nil},
	}

	for index, s := range specs {
		var err error
		var got int
		switch s.op {
		case "acquire":
			got, err = sc.Acquire()
		case "wait":
			err = sc.Wait(0)
		case "release":
			err = sc.Release()
		}
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] %s: expected error %v; got %v", index, s.op, s.expErr, err)
		}
		if s.op == "acquire" && err == nil && got != s.expIndex {
			t.Fatalf("[spec %d] expected image index %d; got %d", index, s.expIndex, got)
		}
	}

	if sim.Presentable() == nil {
		t.Fatal("expected the waited and released image to be presentable")
	}
	if sim.Outstanding() != 2 {
		t.Fatalf("expected 2 outstanding images; got %d", sim.Outstanding())
	}
}

func TestSwapchainFaultInjection(t *testing.T) {
	inst := New(testOptions())
	session, _ := inst.CreateSession()
	sc, _ := session.CreateSwapchain(xr.SwapchainCreateInfo{Format: xr.FormatRGBA8, Width: 4, Height: 4, ImageCount: 3})
	sim := sc.(*Swapchain)

	sim.FailAcquire(1)
	if _, err := sc.Acquire(); !errors.Is(err, ErrInjected) {
		t.Fatalf("expected injected acquire failure; got %v", err)
	}

	sim.FailWait(1)
	if _, err := sc.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := sc.Wait(0); !errors.Is(err, ErrInjected) {
		t.Fatalf("expected injected wait failure; got %v", err)
	}
	if err := sc.Release(); err != nil {
		t.Fatalf("expected release of an unwaited image to succeed; got %v", err)
	}
	if sim.Presentable() != nil {
		t.Fatal("expected an image released without a successful wait not to be presentable")
	}
}

func TestCreateSwapchainValidation(t *testing.T) {
	type spec struct {
		info   xr.SwapchainCreateInfo
		expErr error
	}
	specs := []spec{
		{xr.SwapchainCreateInfo{Format: xr.FormatRGBA8, Width: 4, Height: 4, ImageCount: 1}, nil},
		{xr.SwapchainCreateInfo{Format: 0, Width: 4, Height: 4, ImageCount: 1}, xr.ErrFormatUnsupported},
		{xr.SwapchainCreateInfo{Format: xr.FormatRGBA8, Width: 0, Height: 4, ImageCount: 1}, xr.ErrImageSizeUnsupported},
		{xr.SwapchainCreateInfo{Format: xr.FormatRGBA8, Width: 1 << 20, Height: 4, ImageCount: 1}, xr.ErrImageSizeUnsupported},
	}

	inst := New(testOptions())
	session, _ := inst.CreateSession()
	for index, s := range specs {
		if _, err := session.CreateSwapchain(s.info); !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestFrameSubmission(t *testing.T) {
	inst := New(testOptions())
	var debugMessages []xr.DebugMessage
	if err := inst.Enable(nil, []string{xr.ExtDebugUtils}); err != nil {
		t.Fatal(err)
	}
	inst.SetDebugMessenger(func(msg xr.DebugMessage) { debugMessages = append(debugMessages, msg) })

	session, _ := inst.CreateSession()
	sim := session.(*Session)
	space, _ := session.CreateReferenceSpace()
	sc, _ := session.CreateSwapchain(xr.SwapchainCreateInfo{Format: xr.FormatRGBA8, Width: 4, Height: 2, ImageCount: 2})

	if err := session.BeginFrame(); !errors.Is(err, xr.ErrSessionNotRunning) {
		t.Fatalf("expected ErrSessionNotRunning; got %v", err)
	}
	if err := session.Begin(xr.ViewConfigPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	if err := session.BeginFrame(); !errors.Is(err, xr.ErrCallOrder) {
		t.Fatalf("expected BeginFrame without WaitFrame to fail; got %v", err)
	}

	state, err := session.WaitFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !state.ShouldRender {
		t.Fatal("expected a focused session to render")
	}

	// Render a red image and submit it.
	index, _ := sc.Acquire()
	_ = sc.Wait(0)
	img := sc.Images()[index]
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 255
	}
	_ = sc.Release()

	view := xr.ProjectionView{SubImage: xr.SwapchainImage{Swapchain: sc.Handle(), Rect: xr.Rect{Width: 4, Height: 2}}}
	if err = session.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	err = session.EndFrame(xr.FrameEndInfo{
		BlendMode: xr.BlendOpaque,
		Layers:    []xr.Layer{xr.ProjectionLayer{Space: space, Views: []xr.ProjectionView{view, view}}},
	})
	if err != nil {
		t.Fatal(err)
	}

	display := sim.Display()
	if display == nil || display.Bounds() != image.Rect(0, 0, 8, 2) {
		t.Fatalf("expected an 8x2 display image; got %v", display)
	}
	if display.Pix[0] != 255 || display.Pix[len(display.Pix)-4] != 255 {
		t.Fatal("expected both eyes to be composed into the display image")
	}

	// An out of bounds rect must be rejected and reported to the messenger.
	if _, err = session.WaitFrame(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = session.BeginFrame()
	view.SubImage.Rect.Width = 5
	err = session.EndFrame(xr.FrameEndInfo{
		BlendMode: xr.BlendOpaque,
		Layers:    []xr.Layer{xr.ProjectionLayer{Space: space, Views: []xr.ProjectionView{view}}},
	})
	if !errors.Is(err, xr.ErrLayerInvalid) {
		t.Fatalf("expected ErrLayerInvalid; got %v", err)
	}
	if len(debugMessages) == 0 || debugMessages[len(debugMessages)-1].Severity != xr.SeverityError {
		t.Fatalf("expected a validation error debug message; got %v", debugMessages)
	}

	// Empty frames are always accepted.
	if _, err = session.WaitFrame(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = session.BeginFrame()
	if err = session.EndFrame(xr.FrameEndInfo{BlendMode: xr.BlendOpaque}); err != nil {
		t.Fatal(err)
	}
	if total, empty := sim.FrameCount(); total != 2 || empty != 1 {
		t.Fatalf("expected 2 frames with 1 empty; got %d and %d", total, empty)
	}
}

func TestLocateViews(t *testing.T) {
	opts := testOptions()
	inst := New(opts)
	session, _ := inst.CreateSession()
	space, _ := session.CreateReferenceSpace()

	views, err := session.LocateViews(time.Now(), space)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views; got %d", len(views))
	}

	left, right := views[0], views[1]
	if left.Pose.Position[0] >= 0 || right.Pose.Position[0] <= 0 {
		t.Fatalf("expected eyes to straddle the head origin; got %v and %v", left.Pose.Position, right.Pose.Position)
	}
	if sep := right.Pose.Position[0] - left.Pose.Position[0]; sep < opts.IPD-1e-5 || sep > opts.IPD+1e-5 {
		t.Fatalf("expected eye separation %f; got %f", opts.IPD, sep)
	}

	// The nasal half-angle of each eye is narrower than the temporal one.
	if -left.Fov.AngleLeft <= left.Fov.AngleRight {
		t.Fatalf("expected left eye fov to be asymmetric; got %+v", left.Fov)
	}
	if right.Fov.AngleRight <= -right.Fov.AngleLeft {
		t.Fatalf("expected right eye fov to be asymmetric; got %+v", right.Fov)
	}

	if _, err = session.LocateViews(time.Now(), xr.Handle{}); !errors.Is(err, xr.ErrHandleInvalid) {
		t.Fatalf("expected ErrHandleInvalid for an unknown space; got %v", err)
	}
}
