package desktop

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestUpsertCreatesWindow(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	if err := reg.Upsert(makeUpdate(7, 30, 20, 1, 1, 1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := reg.Upsert(makeUpdate(7, 30, 20, 2, 2, 2, 3)); err != nil {
		t.Fatal(err)
	}

	frame := reg.Snapshot()
	if len(frame.Windows) != 1 {
		t.Fatalf("expected exactly one window; got %d", len(frame.Windows))
	}
	win := frame.Windows[0]
	if win.ID != 7 || win.Width != 30 || win.Height != 20 {
		t.Fatalf("unexpected window %d (%dx%d)", win.ID, win.Width, win.Height)
	}
	if len(win.Pix) != 30*20*BytesPerPixel {
		t.Fatalf("expected buffer of %d bytes; got %d", 30*20*BytesPerPixel, len(win.Pix))
	}
	if !win.Fresh {
		t.Fatal("expected first snapshot of a window to flag it as fresh")
	}
}

func TestUpsertDropsMalformedUpdates(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	bad := makeUpdate(1, 10, 10, 2, 2, 1, 0)
	bad.Pixels = bad.Pixels[:len(bad.Pixels)-1]
	if err := reg.Upsert(bad); !errors.Is(err, ErrPayloadSize) {
		t.Fatalf("expected ErrPayloadSize; got %v", err)
	}

	bad = makeUpdate(1, 10, 10, 2, 2, 1, 0)
	bad.Dirty[0] |= 1 << 9
	if err := reg.Upsert(bad); !errors.Is(err, ErrTileOutOfRange) {
		t.Fatalf("expected ErrTileOutOfRange; got %v", err)
	}

	if reg.Len() != 0 {
		t.Fatalf("expected malformed updates not to create windows; got %d", reg.Len())
	}
	if stats := reg.Stats(); stats.Dropped != 2 || stats.Updates != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestTwoByTwoScenario(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	u := TileUpdate{
		ID: 7, Width: 100, Height: 100, TilesX: 2, TilesY: 2,
		Dirty:  []uint64{0b0001},
		Pixels: make([]byte, 50*50*BytesPerPixel),
	}
	for i := range u.Pixels {
		u.Pixels[i] = 0xff
	}
	if err := reg.Upsert(u); err != nil {
		t.Fatal(err)
	}

	frame := reg.Snapshot()
	if len(frame.Windows) != 1 || frame.Windows[0].ID != 7 {
		t.Fatalf("expected window 7; got %+v", frame.Windows)
	}

	pix := frame.Windows[0].Pix
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			exp := byte(0)
			if x < 50 && y < 50 {
				exp = 0xff
			}
			offset := (y*100 + x) * BytesPerPixel
			for c := 0; c < BytesPerPixel; c++ {
				if pix[offset+c] != exp {
					t.Fatalf("expected pixel (%d, %d) channel %d to be %#x; got %#x", x, y, c, exp, pix[offset+c])
				}
			}
		}
	}
}

func TestDestroyedWindowNeverReappears(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	_ = reg.Upsert(makeUpdate(1, 4, 4, 1, 1, 1, 0))
	_ = reg.Upsert(makeUpdate(2, 4, 4, 1, 1, 1, 0))
	reg.Snapshot()

	if err := reg.MarkDestroyed(1); err != nil {
		t.Fatal(err)
	}
	// Updates after the destroy request are accepted but do not resurrect
	// the window.
	if err := reg.Upsert(makeUpdate(1, 8, 8, 1, 1, 2, 0)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		frame := reg.Snapshot()
		for _, win := range frame.Windows {
			if win.ID == 1 {
				t.Fatalf("[snapshot %d] destroyed window reappeared", i)
			}
		}
		if i == 0 && (len(frame.Reaped) != 1 || frame.Reaped[0] != 1) {
			t.Fatalf("expected window 1 to be reaped by the first snapshot; got %v", frame.Reaped)
		}
		if i > 0 && len(frame.Reaped) != 0 {
			t.Fatalf("[snapshot %d] expected a window to be reaped exactly once; got %v", i, frame.Reaped)
		}
		_ = reg.Upsert(makeUpdate(1, 4, 4, 1, 1, 3, 0))
	}

	if err := reg.MarkDestroyed(1); err != nil {
		t.Fatalf("expected repeated destroy to be a no-op; got %v", err)
	}
}

func TestMarkDestroyedUnknownWindow(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	if err := reg.MarkDestroyed(42); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow; got %v", err)
	}
}

func TestReapNeverCreatedWindow(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	_ = reg.Upsert(makeUpdate(3, 4, 4, 1, 1, 1, 0))
	_ = reg.MarkDestroyed(3)

	frame := reg.Snapshot()
	if len(frame.Windows) != 0 {
		t.Fatalf("expected no live windows; got %d", len(frame.Windows))
	}
	if len(frame.Reaped) != 0 {
		t.Fatalf("expected a window without render resources not to be reported; got %v", frame.Reaped)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected window to be removed; got %d", reg.Len())
	}
}

func TestSnapshotNeverDuplicates(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	for id := uint32(0); id < 10; id++ {
		_ = reg.Upsert(makeUpdate(id, 2, 2, 1, 1, 1, 0))
		_ = reg.Upsert(makeUpdate(id, 2, 2, 1, 1, 2, 0))
	}
	_ = reg.MarkDestroyed(4)

	seen := make(map[uint32]bool)
	for _, win := range reg.Snapshot().Windows {
		if seen[win.ID] {
			t.Fatalf("window %d returned twice", win.ID)
		}
		seen[win.ID] = true
	}
	if len(seen) != 9 || seen[4] {
		t.Fatalf("expected 9 windows without window 4; got %v", seen)
	}
}

func TestSnapshotCopiesChangedContentOnly(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	_ = reg.Upsert(makeUpdate(1, 2, 2, 1, 1, 1, 0))

	first := reg.Snapshot().Windows[0]
	if first.Pix == nil {
		t.Fatal("expected first snapshot to carry pixels")
	}
	first.Pix[0] = 0x55

	if second := reg.Snapshot().Windows[0]; second.Pix != nil || second.Fresh {
		t.Fatalf("expected unchanged window to carry no pixels; got %+v", second)
	}

	_ = reg.Upsert(makeUpdate(1, 2, 2, 1, 1, 9, 0))
	third := reg.Snapshot().Windows[0]
	if third.Pix == nil || third.Pix[0] != 9 {
		t.Fatalf("expected updated pixels; got %v", third.Pix)
	}
	if third.Version <= first.Version {
		t.Fatalf("expected version to increase; got %d then %d", first.Version, third.Version)
	}
}

func TestArcTargets(t *testing.T) {
	type spec struct {
		n   int
		exp []float32
	}
	step := float32(math.Pi / 7)
	specs := []spec{
		{0, []float32{}},
		{1, []float32{0}},
		{2, []float32{-step / 2, step / 2}},
		{3, []float32{-step, 0, step}},
		{4, []float32{-1.5 * step, -0.5 * step, 0.5 * step, 1.5 * step}},
	}

	for index, s := range specs {
		got := ArcTargets(s.n, step)
		if len(got) != len(s.exp) {
			t.Fatalf("[spec %d] expected %d targets; got %d", index, len(s.exp), len(got))
		}
		for j := range got {
			if math.Abs(float64(got[j]-s.exp[j])) > 1e-6 {
				t.Fatalf("[spec %d] expected target %d to be %f; got %f", index, j, s.exp[j], got[j])
			}
		}
	}
}

func TestSnapshotAssignsLayoutTargets(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	for id := uint32(0); id < 3; id++ {
		_ = reg.Upsert(makeUpdate(id, 2, 2, 1, 1, 1, 0))
	}
	reg.Snapshot()

	reg.mu.Lock()
	defer reg.mu.Unlock()
	exp := []float32{-math.Pi / 7, 0, math.Pi / 7}
	for j, w := range reg.order {
		if math.Abs(float64(w.targetRot-exp[j])) > 1e-6 {
			t.Fatalf("expected window %d target %f; got %f", j, exp[j], w.targetRot)
		}
	}
}

func TestSmoothingConvergence(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	_ = reg.Upsert(makeUpdate(1, 2, 2, 1, 1, 1, 0))

	var win WindowView
	for k := 1; k <= 10; k++ {
		win = reg.Snapshot().Windows[0]
		exp := 1 - math.Pow(0.9, float64(k))
		if math.Abs(float64(win.HeightScale)-exp) > 1e-5 {
			t.Fatalf("[step %d] expected height scale %f; got %f", k, exp, win.HeightScale)
		}
	}
	if math.Abs(float64(win.HeightScale)-0.6513) > 1e-4 {
		t.Fatalf("expected height scale of about 0.6513 after 10 steps; got %f", win.HeightScale)
	}

	var cur float32
	for k := 0; k < 10; k++ {
		cur = Smooth(cur, 1, 0.1)
	}
	if math.Abs(float64(cur)-0.6513) > 1e-4 {
		t.Fatalf("expected 0.6513; got %f", cur)
	}
}

func TestRotationFollowsLayout(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	_ = reg.Upsert(makeUpdate(1, 2, 2, 1, 1, 1, 0))
	reg.Snapshot()
	_ = reg.Upsert(makeUpdate(2, 2, 2, 1, 1, 1, 0))

	// With a second window the first one moves towards -pi/14.
	var win WindowView
	for i := 0; i < 200; i++ {
		win = reg.Snapshot().Windows[0]
	}
	if exp := -math.Pi / 14; math.Abs(float64(win.Rot)-exp) > 1e-4 {
		t.Fatalf("expected rotation to converge to %f; got %f", exp, win.Rot)
	}
}

func TestConcurrentProducers(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	cb := reg.Callbacks()

	var wg sync.WaitGroup
	for p := uint32(0); p < 4; p++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				cb.Push(makeUpdate(id, 16, 16, 4, 4, byte(i), uint32(i%16)))
			}
			cb.Destroy(id)
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		for _, win := range reg.Snapshot().Windows {
			if win.Pix != nil && len(win.Pix) != 16*16*BytesPerPixel {
				t.Fatalf("torn window %d: %d bytes", win.ID, len(win.Pix))
			}
		}
	}

	reg.Snapshot()
	if reg.Len() != 0 {
		t.Fatalf("expected all windows to be reaped; got %d", reg.Len())
	}
}
