package renderer

import (
	"math"
	"testing"

	"github.com/achilleasa/mirage/types"
)

func TestPaneModel(t *testing.T) {
	opts := DefaultOptions()

	type spec struct {
		rot, height float32
		exp         types.Vec3
	}
	specs := []spec{
		{0, 1, types.XYZ(0, 0.3, -3)},
		{0, 0.5, types.XYZ(0, 0.15, -3)},
		// Rotating the orbit moves the pane around the pivot behind the viewer.
		{math.Pi / 2, 1, types.XYZ(10, 0.3, 7)},
	}

	for index, s := range specs {
		got := types.TransformPoint(paneModel(s.rot, s.height, &opts), types.XYZ(0, 0, 0))
		for i := range got {
			if math.Abs(float64(got[i]-s.exp[i])) > 1e-4 {
				t.Fatalf("[spec %d] expected pane center %v; got %v", index, s.exp, got)
			}
		}
	}
}

func TestPaneContains(t *testing.T) {
	p := pane{halfW: 1, halfH: 0.5, radius: 0.1}

	type spec struct {
		x, y float32
		exp  bool
	}
	specs := []spec{
		{0, 0, true},
		{0.95, 0, true},
		{0, 0.45, true},
		{1.01, 0, false},
		{0, -0.51, false},
		// Corners are rounded.
		{0.99, 0.49, false},
		{0.93, 0.43, true},
	}

	for index, s := range specs {
		if got := p.contains(s.x, s.y); got != s.exp {
			t.Fatalf("[spec %d] expected contains(%v, %v) to be %t", index, s.x, s.y, s.exp)
		}
	}
}

func TestPaneTexelOrientation(t *testing.T) {
	tex := &paneTexture{id: 1, width: 2, height: 2, pix: []byte{
		1, 0, 0, 255, 2, 0, 0, 255,
		3, 0, 0, 255, 4, 0, 0, 255,
	}}
	opts := DefaultOptions()
	p, ok := newPane(tex, 0, 1, &opts)
	if !ok {
		t.Fatal("expected a pane")
	}

	type spec struct {
		x, y float32
		exp  byte
	}
	specs := []spec{
		{-p.halfW / 2, p.halfH / 2, 1},
		{p.halfW / 2, p.halfH / 2, 2},
		{-p.halfW / 2, -p.halfH / 2, 3},
		{p.halfW / 2, -p.halfH / 2, 4},
	}
	for index, s := range specs {
		if got := p.texel(s.x, s.y)[0]; got != s.exp {
			t.Fatalf("[spec %d] expected texel %d; got %d", index, s.exp, got)
		}
	}

	if _, ok = newPane(tex, 0, 0, &opts); ok {
		t.Fatal("expected a collapsed pane to be skipped")
	}
}

func TestRefract(t *testing.T) {
	n := types.XYZ(0, 0, 1)

	// Normal incidence passes straight through.
	if got := refract(types.XYZ(0, 0, -1), n, paneEta); math.Abs(float64(got[2]+1)) > 1e-5 {
		t.Fatalf("expected undeviated ray; got %v", got)
	}

	// Entering a denser medium bends the ray towards the normal.
	in := types.XYZ(1, 0, -1).Normalize()
	got := refract(in, n, paneEta)
	if got[0] <= 0 || got[0] >= in[0] {
		t.Fatalf("expected ray to bend towards the normal; got %v", got)
	}

	// Leaving it at a grazing angle reflects totally.
	if got = refract(types.XYZ(1, 0, -0.1).Normalize(), n, 1.333); got != (types.Vec3{}) {
		t.Fatalf("expected total internal reflection; got %v", got)
	}
}
