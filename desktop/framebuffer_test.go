package desktop

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

// Build an update whose dirty tiles are filled with the given byte value.
func makeUpdate(id, w, h, tilesX, tilesY uint32, fill byte, dirty ...uint32) TileUpdate {
	u := TileUpdate{ID: id, Width: w, Height: h, TilesX: tilesX, TilesY: tilesY}
	u.Dirty = make([]uint64, (tilesX*tilesY+63)/64)
	for _, index := range dirty {
		u.SetDirty(index)
	}
	for index := uint32(0); index < tilesX*tilesY; index++ {
		if u.IsDirty(index) {
			u.Pixels = append(u.Pixels, bytes.Repeat([]byte{fill}, u.TileRect(index).Area()*BytesPerPixel)...)
		}
	}
	return u
}

func TestTileRect(t *testing.T) {
	type spec struct {
		w, h, tilesX, tilesY uint32
		index                uint32
		exp                  Rect
	}
	specs := []spec{
		{100, 100, 2, 2, 0, Rect{0, 0, 50, 50}},
		{100, 100, 2, 2, 1, Rect{50, 0, 50, 50}},
		{100, 100, 2, 2, 3, Rect{50, 50, 50, 50}},
		// Edge tiles absorb the remainder.
		{10, 7, 3, 2, 0, Rect{0, 0, 3, 3}},
		{10, 7, 3, 2, 2, Rect{6, 0, 4, 3}},
		{10, 7, 3, 2, 5, Rect{6, 3, 4, 4}},
		{5, 5, 1, 1, 0, Rect{0, 0, 5, 5}},
	}

	for index, s := range specs {
		u := TileUpdate{Width: s.w, Height: s.h, TilesX: s.tilesX, TilesY: s.tilesY}
		if got := u.TileRect(s.index); got != s.exp {
			t.Fatalf("[spec %d] expected tile rect %+v; got %+v", index, s.exp, got)
		}
	}
}

func TestTileRectsCoverFramebuffer(t *testing.T) {
	u := TileUpdate{Width: 37, Height: 23, TilesX: 5, TilesY: 4}
	covered := make([]int, 37*23)
	for index := uint32(0); index < 20; index++ {
		r := u.TileRect(index)
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				covered[y*37+x]++
			}
		}
	}
	for i, c := range covered {
		if c != 1 {
			t.Fatalf("expected pixel %d to be covered by exactly one tile; got %d", i, c)
		}
	}
}

func TestValidate(t *testing.T) {
	type spec struct {
		mutate func(*TileUpdate)
		expErr error
	}
	specs := []spec{
		{func(u *TileUpdate) {}, nil},
		{func(u *TileUpdate) { u.Width = 0 }, ErrZeroSizedWindow},
		{func(u *TileUpdate) { u.Height = MaxDimension + 1 }, ErrWindowTooLarge},
		{func(u *TileUpdate) { u.TilesX = 0 }, ErrEmptyGrid},
		{func(u *TileUpdate) { u.TilesY = 200 }, ErrGridTooFine},
		{func(u *TileUpdate) { u.Dirty = nil }, ErrBitmapTooShort},
		{func(u *TileUpdate) { u.Dirty[0] |= 1 << 4 }, ErrTileOutOfRange},
		{func(u *TileUpdate) { u.Dirty = append(u.Dirty, 1) }, ErrTileOutOfRange},
		{func(u *TileUpdate) { u.Dirty = append(u.Dirty, 0) }, nil},
		{func(u *TileUpdate) { u.Pixels = u.Pixels[1:] }, ErrPayloadSize},
		{func(u *TileUpdate) { u.Pixels = append(u.Pixels, 0) }, ErrPayloadSize},
		{func(u *TileUpdate) { u.Dirty[0] = 0 }, ErrPayloadSize},
	}

	for index, s := range specs {
		u := makeUpdate(1, 100, 100, 2, 2, 0xff, 0, 3)
		s.mutate(&u)
		if err := u.Validate(); !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestFramebufferApplyOnlyTouchesDirtyTiles(t *testing.T) {
	type spec struct {
		w, h, tilesX, tilesY uint32
		dirty                []uint32
	}
	specs := []spec{
		{100, 100, 2, 2, []uint32{0}},
		{100, 100, 2, 2, []uint32{1, 2}},
		{10, 7, 3, 2, []uint32{2, 5}},
		{64, 64, 8, 8, []uint32{0, 9, 63}},
		{130, 1, 65, 1, []uint32{64}},
	}

	rng := rand.New(rand.NewSource(42))
	for index, s := range specs {
		var fb Framebuffer
		full := makeUpdate(1, s.w, s.h, 1, 1, 0, 0)
		rng.Read(full.Pixels)
		if err := fb.Apply(&full); err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}
		before := append([]byte(nil), fb.Pix...)

		partial := makeUpdate(1, s.w, s.h, s.tilesX, s.tilesY, 0, s.dirty...)
		rng.Read(partial.Pixels)
		if err := fb.Apply(&partial); err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}

		// Replay the payload by hand and compare every pixel.
		exp := before
		cursor := 0
		for tile := uint32(0); tile < s.tilesX*s.tilesY; tile++ {
			if !partial.IsDirty(tile) {
				continue
			}
			r := partial.TileRect(tile)
			for y := r.Y; y < r.Y+r.H; y++ {
				for x := r.X; x < r.X+r.W; x++ {
					offset := int(y*s.w+x) * BytesPerPixel
					copy(exp[offset:offset+BytesPerPixel], partial.Pixels[cursor:cursor+BytesPerPixel])
					cursor += BytesPerPixel
				}
			}
		}
		if !bytes.Equal(exp, fb.Pix) {
			t.Fatalf("[spec %d] framebuffer contents do not match expected tile layout", index)
		}
	}
}

func TestFramebufferResizeZeroes(t *testing.T) {
	var fb Framebuffer
	u := makeUpdate(1, 4, 4, 1, 1, 0xaa, 0)
	if err := fb.Apply(&u); err != nil {
		t.Fatal(err)
	}

	if fb.Resize(4, 4) {
		t.Fatal("expected same-size resize to be a no-op")
	}

	// Only the left tile of the resized buffer is dirty.
	u = makeUpdate(1, 8, 2, 2, 1, 0xbb, 0)
	if err := fb.Apply(&u); err != nil {
		t.Fatal(err)
	}
	if len(fb.Pix) != 8*2*BytesPerPixel {
		t.Fatalf("expected buffer to be reallocated to %d bytes; got %d", 8*2*BytesPerPixel, len(fb.Pix))
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 8; x++ {
			exp := byte(0)
			if x < 4 {
				exp = 0xbb
			}
			if got := fb.Pix[(y*8+x)*BytesPerPixel]; got != exp {
				t.Fatalf("expected pixel (%d, %d) to be %#x; got %#x", x, y, exp, got)
			}
		}
	}
}

func TestExtractRoundTrip(t *testing.T) {
	src := Framebuffer{}
	src.Resize(13, 7)
	for i := range src.Pix {
		src.Pix[i] = byte(i)
	}

	type spec struct {
		tiles []uint32
	}
	specs := []spec{
		{nil},
		{[]uint32{0}},
		{[]uint32{2, 5}},
	}

	for index, s := range specs {
		u := src.Extract(1, 3, 2, s.tiles...)
		if err := u.Validate(); err != nil {
			t.Fatalf("[spec %d] extracted update is invalid: %v", index, err)
		}

		var dst Framebuffer
		if err := dst.Apply(&u); err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}
		for tile := uint32(0); tile < 6; tile++ {
			r := u.TileRect(tile)
			for y := r.Y; y < r.Y+r.H; y++ {
				for x := r.X; x < r.X+r.W; x++ {
					offset := int(y)*dst.Stride() + int(x)*BytesPerPixel
					exp := byte(0)
					if u.IsDirty(tile) {
						exp = src.Pix[offset]
					}
					if dst.Pix[offset] != exp {
						t.Fatalf("[spec %d] tile %d pixel (%d, %d): expected %d; got %d", index, tile, x, y, exp, dst.Pix[offset])
					}
				}
			}
		}
	}
}
