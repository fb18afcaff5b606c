package desktop

import (
	"fmt"
	"math/bits"
)

// Bytes per pixel for window framebuffers.
const BytesPerPixel = 4

// Windows larger than this in either dimension are rejected.
const MaxDimension = 16384

// A TileUpdate carries new content for the dirty cells of a window's tile
// grid. Tile index i = row*TilesX + col is dirty when bit i%64 of
// Dirty[i/64] is set. Pixels holds the dirty tiles back to back in index
// order, each tile in raster order at BytesPerPixel bytes per pixel.
//
// Tiles are Width/TilesX pixels wide and Height/TilesY pixels tall; the last
// column and row absorb any remainder.
type TileUpdate struct {
	ID     uint32
	Width  uint32
	Height uint32
	TilesX uint32
	TilesY uint32
	Dirty  []uint64
	Pixels []byte
}

// Check whether tile index is flagged in the dirty bitmap.
func (u *TileUpdate) IsDirty(index uint32) bool {
	word := index / 64
	if int(word) >= len(u.Dirty) {
		return false
	}
	return u.Dirty[word]&(1<<(index%64)) != 0
}

// Flag tile index as dirty, growing the bitmap as needed.
func (u *TileUpdate) SetDirty(index uint32) {
	word := int(index / 64)
	for len(u.Dirty) <= word {
		u.Dirty = append(u.Dirty, 0)
	}
	u.Dirty[word] |= 1 << (index % 64)
}

// Rect is a pixel rectangle inside a framebuffer.
type Rect struct {
	X, Y, W, H uint32
}

// Area in pixels.
func (r Rect) Area() int {
	return int(r.W) * int(r.H)
}

// Return the pixel rectangle covered by a tile.
func (u *TileUpdate) TileRect(index uint32) Rect {
	col, row := index%u.TilesX, index/u.TilesX
	tileW, tileH := u.Width/u.TilesX, u.Height/u.TilesY

	r := Rect{X: col * tileW, Y: row * tileH, W: tileW, H: tileH}
	if col == u.TilesX-1 {
		r.W = u.Width - r.X
	}
	if row == u.TilesY-1 {
		r.H = u.Height - r.Y
	}
	return r
}

// Validate the update geometry and payload size without touching any
// framebuffer.
func (u *TileUpdate) Validate() error {
	if u.Width == 0 || u.Height == 0 {
		return ErrZeroSizedWindow
	}
	if u.Width > MaxDimension || u.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrWindowTooLarge, u.Width, u.Height)
	}
	if u.TilesX == 0 || u.TilesY == 0 {
		return ErrEmptyGrid
	}
	if u.TilesX > u.Width || u.TilesY > u.Height {
		return fmt.Errorf("%w: %dx%d tiles for %dx%d pixels", ErrGridTooFine, u.TilesX, u.TilesY, u.Width, u.Height)
	}

	tileCount := u.TilesX * u.TilesY
	if uint64(len(u.Dirty))*64 < uint64(tileCount) {
		return fmt.Errorf("%w: %d bits for %d tiles", ErrBitmapTooShort, len(u.Dirty)*64, tileCount)
	}

	// Any set bit past the last tile references a tile outside the grid.
	lastWord := (tileCount - 1) / 64
	if tail := tileCount % 64; tail != 0 && u.Dirty[lastWord]>>tail != 0 {
		return fmt.Errorf("%w: word %d", ErrTileOutOfRange, lastWord)
	}
	for word := int(lastWord) + 1; word < len(u.Dirty); word++ {
		if u.Dirty[word] != 0 {
			return fmt.Errorf("%w: tile %d", ErrTileOutOfRange, word*64+bits.TrailingZeros64(u.Dirty[word]))
		}
	}

	expected := 0
	for index := uint32(0); index < tileCount; index++ {
		if u.IsDirty(index) {
			expected += u.TileRect(index).Area() * BytesPerPixel
		}
	}
	if expected != len(u.Pixels) {
		return fmt.Errorf("%w: expected %d bytes; got %d", ErrPayloadSize, expected, len(u.Pixels))
	}
	return nil
}

// Framebuffer is a mutable, row-major window pixel buffer.
type Framebuffer struct {
	Width  uint32
	Height uint32
	Pix    []byte
}

// Resize reallocates the buffer if the dimensions differ. The previous
// contents are discarded and the new buffer is zeroed. Returns true if a
// reallocation took place.
func (fb *Framebuffer) Resize(width, height uint32) bool {
	if fb.Pix != nil && fb.Width == width && fb.Height == height {
		return false
	}

	fb.Width, fb.Height = width, height
	fb.Pix = make([]byte, int(width)*int(height)*BytesPerPixel)
	return true
}

// Stride returns the number of bytes per row.
func (fb *Framebuffer) Stride() int {
	return int(fb.Width) * BytesPerPixel
}

// Apply the dirty tiles of a validated update. The update dimensions must
// match the framebuffer.
func (fb *Framebuffer) applyTiles(u *TileUpdate) {
	stride := fb.Stride()
	cursor := 0
	tileCount := u.TilesX * u.TilesY

	for index := uint32(0); index < tileCount; index++ {
		if !u.IsDirty(index) {
			continue
		}

		r := u.TileRect(index)
		rowBytes := int(r.W) * BytesPerPixel
		for y := r.Y; y < r.Y+r.H; y++ {
			offset := int(y)*stride + int(r.X)*BytesPerPixel
			copy(fb.Pix[offset:offset+rowBytes], u.Pixels[cursor:cursor+rowBytes])
			cursor += rowBytes
		}
	}
}

// Apply validates the update and then resizes the framebuffer and copies
// the dirty tiles into it.
func (fb *Framebuffer) Apply(u *TileUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}

	fb.Resize(u.Width, u.Height)
	fb.applyTiles(u)
	return nil
}

// Extract builds an update for the given tiles of the framebuffer using a
// tilesX by tilesY grid. Without any tile indices every tile is marked
// dirty. It is the producer-side inverse of Apply.
func (fb *Framebuffer) Extract(id, tilesX, tilesY uint32, tiles ...uint32) TileUpdate {
	u := TileUpdate{
		ID:     id,
		Width:  fb.Width,
		Height: fb.Height,
		TilesX: tilesX,
		TilesY: tilesY,
		Dirty:  make([]uint64, (tilesX*tilesY+63)/64),
	}
	if len(tiles) == 0 {
		for index := uint32(0); index < tilesX*tilesY; index++ {
			u.SetDirty(index)
		}
	}
	for _, index := range tiles {
		u.SetDirty(index)
	}

	stride := fb.Stride()
	for index := uint32(0); index < tilesX*tilesY; index++ {
		if !u.IsDirty(index) {
			continue
		}
		r := u.TileRect(index)
		rowBytes := int(r.W) * BytesPerPixel
		for y := r.Y; y < r.Y+r.H; y++ {
			offset := int(y)*stride + int(r.X)*BytesPerPixel
			u.Pixels = append(u.Pixels, fb.Pix[offset:offset+rowBytes]...)
		}
	}
	return u
}
