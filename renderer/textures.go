package renderer

import "github.com/achilleasa/mirage/desktop"

// A window's pixels as last handed out by the registry, in premultiplied
// BGRA order.
type paneTexture struct {
	id      uint32
	width   uint32
	height  uint32
	pix     []byte
	version uint64
}

// The textureCache holds the render-side copy of every created window. It
// is only touched by the render goroutine.
type textureCache struct {
	textures map[uint32]*paneTexture
}

func newTextureCache() *textureCache {
	return &textureCache{textures: make(map[uint32]*paneTexture)}
}

// Sync applies a registry snapshot: textures of reaped windows are
// released and changed window content is taken over.
func (tc *textureCache) sync(frame desktop.Frame) {
	for _, id := range frame.Reaped {
		if _, ok := tc.textures[id]; ok {
			delete(tc.textures, id)
			logger.Debugf("released texture for window %d", id)
		}
	}

	for _, w := range frame.Windows {
		if w.Pix == nil {
			continue
		}
		tex := tc.textures[w.ID]
		if tex == nil {
			tex = &paneTexture{id: w.ID}
			tc.textures[w.ID] = tex
			logger.Debugf("created texture for window %d (%dx%d)", w.ID, w.Width, w.Height)
		}
		tex.width, tex.height = w.Width, w.Height
		tex.pix = w.Pix
		tex.version = w.Version
	}
}

func (tc *textureCache) get(id uint32) *paneTexture {
	return tc.textures[id]
}

func (tc *textureCache) len() int {
	return len(tc.textures)
}
