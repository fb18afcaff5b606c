package renderer

import "context"

var _ Renderer = (*Compositor)(nil)

type Renderer interface {
	// Render one frame. When active is false an empty frame is submitted
	// to keep the runtime's frame loop going.
	Render(ctx context.Context, active bool) error

	// Release all render resources.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
