package renderer

import "time"

type EyeStat struct {
	// Frames in which this eye was rendered and submitted.
	Rendered int

	// Frames in which this eye was dropped.
	AcquireFailures int
	WaitFailures    int
	ReleaseFailures int

	// Row block assignment and timings from the last rendered frame.
	Blocks []BlockStat
}

type FrameStats struct {
	// Frames submitted and how many of those carried no layers.
	Frames      int
	EmptyFrames int

	// Frames that could not be ended.
	EndFailures int

	// Individual eye stats.
	Eyes []EyeStat

	// Panes drawn across all eyes and frames.
	PanesDrawn int

	// Render time between BeginFrame and EndFrame.
	RenderTime     time.Duration
	LastRenderTime time.Duration
	MaxRenderTime  time.Duration
}

// Average render time per submitted frame.
func (s FrameStats) AvgRenderTime() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.RenderTime / time.Duration(s.Frames)
}
