package session

import (
	"context"
	"time"

	"github.com/achilleasa/mirage/platform"
)

// While the session is not running but the application is resumed the loop
// waits at most this long for events between iterations.
const idleWait = 10 * time.Millisecond

// FrameRenderer renders one frame. Active is false when the session is not
// in a state where its content is displayed; the frame must still be
// submitted.
type FrameRenderer interface {
	Render(ctx context.Context, active bool) error
}

// Loop drives the event pump, the state machine and the renderer on the
// calling goroutine.
type Loop struct {
	Pump     *Pump
	Machine  *StateMachine
	Renderer FrameRenderer
	Platform *platform.State
}

// Run until the state machine reports that the loop should exit. Cancelling
// ctx requests a clean session exit; frames already in flight are always
// completed.
func (l *Loop) Run(ctx context.Context) error {
	frameCtx := context.WithoutCancel(ctx)
	exitRequested := false

	for !l.Machine.ShouldExit() {
		if !exitRequested && (ctx.Err() != nil || l.Platform.DestroyRequested) {
			logger.Notice("requesting session exit")
			l.Machine.RequestExit()
			exitRequested = true
		}

		l.Pump.Drain(ctx, l.eventTimeout(), l.handlePlatform, l.Machine.Handle)

		if l.Machine.ShouldExit() || !l.Machine.Running() {
			continue
		}

		if err := l.Renderer.Render(frameCtx, l.Machine.State().Active()); err != nil {
			logger.Warningf("frame failed: %v", err)
		}
	}

	logger.Notice("main loop exited")
	return nil
}

// Block on events only while idle and paused. While rendering, frame pacing
// is left to the runtime.
func (l *Loop) eventTimeout() time.Duration {
	switch {
	case l.Machine.Running():
		return 0
	case !l.Platform.Resumed && !l.Platform.DestroyRequested:
		return -1
	}
	return idleWait
}

func (l *Loop) handlePlatform(ev platform.Event) {
	logger.Infof("platform event: %s", ev.Kind)
	l.Platform.Apply(ev)
}
