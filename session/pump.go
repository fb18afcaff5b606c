package session

import (
	"context"
	"time"

	"github.com/achilleasa/mirage/platform"
	"github.com/achilleasa/mirage/xr"
)

// Ready is a bit set of event sources with pending events.
type Ready uint8

const (
	PlatformReady Ready = 1 << iota
	RuntimeReady
)

// Pump multiplexes the platform and runtime event channels.
type Pump struct {
	platform <-chan platform.Event
	runtime  <-chan xr.Event

	// Events received while waiting but not yet handed out.
	platformQueue []platform.Event
	runtimeQueue  []xr.Event
}

func NewPump(platformEvents <-chan platform.Event, runtimeEvents <-chan xr.Event) *Pump {
	return &Pump{
		platform: platformEvents,
		runtime:  runtimeEvents,
	}
}

func (p *Pump) ready() Ready {
	var r Ready
	if len(p.platformQueue) > 0 {
		r |= PlatformReady
	}
	if len(p.runtimeQueue) > 0 {
		r |= RuntimeReady
	}
	return r
}

// Wait for either source to have a pending event. A negative timeout blocks
// until an event arrives or ctx is done, a zero timeout polls.
func (p *Pump) Wait(ctx context.Context, timeout time.Duration) Ready {
	if r := p.ready(); r != 0 {
		return r
	}

	var expired <-chan time.Time
	switch {
	case timeout == 0:
		p.poll()
		return p.ready()
	case timeout > 0:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case ev, ok := <-p.platform:
		p.receivePlatform(ev, ok)
	case ev, ok := <-p.runtime:
		p.receiveRuntime(ev, ok)
	case <-expired:
	case <-ctx.Done():
	}

	p.poll()
	return p.ready()
}

// Collect anything immediately available from both sources.
func (p *Pump) poll() {
	for {
		select {
		case ev, ok := <-p.platform:
			p.receivePlatform(ev, ok)
			continue
		default:
		}
		select {
		case ev, ok := <-p.runtime:
			p.receiveRuntime(ev, ok)
			continue
		default:
		}
		return
	}
}

func (p *Pump) receivePlatform(ev platform.Event, ok bool) {
	if !ok {
		p.platform = nil
		return
	}
	p.platformQueue = append(p.platformQueue, ev)
}

func (p *Pump) receiveRuntime(ev xr.Event, ok bool) {
	if !ok {
		p.runtime = nil
		return
	}
	p.runtimeQueue = append(p.runtimeQueue, ev)
}

// Drain waits up to timeout for events and then dispatches everything that
// is pending, platform events first. It returns the number of dispatched
// events.
func (p *Pump) Drain(ctx context.Context, timeout time.Duration, onPlatform func(platform.Event), onRuntime func(xr.Event)) int {
	var count int
	for r := p.Wait(ctx, timeout); r != 0; r = p.Wait(ctx, 0) {
		for len(p.platformQueue) > 0 {
			ev := p.platformQueue[0]
			p.platformQueue = p.platformQueue[1:]
			onPlatform(ev)
			count++
		}
		for len(p.runtimeQueue) > 0 {
			ev := p.runtimeQueue[0]
			p.runtimeQueue = p.runtimeQueue[1:]
			onRuntime(ev)
			count++
		}
	}
	return count
}
