// Package platform delivers application lifecycle events.
package platform

import (
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/achilleasa/mirage/log"
	"golang.org/x/sys/unix"
)

var logger = log.New("platform")

type EventKind uint8

const (
	Resume EventKind = iota + 1
	Pause
	Destroy
)

func (k EventKind) String() string {
	switch k {
	case Resume:
		return "resume"
	case Pause:
		return "pause"
	case Destroy:
		return "destroy"
	}
	return "unknown"
}

type Event struct {
	Kind EventKind
	Time time.Time
}

// Source is implemented by lifecycle event producers.
type Source interface {
	Events() <-chan Event
	Close() error
}

// Channel is a buffered event source that events can be injected into.
type Channel struct {
	ch        chan Event
	closeOnce sync.Once
	done      chan struct{}
}

func NewChannel(size int) *Channel {
	return &Channel{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

// Send queues an event. It blocks while the buffer is full and returns
// false if the channel was closed.
func (c *Channel) Send(kind EventKind) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.ch <- Event{Kind: kind, Time: time.Now()}:
		return true
	case <-c.done:
		return false
	}
}

func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Close stops accepting events. The event channel itself is left open so
// receivers are never woken by a zero event.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Signals maps process signals to lifecycle events: SIGCONT resumes,
// SIGTSTP pauses and SIGINT or SIGTERM request destruction.
type Signals struct {
	*Channel
	sigCh chan os.Signal
}

func NewSignals() *Signals {
	s := &Signals{
		Channel: NewChannel(8),
		sigCh:   make(chan os.Signal, 4),
	}
	signal.Notify(s.sigCh, unix.SIGCONT, unix.SIGTSTP, unix.SIGINT, unix.SIGTERM)
	go s.forward()
	return s
}

func (s *Signals) forward() {
	for {
		select {
		case sig := <-s.sigCh:
			kind := kindForSignal(sig)
			logger.Infof("received %s; emitting %s", sig, kind)
			if !s.Send(kind) {
				return
			}
		case <-s.done:
			return
		}
	}
}

func kindForSignal(sig os.Signal) EventKind {
	switch sig {
	case unix.SIGCONT:
		return Resume
	case unix.SIGTSTP:
		return Pause
	}
	return Destroy
}

func (s *Signals) Close() error {
	signal.Stop(s.sigCh)
	return s.Channel.Close()
}

// State tracks the application lifecycle. Applications start resumed.
type State struct {
	Resumed          bool
	DestroyRequested bool
}

func NewState() *State {
	return &State{Resumed: true}
}

// Apply an event to the state.
func (s *State) Apply(ev Event) {
	switch ev.Kind {
	case Resume:
		s.Resumed = true
	case Pause:
		s.Resumed = false
	case Destroy:
		s.DestroyRequested = true
	}
}
