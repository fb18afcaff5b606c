// Package agent decodes window operations sent by the producer over the
// handle received during the handshake and applies them to the window
// registry.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/achilleasa/mirage/desktop"
	"github.com/achilleasa/mirage/handshake"
	"github.com/achilleasa/mirage/log"
	"github.com/thejerf/suture/v4"
	"github.com/vmihailenco/msgpack/v5"
)

var logger = log.New("agent")

// Stats collected while decoding the producer stream.
type Stats struct {
	Pushes    int
	Destroys  int
	Malformed int
}

// Agent reads ops from the producer handle and forwards them to the
// registry callbacks.
type Agent struct {
	file  *os.File
	token uint64
	cb    desktop.Callbacks

	pushes    atomic.Int64
	destroys  atomic.Int64
	malformed atomic.Int64
}

// New creates an agent that owns the handle's file.
func New(h handshake.Handle, cb desktop.Callbacks) *Agent {
	return &Agent{
		file:  h.File,
		token: h.Token,
		cb:    cb,
	}
}

// Token returns the device token the producer sent with the handle.
func (a *Agent) Token() uint64 {
	return a.token
}

// Stats returns a snapshot of the agent counters.
func (a *Agent) Stats() Stats {
	return Stats{
		Pushes:    int(a.pushes.Load()),
		Destroys:  int(a.destroys.Load()),
		Malformed: int(a.malformed.Load()),
	}
}

// Run decodes ops until the producer closes its end of the stream, ctx is
// cancelled or the stream becomes unreadable. A clean end of stream
// returns nil. Ops that cannot be decoded are logged and skipped.
func (a *Agent) Run(ctx context.Context) error {
	defer a.file.Close()
	stop := context.AfterFunc(ctx, func() { a.file.Close() })
	defer stop()

	logger.Noticef("agent started (token %#016x)", a.token)
	lenBuf := make([]byte, 4)
	for {
		data, err := readFrame(a.file, lenBuf)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Notice("producer closed the stream")
				return nil
			case ctx.Err() != nil:
				return nil
			}
			logger.Errorf("could not read from producer: %v", err)
			return err
		}

		var op Op
		if err = msgpack.Unmarshal(data, &op); err != nil {
			a.malformed.Add(1)
			logger.Warningf("skipping malformed op (%d bytes): %v", len(data), err)
			continue
		}
		a.dispatch(&op)
	}
}

func (a *Agent) dispatch(op *Op) {
	switch op.Kind {
	case KindPush:
		a.pushes.Add(1)
		a.cb.Push(op.Update())
	case KindDestroy:
		a.destroys.Add(1)
		a.cb.Destroy(op.Window)
	default:
		a.malformed.Add(1)
		logger.Warningf("skipping op for window %d: %v %d", op.Window, ErrUnknownOp, op.Kind)
	}
}

// Serve implements suture.Service. The producer stream cannot be
// reopened so the agent is never restarted.
func (a *Agent) Serve(ctx context.Context) error {
	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
	}
	return suture.ErrDoNotRestart
}

func (a *Agent) String() string {
	return "agent"
}
