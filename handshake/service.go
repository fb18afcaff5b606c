package handshake

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// Service runs a one-shot handshake listener under a supervisor. The
// handshake is never restarted; once it has failed or completed the
// service stays down.
type Service struct {
	Socket string
	Binder Binder
}

func (s *Service) Serve(ctx context.Context) error {
	l, err := Listen(s.Socket, s.Binder)
	if err != nil {
		logger.Errorf("could not start listener: %v", err)
		return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
	}

	if err = l.Serve(ctx); err != nil {
		return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
	}
	return suture.ErrDoNotRestart
}

func (s *Service) String() string {
	return "handshake@" + s.Socket
}
