// Package helper spawns and supervises the helper process that brokers
// producer connections.
package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"

	"github.com/achilleasa/mirage/config"
	"github.com/achilleasa/mirage/log"
	"github.com/thejerf/suture/v4"
	"golang.org/x/sync/errgroup"
)

var logger = log.New("helper")

// Process describes how to start the helper.
type Process struct {
	Path string
	Args []string
	Env  Environment

	// Network interface passed to the helper; detected when empty.
	Interface string
}

// ProcessFromConfig builds a helper process description.
func ProcessFromConfig(c config.Helper) *Process {
	return &Process{
		Path:      c.Path,
		Args:      c.Args,
		Env:       EnvironmentFromConfig(c),
		Interface: c.Interface,
	}
}

// Run starts the helper and blocks until it exits or ctx is cancelled. The
// helper's stdout is logged at info level and its stderr at error level,
// one entry per line.
func (p *Process) Run(ctx context.Context) error {
	iface := p.Interface
	if iface == "" {
		var err error
		if iface, err = DefaultInterface(); err != nil {
			return err
		}
	}

	if err := p.Env.Prepare(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.Path, append([]string{"-i", iface}, p.Args...)...)
	cmd.Env = p.Env.Vars()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("helper: could not start %s: %w", p.Path, err)
	}
	logger.Noticef("spawned %s on interface %s (pid %d)", p.Path, iface, cmd.Process.Pid)

	// Both pipes must be drained before calling Wait.
	var g errgroup.Group
	g.Go(func() error { return forward(stdout, "stdout", log.Info) })
	g.Go(func() error { return forward(stderr, "stderr", log.Error) })
	fwdErr := g.Wait()

	if err = cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("helper: %s exited: %w", p.Path, err)
	}
	return fwdErr
}

func forward(r io.Reader, stream string, level log.Level) error {
	w := log.NewLineWriter(logger, level)
	_, err := io.Copy(w, r)
	w.Close()
	logger.Errorf("no more output on %s", stream)

	if errors.Is(err, fs.ErrClosed) {
		return nil
	}
	return err
}

// Serve implements suture.Service. A helper that crashes is restarted by
// the supervisor; one that cannot be found or has no usable network
// interface is not.
func (p *Process) Serve(ctx context.Context) error {
	err := p.Run(ctx)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission), errors.Is(err, ErrNoInterface):
		logger.Errorf("not restarting: %v", err)
		return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
	case err != nil:
		logger.Warningf("%v", err)
		return err
	}
	logger.Warningf("%s exited", p.Path)
	return nil
}

func (p *Process) String() string {
	return "helper"
}
