package platform

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestStateApply(t *testing.T) {
	type spec struct {
		events     []EventKind
		expResumed bool
		expDestroy bool
	}
	specs := []spec{
		{nil, true, false},
		{[]EventKind{Pause}, false, false},
		{[]EventKind{Pause, Resume}, true, false},
		{[]EventKind{Destroy}, true, true},
		{[]EventKind{Destroy, Pause, Resume}, true, true},
	}

	for index, s := range specs {
		state := NewState()
		for _, kind := range s.events {
			state.Apply(Event{Kind: kind})
		}
		if state.Resumed != s.expResumed || state.DestroyRequested != s.expDestroy {
			t.Fatalf("[spec %d] expected resumed=%t destroy=%t; got %+v", index, s.expResumed, s.expDestroy, state)
		}
	}
}

func TestKindForSignal(t *testing.T) {
	type spec struct {
		sig unix.Signal
		exp EventKind
	}
	specs := []spec{
		{unix.SIGCONT, Resume},
		{unix.SIGTSTP, Pause},
		{unix.SIGINT, Destroy},
		{unix.SIGTERM, Destroy},
	}

	for index, s := range specs {
		if got := kindForSignal(s.sig); got != s.exp {
			t.Fatalf("[spec %d] expected %s; got %s", index, s.exp, got)
		}
	}
}

func TestChannel(t *testing.T) {
	c := NewChannel(1)
	if !c.Send(Pause) {
		t.Fatal("expected send to succeed")
	}
	if ev := <-c.Events(); ev.Kind != Pause {
		t.Fatalf("expected pause event; got %s", ev.Kind)
	}

	_ = c.Close()
	_ = c.Close()
	if c.Send(Resume) {
		t.Fatal("expected send on a closed channel to fail")
	}
}

func TestSignalsForwardSIGCONT(t *testing.T) {
	s := NewSignals()
	defer s.Close()

	if err := unix.Kill(unix.Getpid(), unix.SIGCONT); err != nil {
		t.Fatal(err)
	}
	if ev := <-s.Events(); ev.Kind != Resume {
		t.Fatalf("expected resume event; got %s", ev.Kind)
	}
}
