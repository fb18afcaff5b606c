package session

import (
	"github.com/achilleasa/mirage/log"
	"github.com/achilleasa/mirage/xr"
)

var logger = log.New("session")

// StateMachine follows the runtime's session state notifications and
// decides whether frames may be submitted.
type StateMachine struct {
	session    xr.Session
	viewConfig xr.ViewConfigType

	state      xr.SessionState
	running    bool
	shouldExit bool

	// Set when the runtime is going away; teardown errors are expected.
	lenient bool
}

func NewStateMachine(session xr.Session, viewConfig xr.ViewConfigType) *StateMachine {
	return &StateMachine{
		session:    session,
		viewConfig: viewConfig,
	}
}

// Running reports whether the session has begun and frames may be waited
// on.
func (m *StateMachine) Running() bool { return m.running }

// ShouldExit reports whether the main loop must stop.
func (m *StateMachine) ShouldExit() bool { return m.shouldExit }

// State returns the last state reported for this session.
func (m *StateMachine) State() xr.SessionState { return m.state }

// Lenient reports whether teardown failures should be tolerated.
func (m *StateMachine) Lenient() bool { return m.lenient }

// Handle a runtime event.
func (m *StateMachine) Handle(ev xr.Event) {
	switch e := ev.(type) {
	case xr.EventsLost:
		logger.Warningf("runtime dropped %d events", e.Count)
	case xr.InstanceLossPending:
		logger.Warningf("runtime instance loss pending at %s", e.LossTime.Format("15:04:05.000"))
		m.lenient = true
		m.stop()
	case xr.InteractionProfileChanged:
		if m.foreign(e.Session) {
			return
		}
		logger.Info("interaction profile changed")
	case xr.ReferenceSpaceChangePending:
		if m.foreign(e.Session) {
			return
		}
		logger.Info("reference space change pending")
	case xr.SessionStateChanged:
		if m.foreign(e.Session) {
			return
		}
		m.transition(e.State)
	case xr.Ignored:
		logger.Debugf("ignoring runtime event %s", e.Kind)
	default:
		logger.Warningf("unexpected runtime event %T", ev)
	}
}

func (m *StateMachine) foreign(handle xr.Handle) bool {
	if handle == m.session.Handle() {
		return false
	}
	logger.Warningf("discarding event for foreign session %s", handle)
	return true
}

func (m *StateMachine) transition(state xr.SessionState) {
	logger.Infof("session state %s -> %s", m.state, state)
	m.state = state

	switch state {
	case xr.StateReady:
		if err := m.session.Begin(m.viewConfig); err != nil {
			logger.Errorf("could not begin session: %v", err)
			return
		}
		m.running = true
	case xr.StateStopping:
		if err := m.session.End(); err != nil {
			logger.Errorf("could not end session: %v", err)
		}
		m.running = false
	case xr.StateExiting:
		m.stop()
	case xr.StateLossPending:
		m.lenient = true
		m.stop()
	}
}

func (m *StateMachine) stop() {
	m.running = false
	m.shouldExit = true
}

// RequestExit asks the runtime to stop a running session; the loop ends
// once the runtime reports the exiting state. If the session is not running
// the loop ends right away.
func (m *StateMachine) RequestExit() {
	if m.shouldExit {
		return
	}
	if !m.running {
		m.stop()
		return
	}

	if err := m.session.RequestExit(); err != nil {
		logger.Errorf("could not request session exit: %v", err)
		m.stop()
	}
}

// Destroy the session. Errors are only reported if the runtime is expected
// to still be healthy.
func (m *StateMachine) Destroy() error {
	err := m.session.Destroy()
	if err != nil && m.lenient {
		logger.Debugf("ignoring session teardown error: %v", err)
		return nil
	}
	return err
}
