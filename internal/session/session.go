// Package session owns the terminal for the lifetime of the shell.
//
// Enter switches the terminal into the state the shell draws in and Leave
// undoes exactly the transitions that were made. Leave runs at most once,
// so it can be deferred on every exit path.
package session

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dshills/exoshell/internal/renderer/backend"
)

// active guards against two sessions driving one terminal.
var active atomic.Bool

type step struct {
	name Step
	do   func() error
	undo func() error
}

// Session is a scoped hold on the terminal modes.
type Session struct {
	modes backend.Modes
	steps []step

	mu    sync.Mutex
	taken int // number of steps applied, in order

	leaveOnce sync.Once
	leaveErr  error
}

// Open verifies the terminal is interactive and claims it. No terminal
// state is changed.
func Open(modes backend.Modes) (*Session, error) {
	if !modes.IsTerminal() {
		return nil, ErrNotATerminal
	}
	if !active.CompareAndSwap(false, true) {
		return nil, ErrSessionActive
	}

	s := &Session{modes: modes}
	s.steps = []step{
		{StepRawMode, modes.EnableRawMode, modes.DisableRawMode},
		{StepAltScreen, modes.EnterAlternateScreen, modes.LeaveAlternateScreen},
		{StepClear, modes.Clear, modes.Clear},
		{StepCursor,
			func() error { return modes.SetCursorStyle(backend.CursorBar) },
			func() error { return modes.SetCursorStyle(backend.CursorDefault) }},
	}
	return s, nil
}

// Enter applies raw mode, the alternate screen, a clear and the bar cursor,
// in that order. When a step fails, the steps already applied are undone in
// reverse and the failure is returned as a *StepError. A failure while
// undoing is reported as a *TeardownError wrapping both.
func (s *Session) Enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := s.taken; i < len(s.steps); i++ {
		st := s.steps[i]
		if err := st.do(); err != nil {
			stepErr := &StepError{Step: st.name, Err: err}
			if rollbackErr := s.undoLocked(); rollbackErr != nil {
				return &TeardownError{Err: rollbackErr, Cause: stepErr}
			}
			return stepErr
		}
		s.taken = i + 1
	}
	return nil
}

// Entered reports whether every setup step is currently applied.
func (s *Session) Entered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taken == len(s.steps)
}

// Leave restores the terminal. Every applied step is undone in reverse even
// if an earlier inverse fails; the failures are joined. Only the first call
// does any work and later calls return the same result.
func (s *Session) Leave() error {
	s.leaveOnce.Do(func() {
		s.mu.Lock()
		s.leaveErr = s.undoLocked()
		s.mu.Unlock()
		active.Store(false)
	})
	return s.leaveErr
}

// Close leaves the session and combines the restore result with cause, the
// error that ended the protected region (nil on success).
func (s *Session) Close(cause error) error {
	leaveErr := s.Leave()
	switch {
	case leaveErr == nil:
		return cause
	case cause == nil:
		return leaveErr
	default:
		return &TeardownError{Err: leaveErr, Cause: cause}
	}
}

// undoLocked reverts the applied steps, newest first. Caller must hold mu.
func (s *Session) undoLocked() error {
	var errs []error
	for i := s.taken - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := st.undo(); err != nil {
			errs = append(errs, &StepError{Step: st.name, Err: err})
		}
	}
	s.taken = 0
	return errors.Join(errs...)
}
