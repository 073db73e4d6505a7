package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrNotATerminal indicates standard output is not an interactive terminal.
	ErrNotATerminal = errors.New("not an interactive terminal")

	// ErrSessionActive indicates another session already owns the terminal.
	ErrSessionActive = errors.New("terminal session already active")
)

// Step names a terminal mode transition.
type Step string

const (
	StepRawMode   Step = "raw mode"
	StepAltScreen Step = "alternate screen"
	StepClear     Step = "clear screen"
	StepCursor    Step = "cursor style"
)

// StepError reports a failed mode transition.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TeardownError is returned when restoring the terminal fails after the
// protected region already failed. Both errors are reachable through
// errors.Is and errors.As.
type TeardownError struct {
	Err   error // restore failure
	Cause error // error that ended the session
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("restore terminal: %v (after: %v)", e.Err, e.Cause)
}

func (e *TeardownError) Unwrap() []error {
	return []error{e.Err, e.Cause}
}
