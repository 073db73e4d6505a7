package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/dshills/exoshell/internal/command"
)

// Mode selects how a child's output is captured.
type Mode string

const (
	// ModePipe combines stdout and stderr into one pipe.
	ModePipe Mode = "pipe"
	// ModePTY runs the child on a pseudo-terminal.
	ModePTY Mode = "pty"
)

// drainCommand copies a detached stream's output to the null device.
const drainCommand = "cat"

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePipe, ModePTY:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown spawn mode %q", s)
	}
}

// Supervisor starts streams and tracks the ones still running.
//
// The Supervisor provides:
//   - Executable lookup with classified spawn errors
//   - Stream tracking by uuid until the process is reaped
//   - Graceful shutdown: SIGTERM, then SIGKILL after a grace period
//   - Detaching: children keep running, and writing, after the shell exits
//
// Supervisor is safe for concurrent use.
type Supervisor struct {
	mu      sync.RWMutex
	streams map[string]*Stream

	// closed indicates the supervisor has been shut down
	closed atomic.Bool

	// maxStreams limits concurrent streams (0 = unlimited)
	maxStreams int

	mode     Mode
	ptyCols  uint16
	ptyRows  uint16
	lookPath func(string) (string, error)

	// onExit is called when a stream's process has been reaped
	onExit func(s *Stream)
}

// SupervisorOption configures a Supervisor instance.
type SupervisorOption func(*Supervisor)

// WithMaxStreams sets the maximum number of concurrent streams.
// A value of 0 (default) means unlimited.
func WithMaxStreams(max int) SupervisorOption {
	return func(s *Supervisor) {
		s.maxStreams = max
	}
}

// WithMode sets the output capture mode. Default is ModePipe.
func WithMode(mode Mode) SupervisorOption {
	return func(s *Supervisor) {
		s.mode = mode
	}
}

// WithPTYSize sets the window size given to pty children.
func WithPTYSize(cols, rows uint16) SupervisorOption {
	return func(s *Supervisor) {
		s.ptyCols = cols
		s.ptyRows = rows
	}
}

// WithLookPath replaces exec.LookPath for executable resolution.
func WithLookPath(fn func(string) (string, error)) SupervisorOption {
	return func(s *Supervisor) {
		s.lookPath = fn
	}
}

// WithExitCallback sets a callback for when a stream's process is reaped.
func WithExitCallback(fn func(s *Stream)) SupervisorOption {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// NewSupervisor creates a new supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		streams:  make(map[string]*Stream),
		mode:     ModePipe,
		ptyCols:  80,
		ptyRows:  24,
		lookPath: exec.LookPath,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Spawn resolves cmd.Name and starts it. Lookup and start failures are
// returned as *SpawnError.
func (s *Supervisor) Spawn(ctx context.Context, cmd command.Command) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.lookPath(cmd.Name)
	if err != nil {
		return nil, classifySpawnError(cmd.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check shutdown state under lock to prevent race
	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}

	if s.maxStreams > 0 && len(s.streams) >= s.maxStreams {
		return nil, fmt.Errorf("%w: %d", ErrLimitReached, s.maxStreams)
	}

	execCmd := exec.Command(path, cmd.Args...)
	execCmd.Args[0] = cmd.Name

	var output *os.File
	switch s.mode {
	case ModePTY:
		output, err = s.startPTY(execCmd)
	default:
		output, err = startPipe(execCmd)
	}
	if err != nil {
		return nil, classifySpawnError(cmd.Name, err)
	}

	stream := newStream(uuid.New().String(), cmd.String(), execCmd, output)
	s.streams[stream.id] = stream

	go s.monitor(stream)

	return stream, nil
}

// startPipe starts execCmd with stdout and stderr sharing one pipe. The
// child runs in its own process group with stdin on the null device.
func startPipe(execCmd *exec.Cmd) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	execCmd.Stdout = w
	execCmd.Stderr = w
	execCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := execCmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, err
	}
	// Only the child holds the write end now, so EOF follows its exit.
	_ = w.Close()
	return r, nil
}

// startPTY starts execCmd on a new pseudo-terminal. pty.Start makes the
// child a session leader, which also gives it its own process group.
func (s *Supervisor) startPTY(execCmd *exec.Cmd) (*os.File, error) {
	return pty.StartWithSize(execCmd, &pty.Winsize{
		Cols: s.ptyCols,
		Rows: s.ptyRows,
	})
}

// monitor waits for a stream's process to be reaped and stops tracking it.
func (s *Supervisor) monitor(stream *Stream) {
	<-stream.Done()

	if s.onExit != nil {
		func() {
			defer func() {
				// callback panics must not take the supervisor down
				_ = recover()
			}()
			s.onExit(stream)
		}()
	}

	s.mu.Lock()
	delete(s.streams, stream.id)
	s.mu.Unlock()
}

// List returns all tracked streams.
func (s *Supervisor) List() []*Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Stream, 0, len(s.streams))
	for _, st := range s.streams {
		result = append(result, st)
	}
	return result
}

// Count returns the number of tracked streams.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams)
}

// TerminateAll sends SIGTERM to every tracked stream and waits up to grace
// for them to exit. Streams still running afterwards are killed. It returns
// once every process has been reaped and untracked.
func (s *Supervisor) TerminateAll(grace time.Duration) {
	streams := s.List()
	if len(streams) == 0 {
		return
	}

	for _, st := range streams {
		_ = st.Terminate()
	}

	done := make(chan struct{})
	go func() {
		for _, st := range streams {
			<-st.Done()
		}
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		for _, st := range streams {
			_ = st.Kill()
		}
		<-done
	}

	s.waitForCleanup()
}

// Detach stops accepting new streams and lets the running ones outlive the
// shell. Each stream's output is handed to a drain process in its own
// session, so a child that keeps writing after the shell exits neither
// receives SIGPIPE nor loses its terminal to a hangup. Streams are released
// and never signalled.
func (s *Supervisor) Detach() error {
	if s.closed.Swap(true) {
		return nil
	}
	streams := s.List()
	if len(streams) == 0 {
		return nil
	}

	path, err := s.lookPath(drainCommand)
	if err != nil {
		for _, st := range streams {
			st.Release()
		}
		return fmt.Errorf("detach: %w", err)
	}

	var errs []error
	for _, st := range streams {
		if err := st.detach(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops accepting new streams and terminates the running ones.
func (s *Supervisor) Shutdown(grace time.Duration) {
	if s.closed.Swap(true) {
		return
	}
	s.TerminateAll(grace)
}

// waitForCleanup waits for monitors to untrack every reaped stream.
func (s *Supervisor) waitForCleanup() {
	for {
		s.mu.RLock()
		pending := 0
		for _, st := range s.streams {
			select {
			case <-st.Done():
				pending++
			default:
			}
		}
		s.mu.RUnlock()
		if pending == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
