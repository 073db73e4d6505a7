package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// readChunkSize is the size of each output read.
const readChunkSize = 4096

// State represents the state of a stream's process.
type State int

const (
	// StateRunning indicates the process is running.
	StateRunning State = iota
	// StateExited indicates the process has exited normally or with an error.
	StateExited
	// StateKilled indicates the process was killed by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// EventType identifies a stream event.
type EventType int

const (
	// EventOutput carries a chunk of combined stdout/stderr.
	EventOutput EventType = iota
	// EventExit is the final event of a stream.
	EventExit
)

// Event is delivered on Stream.Events.
type Event struct {
	Type     EventType
	StreamID string

	// Data is set for EventOutput.
	Data []byte

	// Exit fields. ExitCode is 128+signal when Signaled.
	ExitCode int
	Signaled bool
	Err      error // wait failure other than a non-zero exit
}

// Stream is one running child process and its output feed.
type Stream struct {
	id      string
	name    string
	cmd     *exec.Cmd
	started time.Time

	// outMu guards output against the pump closing it during detach.
	outMu     sync.Mutex
	output    *os.File
	outClosed bool

	events chan Event
	done   chan struct{}

	// stop is closed by Release; the pump then discards instead of sending.
	stop     chan struct{}
	released atomic.Bool

	state    atomic.Int32
	exitCode atomic.Int32
	bytes    atomic.Int64
}

func newStream(id, name string, cmd *exec.Cmd, output *os.File) *Stream {
	s := &Stream{
		id:      id,
		name:    name,
		cmd:     cmd,
		output:  output,
		started: time.Now(),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	s.state.Store(int32(StateRunning))
	s.exitCode.Store(-1)
	go s.pump()
	return s
}

// ID returns the stream's unique identifier.
func (s *Stream) ID() string { return s.id }

// Name returns the command line that started the stream.
func (s *Stream) Name() string { return s.name }

// Events returns the event channel. It yields output chunks, then one
// exit event, and is then closed.
func (s *Stream) Events() <-chan Event { return s.events }

// Done returns a channel that is closed once the process has been reaped.
func (s *Stream) Done() <-chan struct{} { return s.done }

// State returns the current process state.
func (s *Stream) State() State { return State(s.state.Load()) }

// ExitCode returns the exit code, or -1 if the process has not exited.
func (s *Stream) ExitCode() int { return int(s.exitCode.Load()) }

// BytesRead returns the number of output bytes read so far.
func (s *Stream) BytesRead() int64 { return s.bytes.Load() }

// PID returns the process ID.
func (s *Stream) PID() int {
	if s.cmd.Process == nil {
		return -1
	}
	return s.cmd.Process.Pid
}

// Runtime returns how long the stream has existed.
func (s *Stream) Runtime() time.Duration {
	return time.Since(s.started)
}

// Signal sends sig to the child's process group.
func (s *Stream) Signal(sig unix.Signal) error {
	if s.State() != StateRunning {
		return ErrNotRunning
	}
	pid := s.PID()
	if pid <= 0 {
		return ErrNotRunning
	}
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return ErrNotRunning
	}
	return err
}

// Terminate sends SIGTERM to the process group.
func (s *Stream) Terminate() error {
	return s.Signal(unix.SIGTERM)
}

// Kill sends SIGKILL to the process group.
func (s *Stream) Kill() error {
	return s.Signal(unix.SIGKILL)
}

// Release tells the stream nobody is reading its events any more. Output
// is still read and discarded so the child never blocks on a full pipe, and
// the process is still reaped. Safe to call more than once.
func (s *Stream) Release() {
	if s.released.Swap(true) {
		return
	}
	close(s.stop)
}

// detach starts the drain program at path with the stream's output as its
// stdin, then releases the stream. The drain runs in a new session, keeping
// the output open for the child once this process exits. A stream whose
// output has already ended is only released.
func (s *Stream) detach(path string) error {
	defer s.Release()

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outClosed {
		return nil
	}

	drain := exec.Command(path)
	drain.Stdin = s.output
	drain.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := drain.Start(); err != nil {
		return fmt.Errorf("detach %s: %w", s.name, err)
	}
	// nobody waits on the drain; it exits when the child's side closes
	return drain.Process.Release()
}

// send delivers ev unless the stream has been released.
func (s *Stream) send(ev Event) {
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}

// pump reads output until EOF, reaps the process and emits the exit event.
func (s *Stream) pump() {
	defer close(s.events)

	buf := make([]byte, readChunkSize)
	for {
		n, err := s.output.Read(buf)
		if n > 0 {
			s.bytes.Add(int64(n))
			if !s.released.Load() {
				data := make([]byte, n)
				copy(data, buf[:n])
				s.send(Event{Type: EventOutput, StreamID: s.id, Data: data})
			}
		}
		if err != nil {
			// A pty master reports EIO once the child side is gone.
			if !errors.Is(err, io.EOF) && !errors.Is(err, syscall.EIO) && !errors.Is(err, os.ErrClosed) {
				s.send(Event{Type: EventOutput, StreamID: s.id,
					Data: []byte(fmt.Sprintf("read output: %v\n", err))})
			}
			break
		}
	}
	s.outMu.Lock()
	_ = s.output.Close()
	s.outClosed = true
	s.outMu.Unlock()

	ev := s.wait()
	close(s.done)
	s.send(ev)
}

// wait reaps the process and records its exit status.
func (s *Stream) wait() Event {
	err := s.cmd.Wait()

	ev := Event{Type: EventExit, StreamID: s.id}
	state := StateExited

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ev.ExitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				ev.Signaled = true
				ev.ExitCode = 128 + int(status.Signal())
				state = StateKilled
			}
		} else {
			ev.ExitCode = -1
			ev.Err = err
		}
	}

	s.exitCode.Store(int32(ev.ExitCode))
	s.state.Store(int32(state))
	return ev
}
