package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Sentinel errors.
var (
	// ErrNotFound matches a SpawnError whose executable could not be found.
	ErrNotFound = errors.New("command not found")

	// ErrNotRunning is returned when signalling a stream that has exited.
	ErrNotRunning = errors.New("process not running")

	// ErrSupervisorShutdown is returned when the supervisor is shutting down.
	ErrSupervisorShutdown = errors.New("supervisor is shutting down")

	// ErrLimitReached is returned when the stream limit is reached.
	ErrLimitReached = errors.New("process limit reached")
)

// SpawnKind classifies a spawn failure.
type SpawnKind int

const (
	// SpawnNotFound means the executable does not exist on PATH.
	SpawnNotFound SpawnKind = iota
	// SpawnOS is any other operating system failure.
	SpawnOS
)

// String returns the kind name.
func (k SpawnKind) String() string {
	switch k {
	case SpawnNotFound:
		return "not found"
	case SpawnOS:
		return "os"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// SpawnError reports a command that could not be started.
type SpawnError struct {
	Name string    // executable name as typed
	Kind SpawnKind // failure class
	Code int       // errno for SpawnOS, 0 otherwise
	Err  error     // underlying error
}

func (e *SpawnError) Error() string {
	if e.Kind == SpawnNotFound {
		return fmt.Sprintf("%s: command not found", e.Name)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: spawn failed (errno %d)", e.Name, e.Code)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Is matches ErrNotFound for SpawnNotFound errors.
func (e *SpawnError) Is(target error) bool {
	return target == ErrNotFound && e.Kind == SpawnNotFound
}

// classifySpawnError turns a lookup or start failure into a SpawnError.
func classifySpawnError(name string, err error) *SpawnError {
	var errno unix.Errno
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &SpawnError{Name: name, Kind: SpawnNotFound, Err: err}
	case errors.As(err, &errno):
		if errno == unix.ENOENT {
			return &SpawnError{Name: name, Kind: SpawnNotFound, Err: err}
		}
		return &SpawnError{Name: name, Kind: SpawnOS, Code: int(errno), Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &SpawnError{Name: name, Kind: SpawnOS, Code: int(unix.EACCES), Err: err}
	default:
		return &SpawnError{Name: name, Kind: SpawnOS, Err: err}
	}
}
