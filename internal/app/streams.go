package app

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/exoshell/internal/command"
	"github.com/dshills/exoshell/internal/integration/process"
)

// ChildStream is one running child as the run loop sees it.
type ChildStream interface {
	ID() string
	Name() string
	// Events yields output chunks, then one exit event, then closes.
	Events() <-chan process.Event
	// Release stops delivery of further events.
	Release()
}

// Spawner starts children and shuts them down at exit.
type Spawner interface {
	Spawn(ctx context.Context, cmd command.Command) (ChildStream, error)
	// Shutdown terminates every running child, killing those still alive
	// after grace, and returns once all have been reaped.
	Shutdown(grace time.Duration)
	// Detach lets running children outlive the shell, including ones that
	// keep writing output.
	Detach() error
}

type supervisorSpawner struct {
	sup *process.Supervisor
}

// SupervisorSpawner adapts a process supervisor to Spawner.
func SupervisorSpawner(sup *process.Supervisor) Spawner {
	return supervisorSpawner{sup: sup}
}

func (s supervisorSpawner) Spawn(ctx context.Context, cmd command.Command) (ChildStream, error) {
	st, err := s.sup.Spawn(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s supervisorSpawner) Shutdown(grace time.Duration) {
	s.sup.Shutdown(grace)
}

func (s supervisorSpawner) Detach() error {
	return s.sup.Detach()
}

// streamEvent is one event from a member of the active set.
type streamEvent struct {
	stream ChildStream
	event  process.Event
}

// ActiveSet holds the streams whose exit has not been observed yet and
// fans their events into one channel. Membership is changed only by the
// run loop; forwarder goroutines only send.
type ActiveSet struct {
	streams map[string]ChildStream
	order   []string

	merged chan streamEvent
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewActiveSet creates an empty set.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{
		streams: make(map[string]ChildStream),
		merged:  make(chan streamEvent),
		done:    make(chan struct{}),
	}
}

// Add inserts s and starts forwarding its events. A stream added while
// the loop is waiting is seen on the loop's next receive.
func (a *ActiveSet) Add(s ChildStream) {
	if a.closed {
		s.Release()
		return
	}
	if _, ok := a.streams[s.ID()]; ok {
		return
	}
	a.streams[s.ID()] = s
	a.order = append(a.order, s.ID())

	a.wg.Add(1)
	go a.forward(s)
}

// forward copies the events of s, in order, into the merged channel.
func (a *ActiveSet) forward(s ChildStream) {
	defer a.wg.Done()
	events := s.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case a.merged <- streamEvent{stream: s, event: ev}:
			case <-a.done:
				return
			}
		case <-a.done:
			return
		}
	}
}

// Remove drops the stream with the given id from the set and releases it.
func (a *ActiveSet) Remove(id string) {
	s, ok := a.streams[id]
	if !ok {
		return
	}
	delete(a.streams, id)
	for i, v := range a.order {
		if v == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	s.Release()
}

// Len returns the number of streams whose exit has not been observed.
func (a *ActiveSet) Len() int {
	return len(a.streams)
}

// events returns the merged event channel.
func (a *ActiveSet) events() <-chan streamEvent {
	return a.merged
}

// Close releases every member and stops the forwarders. Streams are not
// waited for.
func (a *ActiveSet) Close() {
	if a.closed {
		return
	}
	a.closed = true
	close(a.done)
	for _, id := range a.order {
		a.streams[id].Release()
	}
	a.wg.Wait()
	a.streams = make(map[string]ChildStream)
	a.order = nil
}
