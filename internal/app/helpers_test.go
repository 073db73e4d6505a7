package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/exoshell/internal/command"
	"github.com/dshills/exoshell/internal/config"
	"github.com/dshills/exoshell/internal/integration/process"
	"github.com/dshills/exoshell/internal/renderer/backend"
)

const testTimeout = 5 * time.Second

// fakeStream is a child whose events are driven by the test.
type fakeStream struct {
	id       string
	name     string
	events   chan process.Event
	released atomic.Bool
}

func newFakeStream(id, name string) *fakeStream {
	return &fakeStream{id: id, name: name, events: make(chan process.Event, 16)}
}

func (f *fakeStream) ID() string                   { return f.id }
func (f *fakeStream) Name() string                 { return f.name }
func (f *fakeStream) Events() <-chan process.Event { return f.events }
func (f *fakeStream) Release()                     { f.released.Store(true) }

func (f *fakeStream) output(s string) {
	f.events <- process.Event{Type: process.EventOutput, StreamID: f.id, Data: []byte(s)}
}

func (f *fakeStream) exit(code int) {
	f.events <- process.Event{Type: process.EventExit, StreamID: f.id, ExitCode: code}
	close(f.events)
}

// fakeSpawner records commands and hands out fake streams.
type fakeSpawner struct {
	mu        sync.Mutex
	fail      map[string]error
	cmds      []command.Command
	shutdowns int
	detaches  int
	grace     time.Duration
	n         int

	spawned chan *fakeStream
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		fail:    make(map[string]error),
		spawned: make(chan *fakeStream, 16),
	}
}

func (f *fakeSpawner) Spawn(_ context.Context, cmd command.Command) (ChildStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	if err := f.fail[cmd.Name]; err != nil {
		return nil, err
	}
	f.n++
	s := newFakeStream(fmt.Sprintf("stream-%d", f.n), cmd.String())
	f.spawned <- s
	return s, nil
}

func (f *fakeSpawner) Shutdown(grace time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	f.grace = grace
}

func (f *fakeSpawner) Detach() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detaches++
	return nil
}

func (f *fakeSpawner) detachCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detaches
}

func (f *fakeSpawner) commands() []command.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]command.Command(nil), f.cmds...)
}

func (f *fakeSpawner) shutdownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}

// harness runs an App against a memory terminal.
type harness struct {
	t       *testing.T
	term    *backend.Memory
	spawner *fakeSpawner
	app     *App
	stdout  *bytes.Buffer
	reloads chan config.Reload

	ctx    context.Context
	cancel context.CancelFunc
	done   chan error
}

func newHarness(t *testing.T, modify func(*config.Config)) *harness {
	t.Helper()
	return newHarnessWith(t, modify, nil)
}

// newHarnessWith is newHarness with a hook to adjust the App options.
func newHarnessWith(t *testing.T, modify func(*config.Config), adjust func(*Options)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.GracePeriod.Duration = 50 * time.Millisecond
	if modify != nil {
		modify(&cfg)
	}

	h := &harness{
		t:       t,
		term:    backend.NewMemory(60, 12),
		spawner: newFakeSpawner(),
		stdout:  &bytes.Buffer{},
		reloads: make(chan config.Reload, 1),
		done:    make(chan error, 1),
	}

	opts := Options{
		Terminal: h.term,
		Spawner:  h.spawner,
		Config:   &cfg,
		Reloads:  h.reloads,
		Stdout:   h.stdout,
	}
	if adjust != nil {
		adjust(&opts)
	}
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.app = app
	h.ctx, h.cancel = context.WithCancel(context.Background())
	t.Cleanup(h.cancel)
	return h
}

func (h *harness) start() {
	go func() { h.done <- h.app.Run(h.ctx) }()
}

// wait returns the result of Run.
func (h *harness) wait() error {
	h.t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(testTimeout):
		h.t.Fatal("timed out waiting for Run to return")
		return nil
	}
}

func (h *harness) nextSpawn() *fakeStream {
	h.t.Helper()
	select {
	case s := <-h.spawner.spawned:
		return s
	case <-time.After(testTimeout):
		h.t.Fatal("timed out waiting for spawn")
		return nil
	}
}

func (h *harness) transcript() string {
	var texts []string
	for _, l := range h.app.Transcript() {
		texts = append(texts, l.Text)
	}
	return strings.Join(texts, "\n")
}

func (h *harness) promptRow() string {
	_, height := h.term.Size()
	return h.term.Row(height - 1)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// assertLeftOnce checks the terminal was restored exactly once.
func (h *harness) assertLeftOnce() {
	h.t.Helper()
	for _, method := range []string{"LeaveAlternateScreen", "DisableRawMode"} {
		if n := h.term.CallCount(method); n != 1 {
			h.t.Errorf("%s called %d times, want 1", method, n)
		}
	}
	if h.term.RawMode() || h.term.Alternate() {
		h.t.Error("terminal not restored")
	}
	if h.app.State() != StateStopped {
		h.t.Errorf("State() = %v, want stopped", h.app.State())
	}
}
