// Package app runs the shell: it owns the terminal session, the console
// and the set of running children, and multiplexes keyboard input with
// child output in a single run loop.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dshills/exoshell/internal/command"
	"github.com/dshills/exoshell/internal/config"
	"github.com/dshills/exoshell/internal/renderer"
	"github.com/dshills/exoshell/internal/renderer/backend"
	"github.com/dshills/exoshell/internal/session"
)

const (
	shellName       = "exoshell"
	exitKeyword     = "exit"
	welcomeMessage  = "🐢 Entering the exoshell…\n"
	farewellMessage = "🐢 Until next time! 👋\n"
)

// State is the run loop's lifecycle state.
type State int32

const (
	// StateStarting covers the welcome line and entering the session.
	StateStarting State = iota
	// StateLooping is reading, dispatching and streaming.
	StateLooping
	// StateExiting applies the child policy and leaves the session.
	StateExiting
	// StateStopped is final.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateLooping:
		return "looping"
	case StateExiting:
		return "exiting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures an App.
type Options struct {
	// Terminal is the terminal the shell takes over. Required.
	Terminal backend.Terminal
	// Spawner starts children. Required.
	Spawner Spawner
	// Parser parses lines. Defaults to a parser without aliases.
	Parser *command.Parser
	// Config holds the settings. Defaults to config.Default().
	Config *config.Config
	// Prompt, when set, replaces Config.Prompt and survives config reloads.
	// The rc script sets it.
	Prompt string
	// Reloads delivers config file reloads. Optional.
	Reloads <-chan config.Reload
	// Logger receives diagnostics. Defaults to NullLogger.
	Logger *Logger
	// Metrics counts activity. Defaults to a fresh tracker.
	Metrics *Metrics
	// Stdout receives the welcome and farewell lines. Defaults to os.Stdout.
	Stdout io.Writer
}

// App is the shell.
type App struct {
	term    backend.Terminal
	spawner Spawner
	parser  *command.Parser
	cfg     config.Config
	prompt  string // overrides cfg.Prompt when set
	reloads <-chan config.Reload
	log     *Logger
	metrics *Metrics
	stdout  io.Writer

	console *renderer.Console
	active  *ActiveSet
	dir     string

	state   atomic.Int32
	started atomic.Bool
}

// New creates the shell.
func New(opts Options) (*App, error) {
	if opts.Terminal == nil {
		return nil, NewComponentError("terminal", "", ErrComponentNotAvailable)
	}
	if opts.Spawner == nil {
		return nil, NewComponentError("spawner", "", ErrComponentNotAvailable)
	}

	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if opts.Parser == nil {
		opts.Parser = command.NewParser()
	}
	if opts.Logger == nil {
		opts.Logger = NullLogger
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	a := &App{
		term:    opts.Terminal,
		spawner: opts.Spawner,
		parser:  opts.Parser,
		cfg:     cfg,
		prompt:  opts.Prompt,
		reloads: opts.Reloads,
		log:     opts.Logger.WithComponent("app"),
		metrics: opts.Metrics,
		stdout:  opts.Stdout,
		active:  NewActiveSet(),
	}
	a.console = renderer.NewConsole(opts.Terminal, renderer.Options{
		Prompt:     a.promptFor(cfg),
		Scrollback: cfg.Scrollback,
		Status:     cfg.StatusStyle(),
	})
	if dir, err := os.Getwd(); err == nil {
		a.dir = dir
	}
	return a, nil
}

// State returns the current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	old := State(a.state.Swap(int32(s)))
	if old != s {
		a.log.Debug("state %s -> %s", old, s)
	}
}

// Metrics returns the activity counters.
func (a *App) Metrics() *Metrics {
	return a.metrics
}

// Transcript returns the committed console lines.
func (a *App) Transcript() []renderer.Line {
	return a.console.Lines()
}

// Run takes over the terminal and runs the shell until the user types
// exit, ctx is cancelled or the terminal fails. The terminal is restored
// on every path once the session has been opened. Run may only be called
// once.
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	a.setState(StateStarting)
	defer a.setState(StateStopped)

	sess, err := session.Open(a.term)
	if err != nil {
		a.log.Error("open session: %v", err)
		return err
	}

	fmt.Fprint(a.stdout, welcomeMessage)

	if err := sess.Enter(); err != nil {
		a.log.Error("enter session: %v", err)
		return sess.Close(err)
	}

	loopErr := a.loop(ctx)
	if loopErr != nil {
		a.log.Error("run loop: %v", loopErr)
	}

	a.setState(StateExiting)
	a.stopChildren(ctx, loopErr)

	if err := sess.Close(loopErr); err != nil {
		return err
	}

	fmt.Fprint(a.stdout, farewellMessage)
	a.log.Info("exited cleanly")
	return nil
}

// promptFor returns the prompt to show under cfg.
func (a *App) promptFor(cfg config.Config) string {
	if a.prompt != "" {
		return a.prompt
	}
	return cfg.Prompt
}

// stopChildren applies the child policy. After a fatal error, or when the
// run was cancelled, waiting is not possible and children are terminated.
func (a *App) stopChildren(ctx context.Context, loopErr error) {
	policy := a.cfg.ChildPolicy
	if policy == config.PolicyWait && (loopErr != nil || ctx.Err() != nil) {
		policy = config.PolicyTerminate
	}

	switch policy {
	case config.PolicyDetach:
		a.log.Info("detaching %d running children", a.active.Len())
		a.active.Close()
		if err := a.spawner.Detach(); err != nil {
			a.log.Warn("detach children: %v", err)
		}

	case config.PolicyWait:
		if err := a.drain(ctx); err != nil {
			a.log.Warn("wait for children: %v", err)
		}
		a.terminateAll()

	default:
		a.terminateAll()
	}
}

func (a *App) terminateAll() {
	n := a.active.Len()
	a.active.Close()
	if n > 0 {
		a.log.Info("terminating %d running children", n)
	}
	a.spawner.Shutdown(a.cfg.GracePeriod.Duration)
}
