package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/exoshell/internal/config"
	"github.com/dshills/exoshell/internal/input"
	"github.com/dshills/exoshell/internal/integration/process"
	"github.com/dshills/exoshell/internal/renderer/backend"
	"github.com/dshills/exoshell/internal/renderer/statusline"
)

// loop reads and dispatches lines until exit. It returns nil when the user
// types exit or ctx is cancelled, and the error for fatal terminal or
// input failures.
func (a *App) loop(ctx context.Context) error {
	a.setState(StateLooping)

	a.console.Resize()
	if err := a.console.Redraw(); err != nil {
		return NewComponentError("console", "redraw", err)
	}

	src := input.SourceFunc(a.next)
	for {
		a.drawStatus()
		if err := a.console.StartPrompt(); err != nil {
			return NewComponentError("console", "prompt", err)
		}

		line, err := input.ReadLine(ctx, src, a.console)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				a.log.Info("run cancelled")
				return nil
			}
			return NewComponentError("input", "read line", err)
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == exitKeyword {
			a.log.Debug("exit requested with %d running children", a.active.Len())
			return nil
		}

		a.console.Command(line)
		a.dispatch(ctx, line)
	}
}

// dispatch parses line and spawns it. Failures are shown in the
// transcript; the loop always continues.
func (a *App) dispatch(ctx context.Context, line string) {
	cmd, err := a.parser.Parse(line)
	if err != nil {
		a.metrics.RecordParseError()
		a.log.Debug("parse %q: %v", line, err)
		a.console.ShowError(err)
		return
	}

	stream, err := a.spawner.Spawn(ctx, cmd)
	if err != nil {
		a.metrics.RecordSpawnError()
		a.log.Warn("spawn %s: %v", cmd.Name, err)
		a.console.ShowError(err)
		return
	}

	a.metrics.RecordSpawn()
	a.active.Add(stream)
	a.log.WithField("stream", stream.ID()).Info("spawned %s", stream.Name())
}

// next is the merged input source. It returns the next key while handling
// child output, resizes and config reloads in between, so the line being
// typed is never disturbed.
func (a *App) next(ctx context.Context) (input.KeyEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return input.KeyEvent{}, ctx.Err()

		case ev, ok := <-a.term.Events():
			if !ok {
				return input.KeyEvent{}, input.ErrInputClosed
			}
			switch ev.Type {
			case backend.EventKey:
				return input.FromBackend(ev), nil
			case backend.EventResize:
				if err := a.redraw(); err != nil {
					return input.KeyEvent{}, err
				}
			case backend.EventError:
				if ev.Err == nil {
					return input.KeyEvent{}, input.ErrInputClosed
				}
				return input.KeyEvent{}, ev.Err
			}

		case se := <-a.active.events():
			if err := a.handleStreamEvent(se); err != nil {
				return input.KeyEvent{}, err
			}

		case r, ok := <-a.reloads:
			if !ok {
				a.reloads = nil
				continue
			}
			if err := a.applyReload(r); err != nil {
				return input.KeyEvent{}, err
			}
		}
	}
}

// handleStreamEvent writes child output to the transcript. An exit event
// removes the stream from the active set.
func (a *App) handleStreamEvent(se streamEvent) error {
	ev := se.event
	switch ev.Type {
	case process.EventOutput:
		a.metrics.RecordOutput(len(ev.Data))
		a.console.AppendOutput(se.stream.ID(), ev.Data)

	case process.EventExit:
		id := se.stream.ID()
		a.console.CloseStream(id)
		a.active.Remove(id)
		a.metrics.RecordExit(ev.ExitCode)

		log := a.log.WithFields(map[string]any{"stream": id, "code": ev.ExitCode})
		switch {
		case ev.Err != nil:
			log.Warn("%s: %v", se.stream.Name(), ev.Err)
			a.console.ShowError(fmt.Errorf("%s: %w", se.stream.Name(), ev.Err))
		case ev.ExitCode != 0:
			log.Info("%s exited", se.stream.Name())
			a.console.Notice(fmt.Sprintf("[exit %d]", ev.ExitCode))
		default:
			log.Debug("%s exited", se.stream.Name())
		}
		a.drawStatus()
	}
	return a.console.Flush()
}

// drain handles stream events until every active stream has exited or ctx
// is done. Keys are ignored; resizes still redraw.
func (a *App) drain(ctx context.Context) error {
	if n := a.active.Len(); n > 0 {
		a.console.Notice(fmt.Sprintf("waiting for %d running %s…", n, plural(n, "job", "jobs")))
		a.drawStatus()
		if err := a.console.Flush(); err != nil {
			return err
		}
	}

	termEvents := a.term.Events()
	for a.active.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case se := <-a.active.events():
			if err := a.handleStreamEvent(se); err != nil {
				return err
			}
		case ev, ok := <-termEvents:
			if !ok {
				termEvents = nil
				continue
			}
			if ev.Type == backend.EventResize {
				if err := a.redraw(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// applyReload applies a reloaded configuration. The prompt change shows
// on the next prompt; status colors show immediately.
func (a *App) applyReload(r config.Reload) error {
	if r.Err != nil {
		a.log.Warn("config reload: %v", r.Err)
		a.console.ShowError(fmt.Errorf("config reload: %w", r.Err))
		return a.console.Flush()
	}

	a.cfg = r.Config
	a.log.SetLevel(ParseLogLevel(r.Config.LogLevel))
	a.console.SetPrompt(a.promptFor(r.Config))
	a.console.SetScrollback(r.Config.Scrollback)
	a.console.SetStatusStyle(r.Config.StatusStyle())
	a.log.Info("config reloaded")
	a.console.Notice("config reloaded")
	a.drawStatus()
	return a.console.Flush()
}

func (a *App) redraw() error {
	a.console.Resize()
	a.drawStatus()
	return a.console.Redraw()
}

func (a *App) drawStatus() {
	snap := a.metrics.Snapshot()
	a.console.DrawStatus(statusline.Info{
		Shell:    shellName,
		Dir:      a.dir,
		Jobs:     a.active.Len(),
		Streamed: snap.Bytes,
		Uptime:   snap.Uptime,
	})
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
