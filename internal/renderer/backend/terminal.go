package backend

import (
	"errors"
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// ErrNoScreen is returned by drawing operations before the alternate
// screen has been entered.
var ErrNoScreen = errors.New("alternate screen not active")

// TTY implements Terminal for the controlling terminal.
//
// Raw input mode is handled with golang.org/x/term on stdin. The alternate
// screen, drawing and key decoding are handled by a tcell screen that is
// created when the alternate screen is entered and finalized when it is
// left.
type TTY struct {
	mu sync.Mutex

	in  *os.File
	out *os.File

	newScreen func() (tcell.Screen, error)
	screen    tcell.Screen
	rawState  *term.State

	events   chan Event
	pollStop chan struct{}
	pollDone chan struct{}
}

// TTYOption configures a TTY.
type TTYOption func(*TTY)

// WithScreen uses the given screen instead of tcell.NewScreen.
// Used with tcell's simulation screen in tests.
func WithScreen(s tcell.Screen) TTYOption {
	return func(t *TTY) {
		t.newScreen = func() (tcell.Screen, error) { return s, nil }
	}
}

// NewTTY creates a terminal bound to stdin/stdout.
func NewTTY(opts ...TTYOption) *TTY {
	t := &TTY{
		in:        os.Stdin,
		out:       os.Stdout,
		newScreen: tcell.NewScreen,
		events:    make(chan Event, 256),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsTerminal reports whether both stdin and stdout are attached to a
// terminal.
func (t *TTY) IsTerminal() bool {
	return isTTY(t.in) && isTTY(t.out)
}

func isTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// EnableRawMode puts stdin into raw mode, remembering the previous state.
func (t *TTY) EnableRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rawState != nil {
		return nil
	}
	state, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return err
	}
	t.rawState = state
	return nil
}

// DisableRawMode restores the state saved by EnableRawMode.
func (t *TTY) DisableRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rawState == nil {
		return nil
	}
	err := term.Restore(int(t.in.Fd()), t.rawState)
	t.rawState = nil
	return err
}

// EnterAlternateScreen initializes the tcell screen, which switches the
// terminal to its alternate buffer, and starts polling for input.
func (t *TTY) EnterAlternateScreen() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.screen != nil {
		return nil
	}
	screen, err := t.newScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	t.screen = screen
	t.pollStop = make(chan struct{})
	t.pollDone = make(chan struct{})
	go t.poll(screen, t.pollStop, t.pollDone)
	return nil
}

// LeaveAlternateScreen finalizes the tcell screen, restoring the primary
// buffer, and waits for the input poller to stop.
func (t *TTY) LeaveAlternateScreen() error {
	t.mu.Lock()
	screen, stop, done := t.screen, t.pollStop, t.pollDone
	t.screen, t.pollStop, t.pollDone = nil, nil, nil
	t.mu.Unlock()

	if screen == nil {
		return nil
	}
	// stop releases a poller blocked on a full event buffer; Fini unblocks
	// PollEvent, which then returns nil.
	close(stop)
	screen.Fini()
	<-done
	return nil
}

// Clear clears the screen and flushes it.
func (t *TTY) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.screen == nil {
		return ErrNoScreen
	}
	t.screen.Clear()
	t.screen.Show()
	return nil
}

// SetCursorStyle changes the cursor appearance.
func (t *TTY) SetCursorStyle(style CursorStyle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.screen == nil {
		return ErrNoScreen
	}

	var tcellStyle tcell.CursorStyle
	switch style {
	case CursorBlock:
		tcellStyle = tcell.CursorStyleSteadyBlock
	case CursorUnderline:
		tcellStyle = tcell.CursorStyleSteadyUnderline
	case CursorBar:
		tcellStyle = tcell.CursorStyleSteadyBar
	default:
		tcellStyle = tcell.CursorStyleDefault
	}
	t.screen.SetCursorStyle(tcellStyle)
	return nil
}

// Size returns the terminal dimensions. Before the screen is active the
// size is read from the output file descriptor.
func (t *TTY) Size() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.screen != nil {
		return t.screen.Size()
	}
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil {
		return 80, 24
	}
	return w, h
}

func (t *TTY) SetCell(x, y int, r rune, style tcell.Style) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.screen == nil {
		return
	}
	t.screen.SetContent(x, y, r, nil, style)
}

func (t *TTY) ShowCursor(x, y int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.screen == nil {
		return
	}
	t.screen.ShowCursor(x, y)
}

func (t *TTY) Show() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.screen == nil {
		return ErrNoScreen
	}
	t.screen.Show()
	return nil
}

// Events returns the input event channel.
func (t *TTY) Events() <-chan Event {
	return t.events
}

// poll forwards screen events until the screen is finalized. A full event
// buffer blocks the poller rather than dropping keys.
func (t *TTY) poll(screen tcell.Screen, stop, done chan struct{}) {
	defer close(done)

	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		converted := convertEvent(ev)
		if converted.Type == EventNone {
			continue
		}
		select {
		case t.events <- converted:
		case <-stop:
			return
		}
	}
}

// convertEvent converts tcell events to our Event type.
func convertEvent(ev tcell.Event) Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return Event{
			Type: EventKey,
			Key:  convertKey(e.Key()),
			Rune: e.Rune(),
			Mod:  convertMod(e.Modifiers()),
		}

	case *tcell.EventResize:
		w, h := e.Size()
		return Event{
			Type:   EventResize,
			Width:  w,
			Height: h,
		}

	case *tcell.EventError:
		return Event{
			Type: EventError,
			Err:  e,
		}

	default:
		return Event{Type: EventNone}
	}
}

// convertKey converts tcell key to our Key type.
func convertKey(k tcell.Key) Key {
	switch k {
	case tcell.KeyRune:
		return KeyRune
	case tcell.KeyEnter:
		return KeyEnter
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return KeyBackspace
	case tcell.KeyTab:
		return KeyTab
	case tcell.KeyEscape:
		return KeyEscape
	default:
		return KeyOther
	}
}

// convertMod converts tcell modifier mask to our ModMask.
func convertMod(m tcell.ModMask) ModMask {
	var result ModMask
	if m&tcell.ModShift != 0 {
		result |= ModShift
	}
	if m&tcell.ModCtrl != 0 {
		result |= ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		result |= ModAlt
	}
	if m&tcell.ModMeta != 0 {
		result |= ModMeta
	}
	return result
}
