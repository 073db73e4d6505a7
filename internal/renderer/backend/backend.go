// Package backend provides the terminal primitives the shell is built on.
//
// A Terminal exposes the individual mode transitions a session needs
// (raw input, alternate screen, clearing, cursor style), a cell-based
// drawing surface, and a channel of input events. TTY implements it on top
// of tcell and golang.org/x/term; Memory is an in-memory double that records
// every call for tests.
package backend

import "github.com/gdamore/tcell/v2"

// CursorStyle defines how the cursor appears.
type CursorStyle int

const (
	CursorDefault CursorStyle = iota
	CursorBlock
	CursorUnderline
	CursorBar
)

// String returns the style name.
func (c CursorStyle) String() string {
	switch c {
	case CursorDefault:
		return "default"
	case CursorBlock:
		return "block"
	case CursorUnderline:
		return "underline"
	case CursorBar:
		return "bar"
	default:
		return "unknown"
	}
}

// EventType identifies the type of terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventResize
	EventError
)

// Key represents a keyboard key.
type Key int

// Key constants for the keys the shell distinguishes. Everything else
// arrives as KeyOther.
const (
	KeyNone Key = iota
	KeyRune     // Regular character (use Rune field)
	KeyEnter
	KeyBackspace
	KeyTab
	KeyEscape
	KeyOther
)

// ModMask represents modifier key state.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has returns true if the mask contains the given modifier.
func (m ModMask) Has(mod ModMask) bool {
	return m&mod != 0
}

// Event represents a terminal event.
type Event struct {
	Type EventType

	// Key event fields
	Key  Key
	Rune rune
	Mod  ModMask

	// Resize event fields
	Width, Height int

	// Err is set for EventError.
	Err error
}

// Modes are the terminal mode transitions owned by a session.
type Modes interface {
	// IsTerminal reports whether the output is an interactive terminal.
	IsTerminal() bool

	EnableRawMode() error
	DisableRawMode() error

	EnterAlternateScreen() error
	LeaveAlternateScreen() error

	// Clear clears the visible screen.
	Clear() error

	// SetCursorStyle changes the cursor appearance.
	SetCursorStyle(style CursorStyle) error
}

// Surface is a cell-based drawing target.
type Surface interface {
	// Size returns the current terminal dimensions.
	Size() (width, height int)

	// SetCell sets a single cell. Positions outside the terminal are ignored.
	SetCell(x, y int, r rune, style tcell.Style)

	// ShowCursor positions and displays the cursor.
	ShowCursor(x, y int)

	// Show synchronizes pending drawing with the display.
	Show() error
}

// Terminal is the full platform API: modes, drawing and input.
type Terminal interface {
	Modes
	Surface

	// Events returns the input event channel. It is closed when the input
	// source ends.
	Events() <-chan Event
}
