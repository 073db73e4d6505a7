package backend

import (
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Cell is a single character cell held by Memory.
type Cell struct {
	Rune  rune
	Style tcell.Style
}

// Memory is an in-memory Terminal for testing. It records every mode and
// drawing call by method name, holds drawn cells in a grid and can be told
// to fail specific calls.
type Memory struct {
	mu sync.Mutex

	width, height int
	cells         []Cell
	terminal      bool

	calls    []string
	failures map[string]error

	cursorX, cursorY int
	cursorStyle      CursorStyle
	raw              bool
	alternate        bool

	events chan Event
	closed bool
}

// NewMemory creates a memory terminal with the given dimensions. It
// reports itself as an interactive terminal.
func NewMemory(width, height int) *Memory {
	m := &Memory{
		width:    width,
		height:   height,
		terminal: true,
		failures: make(map[string]error),
		events:   make(chan Event, 1024),
	}
	m.cells = make([]Cell, width*height)
	m.clearCells()
	return m
}

// SetTerminal controls the IsTerminal result.
func (m *Memory) SetTerminal(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminal = ok
}

// FailOn makes every later call to method return err. A nil err removes
// the failure.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Calls returns the recorded mode calls in order.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times method was called.
func (m *Memory) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

// record appends a call and returns its injected failure, if any.
// Caller must hold the lock.
func (m *Memory) record(method string) error {
	m.calls = append(m.calls, method)
	return m.failures[method]
}

func (m *Memory) IsTerminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "IsTerminal")
	return m.terminal
}

func (m *Memory) EnableRawMode() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("EnableRawMode"); err != nil {
		return err
	}
	m.raw = true
	return nil
}

func (m *Memory) DisableRawMode() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DisableRawMode"); err != nil {
		return err
	}
	m.raw = false
	return nil
}

func (m *Memory) EnterAlternateScreen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("EnterAlternateScreen"); err != nil {
		return err
	}
	m.alternate = true
	return nil
}

func (m *Memory) LeaveAlternateScreen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("LeaveAlternateScreen"); err != nil {
		return err
	}
	m.alternate = false
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Clear"); err != nil {
		return err
	}
	m.clearCells()
	return nil
}

func (m *Memory) SetCursorStyle(style CursorStyle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetCursorStyle"); err != nil {
		return err
	}
	m.cursorStyle = style
	return nil
}

// RawMode reports whether raw mode is currently enabled.
func (m *Memory) RawMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw
}

// Alternate reports whether the alternate screen is active.
func (m *Memory) Alternate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alternate
}

// CursorStyle returns the last cursor style set.
func (m *Memory) CursorStyle() CursorStyle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorStyle
}

func (m *Memory) Size() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height
}

// Resize changes the dimensions, clears the grid and posts a resize event.
func (m *Memory) Resize(width, height int) {
	m.mu.Lock()
	m.width, m.height = width, height
	m.cells = make([]Cell, width*height)
	m.clearCells()
	m.mu.Unlock()

	m.Post(Event{Type: EventResize, Width: width, Height: height})
}

func (m *Memory) SetCell(x, y int, r rune, style tcell.Style) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.cells[y*m.width+x] = Cell{Rune: r, Style: style}
	// A wide rune covers the next cell, as it does on a real terminal.
	if runewidth.RuneWidth(r) == 2 && x+1 < m.width {
		m.cells[y*m.width+x+1] = Cell{Rune: 0, Style: style}
	}
}

// GetCell returns the cell at the position, or an empty cell when out of
// bounds.
func (m *Memory) GetCell(x, y int) Cell {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return Cell{Rune: ' '}
	}
	return m.cells[y*m.width+x]
}

// Row returns row y as a string with trailing blanks removed. Wide-rune
// continuation cells (rune 0) are skipped.
func (m *Memory) Row(y int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if y < 0 || y >= m.height {
		return ""
	}
	var b strings.Builder
	for x := 0; x < m.width; x++ {
		r := m.cells[y*m.width+x].Rune
		if r == 0 {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

// Rows returns every row, as Row does.
func (m *Memory) Rows() []string {
	_, h := m.Size()
	rows := make([]string, h)
	for y := range rows {
		rows[y] = m.Row(y)
	}
	return rows
}

func (m *Memory) ShowCursor(x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX, m.cursorY = x, y
}

// Cursor returns the last cursor position.
func (m *Memory) Cursor() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorX, m.cursorY
}

func (m *Memory) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("Show")
}

func (m *Memory) Events() <-chan Event {
	return m.events
}

// Post queues an input event. Events posted after CloseEvents are dropped.
func (m *Memory) Post(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.events <- ev
}

// PostRunes queues one printable key event per rune.
func (m *Memory) PostRunes(s string) {
	for _, r := range s {
		m.Post(Event{Type: EventKey, Key: KeyRune, Rune: r})
	}
}

// PostKey queues a non-rune key event.
func (m *Memory) PostKey(k Key) {
	m.Post(Event{Type: EventKey, Key: k})
}

// PostLine queues the runes of line followed by Enter.
func (m *Memory) PostLine(line string) {
	m.PostRunes(line)
	m.PostKey(KeyEnter)
}

// CloseEvents closes the event channel, ending the input source.
func (m *Memory) CloseEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.events)
}

func (m *Memory) clearCells() {
	for i := range m.cells {
		m.cells[i] = Cell{Rune: ' ', Style: tcell.StyleDefault}
	}
}
