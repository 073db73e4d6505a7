package renderer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/exoshell/internal/renderer/backend"
	"github.com/dshills/exoshell/internal/renderer/statusline"
)

func newTestConsole(t *testing.T, w, h int) (*Console, *backend.Memory) {
	t.Helper()
	m := backend.NewMemory(w, h)
	c := NewConsole(m, DefaultOptions())
	if err := c.Redraw(); err != nil {
		t.Fatalf("Redraw failed: %v", err)
	}
	return c, m
}

func lineTexts(c *Console) []string {
	var out []string
	for _, l := range c.Lines() {
		out = append(out, l.Text)
	}
	return out
}

func TestConsoleLayout(t *testing.T) {
	c, m := newTestConsole(t, 40, 6)

	if err := c.StartPrompt(); err != nil {
		t.Fatalf("StartPrompt failed: %v", err)
	}
	c.DrawStatus(statusline.Info{Shell: "exoshell"})

	if got := m.Row(5); got != "$" {
		t.Errorf("expected prompt on last row, got %q", got)
	}
	if got := m.Row(4); !strings.Contains(got, "exoshell") {
		t.Errorf("expected status bar on row 4, got %q", got)
	}
	x, y := m.Cursor()
	if x != 2 || y != 5 {
		t.Errorf("expected cursor at (2, 5), got (%d, %d)", x, y)
	}
}

func TestConsoleEchoErase(t *testing.T) {
	c, m := newTestConsole(t, 40, 6)
	c.StartPrompt()

	c.Echo("l")
	c.Echo("s")
	c.Echo("🐢")
	if got := m.Row(5); got != "$ ls🐢" {
		t.Errorf("expected echoed input, got %q", got)
	}
	if x, _ := m.Cursor(); x != 6 {
		t.Errorf("expected cursor after wide rune at 6, got %d", x)
	}

	c.Erase()
	if got := m.Row(5); got != "$ ls" {
		t.Errorf("expected erased input, got %q", got)
	}
	if c.Input() != "ls" {
		t.Errorf("expected input %q, got %q", "ls", c.Input())
	}

	c.StartPrompt()
	if got := m.Row(5); got != "$" || c.Input() != "" {
		t.Errorf("expected fresh prompt, got %q / %q", got, c.Input())
	}
}

func TestConsoleLongInputScrolls(t *testing.T) {
	c, m := newTestConsole(t, 10, 4)
	c.StartPrompt()
	c.Echo("abcdefghijklmnop")

	row := m.Row(3)
	if !strings.HasSuffix(row, "nop") {
		t.Errorf("expected tail of input visible, got %q", row)
	}
	if x, _ := m.Cursor(); x >= 10 {
		t.Errorf("cursor off screen at %d", x)
	}
}

func TestConsoleOutputDoesNotDisturbPrompt(t *testing.T) {
	c, m := newTestConsole(t, 40, 6)
	c.StartPrompt()
	c.Echo("ech")

	c.AppendOutput("s1", []byte("hello\nwor"))

	if got := m.Row(5); got != "$ ech" {
		t.Errorf("prompt row changed: %q", got)
	}
	if got := lineTexts(c); len(got) != 1 || got[0] != "hello" {
		t.Errorf("expected one committed line, got %q", got)
	}
	// The partial line is shown under the committed lines.
	if m.Row(2) != "hello" || m.Row(3) != "wor" {
		t.Errorf("unexpected transcript rows %q", m.Rows())
	}

	c.AppendOutput("s1", []byte("ld\n"))
	if got := lineTexts(c); len(got) != 2 || got[1] != "world" {
		t.Errorf("expected partial to complete, got %q", got)
	}
	if x, y := m.Cursor(); x != 5 || y != 5 {
		t.Errorf("cursor should stay at the prompt, got (%d, %d)", x, y)
	}
}

func TestConsoleInterleavedStreams(t *testing.T) {
	c, _ := newTestConsole(t, 40, 10)

	c.AppendOutput("a", []byte("a1\na"))
	c.AppendOutput("b", []byte("b1\n"))
	c.AppendOutput("a", []byte("2\n"))
	c.AppendOutput("b", []byte("tail"))
	c.CloseStream("b")

	want := []string{"a1", "b1", "a2", "tail"}
	got := lineTexts(c)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestConsoleScrollback(t *testing.T) {
	m := backend.NewMemory(20, 5)
	opts := DefaultOptions()
	opts.Scrollback = 3
	c := NewConsole(m, opts)

	for _, s := range []string{"1", "2", "3", "4", "5"} {
		c.Notice(s)
	}
	got := lineTexts(c)
	if strings.Join(got, ",") != "3,4,5" {
		t.Errorf("expected last 3 lines, got %q", got)
	}

	c.SetScrollback(1)
	if got := lineTexts(c); len(got) != 1 || got[0] != "5" {
		t.Errorf("expected 1 line after shrinking scrollback, got %q", got)
	}
}

func TestConsoleWrapsLongLines(t *testing.T) {
	c, m := newTestConsole(t, 5, 6)
	c.AppendOutput("s", []byte("abcdefghij\n"))

	if m.Row(2) != "abcde" || m.Row(3) != "fghij" {
		t.Errorf("expected wrapped rows, got %q", m.Rows())
	}
}

func TestConsoleUnterminatedOutputIsBounded(t *testing.T) {
	c, m := newTestConsole(t, 60, 12)

	const total = 4 << 20
	chunk := []byte(strings.Repeat("x", 4096))
	start := time.Now()
	for n := 0; n < total; n += len(chunk) {
		c.AppendOutput("s", chunk)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("appending %d bytes without a newline took %v", total, elapsed)
	}

	kept := 0
	for _, l := range c.Lines() {
		if len(l.Text) > maxPartial {
			t.Fatalf("committed line of %d bytes, want at most %d", len(l.Text), maxPartial)
		}
		kept += len(l.Text)
	}
	if kept != total-maxPartial {
		t.Errorf("expected %d bytes committed before close, got %d", total-maxPartial, kept)
	}
	c.CloseStream("s")
	if got := lineTexts(c); len(got) != total/maxPartial {
		t.Errorf("expected %d lines, got %d", total/maxPartial, len(got))
	}
	if got := m.Row(9); got != strings.Repeat("x", 60) {
		t.Errorf("expected output above the status bar, got %q", got)
	}
}

func TestConsoleSplitsOversizedPartialOnRuneStart(t *testing.T) {
	c, _ := newTestConsole(t, 40, 6)

	// a three-byte rune straddles the cap
	data := strings.Repeat("a", maxPartial-1) + "日" + "tail"
	c.AppendOutput("s", []byte(data))

	got := lineTexts(c)
	if len(got) != 1 || got[0] != strings.Repeat("a", maxPartial-1) {
		t.Fatalf("expected the ASCII head to be committed, got %d lines", len(got))
	}
	c.CloseStream("s")
	if got := lineTexts(c); got[len(got)-1] != "日tail" {
		t.Errorf("expected the rune to start the next line, got %q", got[len(got)-1])
	}
}

func TestConsoleErrorStyle(t *testing.T) {
	c, m := newTestConsole(t, 40, 6)
	c.ShowError(errors.New("nope: command not found"))

	if got := m.Row(3); got != "nope: command not found" {
		t.Errorf("expected error directly above status bar, got %q", got)
	}
	fg, _, _ := m.GetCell(0, 3).Style.Decompose()
	if fg != tcell.ColorRed {
		t.Errorf("expected red error text, got %v", fg)
	}
	if l := c.Lines(); l[len(l)-1].Kind != LineError {
		t.Error("expected error line kind")
	}
}

func TestConsoleCommandLine(t *testing.T) {
	c, _ := newTestConsole(t, 40, 6)
	c.SetPrompt("> ")
	c.Command("ls -l")

	l := c.Lines()
	if len(l) != 1 || l[0].Text != "> ls -l" || l[0].Kind != LineCommand {
		t.Errorf("unexpected command line %+v", l)
	}
}

func TestConsoleResize(t *testing.T) {
	c, m := newTestConsole(t, 40, 6)
	c.Notice("hello")
	c.StartPrompt()

	m.Resize(20, 8)
	c.Resize()
	if err := c.Redraw(); err != nil {
		t.Fatalf("Redraw failed: %v", err)
	}

	if got := m.Row(7); got != "$" {
		t.Errorf("expected prompt on new last row, got %q", got)
	}
	if got := m.Row(5); got != "hello" {
		t.Errorf("expected transcript above status bar, got %q", got)
	}
}

func TestConsoleTinyScreen(t *testing.T) {
	for _, h := range []int{1, 2} {
		m := backend.NewMemory(10, h)
		c := NewConsole(m, DefaultOptions())
		c.AppendOutput("s", []byte("x\n"))
		if err := c.Redraw(); err != nil {
			t.Fatalf("height %d: Redraw failed: %v", h, err)
		}
		if got := m.Row(h - 1); got != "$" {
			t.Errorf("height %d: expected prompt, got %q", h, got)
		}
	}
}
