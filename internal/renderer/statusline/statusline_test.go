package statusline

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/exoshell/internal/renderer/backend"
)

func newTestLine(width int) *StatusLine {
	s := New(DefaultStyle())
	s.SetHome("/home/user")
	s.Resize(width)
	return s
}

func TestTextFitsWidth(t *testing.T) {
	info := Info{
		Shell:    "exoshell",
		Dir:      "/home/user/projects/some/deeply/nested/directory",
		Jobs:     2,
		Streamed: 12345,
		Uptime:   3*time.Minute + 12*time.Second + 400*time.Millisecond,
	}

	for _, width := range []int{0, 1, 5, 10, 20, 40, 60, 80, 200} {
		s := newTestLine(width)
		s.SetInfo(info)
		got := s.Text()
		if w := uniseg.StringWidth(got); w != width {
			t.Errorf("width %d: text %q has width %d", width, got, w)
		}
	}
}

func TestTextContent(t *testing.T) {
	s := newTestLine(100)
	s.SetInfo(Info{
		Shell:    "exoshell",
		Dir:      "/home/user/src",
		Jobs:     2,
		Streamed: 2048,
		Uptime:   90 * time.Second,
	})

	got := s.Text()
	for _, want := range []string{" exoshell ", "~/src", "2 jobs", "2.0 kB", "up 1m30s", "─"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestJobsWording(t *testing.T) {
	tests := []struct {
		jobs int
		want string
	}{
		{0, "no jobs"},
		{1, "1 job"},
		{5, "5 jobs"},
	}
	for _, tt := range tests {
		s := newTestLine(80)
		s.SetInfo(Info{Shell: "exoshell", Jobs: tt.jobs})
		if got := s.Text(); !strings.Contains(got, tt.want) {
			t.Errorf("jobs=%d: expected %q in %q", tt.jobs, tt.want, got)
		}
	}
}

func TestDisplayDir(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"/home/user", "~"},
		{"/home/user/code", "~/code"},
		{"/home/username", "/home/username"},
		{"/tmp", "/tmp"},
		{"", ""},
	}
	for _, tt := range tests {
		s := newTestLine(80)
		s.SetInfo(Info{Dir: tt.dir})
		if got := s.displayDir(); got != tt.want {
			t.Errorf("displayDir(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestNarrowWidthShortensDirFirst(t *testing.T) {
	s := newTestLine(50)
	s.SetInfo(Info{
		Shell: "exoshell",
		Dir:   "/var/lib/some/really/long/path/that/does/not/fit",
		Jobs:  1,
	})
	got := s.Text()
	if !strings.Contains(got, "…") {
		t.Errorf("expected truncated directory in %q", got)
	}
	if !strings.Contains(got, "fit") {
		t.Errorf("expected the end of the directory to be kept in %q", got)
	}
	if !strings.Contains(got, "1 job") {
		t.Errorf("expected counters to survive in %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncateLeft("abcdef", 4); got != "…def" {
		t.Errorf("truncateLeft = %q", got)
	}
	if got := truncateLeft("abc", 4); got != "abc" {
		t.Errorf("truncateLeft short = %q", got)
	}
	if got := truncateLeft("日本語テキスト", 5); uniseg.StringWidth(got) > 5 {
		t.Errorf("truncateLeft wide = %q exceeds width", got)
	}
	if got := truncateRight(" exoshell ", 4); got != " exo" {
		t.Errorf("truncateRight = %q", got)
	}
}

func TestRenderMatchesText(t *testing.T) {
	m := backend.NewMemory(60, 3)
	s := newTestLine(60)
	s.SetInfo(Info{Shell: "exoshell", Dir: "/tmp", Jobs: 3, Streamed: 1 << 20})

	s.Render(m, 1)

	if got, want := m.Row(1), strings.TrimRight(s.Text(), " "); got != want {
		t.Errorf("rendered row:\n got %q\nwant %q", got, want)
	}
	if m.Row(0) != "" || m.Row(2) != "" {
		t.Error("render should only touch its row")
	}

	// The shell name uses the accent background.
	_, bg, _ := m.GetCell(1, 1).Style.Decompose()
	if bg != DefaultStyle().Accent {
		t.Errorf("expected accent background, got %v", bg)
	}
}

func TestFillColorBlend(t *testing.T) {
	s := New(Style{
		Foreground: tcell.ColorWhite,
		Background: tcell.NewRGBColor(0, 0, 0),
		Accent:     tcell.NewRGBColor(255, 255, 255),
	})
	c := s.fillColor()
	r, g, b := c.RGB()
	if r <= 0 || r >= 255 || abs(r-g) > 1 || abs(g-b) > 1 {
		t.Errorf("expected a gray between black and white, got (%d, %d, %d)", r, g, b)
	}

	s.SetStyle(Style{Foreground: tcell.ColorWhite, Background: tcell.ColorDefault, Accent: tcell.ColorTeal})
	if s.fillColor() != tcell.ColorWhite {
		t.Error("expected foreground fallback for default background")
	}
}

func abs(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}
