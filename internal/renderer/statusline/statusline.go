// Package statusline renders the shell's one-row status bar.
package statusline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

const (
	fillRune     = '─'
	ellipsis     = "…"
	separator    = " · "
	fillBlendPct = 0.35
)

// Canvas is where the status bar is drawn.
type Canvas interface {
	SetCell(x, y int, r rune, style tcell.Style)
}

// Info is the state the status bar displays.
type Info struct {
	Shell    string        // shell name
	Dir      string        // working directory
	Jobs     int           // running children
	Streamed uint64        // output bytes received from children
	Uptime   time.Duration // time since the session started
}

// Style holds the status bar colors.
type Style struct {
	Foreground tcell.Color
	Background tcell.Color
	Accent     tcell.Color
}

// DefaultStyle returns the default colors.
func DefaultStyle() Style {
	return Style{
		Foreground: tcell.ColorWhite,
		Background: tcell.ColorDarkSlateGray,
		Accent:     tcell.ColorTeal,
	}
}

// StatusLine renders Info into a single row.
type StatusLine struct {
	info  Info
	style Style
	home  string
	width int
}

// New creates a status line with the given colors.
func New(style Style) *StatusLine {
	home, _ := os.UserHomeDir()
	return &StatusLine{
		info:  Info{Shell: "exoshell"},
		style: style,
		home:  home,
	}
}

// SetInfo replaces the displayed state.
func (s *StatusLine) SetInfo(info Info) {
	s.info = info
}

// Info returns the displayed state.
func (s *StatusLine) Info() Info {
	return s.info
}

// SetStyle replaces the colors.
func (s *StatusLine) SetStyle(style Style) {
	s.style = style
}

// SetHome sets the directory shown as "~".
func (s *StatusLine) SetHome(home string) {
	s.home = home
}

// Resize updates the status line width.
func (s *StatusLine) Resize(width int) {
	s.width = width
}

// segment is a run of text drawn in one style.
type segment struct {
	text  string
	style tcell.Style
	fill  bool
}

// Text returns the status bar as plain text, exactly as Render draws it.
func (s *StatusLine) Text() string {
	var b strings.Builder
	for _, seg := range s.layout() {
		b.WriteString(seg.text)
	}
	return b.String()
}

// Render draws the status bar on row.
func (s *StatusLine) Render(c Canvas, row int) {
	x := 0
	for _, seg := range s.layout() {
		g := uniseg.NewGraphemes(seg.text)
		for g.Next() {
			runes := g.Runes()
			w := g.Width()
			if w == 0 {
				continue
			}
			c.SetCell(x, row, runes[0], seg.style)
			x += w
		}
	}
	base := tcell.StyleDefault.Foreground(s.style.Foreground).Background(s.style.Background)
	for ; x < s.width; x++ {
		c.SetCell(x, row, ' ', base)
	}
}

// layout fits the segments to the width. The directory is shortened
// first, then the counters are dropped, then the shell name is cut.
func (s *StatusLine) layout() []segment {
	if s.width <= 0 {
		return nil
	}

	base := tcell.StyleDefault.Foreground(s.style.Foreground).Background(s.style.Background)
	accent := tcell.StyleDefault.Foreground(s.style.Foreground).Background(s.style.Accent).Bold(true)
	fill := base.Foreground(s.fillColor())

	name := " " + s.info.Shell + " "
	dir := s.displayDir()
	right := " " + s.counters() + " "

	nameW := uniseg.StringWidth(name)
	rightW := uniseg.StringWidth(right)

	// one fill cell minimum between the left and right parts
	avail := s.width - nameW - rightW - 1
	if avail < 0 {
		right, rightW = "", 0
		avail = s.width - nameW - 1
	}

	dirText := ""
	if avail >= 3 && dir != "" {
		dirText = " " + truncateLeft(dir, avail-2) + " "
	}

	segs := []segment{{text: truncateRight(name, s.width), style: accent}}
	used := uniseg.StringWidth(segs[0].text)
	if dirText != "" {
		segs = append(segs, segment{text: dirText, style: base})
		used += uniseg.StringWidth(dirText)
	}

	if n := s.width - used - rightW; n > 0 {
		segs = append(segs, segment{text: strings.Repeat(string(fillRune), n), style: fill, fill: true})
	}
	if right != "" {
		segs = append(segs, segment{text: right, style: base})
	}
	return segs
}

// counters formats the right-hand summary.
func (s *StatusLine) counters() string {
	jobs := "no jobs"
	switch s.info.Jobs {
	case 0:
	case 1:
		jobs = "1 job"
	default:
		jobs = fmt.Sprintf("%d jobs", s.info.Jobs)
	}
	parts := []string{jobs, humanize.Bytes(s.info.Streamed)}
	if s.info.Uptime > 0 {
		parts = append(parts, "up "+s.info.Uptime.Truncate(time.Second).String())
	}
	return strings.Join(parts, separator)
}

// displayDir abbreviates the home directory to "~".
func (s *StatusLine) displayDir() string {
	dir := s.info.Dir
	if dir == "" || s.home == "" {
		return dir
	}
	if dir == s.home {
		return "~"
	}
	if rel, err := filepath.Rel(s.home, dir); err == nil && !strings.HasPrefix(rel, "..") {
		return "~" + string(filepath.Separator) + rel
	}
	return dir
}

// fillColor blends the background toward the accent for the fill rule.
// Palette colors without RGB values fall back to the foreground.
func (s *StatusLine) fillColor() tcell.Color {
	bg, ok1 := toColorful(s.style.Background)
	ac, ok2 := toColorful(s.style.Accent)
	if !ok1 || !ok2 {
		return s.style.Foreground
	}
	r, g, b := bg.BlendLab(ac, fillBlendPct).Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func toColorful(c tcell.Color) (colorful.Color, bool) {
	r, g, b := c.RGB()
	if r < 0 || g < 0 || b < 0 {
		return colorful.Color{}, false
	}
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, true
}

// truncateLeft keeps the end of s, prefixed by an ellipsis, within width
// cells.
func truncateLeft(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	if width <= 0 {
		return ""
	}

	var clusters []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}

	out := ""
	w := uniseg.StringWidth(ellipsis)
	for i := len(clusters) - 1; i >= 0; i-- {
		cw := uniseg.StringWidth(clusters[i])
		if w+cw > width {
			break
		}
		out = clusters[i] + out
		w += cw
	}
	return ellipsis + out
}

// truncateRight keeps the start of s within width cells.
func truncateRight(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	w := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cw := g.Width()
		if w+cw > width {
			break
		}
		b.WriteString(g.Str())
		w += cw
	}
	return b.String()
}
