package renderer

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/exoshell/internal/renderer/backend"
	"github.com/dshills/exoshell/internal/renderer/statusline"
)

// LineKind selects how a transcript line is styled.
type LineKind int

const (
	// LineOutput is child output.
	LineOutput LineKind = iota
	// LineCommand echoes a submitted command.
	LineCommand
	// LineNotice is an informational message from the shell.
	LineNotice
	// LineError is an error message from the shell.
	LineError
)

// Line is one committed transcript line.
type Line struct {
	Text string
	Kind LineKind
}

// Options configures the console.
type Options struct {
	Prompt     string           // prompt literal
	Scrollback int              // transcript lines kept
	Status     statusline.Style // status bar colors
}

// DefaultOptions returns the default console options.
func DefaultOptions() Options {
	return Options{
		Prompt:     "$ ",
		Scrollback: 1000,
		Status:     statusline.DefaultStyle(),
	}
}

// partial is the unterminated tail of one stream's output.
type partial struct {
	id  string
	raw []byte
}

// Console lays out the transcript, status bar and prompt on a surface.
// All drawing happens on the caller's goroutine; the mutex only guards
// reads from other goroutines such as tests.
type Console struct {
	mu sync.Mutex

	surface backend.Surface
	status  *statusline.StatusLine

	prompt     string
	input      []rune
	lines      []Line
	partials   []*partial
	scrollback int

	width, height int
}

// NewConsole creates a console drawing on surface.
func NewConsole(surface backend.Surface, opts Options) *Console {
	if opts.Scrollback <= 0 {
		opts.Scrollback = DefaultOptions().Scrollback
	}
	c := &Console{
		surface:    surface,
		status:     statusline.New(opts.Status),
		prompt:     opts.Prompt,
		scrollback: opts.Scrollback,
	}
	c.width, c.height = surface.Size()
	c.status.Resize(c.width)
	return c
}

// SetPrompt changes the prompt literal. It takes effect on the next
// prompt redraw.
func (c *Console) SetPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = prompt
}

// Prompt returns the prompt literal.
func (c *Console) Prompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompt
}

// SetScrollback changes the number of transcript lines kept.
func (c *Console) SetScrollback(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.scrollback = n
		c.trimLocked()
	}
}

// SetStatusStyle changes the status bar colors.
func (c *Console) SetStatusStyle(style statusline.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.SetStyle(style)
}

// DrawStatus updates and draws the status bar.
func (c *Console) DrawStatus(info statusline.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.SetInfo(info)
	c.drawStatusLocked()
	c.placeCursorLocked()
}

// StartPrompt clears the input line and draws the prompt.
func (c *Console) StartPrompt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = c.input[:0]
	c.drawPromptLocked()
	return c.surface.Show()
}

// Input returns the text typed at the prompt so far.
func (c *Console) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.input)
}

// Echo appends s to the prompt line.
func (c *Console) Echo(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = append(c.input, []rune(s)...)
	c.drawPromptLocked()
	return nil
}

// Erase removes the last character from the prompt line.
func (c *Console) Erase() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.input) > 0 {
		c.input = c.input[:len(c.input)-1]
	}
	c.drawPromptLocked()
	return nil
}

// Flush shows pending drawing.
func (c *Console) Flush() error {
	return c.surface.Show()
}

// maxPartial bounds the unterminated output kept per stream. Longer runs
// without a newline are committed in maxPartial-sized lines.
const maxPartial = 64 << 10

// AppendOutput adds raw output from stream id. Complete lines are
// committed; the remainder is shown as that stream's partial line. The
// prompt row is left untouched.
func (c *Console) AppendOutput(id string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.partialLocked(id)
	// the partial holds no newline, so only new bytes need scanning
	from := len(p.raw)
	p.raw = append(p.raw, data...)

	for {
		i := bytes.IndexByte(p.raw[from:], '\n')
		if i < 0 {
			break
		}
		i += from
		c.commitLocked(Line{Text: sanitizeLine(string(p.raw[:i])), Kind: LineOutput})
		p.raw = p.raw[i+1:]
		from = 0
	}
	c.capPartialLocked(p)

	c.drawTranscriptLocked()
	c.placeCursorLocked()
}

// capPartialLocked commits the head of an oversized partial and keeps the
// tail. Cuts fall on a rune start and never split an escape sequence.
func (c *Console) capPartialLocked(p *partial) {
	for len(p.raw) > maxPartial {
		cut := maxPartial
		for cut > 0 && !utf8.RuneStart(p.raw[cut]) {
			cut--
		}
		if head := trimIncompleteEscape(string(p.raw[:cut])); head != "" {
			cut = len(head)
		}
		if cut == 0 {
			cut = maxPartial
		}
		c.commitLocked(Line{Text: sanitizeLine(string(p.raw[:cut])), Kind: LineOutput})
		p.raw = p.raw[cut:]
	}
	// copy out so the backing array does not grow without bound
	if len(p.raw) == 0 {
		p.raw = nil
	} else if cap(p.raw) > 2*maxPartial {
		p.raw = append([]byte(nil), p.raw...)
	}
}

// CloseStream commits any partial line of stream id and forgets it.
func (c *Console) CloseStream(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.partials {
		if p.id != id {
			continue
		}
		if len(p.raw) > 0 {
			c.commitLocked(Line{Text: sanitizeLine(string(p.raw)), Kind: LineOutput})
		}
		c.partials = append(c.partials[:i], c.partials[i+1:]...)
		break
	}
	c.drawTranscriptLocked()
	c.placeCursorLocked()
}

// Command adds a line echoing a submitted command.
func (c *Console) Command(line string) {
	c.addLine(Line{Text: c.Prompt() + line, Kind: LineCommand})
}

// Notice adds an informational line.
func (c *Console) Notice(text string) {
	c.addLine(Line{Text: text, Kind: LineNotice})
}

// ShowError adds an error line directly above the status bar.
func (c *Console) ShowError(err error) {
	c.addLine(Line{Text: err.Error(), Kind: LineError})
}

func (c *Console) addLine(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, text := range strings.Split(l.Text, "\n") {
		c.commitLocked(Line{Text: sanitizeLine(text), Kind: l.Kind})
	}
	c.drawTranscriptLocked()
	c.placeCursorLocked()
}

// Lines returns the committed transcript.
func (c *Console) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Resize re-reads the surface size.
func (c *Console) Resize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = c.surface.Size()
	c.status.Resize(c.width)
}

// Redraw draws every region and shows the result.
func (c *Console) Redraw() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drawTranscriptLocked()
	c.drawStatusLocked()
	c.drawPromptLocked()
	return c.surface.Show()
}

func (c *Console) partialLocked(id string) *partial {
	for _, p := range c.partials {
		if p.id == id {
			return p
		}
	}
	p := &partial{id: id}
	c.partials = append(c.partials, p)
	return p
}

func (c *Console) commitLocked(l Line) {
	c.lines = append(c.lines, l)
	c.trimLocked()
}

func (c *Console) trimLocked() {
	if extra := len(c.lines) - c.scrollback; extra > 0 {
		c.lines = append(c.lines[:0:0], c.lines[extra:]...)
	}
}

// Row layout. The prompt is always the last row and the status bar sits
// above it when there is room.
func (c *Console) promptRow() int { return c.height - 1 }

func (c *Console) statusRow() int {
	if c.height < 2 {
		return -1
	}
	return c.height - 2
}

func (c *Console) transcriptRows() int {
	if c.height < 3 {
		return 0
	}
	return c.height - 2
}

func (c *Console) drawTranscriptLocked() {
	rows := c.transcriptRows()
	if rows == 0 || c.width <= 0 {
		return
	}

	type visual struct {
		text string
		kind LineKind
	}

	// Build visual rows from the bottom up, stopping once the region is full.
	var visible []visual
	// Only the trailing window of each line can reach the screen.
	window := rows * c.width
	pending := make([]Line, 0, len(c.partials))
	for _, p := range c.partials {
		if len(p.raw) == 0 {
			continue
		}
		text := sanitizeLine(trimIncompleteEscape(strings.ToValidUTF8(string(tailBytes(p.raw, window*utf8.UTFMax)), "")))
		pending = append(pending, Line{Text: text, Kind: LineOutput})
	}

	sources := [][]Line{pending, c.lines}
	for _, src := range sources {
		for i := len(src) - 1; i >= 0 && len(visible) < rows; i-- {
			wrapped := wrap(tailRunes(src[i].Text, window), c.width)
			for j := len(wrapped) - 1; j >= 0 && len(visible) < rows; j-- {
				visible = append(visible, visual{text: wrapped[j], kind: src[i].Kind})
			}
		}
	}

	// visible is newest first; the newest row sits directly above the status bar.
	for y := 0; y < rows; y++ {
		idx := rows - 1 - y
		if idx < len(visible) {
			c.drawTextLocked(y, visible[idx].text, styleFor(visible[idx].kind))
		} else {
			c.drawTextLocked(y, "", tcell.StyleDefault)
		}
	}
}

func (c *Console) drawStatusLocked() {
	row := c.statusRow()
	if row < 0 {
		return
	}
	c.status.Render(c.surface, row)
}

func (c *Console) drawPromptLocked() {
	row := c.promptRow()
	if row < 0 || c.width <= 0 {
		return
	}

	text := c.prompt + string(c.input)
	// Keep the end of the line, and the cursor, in view.
	for runewidth.StringWidth(text) >= c.width && text != "" {
		_, size := utf8.DecodeRuneInString(text)
		text = text[size:]
	}
	c.drawTextLocked(row, text, tcell.StyleDefault)
	c.placeCursorLocked()
}

// placeCursorLocked puts the cursor at the end of the prompt input.
func (c *Console) placeCursorLocked() {
	row := c.promptRow()
	if row < 0 {
		return
	}
	x := runewidth.StringWidth(c.prompt + string(c.input))
	if x >= c.width {
		x = c.width - 1
	}
	c.surface.ShowCursor(x, row)
}

// drawTextLocked draws text on row and blanks the rest of the row.
func (c *Console) drawTextLocked(row int, text string, style tcell.Style) {
	x := 0
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > c.width {
			break
		}
		c.surface.SetCell(x, row, r, style)
		x += w
	}
	for ; x < c.width; x++ {
		c.surface.SetCell(x, row, ' ', tcell.StyleDefault)
	}
}

func styleFor(kind LineKind) tcell.Style {
	switch kind {
	case LineCommand:
		return tcell.StyleDefault.Bold(true)
	case LineNotice:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	case LineError:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault
	}
}
