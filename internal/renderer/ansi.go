package renderer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 8

var (
	ansiCSI      = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)
	ansiOSC      = regexp.MustCompile(`\x1b\].*?(?:\x07|\x1b\\)`)
	ansiDCS      = regexp.MustCompile(`\x1bP.*?\x1b\\`)
	ansiPM       = regexp.MustCompile(`\x1b\^.*?\x1b\\`)
	ansiAPC      = regexp.MustCompile(`\x1b_.*?\x1b\\`)
	ansiOldTitle = regexp.MustCompile(`\x1bk.*?\x1b\\`)
	ansiCharset  = regexp.MustCompile(`\x1b[()][0-9A-Za-z]`)
	ansiKeypad   = regexp.MustCompile(`\x1b[=>]`)
	ansiSingle   = regexp.MustCompile(`\x1b.`)

	// ansiComplete matches one whole escape sequence at the start of a string.
	ansiComplete = regexp.MustCompile(`^\x1b(?:\[[0-?]*[ -/]*[@-~]|\].*?(?:\x07|\x1b\\)|[P^_k].*?\x1b\\|[()][0-9A-Za-z]|[^\[\]P^_k()])`)
)

// stripANSI removes terminal escape sequences.
func stripANSI(s string) string {
	if strings.IndexByte(s, 0x1b) < 0 {
		return s
	}
	s = ansiCSI.ReplaceAllString(s, "")
	s = ansiOSC.ReplaceAllString(s, "")
	s = ansiDCS.ReplaceAllString(s, "")
	s = ansiPM.ReplaceAllString(s, "")
	s = ansiAPC.ReplaceAllString(s, "")
	s = ansiOldTitle.ReplaceAllString(s, "")
	s = ansiCharset.ReplaceAllString(s, "")
	s = ansiKeypad.ReplaceAllString(s, "")
	return ansiSingle.ReplaceAllString(s, "")
}

// trimIncompleteEscape drops a trailing escape sequence that has not been
// fully received yet.
func trimIncompleteEscape(s string) string {
	i := strings.LastIndexByte(s, 0x1b)
	if i < 0 || ansiComplete.MatchString(s[i:]) {
		return s
	}
	return s[:i]
}

// sanitizeLine turns one raw output line (without its newline) into
// printable text. Escape sequences are removed, a carriage return restarts
// the line, backspace deletes the previous character, tabs expand to the
// next multiple of eight columns and other control characters are dropped.
func sanitizeLine(raw string) string {
	s := strings.ToValidUTF8(raw, string(utf8.RuneError))
	s = stripANSI(s)
	s = strings.TrimSuffix(s, "\r")
	if i := strings.LastIndexByte(s, '\r'); i >= 0 {
		s = s[i+1:]
	}

	out := make([]rune, 0, len(s))
	col := 0
	for _, r := range s {
		switch {
		case r == '\t':
			n := tabWidth - col%tabWidth
			for j := 0; j < n; j++ {
				out = append(out, ' ')
			}
			col += n
		case r == '\b':
			if len(out) > 0 {
				col -= runewidth.RuneWidth(out[len(out)-1])
				out = out[:len(out)-1]
			}
		case unicode.IsControl(r):
		default:
			out = append(out, r)
			col += runewidth.RuneWidth(r)
		}
	}
	return string(out)
}

// wrap splits text into rows of at most width cells.
func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	if text == "" {
		return []string{""}
	}

	var rows []string
	var b strings.Builder
	col := 0
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if col+w > width && col > 0 {
			rows = append(rows, b.String())
			b.Reset()
			col = 0
		}
		b.WriteRune(r)
		col += w
	}
	return append(rows, b.String())
}

// tailBytes returns at most the last n bytes of b, starting on a rune
// boundary.
func tailBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	i := len(b) - n
	for i < len(b) && !utf8.RuneStart(b[i]) {
		i++
	}
	return b[i:]
}

// tailRunes returns the last n runes of s. Rows of a truncated line
// wrap from the cut rather than from the start of the line.
func tailRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}
