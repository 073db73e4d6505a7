package input

import (
	"unicode"

	"github.com/dshills/exoshell/internal/renderer/backend"
)

// KeyKind classifies a key event for line editing.
type KeyKind uint8

const (
	// KeyIgnored covers function keys, modified keys and non-key events.
	KeyIgnored KeyKind = iota
	// KeyPrintable is a character to append to the line.
	KeyPrintable
	// KeyEnter submits the line.
	KeyEnter
	// KeyBackspace removes the last character.
	KeyBackspace
)

// String returns the kind name.
func (k KeyKind) String() string {
	switch k {
	case KeyPrintable:
		return "printable"
	case KeyEnter:
		return "enter"
	case KeyBackspace:
		return "backspace"
	default:
		return "ignored"
	}
}

// KeyEvent is a normalized keystroke.
type KeyEvent struct {
	Kind KeyKind

	// Rune is set for KeyPrintable.
	Rune rune
}

// Printable returns a KeyPrintable event for r.
func Printable(r rune) KeyEvent {
	return KeyEvent{Kind: KeyPrintable, Rune: r}
}

// FromBackend normalizes a terminal event. Shift is part of the character
// and does not make it modified; Ctrl, Alt and Meta do.
func FromBackend(ev backend.Event) KeyEvent {
	if ev.Type != backend.EventKey {
		return KeyEvent{Kind: KeyIgnored}
	}

	switch ev.Key {
	case backend.KeyEnter:
		return KeyEvent{Kind: KeyEnter}
	case backend.KeyBackspace:
		return KeyEvent{Kind: KeyBackspace}
	case backend.KeyRune:
		if ev.Rune == 0 || !unicode.IsPrint(ev.Rune) {
			return KeyEvent{Kind: KeyIgnored}
		}
		if ev.Mod.Has(backend.ModCtrl) || ev.Mod.Has(backend.ModAlt) || ev.Mod.Has(backend.ModMeta) {
			return KeyEvent{Kind: KeyIgnored}
		}
		return Printable(ev.Rune)
	default:
		return KeyEvent{Kind: KeyIgnored}
	}
}
