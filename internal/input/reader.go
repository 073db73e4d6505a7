package input

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrInputClosed indicates the key source ended.
var ErrInputClosed = errors.New("input closed")

// Source delivers key events. Next blocks until an event is available, the
// source ends (ErrInputClosed) or ctx is done.
type Source interface {
	Next(ctx context.Context) (KeyEvent, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (KeyEvent, error)

// Next calls f.
func (f SourceFunc) Next(ctx context.Context) (KeyEvent, error) {
	return f(ctx)
}

// Display is where the line being typed is echoed.
type Display interface {
	// Echo appends s to the prompt line.
	Echo(s string) error
	// Erase removes the last character from the prompt line.
	Erase() error
	// Flush makes pending output visible.
	Flush() error
}

// ReadLine reads one line from src. Printable characters are appended and
// echoed whole, Backspace removes the last character (and is ignored on an
// empty line), Enter returns the line, possibly empty. Other keys are
// ignored.
func ReadLine(ctx context.Context, src Source, display Display) (string, error) {
	var buf strings.Builder

	for {
		ev, err := src.Next(ctx)
		if err != nil {
			return "", err
		}

		switch ev.Kind {
		case KeyEnter:
			return buf.String(), nil

		case KeyPrintable:
			var enc [utf8.UTFMax]byte
			n := utf8.EncodeRune(enc[:], ev.Rune)
			buf.Write(enc[:n])
			if err := display.Echo(string(enc[:n])); err != nil {
				return "", err
			}
			if err := display.Flush(); err != nil {
				return "", err
			}

		case KeyBackspace:
			line := buf.String()
			if line == "" {
				continue
			}
			_, size := utf8.DecodeLastRuneInString(line)
			buf.Reset()
			buf.WriteString(line[:len(line)-size])
			if err := display.Erase(); err != nil {
				return "", err
			}
			if err := display.Flush(); err != nil {
				return "", err
			}
		}
	}
}

// ChanSource reads key events from a channel. A closed channel ends the
// source.
type ChanSource <-chan KeyEvent

// Next implements Source.
func (c ChanSource) Next(ctx context.Context) (KeyEvent, error) {
	select {
	case <-ctx.Done():
		return KeyEvent{}, ctx.Err()
	case ev, ok := <-c:
		if !ok {
			return KeyEvent{}, ErrInputClosed
		}
		return ev, nil
	}
}
