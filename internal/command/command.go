// Package command turns a submitted prompt line into a Command.
//
// Parsing has two stages. Tokenize splits the line into words using shell
// quoting rules (single quotes, double quotes, backslash escapes), and Parse
// turns the words into a Command, expanding an alias in the first position.
// There is no piping, redirection or variable expansion.
package command

import (
	"errors"
	"fmt"

	"github.com/kballard/go-shellquote"
)

// Parse error kinds.
var (
	// ErrEmpty indicates the line has no executable token.
	ErrEmpty = errors.New("no command")

	// ErrUnterminated indicates an unterminated quote or a trailing escape.
	ErrUnterminated = errors.New("unterminated quote or escape")
)

// Command is an executable name and its arguments.
type Command struct {
	Name string
	Args []string
}

// String returns the command quoted so that parsing it again yields the
// same Command.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Argv returns the name followed by the arguments.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Name)
	return append(argv, c.Args...)
}

// ParseError reports a line that could not be parsed.
type ParseError struct {
	Kind error  // ErrEmpty or ErrUnterminated
	Line string // input line
	Err  error  // tokenizer detail, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil && e.Err != e.Kind {
		return fmt.Sprintf("parse %q: %v: %v", e.Line, e.Kind, e.Err)
	}
	return fmt.Sprintf("parse %q: %v", e.Line, e.Kind)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil || e.Err == e.Kind {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
