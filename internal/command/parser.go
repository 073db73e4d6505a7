package command

import (
	"errors"
	"sync"

	"github.com/kballard/go-shellquote"
)

// Tokenize splits line into words. Unterminated quotes and trailing
// backslashes are reported as ErrUnterminated rather than truncated.
func Tokenize(line string) ([]string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		if isUnterminated(err) {
			return nil, &ParseError{Kind: ErrUnterminated, Line: line, Err: err}
		}
		return nil, err
	}
	return words, nil
}

func isUnterminated(err error) bool {
	return errors.Is(err, shellquote.UnterminatedSingleQuoteError) ||
		errors.Is(err, shellquote.UnterminatedDoubleQuoteError) ||
		errors.Is(err, shellquote.UnterminatedEscapeError)
}

// Parser parses lines with an alias table.
// It is safe for concurrent use.
type Parser struct {
	mu      sync.RWMutex
	aliases map[string][]string
}

// NewParser creates a parser with no aliases.
func NewParser() *Parser {
	return &Parser{aliases: make(map[string][]string)}
}

// SetAlias makes name expand to expansion when it is the first word of a
// line. The expansion is tokenized once, here.
func (p *Parser) SetAlias(name, expansion string) error {
	words, err := Tokenize(expansion)
	if err != nil {
		return err
	}
	if len(words) == 0 || words[0] == "" {
		return &ParseError{Kind: ErrEmpty, Line: expansion}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.aliases[name] = words
	return nil
}

// RemoveAlias deletes an alias.
func (p *Parser) RemoveAlias(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.aliases, name)
}

// Aliases returns a copy of the alias table.
func (p *Parser) Aliases() map[string][]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string][]string, len(p.aliases))
	for name, words := range p.aliases {
		out[name] = append([]string(nil), words...)
	}
	return out
}

// Parse tokenizes line and builds a Command. An alias in the first
// position is replaced by its expansion; expansions are not expanded
// again.
func (p *Parser) Parse(line string) (Command, error) {
	words, err := Tokenize(line)
	if err != nil {
		return Command{}, err
	}
	if len(words) == 0 || words[0] == "" {
		return Command{}, &ParseError{Kind: ErrEmpty, Line: line}
	}

	if p != nil {
		p.mu.RLock()
		expansion, ok := p.aliases[words[0]]
		p.mu.RUnlock()
		if ok {
			expanded := make([]string, 0, len(expansion)+len(words)-1)
			expanded = append(expanded, expansion...)
			words = append(expanded, words[1:]...)
		}
	}

	return Command{Name: words[0], Args: words[1:]}, nil
}

// Parse parses line without aliases.
func Parse(line string) (Command, error) {
	var p *Parser
	return p.Parse(line)
}
