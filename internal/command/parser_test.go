package command

import (
	"errors"
	"testing"
)

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantName    string
		wantArgs    []string
		expectedErr error
	}{
		{
			name:     "bare command",
			input:    "ls",
			wantName: "ls",
		},
		{
			name:     "command with arguments",
			input:    "ls -la /home/user",
			wantName: "ls",
			wantArgs: []string{"-la", "/home/user"},
		},
		{
			name:     "surrounding whitespace",
			input:    "   echo   hi  ",
			wantName: "echo",
			wantArgs: []string{"hi"},
		},
		{
			name:     "single quoted string",
			input:    "echo 'hello world'",
			wantName: "echo",
			wantArgs: []string{"hello world"},
		},
		{
			name:     "double quoted string",
			input:    `echo "hello world"`,
			wantName: "echo",
			wantArgs: []string{"hello world"},
		},
		{
			name:     "escaped space",
			input:    `echo hello\ world`,
			wantName: "echo",
			wantArgs: []string{"hello world"},
		},
		{
			name:     "escaped quote in double quotes",
			input:    `echo "hello \"world\""`,
			wantName: "echo",
			wantArgs: []string{`hello "world"`},
		},
		{
			name:     "empty quoted argument kept",
			input:    `printf '%s\n' ""`,
			wantName: "printf",
			wantArgs: []string{`%s\n`, ""},
		},
		{
			name:     "unicode",
			input:    "echo 🐢 grüße",
			wantName: "echo",
			wantArgs: []string{"🐢", "grüße"},
		},
		{
			name:        "empty line",
			input:       "",
			expectedErr: ErrEmpty,
		},
		{
			name:        "whitespace only",
			input:       " \t  ",
			expectedErr: ErrEmpty,
		},
		{
			name:        "empty executable",
			input:       `"" foo`,
			expectedErr: ErrEmpty,
		},
		{
			name:        "unclosed single quote",
			input:       "echo 'hello",
			expectedErr: ErrUnterminated,
		},
		{
			name:        "unclosed double quote",
			input:       `echo "hello`,
			expectedErr: ErrUnterminated,
		},
		{
			name:        "trailing escape",
			input:       `echo hello\`,
			expectedErr: ErrUnterminated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.input)

			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected *ParseError, got %T", err)
				}
				if parseErr.Line != tt.input {
					t.Errorf("expected line %q, got %q", tt.input, parseErr.Line)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, cmd.Name)
			}
			if !equalWords(cmd.Args, tt.wantArgs) {
				t.Errorf("expected args %q, got %q", tt.wantArgs, cmd.Args)
			}
		})
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	inputs := []string{
		"ls",
		"echo 'hello world'",
		`grep -e "a b" file\ name`,
	}
	for _, in := range inputs {
		cmd, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		again, err := Parse(cmd.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", cmd.String(), err)
		}
		if again.Name != cmd.Name || !equalWords(again.Args, cmd.Args) {
			t.Errorf("round trip of %q: got %+v, want %+v", in, again, cmd)
		}
	}
}

func TestCommandArgv(t *testing.T) {
	cmd := Command{Name: "ls", Args: []string{"-l", "/tmp"}}
	if got := cmd.Argv(); !equalWords(got, []string{"ls", "-l", "/tmp"}) {
		t.Errorf("Argv() = %q", got)
	}
}

func TestParserAliases(t *testing.T) {
	p := NewParser()
	if err := p.SetAlias("ll", "ls -l"); err != nil {
		t.Fatalf("SetAlias failed: %v", err)
	}
	if err := p.SetAlias("greet", `echo "hello there"`); err != nil {
		t.Fatalf("SetAlias failed: %v", err)
	}
	// Self-referencing alias must not recurse.
	if err := p.SetAlias("ls", "ls --color=never"); err != nil {
		t.Fatalf("SetAlias failed: %v", err)
	}

	tests := []struct {
		input    string
		wantName string
		wantArgs []string
	}{
		{"ll /tmp", "ls", []string{"-l", "/tmp"}},
		{"greet world", "echo", []string{"hello there", "world"}},
		{"ls", "ls", []string{"--color=never"}},
		{"echo ll", "echo", []string{"ll"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := p.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if cmd.Name != tt.wantName || !equalWords(cmd.Args, tt.wantArgs) {
				t.Errorf("Parse(%q) = %+v, want %s %q", tt.input, cmd, tt.wantName, tt.wantArgs)
			}
		})
	}

	p.RemoveAlias("ll")
	cmd, _ := p.Parse("ll")
	if cmd.Name != "ll" {
		t.Errorf("expected removed alias to be literal, got %q", cmd.Name)
	}
	if _, ok := p.Aliases()["greet"]; !ok {
		t.Error("expected greet alias to remain")
	}
}

func TestSetAliasRejectsBadExpansion(t *testing.T) {
	p := NewParser()
	if err := p.SetAlias("x", ""); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if err := p.SetAlias("x", "echo 'oops"); !errors.Is(err, ErrUnterminated) {
		t.Errorf("expected ErrUnterminated, got %v", err)
	}
}
