package lua

import (
	"context"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// Rc is what an rc script configured.
type Rc struct {
	// Aliases maps a command name to its expansion.
	Aliases map[string]string
	// Prompt is the prompt literal, or empty if the script did not set one.
	Prompt string
}

// LoadRc runs the rc script at path and returns what it configured.
func LoadRc(ctx context.Context, path string, opts ...StateOption) (Rc, error) {
	return loadRc(path, func(s *State) error { return s.DoFile(ctx, path) }, opts)
}

// LoadRcString runs an rc chunk and returns what it configured.
func LoadRcString(ctx context.Context, code string, opts ...StateOption) (Rc, error) {
	return loadRc("<string>", func(s *State) error { return s.DoString(ctx, code) }, opts)
}

func loadRc(name string, run func(*State) error, opts []StateOption) (Rc, error) {
	rc := Rc{Aliases: make(map[string]string)}

	s := NewState(opts...)
	defer s.Close()

	registerRcAPI(s, &rc)

	if err := run(s); err != nil {
		return Rc{}, &RcError{Path: name, Err: err}
	}
	return rc, nil
}

// registerRcAPI installs the functions an rc script may call:
//
//	alias(name, expansion)  define an alias
//	unalias(name)           remove an alias
//	prompt(text)            set the prompt literal
//	getenv(name)            read an environment variable, nil if unset
func registerRcAPI(s *State, rc *Rc) {
	s.RegisterFunc("alias", func(L *lua.LState) int {
		name := L.CheckString(1)
		expansion := L.CheckString(2)
		if name == "" {
			L.ArgError(1, "alias name must not be empty")
			return 0
		}
		rc.Aliases[name] = expansion
		return 0
	})

	s.RegisterFunc("unalias", func(L *lua.LState) int {
		delete(rc.Aliases, L.CheckString(1))
		return 0
	})

	s.RegisterFunc("prompt", func(L *lua.LState) int {
		rc.Prompt = L.CheckString(1)
		return 0
	})

	s.RegisterFunc("getenv", func(L *lua.LState) int {
		v, ok := os.LookupEnv(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(v))
		return 1
	})
}
