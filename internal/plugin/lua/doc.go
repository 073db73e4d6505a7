// Package lua runs the exoshell rc script in a sandboxed gopher-lua state.
//
// The rc script is plain Lua with a few shell functions available:
//
//	prompt("λ ")
//	alias("ll", "ls -l")
//	alias("gs", "git status --short")
//	if getenv("TERM") == "dumb" then
//	    unalias("ll")
//	end
//
// Loading it:
//
//	rc, err := lua.LoadRc(ctx, path)
//	if err != nil {
//	    return err
//	}
//	for name, expansion := range rc.Aliases {
//	    parser.SetAlias(name, expansion)
//	}
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load and loadstring are removed, the module search path is
// cleared and require only returns those libraries. Each run is bounded by
// an execution timeout (DefaultExecutionTimeout unless overridden), so a
// script that never returns cannot hang shell startup.
package lua
