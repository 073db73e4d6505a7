// Package renderer provides the display layer for the shell.
//
// The Console owns the screen layout:
//
//	┌─────────────────────────────────────────┐
//	│ transcript (child output, notices,      │
//	│ errors), newest at the bottom           │
//	├─────────────────────────────────────────┤
//	│ status bar                              │
//	├─────────────────────────────────────────┤
//	│ $ prompt line being typed█              │
//	└─────────────────────────────────────────┘
//
// Child output is accepted as raw bytes per stream. Complete lines are
// committed to the transcript; the trailing partial line of each stream is
// shown below them until its newline arrives. Terminal escape sequences are
// stripped, tabs are expanded and long lines wrap at the screen width.
//
// Usage:
//
//	console := renderer.NewConsole(term, renderer.DefaultOptions())
//	console.Redraw()
//	console.StartPrompt()
//	line, err := input.ReadLine(ctx, src, console)
package renderer
