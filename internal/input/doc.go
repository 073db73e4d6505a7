// Package input turns terminal key events into prompt lines.
//
// Terminal events are first normalized into KeyEvents, which only
// distinguish the keys the prompt cares about: printable characters, Enter
// and Backspace. Everything else is KeyIgnored.
//
// ReadLine accumulates one line from a Source, echoing each accepted
// character through a Display as it arrives:
//
//	line, err := input.ReadLine(ctx, src, console)
//	if errors.Is(err, input.ErrInputClosed) {
//		// keyboard went away
//	}
//
// The Source decides what "waiting for a key" means. The shell's run loop
// supplies a Source that keeps servicing child output while it waits, so a
// half-typed line is never disturbed by streaming output.
package input
