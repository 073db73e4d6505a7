// Package process spawns the shell's child processes and streams their
// output.
//
// A Stream is one running child. Its stdout and stderr are combined into a
// single byte stream, read either from a pipe or from a pseudo-terminal, and
// delivered on Events() as output chunks in production order followed by
// exactly one exit event. The channel is closed after the exit event.
//
// # Supervisor
//
// The Supervisor resolves executables, starts streams and tracks the ones
// still running:
//
//	sup := process.NewSupervisor(process.WithMode(process.ModePipe))
//	defer sup.Shutdown(2 * time.Second)
//
//	stream, err := sup.Spawn(ctx, command.Command{Name: "ls", Args: []string{"-l"}})
//	if err != nil {
//	    var spawnErr *process.SpawnError
//	    errors.As(err, &spawnErr) // NotFound or OS
//	}
//	for ev := range stream.Events() {
//	    // EventOutput chunks, then one EventExit
//	}
//
// Children run in their own process group, so keyboard signals aimed at the
// shell never reach them and Terminate/Kill reach the whole group.
//
// # Thread Safety
//
// Both Supervisor and Stream are safe for concurrent use.
package process
