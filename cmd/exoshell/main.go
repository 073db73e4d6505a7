// Package main is the entry point for the exoshell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/dshills/exoshell/internal/app"
	"github.com/dshills/exoshell/internal/command"
	"github.com/dshills/exoshell/internal/config"
	"github.com/dshills/exoshell/internal/integration/process"
	"github.com/dshills/exoshell/internal/plugin/lua"
	"github.com/dshills/exoshell/internal/renderer/backend"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	parseFlags()

	cfg, cfgPath, err := config.FromEnvironment(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := app.NullLogger
	if cfg.LogFile != "" {
		l, f, err := app.OpenLogFile(config.ExpandPath(cfg.LogFile), app.ParseLogLevel(cfg.LogLevel))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logger = l
	}
	log := logger.WithComponent("main")
	log.Info("starting exoshell %s (config %q)", version, cfgPath)

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	parser := command.NewParser()
	var rcPrompt string
	if cfg.RcFile != "" {
		rcPrompt, err = loadRc(ctx, config.ExpandPath(cfg.RcFile), parser)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	var reloads <-chan config.Reload
	if cfgPath != "" {
		w, err := config.NewWatcher(cfgPath)
		if err != nil {
			log.Warn("config watch disabled: %v", err)
		} else {
			defer w.Close()
			reloads = w.Reloads()
		}
	}

	reapLog := logger.WithComponent("process")
	supOpts := []process.SupervisorOption{
		process.WithMode(cfg.Mode()),
		process.WithMaxStreams(cfg.MaxChildren),
		process.WithExitCallback(func(s *process.Stream) {
			reapLog.WithFields(map[string]any{"stream": s.ID(), "pid": s.PID()}).Debug(
				"reaped %q after %s: %s (code %d), %s of output",
				s.Name(), s.Runtime().Round(time.Millisecond), s.State(), s.ExitCode(),
				humanize.Bytes(uint64(s.BytesRead())))
		}),
	}
	if cols, rows, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols > 0 && rows > 0 {
		supOpts = append(supOpts, process.WithPTYSize(uint16(cols), uint16(rows)))
	}
	sup := process.NewSupervisor(supOpts...)

	shell, err := app.New(app.Options{
		Terminal: backend.NewTTY(),
		Spawner:  app.SupervisorSpawner(sup),
		Parser:   parser,
		Config:   &cfg,
		Prompt:   rcPrompt,
		Reloads:  reloads,
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	if err := shell.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadRc runs the rc script, installs its aliases and returns its prompt,
// which is empty when the script sets none.
func loadRc(ctx context.Context, path string, parser *command.Parser) (string, error) {
	rc, err := lua.LoadRc(ctx, path)
	if err != nil {
		return "", err
	}

	for name, expansion := range rc.Aliases {
		if err := parser.SetAlias(name, expansion); err != nil {
			return "", fmt.Errorf("rc %s: alias %q: %w", path, name, err)
		}
	}
	return rc.Prompt, nil
}

func parseFlags() {
	var showVersion bool
	var showHelp bool

	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "exoshell - a shell that streams every command beside the prompt\n\n")
		fmt.Fprintf(os.Stderr, "Usage: exoshell [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  %-22s TOML or YAML configuration file\n", config.EnvConfigPath)
		fmt.Fprintf(os.Stderr, "  %-22s Override prompt (and other EXOSHELL_* settings)\n", "EXOSHELL_PROMPT")
		fmt.Fprintf(os.Stderr, "\nType 'exit' at the prompt to leave.\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("exoshell %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", flag.Args())
		flag.Usage()
		os.Exit(2)
	}
}
