package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/exoshell/internal/integration/process"
	"github.com/dshills/exoshell/internal/renderer/statusline"
)

// ChildPolicy selects what happens to running children when the shell exits.
type ChildPolicy string

const (
	// PolicyTerminate signals running children and waits up to the grace
	// period before killing them.
	PolicyTerminate ChildPolicy = "terminate"
	// PolicyWait waits for running children to finish on their own.
	PolicyWait ChildPolicy = "wait"
	// PolicyDetach leaves running children alone.
	PolicyDetach ChildPolicy = "detach"
)

// Valid reports whether p is a known policy.
func (p ChildPolicy) Valid() bool {
	switch p {
	case PolicyTerminate, PolicyWait, PolicyDetach:
		return true
	}
	return false
}

// Duration is a time.Duration written as a string such as "2s" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// StatusColors names the status bar colors. Values are tcell color names
// or #rrggbb; empty means the terminal default.
type StatusColors struct {
	Foreground string `toml:"foreground" yaml:"foreground"`
	Background string `toml:"background" yaml:"background"`
	Accent     string `toml:"accent" yaml:"accent"`
}

// Config holds all shell settings.
type Config struct {
	Prompt      string       `toml:"prompt" yaml:"prompt"`
	LogLevel    string       `toml:"log_level" yaml:"log_level"`
	LogFile     string       `toml:"log_file" yaml:"log_file"`
	RcFile      string       `toml:"rc_file" yaml:"rc_file"`
	SpawnMode   string       `toml:"spawn_mode" yaml:"spawn_mode"`
	ChildPolicy ChildPolicy  `toml:"child_policy" yaml:"child_policy"`
	GracePeriod Duration     `toml:"grace_period" yaml:"grace_period"`
	MaxChildren int          `toml:"max_children" yaml:"max_children"`
	Scrollback  int          `toml:"scrollback" yaml:"scrollback"`
	Status      StatusColors `toml:"status" yaml:"status"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Prompt:      "$ ",
		LogLevel:    "info",
		SpawnMode:   string(process.ModePipe),
		ChildPolicy: PolicyTerminate,
		GracePeriod: Duration{2 * time.Second},
		MaxChildren: 0,
		Scrollback:  1000,
		Status: StatusColors{
			Foreground: "white",
			Background: "darkslategray",
			Accent:     "teal",
		},
	}
}

var logLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate checks every setting and returns all failures joined.
func (c Config) Validate() error {
	var errs []error
	add := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	if c.Prompt == "" {
		add("prompt", "must not be empty", c.Prompt)
	}
	if strings.ContainsAny(c.Prompt, "\n\r") {
		add("prompt", "must be a single line", c.Prompt)
	}
	if !logLevels[strings.ToLower(c.LogLevel)] {
		add("log_level", "must be one of debug, info, warn, error", c.LogLevel)
	}
	if _, err := process.ParseMode(c.SpawnMode); err != nil {
		add("spawn_mode", "must be pipe or pty", c.SpawnMode)
	}
	if !c.ChildPolicy.Valid() {
		add("child_policy", "must be terminate, wait or detach", c.ChildPolicy)
	}
	if c.GracePeriod.Duration < 0 {
		add("grace_period", "must not be negative", c.GracePeriod)
	}
	if c.MaxChildren < 0 {
		add("max_children", "must not be negative", c.MaxChildren)
	}
	if c.Scrollback <= 0 {
		add("scrollback", "must be positive", c.Scrollback)
	}
	for _, f := range []struct{ path, value string }{
		{"status.foreground", c.Status.Foreground},
		{"status.background", c.Status.Background},
		{"status.accent", c.Status.Accent},
	} {
		if _, ok := parseColor(f.value); !ok {
			add(f.path, "unknown color", f.value)
		}
	}
	return errors.Join(errs...)
}

// StatusStyle resolves the status bar colors. Unknown names fall back to
// the default style's color.
func (c Config) StatusStyle() statusline.Style {
	def := statusline.DefaultStyle()
	pick := func(name string, fallback tcell.Color) tcell.Color {
		if color, ok := parseColor(name); ok {
			return color
		}
		return fallback
	}
	return statusline.Style{
		Foreground: pick(c.Status.Foreground, def.Foreground),
		Background: pick(c.Status.Background, def.Background),
		Accent:     pick(c.Status.Accent, def.Accent),
	}
}

// Mode returns the spawn mode, defaulting to pipe.
func (c Config) Mode() process.Mode {
	mode, err := process.ParseMode(c.SpawnMode)
	if err != nil {
		return process.ModePipe
	}
	return mode
}

func parseColor(name string) (tcell.Color, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "default" {
		return tcell.ColorDefault, true
	}
	color := tcell.GetColor(name)
	return color, color != tcell.ColorDefault
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// EnvConfigPath names the variable that points at the config file.
const EnvConfigPath = "EXOSHELL_CONFIG"

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(string) (string, bool)

// FromEnvironment builds the configuration from defaults, the file named
// by EXOSHELL_CONFIG (if set) and EXOSHELL_* overrides. It returns the
// config file path, which is empty when no file was used.
func FromEnvironment(lookup LookupFunc) (Config, string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()
	path, _ := lookup(EnvConfigPath)
	path = ExpandPath(strings.TrimSpace(path))
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return cfg, path, err
		}
		cfg = loaded
	}

	if err := ApplyEnv(&cfg, lookup); err != nil {
		return cfg, path, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}
