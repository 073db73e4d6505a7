package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads the config file at path on top of the defaults. The format
// is chosen by extension: .toml, .yaml or .yml. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = decodeTOML(path, data, &cfg)
	case ".yaml", ".yml":
		err = decodeYAML(path, data, &cfg)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return cfg, err
}

func decodeTOML(path string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)
	if err == nil {
		return nil
	}

	perr := &ParseError{Path: path, Message: err.Error(), Err: err}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		perr.Line, perr.Column = derr.Position()
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) && len(serr.Errors) > 0 {
		first := serr.Errors[0]
		perr.Line, perr.Column = first.Position()
		perr.Message = "unknown key " + strings.Join(first.Key(), ".")
	}
	return perr
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return nil
}

// envVar maps one EXOSHELL_* variable onto a setting.
type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func envString(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func envInt(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

// envMapping lists the supported environment overrides.
var envMapping = []envVar{
	{"EXOSHELL_PROMPT", envString(func(c *Config) *string { return &c.Prompt })},
	{"EXOSHELL_LOG_LEVEL", envString(func(c *Config) *string { return &c.LogLevel })},
	{"EXOSHELL_LOG_FILE", envString(func(c *Config) *string { return &c.LogFile })},
	{"EXOSHELL_RC_FILE", envString(func(c *Config) *string { return &c.RcFile })},
	{"EXOSHELL_SPAWN_MODE", envString(func(c *Config) *string { return &c.SpawnMode })},
	{"EXOSHELL_CHILD_POLICY", func(c *Config, v string) error {
		c.ChildPolicy = ChildPolicy(strings.ToLower(strings.TrimSpace(v)))
		return nil
	}},
	{"EXOSHELL_GRACE_PERIOD", func(c *Config, v string) error {
		return c.GracePeriod.UnmarshalText([]byte(strings.TrimSpace(v)))
	}},
	{"EXOSHELL_MAX_CHILDREN", envInt(func(c *Config) *int { return &c.MaxChildren })},
	{"EXOSHELL_SCROLLBACK", envInt(func(c *Config) *int { return &c.Scrollback })},
	{"EXOSHELL_STATUS_FOREGROUND", envString(func(c *Config) *string { return &c.Status.Foreground })},
	{"EXOSHELL_STATUS_BACKGROUND", envString(func(c *Config) *string { return &c.Status.Background })},
	{"EXOSHELL_STATUS_ACCENT", envString(func(c *Config) *string { return &c.Status.Accent })},
}

// ApplyEnv applies EXOSHELL_* overrides to cfg. Empty values are treated
// as set. Every malformed variable is reported.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	for _, ev := range envMapping {
		v, ok := lookup(ev.name)
		if !ok {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			errs = append(errs, &EnvError{Name: ev.name, Value: v, Err: err})
		}
	}
	return errors.Join(errs...)
}
