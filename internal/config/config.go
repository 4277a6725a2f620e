package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default values.
const (
	DefaultMaxHistorySize = 50
	DefaultLogLevel       = "info"
	DefaultCallStackSize  = 256
	DefaultScriptTimeout  = 5 * time.Second
)

// Config holds all actionhistory settings.
type Config struct {
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
	Script  ScriptConfig  `toml:"script"`
}

// HistoryConfig configures the history manager.
type HistoryConfig struct {
	// MaxSize bounds the number of stored actions.
	MaxSize int `toml:"max_size"`
	// Strict makes skipped operations return errors instead of nil.
	Strict bool `toml:"strict"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// ScriptConfig configures the Lua runtime.
type ScriptConfig struct {
	CallStackSize int      `toml:"call_stack_size"`
	Timeout       Duration `toml:"timeout"`
}

// Duration is a time.Duration that reads from a TOML string like "2s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{MaxSize: DefaultMaxHistorySize},
		Log:     LogConfig{Level: DefaultLogLevel},
		Script: ScriptConfig{
			CallStackSize: DefaultCallStackSize,
			Timeout:       Duration(DefaultScriptTimeout),
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error; an
// empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// File doesn't exist, not an error
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := Parse(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg. Keys absent from data keep their
// current values. Unknown keys are rejected.
func Parse(source string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}

		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

// Validate checks that all settings are in range.
func (c *Config) Validate() error {
	var errs []error

	if c.History.MaxSize <= 0 {
		errs = append(errs, &ValidationError{Path: "history.max_size", Message: "must be greater than 0", Value: c.History.MaxSize})
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ValidationError{Path: "log.level", Message: "must be debug, info, warn or error", Value: c.Log.Level})
	}
	if c.Script.CallStackSize < 0 {
		errs = append(errs, &ValidationError{Path: "script.call_stack_size", Message: "must not be negative", Value: c.Script.CallStackSize})
	}
	if c.Script.Timeout < 0 {
		errs = append(errs, &ValidationError{Path: "script.timeout", Message: "must not be negative", Value: c.Script.Timeout.Std()})
	}

	return errors.Join(errs...)
}

// Encode renders cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
