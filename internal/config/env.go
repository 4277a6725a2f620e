package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "ACTIONHISTORY_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envSetting maps one environment variable onto a config field.
type envSetting struct {
	name string
	set  func(c *Config, v string) error
}

var envSettings = []envSetting{
	{"HISTORY_MAX_SIZE", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.History.MaxSize = n
		return nil
	}},
	{"HISTORY_STRICT", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.History.Strict = b
		return nil
	}},
	{"LOG_LEVEL", func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	}},
	{"SCRIPT_CALL_STACK_SIZE", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Script.CallStackSize = n
		return nil
	}},
	{"SCRIPT_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Script.Timeout = Duration(d)
		return nil
	}},
}

// ApplyEnv overrides cfg with any ACTIONHISTORY_* variables found by lookup.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, s := range envSettings {
		name := EnvPrefix + s.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := s.set(cfg, v); err != nil {
			return fmt.Errorf("environment %s=%q: %w", name, v, err)
		}
	}
	return nil
}
