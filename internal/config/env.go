package config

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

type envSetter func(cfg *Config, value string) error

func durationVar(dst func(*Config) *time.Duration) envSetter {
	return func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(cfg) = d
		return nil
	}
}

func stringVar(dst func(*Config) *string) envSetter {
	return func(cfg *Config, v string) error {
		*dst(cfg) = v
		return nil
	}
}

// envVars maps variable names, without EnvPrefix, to setters.
var envVars = map[string]envSetter{
	"LOG_LEVEL":  stringVar(func(c *Config) *string { return &c.Log.Level }),
	"LOG_FORMAT": stringVar(func(c *Config) *string { return &c.Log.Format }),

	"BUS_HANDLER_TIMEOUT": durationVar(func(c *Config) *time.Duration { return &c.Bus.HandlerTimeout }),

	"TRACE_MIN_INTERVAL": durationVar(func(c *Config) *time.Duration { return &c.Trace.MinInterval }),
	"TRACE_MAX_INTERVAL": durationVar(func(c *Config) *time.Duration { return &c.Trace.MaxInterval }),
	"TRACE_HISTORY_LIMIT": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Trace.HistoryLimit = n
		return nil
	},
	"TRACE_FORMAT_SCRIPT": stringVar(func(c *Config) *string { return &c.Trace.FormatScript }),

	"SHUTDOWN_WINDOW_TIMEOUT": durationVar(func(c *Config) *time.Duration { return &c.Shutdown.WindowTimeout }),
	"SHUTDOWN_FAULT_TIMEOUT":  durationVar(func(c *Config) *time.Duration { return &c.Shutdown.FaultTimeout }),

	"METRICS_ADDR": stringVar(func(c *Config) *string { return &c.Metrics.Addr }),

	"UI_HEADLESS": func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		c.UI.Headless = b
		return nil
	},
	"UI_TITLE": stringVar(func(c *Config) *string { return &c.UI.Title }),
}

// EnvVars returns the supported environment variable names.
func EnvVars() []string {
	names := make([]string, 0, len(envVars))
	for name := range envVars {
		names = append(names, EnvPrefix+name)
	}
	return names
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	for name, set := range envVars {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			errs = append(errs, &ParseError{Path: EnvPrefix + name, Message: err.Error(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
