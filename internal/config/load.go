package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for decoding. Pointers distinguish "absent"
// from zero so a file only overrides what it names.
type fileConfig struct {
	Log      *fileLog      `toml:"log" yaml:"log"`
	Bus      *fileBus      `toml:"bus" yaml:"bus"`
	Trace    *fileTrace    `toml:"trace" yaml:"trace"`
	Shutdown *fileShutdown `toml:"shutdown" yaml:"shutdown"`
	Metrics  *fileMetrics  `toml:"metrics" yaml:"metrics"`
	UI       *fileUI       `toml:"ui" yaml:"ui"`
}

type fileLog struct {
	Level  *string `toml:"level" yaml:"level"`
	Format *string `toml:"format" yaml:"format"`
}

type fileBus struct {
	HandlerTimeout *string `toml:"handler_timeout" yaml:"handler_timeout"`
}

type fileTrace struct {
	MinInterval  *string `toml:"min_interval" yaml:"min_interval"`
	MaxInterval  *string `toml:"max_interval" yaml:"max_interval"`
	HistoryLimit *int    `toml:"history_limit" yaml:"history_limit"`
	FormatScript *string `toml:"format_script" yaml:"format_script"`
}

type fileShutdown struct {
	WindowTimeout *string `toml:"window_timeout" yaml:"window_timeout"`
	FaultTimeout  *string `toml:"fault_timeout" yaml:"fault_timeout"`
}

type fileMetrics struct {
	Addr *string `toml:"addr" yaml:"addr"`
}

type fileUI struct {
	Headless *bool   `toml:"headless" yaml:"headless"`
	Title    *string `toml:"title" yaml:"title"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MULTIWIN_"

// Loader builds a Config from defaults, a file and the environment.
type Loader struct {
	path      string
	lookupEnv func(string) (string, bool)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = fn
	}
}

// NewLoader creates a loader for path. An empty path skips the file.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the config file path.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the validated configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", l.path, err)
		}
		fc, err := parse(l.path, data)
		if err != nil {
			return Config{}, err
		}
		if err := fc.apply(&cfg, l.path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, l.lookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

// parse decodes file content by the extension of path. Unknown keys are
// rejected.
func parse(path string, data []byte) (*fileConfig, error) {
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return nil, tomlError(path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return &fc, nil
}

func tomlError(path string, err error) error {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		pe.Line, pe.Column = derr.Position()
	}
	return pe
}

func (fc *fileConfig) apply(cfg *Config, source string) error {
	var errs []error
	dur := func(field string, s *string, dst *time.Duration) {
		if s == nil {
			return
		}
		d, err := time.ParseDuration(*s)
		if err != nil {
			errs = append(errs, &ParseError{Path: source, Message: field + ": " + err.Error(), Err: err})
			return
		}
		*dst = d
	}
	str := func(s *string, dst *string) {
		if s != nil {
			*dst = *s
		}
	}

	if f := fc.Log; f != nil {
		str(f.Level, &cfg.Log.Level)
		str(f.Format, &cfg.Log.Format)
	}
	if f := fc.Bus; f != nil {
		dur("bus.handler_timeout", f.HandlerTimeout, &cfg.Bus.HandlerTimeout)
	}
	if f := fc.Trace; f != nil {
		dur("trace.min_interval", f.MinInterval, &cfg.Trace.MinInterval)
		dur("trace.max_interval", f.MaxInterval, &cfg.Trace.MaxInterval)
		if f.HistoryLimit != nil {
			cfg.Trace.HistoryLimit = *f.HistoryLimit
		}
		str(f.FormatScript, &cfg.Trace.FormatScript)
	}
	if f := fc.Shutdown; f != nil {
		dur("shutdown.window_timeout", f.WindowTimeout, &cfg.Shutdown.WindowTimeout)
		dur("shutdown.fault_timeout", f.FaultTimeout, &cfg.Shutdown.FaultTimeout)
	}
	if f := fc.Metrics; f != nil {
		str(f.Addr, &cfg.Metrics.Addr)
	}
	if f := fc.UI; f != nil {
		if f.Headless != nil {
			cfg.UI.Headless = *f.Headless
		}
		str(f.Title, &cfg.UI.Title)
	}
	return errors.Join(errs...)
}
