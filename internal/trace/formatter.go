package trace

import (
	"strconv"
	"time"
)

// DefaultLayout is the timestamp layout of default trace lines.
const DefaultLayout = "15:04:05.0000"

// Formatter renders one trace line.
type Formatter interface {
	Format(seq uint64, at time.Time) (string, error)
}

// FormatterFunc is a function adapter for Formatter.
type FormatterFunc func(seq uint64, at time.Time) (string, error)

// Format implements Formatter.
func (f FormatterFunc) Format(seq uint64, at time.Time) (string, error) {
	return f(seq, at)
}

// DefaultFormatter produces "15:04:05.0000 Timer event. (seq: N)".
type DefaultFormatter struct {
	// Layout overrides DefaultLayout when set.
	Layout string
}

// Format implements Formatter.
func (f DefaultFormatter) Format(seq uint64, at time.Time) (string, error) {
	layout := f.Layout
	if layout == "" {
		layout = DefaultLayout
	}
	return at.Format(layout) + " Timer event. (seq: " + strconv.FormatUint(seq, 10) + ")", nil
}
