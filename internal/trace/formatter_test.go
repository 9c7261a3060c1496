package trace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 6, 14, 30, 15, 123_400_000, time.UTC)

func TestDefaultFormatter(t *testing.T) {
	tests := []struct {
		name   string
		f      DefaultFormatter
		seq    uint64
		expect string
	}{
		{"default layout", DefaultFormatter{}, 1, "14:30:15.1234 Timer event. (seq: 1)"},
		{"custom layout", DefaultFormatter{Layout: time.Kitchen}, 42, "2:30PM Timer event. (seq: 42)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.f.Format(tt.seq, fixedTime)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestLuaFormatter(t *testing.T) {
	f, err := NewLuaFormatter(`
function format(seq, unix_ms)
  return string.format("#%d at %d", seq, unix_ms)
end`)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.Format(7, fixedTime)
	require.NoError(t, err)
	assert.Equal(t, "#7 at 1715005815123", got)
}

func TestLuaFormatter_Clock(t *testing.T) {
	f, err := NewLuaFormatter(`function format(seq, ms) return clock(ms) .. " tick " .. seq end`)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.Format(3, fixedTime)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(fixedTime.UnixMilli()).Format(DefaultLayout)+" tick 3", got)
}

func TestLuaFormatter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"syntax error", "function format("},
		{"no format function", "x = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLuaFormatter(tt.source)
			assert.Error(t, err)
		})
	}

	_, err := NewLuaFormatter("x = 1")
	assert.ErrorIs(t, err, ErrNoFormatFunc)
}

func TestLuaFormatter_RuntimeErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"raises", `function format() error("nope") end`},
		{"returns table", `function format() return {} end`},
		{"sandboxed io", `function format() return io.open("/etc/passwd") end`},
		{"runaway loop", `function format() while true do end end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewLuaFormatter(tt.source)
			require.NoError(t, err)
			defer f.Close()

			_, err = f.Format(1, fixedTime)
			assert.Error(t, err)
		})
	}
}

func TestLoadLuaFormatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.lua")
	require.NoError(t, os.WriteFile(path, []byte(`function format(seq) return "n=" .. seq end`), 0o600))

	f, err := LoadLuaFormatter(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.Format(9, fixedTime)
	require.NoError(t, err)
	assert.Equal(t, "n=9", got)

	_, err = LoadLuaFormatter(filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, err)
}
