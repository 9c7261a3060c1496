package trace

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultScriptTimeout bounds a single format() call.
const DefaultScriptTimeout = 100 * time.Millisecond

// LuaFormatter renders trace lines with a user script that defines
//
//	function format(seq, unix_ms) ... return line end
//
// The script runs in a state with only the base, table, string and math
// libraries. clock(unix_ms) returns the default timestamp text.
//
// gopher-lua states are not goroutine-safe; calls are serialized.
type LuaFormatter struct {
	mu      sync.Mutex
	L       *lua.LState
	fn      *lua.LFunction
	timeout time.Duration
	closed  bool
}

// NewLuaFormatter compiles source and looks up its format function.
func NewLuaFormatter(source string) (*LuaFormatter, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	L.SetGlobal("clock", L.NewFunction(luaClock))

	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("trace: compile format script: %w", err)
	}
	fn, ok := L.GetGlobal("format").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, ErrNoFormatFunc
	}
	return &LuaFormatter{L: L, fn: fn, timeout: DefaultScriptTimeout}, nil
}

// LoadLuaFormatter reads a script file and compiles it.
func LoadLuaFormatter(path string) (*LuaFormatter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trace: read format script: %w", err)
	}
	return NewLuaFormatter(string(data))
}

func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	L.SetTop(0)

	// io, os, debug and package stay closed; dofile and loadfile reach
	// the filesystem through base.
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
}

func luaClock(L *lua.LState) int {
	ms := L.CheckInt64(1)
	L.Push(lua.LString(time.UnixMilli(ms).Format(DefaultLayout)))
	return 1
}

// Format implements Formatter.
func (f *LuaFormatter) Format(seq uint64, at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", fmt.Errorf("trace: format script closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	f.L.SetContext(ctx)
	defer f.L.RemoveContext()

	err := f.L.CallByParam(lua.P{Fn: f.fn, NRet: 1, Protect: true},
		lua.LNumber(seq), lua.LNumber(at.UnixMilli()))
	if err != nil {
		return "", fmt.Errorf("trace: format script: %w", err)
	}
	ret := f.L.Get(-1)
	f.L.Pop(1)

	if ret.Type() != lua.LTString && ret.Type() != lua.LTNumber {
		return "", fmt.Errorf("trace: format script returned %s, want string", ret.Type())
	}
	return ret.String(), nil
}

// Close releases the Lua state.
func (f *LuaFormatter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		f.L.Close()
	}
}
