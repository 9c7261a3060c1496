package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func (e *exitRecorder) get() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.codes...)
}

func TestFaults_RecoverIsTerminal(t *testing.T) {
	var buf bytes.Buffer
	rec := &exitRecorder{}
	var shutdowns atomic.Int32
	f := NewFaults(zerolog.New(&buf),
		WithExit(rec.exit),
		WithShutdown(func(ctx context.Context) error {
			shutdowns.Add(1)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return errors.New("partial shutdown")
		}),
	)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer f.Recover("worker")
		panic("worker exploded")
	}()
	<-finished

	assert.Equal(t, []int{ExitFault}, rec.get())
	assert.EqualValues(t, 1, shutdowns.Load())
	assert.Contains(t, buf.String(), "worker exploded")
	assert.Contains(t, buf.String(), `"source":"worker"`)
	assert.Contains(t, buf.String(), "partial shutdown")
}

func TestFaults_ExitOnlyOnce(t *testing.T) {
	rec := &exitRecorder{}
	f := NewFaults(zerolog.Nop(), WithExit(rec.exit))

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Fatal("ui", "boom")
			t.Error("Fatal returned")
		}()
	}
	wg.Wait()
	assert.Equal(t, []int{ExitFault}, rec.get())
}

func TestFaults_PanicHook(t *testing.T) {
	rec := &exitRecorder{}
	f := NewFaults(zerolog.Nop(), WithExit(rec.exit))

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.PanicHook("ui.loop")("bad", []byte("stack"))
	}()
	<-done
	assert.Equal(t, []int{ExitFault}, rec.get())
}

func TestFaults_NoPanicNoExit(t *testing.T) {
	rec := &exitRecorder{}
	f := NewFaults(zerolog.Nop(), WithExit(rec.exit))

	func() {
		defer f.Recover("calm")
	}()
	assert.Empty(t, rec.get())
}
