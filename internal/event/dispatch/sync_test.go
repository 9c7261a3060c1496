package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResult_Predicates(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		success bool
		isErr   bool
		isPanic bool
	}{
		{"success", Result{Success: true}, true, false, false},
		{"error", Result{Error: errors.New("boom")}, false, true, false},
		{"panic", Result{Panicked: true, PanicValue: "boom"}, false, false, true},
		{"skipped", Result{Skipped: true, Error: context.Canceled}, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsError(); got != tt.isErr {
				t.Errorf("IsError() = %v, want %v", got, tt.isErr)
			}
			if got := tt.result.IsPanic(); got != tt.isPanic {
				t.Errorf("IsPanic() = %v, want %v", got, tt.isPanic)
			}
		})
	}
}

func TestExecutor_RecoversPanic(t *testing.T) {
	var hookValue any
	e := NewExecutor(WithExecutorPanicHandler(func(_ any, v any, stack []byte) {
		hookValue = v
		if len(stack) == 0 {
			t.Error("expected a stack trace")
		}
	}))

	res := e.Execute(context.Background(), "msg", HandlerFunc(func(context.Context, any) error {
		panic("kaboom")
	}))

	if !res.Panicked || res.PanicValue != "kaboom" {
		t.Fatalf("expected recovered panic, got %+v", res)
	}
	if hookValue != "kaboom" {
		t.Errorf("panic hook got %v", hookValue)
	}
}

func TestExecutor_PanickingHookIsContained(t *testing.T) {
	e := NewExecutor(WithExecutorPanicHandler(func(any, any, []byte) {
		panic("hook failed too")
	}))

	res := e.Execute(context.Background(), nil, HandlerFunc(func(context.Context, any) error {
		panic("first")
	}))
	if !res.Panicked {
		t.Fatal("expected Panicked result")
	}
}

func TestExecutor_SkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	res := NewExecutor().Execute(ctx, nil, HandlerFunc(func(context.Context, any) error {
		called = true
		return nil
	}))
	if called {
		t.Error("handler ran with a cancelled context")
	}
	if !res.Skipped || !errors.Is(res.Error, context.Canceled) {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestExecutor_NilHandler(t *testing.T) {
	res := NewExecutor().Execute(context.Background(), nil, nil)
	if !errors.Is(res.Error, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", res.Error)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	res := NewExecutor().ExecuteWithTimeout(context.Background(), nil, HandlerFunc(func(ctx context.Context, _ any) error {
		<-ctx.Done()
		return ctx.Err()
	}), 10*time.Millisecond)

	if !errors.Is(res.Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", res.Error)
	}
}

func TestSyncDispatcher_Stats(t *testing.T) {
	d := NewSyncDispatcher(WithPanicHandler(func(any, any, []byte) {}))
	ctx := context.Background()

	d.Dispatch(ctx, nil, HandlerFunc(func(context.Context, any) error { return nil }))
	d.Dispatch(ctx, nil, HandlerFunc(func(context.Context, any) error { return errors.New("x") }))
	d.Dispatch(ctx, nil, HandlerFunc(func(context.Context, any) error { panic("y") }))

	s := d.Stats()
	if s.Dispatched != 3 || s.Succeeded != 1 || s.Failed != 1 || s.Panicked != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}
