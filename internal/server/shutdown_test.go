package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdown_RunsHooksByStage(t *testing.T) {
	s := NewShutdown(time.Second, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	s.Register(VectorStoreShutdownHook(func() error { order = append(order, "vector-store"); return nil }))
	s.Register(TracingShutdownHook(record("tracing")))
	s.Register(HTTPServerShutdownHook(record("http")))
	s.Register(TemporalWorkerShutdownHook(func() { order = append(order, "temporal-worker") }))
	s.Register(ShutdownHook{Name: "http-2", Stage: StageIngress, Fn: record("http-2")})

	if err := s.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "http,http-2,temporal-worker,tracing,vector-store"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("hook order = %s, want %s", got, want)
	}
}

func TestShutdown_FailingHookDoesNotStopOthers(t *testing.T) {
	var logs bytes.Buffer
	s := NewShutdown(time.Second, slog.New(slog.NewTextHandler(&logs, nil)))

	boom := errors.New("flush failed")
	var closed atomic.Bool
	s.Register(TracingShutdownHook(func(context.Context) error { return boom }))
	s.Register(VectorStoreShutdownHook(func() error { closed.Store(true); return nil }))

	err := s.Run()
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "tracing") {
		t.Errorf("expected tracing failure, got %v", err)
	}
	if !closed.Load() {
		t.Error("vector store should still be closed")
	}
	if !strings.Contains(logs.String(), "Shutdown hook failed") {
		t.Errorf("expected failure to be logged:\n%s", logs.String())
	}
}

func TestShutdown_RunsOnce(t *testing.T) {
	s := NewShutdown(0, nil)
	var calls atomic.Int32
	s.Register(ShutdownHook{Name: "count", Fn: func(context.Context) error { calls.Add(1); return nil }})

	s.Run()
	s.Run()
	if calls.Load() != 1 {
		t.Errorf("expected one call, got %d", calls.Load())
	}
}

func TestShutdown_WaitBlocksUntilContextDone(t *testing.T) {
	s := NewShutdown(time.Second, nil)
	var ran atomic.Bool
	s.Register(ShutdownHook{Name: "mark", Fn: func(context.Context) error { ran.Store(true); return nil }})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Wait(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatal("hooks ran before the context ended")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
	if !ran.Load() {
		t.Error("hooks did not run")
	}
}

func TestShutdown_HooksSeeDeadline(t *testing.T) {
	s := NewShutdown(50*time.Millisecond, nil)
	var hasDeadline bool
	s.Register(HTTPServerShutdownHook(func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}))
	s.Run()
	if !hasDeadline {
		t.Error("hooks should run under the shutdown timeout")
	}
}
