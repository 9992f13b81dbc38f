package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Shutdown stages, lowest first.
const (
	StageIngress = 10 // stop accepting questions
	StageWorkers = 20 // stop polling task queues
	StageTracing = 80 // flush spans of the drained requests
	StageStorage = 90 // close the vector store last
)

// ShutdownHook releases one resource.
type ShutdownHook struct {
	Name  string
	Stage int
	Fn    func(ctx context.Context) error
}

// Shutdown runs registered hooks in stage order once its context ends.
type Shutdown struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration
	log     *slog.Logger
	once    sync.Once
	err     error
}

// NewShutdown returns a Shutdown bounded by timeout. Zero means 30s.
func NewShutdown(timeout time.Duration, logger *slog.Logger) *Shutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Shutdown{timeout: timeout, log: logger}
}

func (s *Shutdown) Register(h ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Wait blocks until ctx is done, then runs the hooks.
func (s *Shutdown) Wait(ctx context.Context) error {
	<-ctx.Done()
	return s.Run()
}

// Run executes every hook once. A failing hook is logged and the rest still
// run; the joined failures are returned. Later calls return the same result.
func (s *Shutdown) Run() error {
	s.once.Do(func() {
		s.mu.Lock()
		hooks := append([]ShutdownHook(nil), s.hooks...)
		s.mu.Unlock()
		sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Stage < hooks[j].Stage })

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.log.Info("Shutting down", "hooks", len(hooks))
		var errs []error
		for _, h := range hooks {
			if err := h.Fn(ctx); err != nil {
				s.log.Error("Shutdown hook failed", "hook", h.Name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

// HTTPServerShutdownHook drains the HTTP server.
func HTTPServerShutdownHook(stop func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "http", Stage: StageIngress, Fn: stop}
}

// TemporalWorkerShutdownHook stops a Temporal worker.
func TemporalWorkerShutdownHook(stop func()) ShutdownHook {
	return ShutdownHook{
		Name:  "temporal-worker",
		Stage: StageWorkers,
		Fn: func(context.Context) error {
			stop()
			return nil
		},
	}
}

func TracingShutdownHook(shutdown func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "tracing", Stage: StageTracing, Fn: shutdown}
}

// VectorStoreShutdownHook closes the document collection.
func VectorStoreShutdownHook(closeFn func() error) ShutdownHook {
	return ShutdownHook{
		Name:  "vector-store",
		Stage: StageStorage,
		Fn:    func(context.Context) error { return closeFn() },
	}
}
