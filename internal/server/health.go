// Package server serves the question page, the JSON API, health probes and
// metrics, and coordinates graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// HealthStatus is the state of one component or of the whole service.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// worse reports whether a is a more severe status than b.
func worse(a, b HealthStatus) bool {
	rank := map[HealthStatus]int{HealthStatusHealthy: 0, HealthStatusDegraded: 1, HealthStatusUnhealthy: 2}
	return rank[a] > rank[b]
}

// HealthCheck is the result of checking one component.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthReport is the body of /health.
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Uptime    string        `json:"uptime"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker inspects one component.
type HealthChecker func(ctx context.Context) HealthCheck

type namedChecker struct {
	name  string
	check HealthChecker
}

// HealthServer exposes the health, readiness and liveness probes.
type HealthServer struct {
	mu      sync.RWMutex
	checks  []namedChecker
	version string
	started time.Time
	timeout time.Duration

	ready atomic.Bool
	live  atomic.Bool
}

// NewHealthServer returns a server that is live but not yet ready.
func NewHealthServer(version string) *HealthServer {
	s := &HealthServer{
		version: version,
		started: time.Now(),
		timeout: 5 * time.Second,
	}
	s.live.Store(true)
	return s
}

// RegisterCheck adds a component check. Registering an existing name
// replaces it in place; checks are reported in registration order.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.checks {
		if s.checks[i].name == name {
			s.checks[i].check = checker
			return
		}
	}
	s.checks = append(s.checks, namedChecker{name: name, check: checker})
}

func (s *HealthServer) SetReady(ready bool) { s.ready.Store(ready) }

func (s *HealthServer) SetLive(live bool) { s.live.Store(live) }

// Report runs every check concurrently and folds them into one status.
func (s *HealthServer) Report(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	checks := append([]namedChecker(nil), s.checks...)
	s.mu.RUnlock()

	results := make([]HealthCheck, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c namedChecker) {
			defer wg.Done()
			res := c.check(ctx)
			res.Name = c.name
			results[i] = res
		}(i, c)
	}
	wg.Wait()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Checks:    results,
	}
	for _, r := range results {
		if worse(r.Status, report.Status) {
			report.Status = r.Status
		}
	}
	return report
}

// Register mounts the probes on mux, with the Kubernetes-style aliases.
func (s *HealthServer) Register(mux *http.ServeMux) {
	for _, p := range []string{"/health", "/healthz"} {
		mux.HandleFunc(p, s.handleHealth)
	}
	for _, p := range []string{"/ready", "/readyz"} {
		mux.HandleFunc(p, s.probe(&s.ready))
	}
	for _, p := range []string{"/live", "/livez"} {
		mux.HandleFunc(p, s.probe(&s.live))
	}
}

// Handler returns the probes on their own mux.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.Report(r.Context())
	code := http.StatusOK
	if report.Status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func (s *HealthServer) probe(flag *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := HealthReport{
			Status:    HealthStatusHealthy,
			Timestamp: time.Now().UTC(),
			Uptime:    time.Since(s.started).Round(time.Second).String(),
		}
		if !flag.Load() {
			report.Status = HealthStatusUnhealthy
			writeJSON(w, http.StatusServiceUnavailable, report)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// VectorStoreHealthChecker reports the document count of the collection.
// An empty collection is degraded since every question will be refused.
func VectorStoreHealthChecker(collection string, countFn func(ctx context.Context) (int, error)) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		n, err := countFn(ctx)
		if err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: "Vector store unavailable: " + err.Error(),
				Details: map[string]string{"collection": collection},
			}
		}
		details := map[string]string{"collection": collection, "documents": strconv.Itoa(n)}
		if n == 0 {
			return HealthCheck{Status: HealthStatusDegraded, Message: "Collection is empty", Details: details}
		}
		return HealthCheck{Status: HealthStatusHealthy, Message: "Vector store OK", Details: details}
	}
}

// GeneratorHealthChecker reports whether answers can be generated. Without
// a provider the service still refuses and validates, so it is degraded
// rather than down.
func GeneratorHealthChecker(provider string) HealthChecker {
	return func(context.Context) HealthCheck {
		if provider == "" || provider == "none" {
			return HealthCheck{
				Status:  HealthStatusDegraded,
				Message: "No generation provider; relevant questions will fail",
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "Generation provider configured",
			Details: map[string]string{"provider": provider},
		}
	}
}
