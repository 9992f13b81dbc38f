package observability

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics. Series sharing a name but
// differing in labels are grouped under one HELP/TYPE header.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	labels  map[string]string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

func seriesKey(name string, labels map[string]string) string {
	return name + formatLabels(labels)
}

// NewCounter creates and registers a counter. Registering the same name and
// labels twice returns the existing counter.
func (r *MetricsRegistry) NewCounter(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey(name, labels)
	if c, ok := r.counters[key]; ok {
		return c
	}
	c := &Counter{name: name, help: help, labels: labels}
	r.counters[key] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string, labels map[string]string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey(name, labels)
	if g, ok := r.gauges[key]; ok {
		return g
	}
	g := &Gauge{name: name, help: help, labels: labels}
	r.gauges[key] = g
	return g
}

// NewHistogram creates and registers a histogram. Nil buckets select
// DefaultBuckets.
func (r *MetricsRegistry) NewHistogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := seriesKey(name, labels)
	if h, ok := r.histos[key]; ok {
		return h
	}
	if buckets == nil {
		buckets = DefaultBuckets()
	}
	h := &Histogram{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[key] = h
	return h
}

// DefaultBuckets returns default histogram buckets for latency, stretched to
// cover slow hosted inference calls.
func DefaultBuckets() []float64 {
	return []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds v to the counter. Negative values are dropped.
func (c *Counter) Add(v float64) {
	if v < 0 {
		return
	}
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.Add(-1)
}

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++

	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// ObserveDuration records the time elapsed since start.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Handler returns an HTTP handler for Prometheus metrics.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes metrics in Prometheus text format, sorted by series.
func (r *MetricsRegistry) WritePrometheus(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	headers := make(map[string]bool)
	header := func(name, kind, help string) {
		if headers[name] {
			return
		}
		headers[name] = true
		io.WriteString(w, "# HELP "+name+" "+help+"\n")
		io.WriteString(w, "# TYPE "+name+" "+kind+"\n")
	}

	for _, key := range sortedKeys(r.counters) {
		c := r.counters[key]
		c.mu.Lock()
		header(c.name, "counter", c.help)
		io.WriteString(w, key+" "+formatFloat(c.value)+"\n")
		c.mu.Unlock()
	}

	for _, key := range sortedKeys(r.gauges) {
		g := r.gauges[key]
		g.mu.Lock()
		header(g.name, "gauge", g.help)
		io.WriteString(w, key+" "+formatFloat(g.value)+"\n")
		g.mu.Unlock()
	}

	for _, key := range sortedKeys(r.histos) {
		h := r.histos[key]
		h.mu.Lock()
		header(h.name, "histogram", h.help)
		writeHistogram(w, h)
		h.mu.Unlock()
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeHistogram emits cumulative buckets. Observe already counts a value in
// every bucket whose bound it fits under.
func writeHistogram(w io.Writer, h *Histogram) {
	for i, bound := range h.buckets {
		labels := copyLabels(h.labels)
		labels["le"] = formatFloat(bound)
		io.WriteString(w, h.name+"_bucket"+formatLabels(labels)+" "+formatUint(h.counts[i])+"\n")
	}

	labels := copyLabels(h.labels)
	labels["le"] = "+Inf"
	io.WriteString(w, h.name+"_bucket"+formatLabels(labels)+" "+formatUint(h.count)+"\n")

	io.WriteString(w, h.name+"_sum"+formatLabels(h.labels)+" "+formatFloat(h.sum)+"\n")
	io.WriteString(w, h.name+"_count"+formatLabels(h.labels)+" "+formatUint(h.count)+"\n")
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := sortedKeys(labels)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Quote(labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	result := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		result[k] = v
	}
	return result
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// QA outcome labels.
const (
	OutcomeAnswered  = "answered"
	OutcomeNoContext = "no_context"
	OutcomeEmpty     = "empty_question"
	OutcomeError     = "error"
)

// QAMetrics contains the question-answering metrics.
type QAMetrics struct {
	Registry *MetricsRegistry

	questions map[string]*Counter

	RetrievalDuration  *Histogram
	GenerationDuration *Histogram
	ClosestDistance    *Histogram
	LLMErrorsTotal     *Counter
	RetrievalErrors    *Counter
	InFlight           *Gauge
}

// NewQAMetrics creates the question-answering metrics on a fresh registry.
func NewQAMetrics() *QAMetrics {
	r := NewMetricsRegistry()

	m := &QAMetrics{
		Registry:  r,
		questions: make(map[string]*Counter),

		RetrievalDuration:  r.NewHistogram("sportsqa_retrieval_duration_seconds", "Vector search duration", nil, nil),
		GenerationDuration: r.NewHistogram("sportsqa_generation_duration_seconds", "Answer generation duration", nil, nil),
		ClosestDistance: r.NewHistogram("sportsqa_closest_distance", "Distance of the nearest retrieved document", nil,
			[]float64{0.2, 0.4, 0.6, 0.8, 1.0, 1.2, 1.5, 2.0}),
		LLMErrorsTotal:  r.NewCounter("sportsqa_llm_errors_total", "Failed generation calls", nil),
		RetrievalErrors: r.NewCounter("sportsqa_retrieval_errors_total", "Failed vector searches", nil),
		InFlight:        r.NewGauge("sportsqa_questions_in_flight", "Questions currently being answered", nil),
	}
	for _, o := range []string{OutcomeAnswered, OutcomeNoContext, OutcomeEmpty, OutcomeError} {
		m.questions[o] = r.NewCounter("sportsqa_questions_total", "Questions by outcome",
			map[string]string{"outcome": o})
	}
	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *QAMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordQuestion counts a finished question by outcome.
func (m *QAMetrics) RecordQuestion(outcome string) {
	c, ok := m.questions[outcome]
	if !ok {
		c = m.Registry.NewCounter("sportsqa_questions_total", "Questions by outcome",
			map[string]string{"outcome": outcome})
	}
	c.Inc()
}

// Questions returns the count for an outcome.
func (m *QAMetrics) Questions(outcome string) float64 {
	if c, ok := m.questions[outcome]; ok {
		return c.Value()
	}
	return 0
}

// RecordRetrieval records a vector search.
func (m *QAMetrics) RecordRetrieval(duration time.Duration, distances []float64, err error) {
	m.RetrievalDuration.Observe(duration.Seconds())
	if err != nil {
		m.RetrievalErrors.Inc()
		return
	}
	if len(distances) > 0 {
		m.ClosestDistance.Observe(distances[0])
	}
}

// RecordGeneration records a generation call.
func (m *QAMetrics) RecordGeneration(duration time.Duration, err error) {
	m.GenerationDuration.Observe(duration.Seconds())
	if err != nil {
		m.LLMErrorsTotal.Inc()
	}
}
