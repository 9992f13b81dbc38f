package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs a recording tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestInitTracing_Disabled(t *testing.T) {
	for _, cfg := range []*TracingConfig{nil, {ServiceName: "test"}} {
		tp, err := InitTracing(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tp.Enabled() || tp.Tracer() == nil {
			t.Errorf("expected a disabled provider with a no-op tracer")
		}
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	}
}

func TestSamplerFor(t *testing.T) {
	tests := map[float64]string{
		1:    "ParentBased{root:AlwaysOnSampler",
		2:    "ParentBased{root:AlwaysOnSampler",
		0:    "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "ParentBased{root:TraceIDRatioBased{0.25}",
	}
	for rate, want := range tests {
		if got := samplerFor(rate).Description(); !strings.HasPrefix(got, want) {
			t.Errorf("samplerFor(%v) = %s, want prefix %s", rate, got, want)
		}
	}
}

func TestSpanNames(t *testing.T) {
	rec := recordSpans(t)
	ctx := context.Background()

	ctx, ask := StartAskSpan(ctx, 42)
	sctx, search := StartRetrievalSpan(ctx, "docs", 3)
	RecordRetrieval(search, []float64{0.2, 0.5, 0.9})
	search.End()
	_, gen := StartLLMSpan(sctx, "huggingface", "google/flan-t5-small")
	RecordLLMMetrics(gen, 100, 20, 300*time.Millisecond)
	gen.End()
	RecordOutcome(ask, OutcomeAnswered, []string{"doc4"})
	ask.End()

	ended := rec.Ended()
	if len(ended) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(ended))
	}
	want := []string{"docstore.search", "llm.generate", "qa.ask"}
	for i, s := range ended {
		if s.Name() != want[i] {
			t.Errorf("span %d: expected %s, got %s", i, want[i], s.Name())
		}
	}

	if v, ok := attr(ended[0], "docstore.result_count"); !ok || v.AsInt64() != 3 {
		t.Errorf("expected result_count 3, got %v", v)
	}
	if v, ok := attr(ended[1], "llm.total_tokens"); !ok || v.AsInt64() != 120 {
		t.Errorf("expected total_tokens 120, got %v", v)
	}
	if v, ok := attr(ended[2], "qa.outcome"); !ok || v.AsString() != OutcomeAnswered {
		t.Errorf("expected outcome answered, got %v", v)
	}
	if ended[0].Parent().SpanID() != ended[2].SpanContext().SpanID() {
		t.Error("search span should be a child of the ask span")
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartLLMSpan(context.Background(), "openai", "gpt-4o-mini")

	// Should not panic with nil
	RecordError(span, nil)
	RecordError(span, errors.New("upstream timeout"))
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", s.Status().Code)
	}
	if s.Status().Description != "upstream timeout" {
		t.Fatalf("unexpected status description %q", s.Status().Description)
	}
}

func TestTracerName(t *testing.T) {
	if TracerName != "github.com/efebarandurmaz/sportsqa" {
		t.Fatalf("unexpected tracer name: %s", TracerName)
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	err := tp.Shutdown(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for nil provider, got: %v", err)
	}
}
