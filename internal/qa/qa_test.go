package qa

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/efebarandurmaz/sportsqa/internal/answer"
	"github.com/efebarandurmaz/sportsqa/internal/docstore"
	"github.com/efebarandurmaz/sportsqa/internal/docstore/docstoretest"
	"github.com/efebarandurmaz/sportsqa/internal/guard"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
	"github.com/efebarandurmaz/sportsqa/internal/vector"
)

type fakeSearcher struct {
	calls []string
	res   docstore.QueryResult
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, q string, _ int) (docstore.QueryResult, error) {
	f.calls = append(f.calls, q)
	return f.res, f.err
}

type recordingGenerator struct {
	calls int
	reply string
	err   error
}

func (g *recordingGenerator) Generate(context.Context, string, int) (string, error) {
	g.calls++
	return g.reply, g.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func result(distances ...float64) docstore.QueryResult {
	r := docstore.QueryResult{Distances: distances}
	for i := range distances {
		id := "doc" + string(rune('1'+i))
		r.IDs = append(r.IDs, id)
		r.Documents = append(r.Documents, "text of "+id)
	}
	return r
}

func TestAsk_EmptyQuestionSkipsSearch(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		s := &fakeSearcher{}
		gen := &recordingGenerator{}
		svc := New(s, answer.New(gen, 0), DefaultOptions(), quietLogger())

		ans, err := svc.Ask(context.Background(), q)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", q, err)
		}
		if ans.Outcome != OutcomeEmptyQuestion || ans.Text != EmptyQuestion {
			t.Errorf("%q: unexpected answer %+v", q, ans)
		}
		if len(s.calls) != 0 || gen.calls != 0 {
			t.Errorf("%q: expected no search or generation, got %d/%d", q, len(s.calls), gen.calls)
		}
	}
}

func TestAsk_FarContextRefusesWithoutGenerating(t *testing.T) {
	s := &fakeSearcher{res: result(0.95, 1.1, 1.3)}
	gen := &recordingGenerator{reply: "should not be used"}
	svc := New(s, answer.New(gen, 0), DefaultOptions(), quietLogger())

	ans, err := svc.Ask(context.Background(), "What is the best pizza topping?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != guard.Refusal || ans.Outcome != OutcomeNoContext {
		t.Errorf("expected refusal, got %+v", ans)
	}
	if gen.calls != 0 {
		t.Errorf("generator should not be called, got %d calls", gen.calls)
	}
}

func TestAsk_EmptyResultRefuses(t *testing.T) {
	gen := &recordingGenerator{}
	svc := New(&fakeSearcher{}, answer.New(gen, 0), DefaultOptions(), quietLogger())

	ans, err := svc.Ask(context.Background(), "anything")
	if err != nil || ans.Text != guard.Refusal || gen.calls != 0 {
		t.Errorf("expected refusal without generation, got %+v err=%v calls=%d", ans, err, gen.calls)
	}
}

func TestAsk_RelevantContextGeneratesOnceAndTrims(t *testing.T) {
	s := &fakeSearcher{res: result(0.2, 0.5, 0.9)}
	gen := &recordingGenerator{reply: "   Wearables track recovery.\n"}
	svc := New(s, answer.New(gen, 0), DefaultOptions(), quietLogger())

	ans, err := svc.Ask(context.Background(), "  How has technology changed athlete performance? ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("expected one generation call, got %d", gen.calls)
	}
	if ans.Text != "Wearables track recovery." || ans.Outcome != OutcomeAnswered {
		t.Errorf("unexpected answer %+v", ans)
	}
	if strings.Join(ans.Sources, ",") != "doc1,doc2,doc3" {
		t.Errorf("unexpected sources %v", ans.Sources)
	}
	if s.calls[0] != "How has technology changed athlete performance?" {
		t.Errorf("question should be trimmed before search, got %q", s.calls[0])
	}
}

func TestAsk_ThresholdIsConfigurable(t *testing.T) {
	s := &fakeSearcher{res: result(1.1)}
	gen := &recordingGenerator{reply: "ok"}
	opts := DefaultOptions()
	opts.Threshold = 1.2

	ans, err := New(s, answer.New(gen, 0), opts, quietLogger()).Ask(context.Background(), "q")
	if err != nil || ans.Outcome != OutcomeAnswered {
		t.Errorf("expected answer under raised threshold, got %+v err=%v", ans, err)
	}
}

func TestAsk_RetrievalError(t *testing.T) {
	boom := errors.New("qdrant unreachable")
	gen := &recordingGenerator{}
	svc := New(&fakeSearcher{err: boom}, answer.New(gen, 0), DefaultOptions(), quietLogger())

	_, err := svc.Ask(context.Background(), "q")
	if !errors.Is(err, ErrRetrieval) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrRetrieval wrapping cause, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator should not run after a failed search")
	}
	if UserMessage(err) != Unavailable {
		t.Errorf("unexpected user message %q", UserMessage(err))
	}
}

func TestAsk_GenerationErrorIsDistinctFromRefusal(t *testing.T) {
	boom := errors.New("503 model loading")
	svc := New(&fakeSearcher{res: result(0.3)}, answer.New(&recordingGenerator{err: boom}, 0), DefaultOptions(), quietLogger())

	_, err := svc.Ask(context.Background(), "q")
	if !errors.Is(err, ErrGeneration) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrGeneration wrapping cause, got %v", err)
	}
	if UserMessage(err) == guard.Refusal {
		t.Error("degraded message must differ from the refusal")
	}
	if UserMessage(nil) != "" {
		t.Error("nil error should give empty message")
	}
}

func TestAsk_RecordsMetrics(t *testing.T) {
	m := observability.NewQAMetrics()
	opts := DefaultOptions()
	opts.Metrics = m
	gen := &recordingGenerator{reply: "ok"}

	svc := New(&fakeSearcher{res: result(0.3)}, answer.New(gen, 0), opts, quietLogger())
	svc.Ask(context.Background(), "q")
	svc.Ask(context.Background(), "")

	far := New(&fakeSearcher{res: result(1.5)}, answer.New(gen, 0), opts, quietLogger())
	far.Ask(context.Background(), "q")

	broken := New(&fakeSearcher{err: errors.New("down")}, answer.New(gen, 0), opts, quietLogger())
	broken.Ask(context.Background(), "q")

	for outcome, want := range map[string]float64{
		observability.OutcomeAnswered:  1,
		observability.OutcomeEmpty:     1,
		observability.OutcomeNoContext: 1,
		observability.OutcomeError:     1,
	} {
		if got := m.Questions(outcome); got != want {
			t.Errorf("%s: expected %v, got %v", outcome, want, got)
		}
	}
	if m.InFlight.Value() != 0 {
		t.Errorf("in-flight gauge should return to 0, got %v", m.InFlight.Value())
	}
}

// End-to-end over the built-in corpus with a deterministic embedder.
func newCorpusService(t *testing.T, gen answer.Generator) *Service {
	t.Helper()
	col, err := docstore.Initialize(context.Background(), docstore.Options{
		Repo:     vector.NewMemory(vector.SpaceL2),
		Embedder: &docstoretest.TopicEmbedder{},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return New(col, answer.New(gen, 0), DefaultOptions(), quietLogger())
}

func TestScenario_OlympicsEconomics(t *testing.T) {
	gen := &recordingGenerator{reply: " Benefits are often short-lived. "}
	ans, err := newCorpusService(t, gen).Ask(context.Background(), "What is the economic impact of hosting the Olympics?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Outcome != OutcomeAnswered || gen.calls != 1 {
		t.Fatalf("expected generation, got %+v (calls %d)", ans, gen.calls)
	}
	found := false
	for i, id := range ans.Sources {
		if id == "doc4" && ans.Distances[i] < 0.8 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected doc4 within threshold in %v %v", ans.Sources, ans.Distances)
	}
	if ans.Text != "Benefits are often short-lived." {
		t.Errorf("unexpected text %q", ans.Text)
	}
}

func TestScenario_PizzaIsRefused(t *testing.T) {
	gen := &recordingGenerator{reply: "pepperoni"}
	ans, err := newCorpusService(t, gen).Ask(context.Background(), "What is the best pizza topping?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != guard.Refusal {
		t.Errorf("expected refusal verbatim, got %q", ans.Text)
	}
	if gen.calls != 0 {
		t.Errorf("generator should not be called, got %d", gen.calls)
	}
}
