package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/efebarandurmaz/sportsqa/internal/guard"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
	"github.com/efebarandurmaz/sportsqa/internal/qa"
	"github.com/efebarandurmaz/sportsqa/internal/uitext"
)

type fakeAsker struct {
	questions []string
	ans       qa.Answer
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, q string) (qa.Answer, error) {
	f.questions = append(f.questions, q)
	return f.ans, f.err
}

func newTestServer(t *testing.T, asker Asker) *Server {
	t.Helper()
	s, err := New(Config{Addr: ":0"}, asker, NewHealthServer(""), observability.NewQAMetrics(),
		slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func postForm(t *testing.T, s *Server, question string) string {
	t.Helper()
	form := url.Values{"question": {question}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	return html.UnescapeString(w.Body.String())
}

func TestIndex_RendersPage(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := html.UnescapeString(w.Body.String())
	for _, want := range []string{
		uitext.Title, uitext.Welcome, uitext.Subtitle, uitext.Intro,
		uitext.InputLabel, uitext.Button, uitext.HelpTitle,
		"<details>", "Sports economics", "How is social media influencing the sports industry?",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, uitext.Success) {
		t.Error("success notice should not render without a question")
	}
}

func TestIndex_UnknownPath(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestIndex_PostAnswered(t *testing.T) {
	asker := &fakeAsker{ans: qa.Answer{
		Outcome: qa.OutcomeAnswered,
		Text:    "Wearables like WHOOP track recovery.",
		Sources: []string{"doc1", "doc5"},
	}}
	body := postForm(t, newTestServer(t, asker), "How has technology changed athlete performance?")

	if asker.questions[0] != "How has technology changed athlete performance?" {
		t.Errorf("unexpected question %q", asker.questions[0])
	}
	for _, want := range []string{uitext.AnswerHeading, "Wearables like WHOOP track recovery.", uitext.Success, uitext.Tip, "doc1, doc5"} {
		if !strings.Contains(body, want) {
			t.Errorf("answer page missing %q", want)
		}
	}
}

func TestIndex_PostRefusalHasNoSuccessNotice(t *testing.T) {
	asker := &fakeAsker{ans: qa.Answer{Outcome: qa.OutcomeNoContext, Text: guard.Refusal}}
	body := postForm(t, newTestServer(t, asker), "What is the best pizza topping?")

	if !strings.Contains(body, guard.Refusal) {
		t.Error("expected refusal text")
	}
	if strings.Contains(body, uitext.Success) {
		t.Error("refusal should not show the success notice")
	}
}

func TestIndex_PostEmpty(t *testing.T) {
	asker := &fakeAsker{ans: qa.Answer{Outcome: qa.OutcomeEmptyQuestion, Text: qa.EmptyQuestion}}
	body := postForm(t, newTestServer(t, asker), "")
	if !strings.Contains(body, uitext.EmptyWarning) {
		t.Error("expected empty-question warning")
	}
	if strings.Contains(body, uitext.AnswerHeading) {
		t.Error("empty question should not render an answer block")
	}
}

func TestIndex_PostFailureShowsDegradedMessage(t *testing.T) {
	asker := &fakeAsker{err: fmt.Errorf("%w: timeout", qa.ErrGeneration)}
	body := postForm(t, newTestServer(t, asker), "q")
	if !strings.Contains(body, qa.Unavailable) {
		t.Error("expected degraded message")
	}
	if strings.Contains(body, guard.Refusal) {
		t.Error("failure must not look like a refusal")
	}
}

func TestIndex_EscapesQuestion(t *testing.T) {
	asker := &fakeAsker{ans: qa.Answer{Outcome: qa.OutcomeNoContext, Text: guard.Refusal}}
	s := newTestServer(t, asker)
	form := url.Values{"question": {`"><script>alert(1)</script>`}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if strings.Contains(w.Body.String(), "<script>alert(1)</script>") {
		t.Fatal("question should be HTML-escaped")
	}
}

func TestAPIAsk(t *testing.T) {
	asker := &fakeAsker{ans: qa.Answer{
		Outcome:   qa.OutcomeAnswered,
		Text:      "Costs often exceed benefits.",
		Sources:   []string{"doc4"},
		Distances: []float64{0.21},
	}}
	s := newTestServer(t, asker)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "Are major sporting events economically beneficial?"}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %s", ct)
	}
	var resp AskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Outcome != "answered" || resp.Answer != "Costs often exceed benefits." || resp.Sources[0] != "doc4" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAPIAsk_EmptyListsNotNull(t *testing.T) {
	s := newTestServer(t, &fakeAsker{ans: qa.Answer{Outcome: qa.OutcomeEmptyQuestion, Text: qa.EmptyQuestion}})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": ""}`)))

	if !strings.Contains(w.Body.String(), `"sources":[]`) {
		t.Errorf("expected empty sources array, got %s", w.Body.String())
	}
}

func TestAPIAsk_Failure(t *testing.T) {
	s := newTestServer(t, &fakeAsker{err: fmt.Errorf("%w: down", qa.ErrRetrieval)})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "q"}`)))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp AskResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Outcome != "error" || resp.Answer != qa.Unavailable {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAPIAsk_BadRequests(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ask", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", w.Code)
	}
}

func TestHealthAndMetricsMounted(t *testing.T) {
	s := newTestServer(t, &fakeAsker{err: errors.New("x")})
	s.health.RegisterCheck("vector_store", VectorStoreHealthChecker("docs", func(context.Context) (int, error) { return 5, nil }))
	s.health.SetReady(true)

	for _, path := range []string{"/health", "/readyz", "/live"} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"q"}`)))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "sportsqa_questions_total") {
		t.Errorf("metrics endpoint missing question counter:\n%s", w.Body.String())
	}
}

func TestStop_MarksUnready(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})
	s.health.SetReady(true)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	w := httptest.NewRecorder()
	s.health.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after stop, got %d", w.Code)
	}
}
