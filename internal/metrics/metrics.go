// Package metrics builds the per-question stage report printed by
// "sportsqa ask --report".
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/efebarandurmaz/sportsqa/internal/qa"
)

// QuestionReport collects statistics for answering one question.
type QuestionReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Duration   time.Duration  `json:"duration_ms,omitempty"`
	Question   string         `json:"question"`
	Outcome    string         `json:"outcome"`
	Provider   string         `json:"provider"`
	Collection string         `json:"collection"`
	Threshold  float64        `json:"threshold"`
	Stages     []StageMetrics `json:"stages"`
	Sources    []SourceMetric `json:"sources"`
	Errors     []string       `json:"errors,omitempty"`
}

type StageMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Status   string        `json:"status"`
}

type SourceMetric struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
	Relevant bool    `json:"relevant"`
}

// New starts tracking a question.
func New(question, provider, collection string, threshold float64) *QuestionReport {
	return &QuestionReport{
		StartedAt:  time.Now(),
		Question:   question,
		Provider:   provider,
		Collection: collection,
		Threshold:  threshold,
	}
}

// AddStage records a single stage's timing and status.
func (r *QuestionReport) AddStage(name string, d time.Duration, status string) {
	r.Stages = append(r.Stages, StageMetrics{Name: name, Duration: d, Status: status})
}

// Finish fills the report from the service result.
func (r *QuestionReport) Finish(ans qa.Answer, err error) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.Outcome = string(ans.Outcome)

	for i, id := range ans.Sources {
		d := ans.Distances[i]
		r.Sources = append(r.Sources, SourceMetric{ID: id, Distance: d, Relevant: d <= r.Threshold})
	}

	switch {
	case ans.Outcome == qa.OutcomeEmptyQuestion:
		r.AddStage("retrieval", 0, "skipped")
		r.AddStage("generation", 0, "skipped")
	case err != nil && ans.Timings.Generation == 0:
		r.AddStage("retrieval", ans.Timings.Retrieval, "failed")
		r.AddStage("generation", 0, "skipped")
	case err != nil:
		r.AddStage("retrieval", ans.Timings.Retrieval, "OK")
		r.AddStage("generation", ans.Timings.Generation, "failed")
	case ans.Outcome == qa.OutcomeNoContext:
		r.AddStage("retrieval", ans.Timings.Retrieval, "OK")
		r.AddStage("generation", 0, "skipped")
	default:
		r.AddStage("retrieval", ans.Timings.Retrieval, "OK")
		r.AddStage("generation", ans.Timings.Generation, "OK")
	}

	if err != nil {
		r.Outcome = "error"
		r.Errors = append(r.Errors, err.Error())
	}
}

// PrintSummary writes a human-readable summary.
func (r *QuestionReport) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║         SPORTSQA ANSWER REPORT       ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Outcome:     %-23s║\n", r.Outcome)
	fmt.Fprintf(w, "║ Provider:    %-23s║\n", truncate(r.Provider, 23))
	fmt.Fprintf(w, "║ Collection:  %-23s║\n", truncate(r.Collection, 23))
	fmt.Fprintf(w, "║ Threshold:   %-23.2f║\n", r.Threshold)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STAGES\n")
	for _, s := range r.Stages {
		fmt.Fprintf(w, "║   %-12s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), s.Status)
	}
	if len(r.Sources) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ SOURCES\n")
		for _, s := range r.Sources {
			mark := " "
			if s.Relevant {
				mark = "✓"
			}
			fmt.Fprintf(w, "║   %s %-8s distance %.4f\n", mark, s.ID, s.Distance)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (r *QuestionReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
