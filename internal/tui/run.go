package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunChat starts the interactive chat, then shows the session summary.
// Returns the recorded session.
func RunChat(ctx context.Context, asker Asker, threshold float64) (*Session, error) {
	chat := NewChatModel(ctx, asker, NewSession(threshold))
	p := tea.NewProgram(chat, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	final := finalModel.(ChatModel)

	sp := tea.NewProgram(NewSummaryModel(final.session), tea.WithAltScreen())
	if _, err := sp.Run(); err != nil {
		return nil, fmt.Errorf("summary error: %w", err)
	}

	return final.session, nil
}

// Transcript is the JSON structure for a saved chat session
type Transcript struct {
	Timestamp string            `json:"timestamp"`
	Threshold float64           `json:"threshold"`
	Entries   []TranscriptEntry `json:"entries"`
	Summary   map[string]int    `json:"summary"`
}

// TranscriptEntry is a single question in the transcript
type TranscriptEntry struct {
	Question   string    `json:"question"`
	Outcome    string    `json:"outcome"`
	Answer     string    `json:"answer"`
	Sources    []string  `json:"sources,omitempty"`
	Distances  []float64 `json:"distances,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// BuildTranscript converts a session into its saved form.
func BuildTranscript(session *Session) Transcript {
	entries := make([]TranscriptEntry, 0, len(session.Exchanges))
	for _, e := range session.Exchanges {
		entry := TranscriptEntry{
			Question:   e.Question,
			Outcome:    e.Status(),
			Answer:     e.Answer.Text,
			Sources:    e.Answer.Sources,
			Distances:  e.Answer.Distances,
			DurationMs: e.Took.Milliseconds(),
		}
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
		entries = append(entries, entry)
	}

	return Transcript{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Threshold: session.Threshold,
		Entries:   entries,
		Summary:   session.Counts(),
	}
}

// SaveTranscript writes a JSON transcript of the chat session.
func SaveTranscript(session *Session, outputPath string) error {
	data, err := json.MarshalIndent(BuildTranscript(session), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	return nil
}
