package tui

import (
	"context"
	"time"

	"github.com/efebarandurmaz/sportsqa/internal/qa"
)

// Asker answers questions. *qa.Service implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (qa.Answer, error)
}

// Exchange is one question and its result.
type Exchange struct {
	Question string
	Answer   qa.Answer
	Err      error
	AskedAt  time.Time
	Took     time.Duration
}

// Status returns the outcome label of the exchange.
func (e *Exchange) Status() string {
	if e.Err != nil {
		return "error"
	}
	return string(e.Answer.Outcome)
}

// Session holds the exchanges of one chat.
type Session struct {
	Exchanges []*Exchange
	Threshold float64
	StartedAt time.Time
}

// NewSession creates an empty session.
func NewSession(threshold float64) *Session {
	return &Session{StartedAt: time.Now(), Threshold: threshold}
}

// Counts tallies exchanges by status.
func (s *Session) Counts() map[string]int {
	counts := make(map[string]int)
	for _, e := range s.Exchanges {
		counts[e.Status()]++
	}
	return counts
}
