package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SummaryModel displays the session summary after the chat ends
type SummaryModel struct {
	session  *Session
	styles   *Styles
	width    int
	height   int
	quitting bool
}

// NewSummaryModel creates a new summary screen
func NewSummaryModel(session *Session) SummaryModel {
	return SummaryModel{
		session: session,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Session Summary"))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatsTable(m.session.Counts()))
	b.WriteString("\n")

	failed := 0
	for _, e := range m.session.Exchanges {
		if e.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		b.WriteString(m.styles.Subtitle.Render("Questions that could not be answered:"))
		b.WriteString("\n\n")
		for _, e := range m.session.Exchanges {
			if e.Err != nil {
				b.WriteString(m.renderFailure(e))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("Press enter to exit"))
	return b.String()
}

func (m SummaryModel) renderStatsTable(counts map[string]int) string {
	var b strings.Builder

	b.WriteString(m.styles.Subtitle.Render("Statistics"))
	b.WriteString("\n\n")

	row := func(label string, n int, color string) {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		fmt.Fprintf(&b, "  %-22s %s\n", label, style.Render(fmt.Sprintf("%d", n)))
	}
	fmt.Fprintf(&b, "  %-22s %d\n", "Questions asked:", len(m.session.Exchanges))
	row("Answered:", counts["answered"], ColorGreen)
	row("Outside the documents:", counts["no_context"], ColorYellow)
	row("Empty:", counts["empty_question"], ColorGray)
	row("Failed:", counts["error"], ColorRed)

	return b.String()
}

func (m SummaryModel) renderFailure(e *Exchange) string {
	return fmt.Sprintf("  %s %s (%s)\n",
		m.styles.StatusFailed.Render("FAILED"),
		e.Question,
		e.Took.Round(time.Millisecond))
}
