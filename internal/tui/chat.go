package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/sportsqa/internal/qa"
	"github.com/efebarandurmaz/sportsqa/internal/uitext"
)

type answerMsg struct {
	exchange *Exchange
}

type ChatModel struct {
	ctx      context.Context
	asker    Asker
	session  *Session
	styles   *Styles
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	showHelp bool
	asking   bool
	width    int
	height   int
	quitting bool
}

type keyMap struct {
	Submit     key.Binding
	ToggleHelp key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Quit       key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Submit, km.ToggleHelp, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Submit, km.ToggleHelp},
		{km.ScrollUp, km.ScrollDown, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", uitext.Button),
		),
		ToggleHelp: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// NewChatModel creates the chat screen.
func NewChatModel(ctx context.Context, asker Asker, session *Session) ChatModel {
	ti := textinput.New()
	ti.Placeholder = uitext.InputLabel
	ti.CharLimit = 500
	ti.Width = 70
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := DefaultStyles()
	sp.Style = styles.Spinner

	return ChatModel{
		ctx:      ctx,
		asker:    asker,
		session:  session,
		styles:   styles,
		input:    ti,
		viewport: viewport.New(80, 16),
		spinner:  sp,
		help:     help.New(),
		keys:     newKeyMap(),
		width:    80,
		height:   24,
	}
}

// Session returns the session being recorded.
func (m ChatModel) Session() *Session { return m.session }

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatModel) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ans, err := m.asker.Ask(m.ctx, question)
		return answerMsg{exchange: &Exchange{
			Question: strings.TrimSpace(question),
			Answer:   ans,
			Err:      err,
			AskedAt:  start,
			Took:     time.Since(start),
		}}
	}
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = max(msg.Height-10, 3)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case answerMsg:
		m.asking = false
		m.session.Exchanges = append(m.session.Exchanges, msg.exchange)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.asking {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.ToggleHelp):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case key.Matches(msg, m.keys.Submit):
			if m.asking {
				return m, nil
			}
			question := m.input.Value()
			m.input.SetValue("")
			m.asking = true
			return m, tea.Batch(m.spinner.Tick, m.askCmd(question))
		}

		if m.asking {
			return m, nil
		}
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.styles.Title.Render(uitext.Welcome),
		m.styles.Subtitle.Render(uitext.Subtitle),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelpPanel())
	}
	sections = append(sections, m.viewport.View())

	if m.asking {
		sections = append(sections, m.spinner.View()+" "+m.styles.Muted.Render(uitext.Spinner))
	} else {
		sections = append(sections, m.styles.ActiveBorder.Render(m.input.View()))
	}
	sections = append(sections, m.styles.Help.Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ChatModel) renderHelpPanel() string {
	var b strings.Builder
	b.WriteString(uitext.HelpTitle + "\n\n")
	for _, t := range uitext.Topics {
		b.WriteString("  • " + t + "\n")
	}
	b.WriteString("\n")
	for i, step := range uitext.HelpSteps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}
	b.WriteString("\n")
	for _, ex := range uitext.Examples {
		b.WriteString("  \"" + ex + "\"\n")
	}
	return m.styles.Border.Render(strings.TrimRight(b.String(), "\n"))
}

func (m ChatModel) renderTranscript() string {
	if len(m.session.Exchanges) == 0 {
		return m.styles.Muted.Render(uitext.Intro)
	}

	blockWidth := max(m.width-6, 20)
	var parts []string
	for _, e := range m.session.Exchanges {
		parts = append(parts, m.renderExchange(e, blockWidth))
	}
	return strings.Join(parts, "\n\n")
}

func (m ChatModel) renderExchange(e *Exchange, width int) string {
	if e.Err == nil && e.Answer.Outcome == qa.OutcomeEmptyQuestion {
		return m.styles.Warning.Render(uitext.EmptyWarning)
	}

	lines := []string{m.styles.Question.Render("› " + e.Question)}
	if e.Err != nil {
		lines = append(lines,
			m.styles.StatusFailed.Render("unavailable"),
			m.styles.AnswerBlock.Width(width).Render(qa.UserMessage(e.Err)))
		return strings.Join(lines, "\n")
	}

	lines = append(lines,
		m.styles.Title.UnsetMarginBottom().Render(uitext.AnswerHeading),
		m.styles.AnswerBlock.Width(width).Render(e.Answer.Text))

	if len(e.Answer.Sources) > 0 {
		badges := make([]string, 0, len(e.Answer.Sources))
		for i, id := range e.Answer.Sources {
			d := e.Answer.Distances[i]
			badges = append(badges, DistanceColor(d, m.session.Threshold).Render(fmt.Sprintf("%s %.2f", id, d)))
		}
		lines = append(lines, strings.Join(badges, " "))
	}
	if e.Answer.Outcome == qa.OutcomeAnswered {
		lines = append(lines, m.styles.StatusSuccess.Render(uitext.Success))
	}
	lines = append(lines, m.styles.Info.Render(uitext.Tip))
	return strings.Join(lines, "\n")
}
