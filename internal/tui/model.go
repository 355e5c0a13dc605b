package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"policyrag/internal/domain"
	"policyrag/internal/embedding/tfidf"
	"policyrag/internal/summarizer"
)

// Asker is the TUI-facing subset of the query service. Both the local engine
// and the remote client implement it.
type Asker interface {
	ProcessQuery(ctx context.Context, question string, topK int) (*domain.QueryResponse, error)
}

type answerMsg struct {
	question string
	resp     *domain.QueryResponse
	err      error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service       Asker
	input         textinput.Model
	viewport      viewport.Model
	resp          *domain.QueryResponse
	summary       string
	status        string
	cursor        int
	ready         bool
	busy          bool
	lastQuery     string
	topK          int
	minConfidence float64
}

// New creates a new TUI model instance.
func New(service Asker, summary string, topK int, minConfidence float64) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a policy question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:       service,
		input:         ti,
		viewport:      vp,
		summary:       summary,
		status:        "Loaded. Ask a question.",
		topK:          topK,
		minConfidence: minConfidence,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.service.ProcessQuery(context.Background(), q, m.topK)
		return answerMsg{question: q, resp: resp, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.resp = nil
		} else {
			m.resp = msg.resp
			m.cursor = 0
			m.lastQuery = msg.question
			m.status = fmt.Sprintf("Answer for %q (%d sources)", msg.question, len(msg.resp.Sources))
		}
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Searching for %q...", q)
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "down":
			if m.resp != nil && len(m.resp.Sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.resp.Sources)
				m.viewport.SetContent(m.renderResponse())
				return m, nil
			}
		case "up":
			if m.resp != nil && len(m.resp.Sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.resp.Sources)) % len(m.resp.Sources)
				m.viewport.SetContent(m.renderResponse())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Policy Q&A")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResponse() string {
	if m.resp == nil {
		return "No answer yet."
	}
	r := m.resp
	var b strings.Builder
	if r.Conflict != nil && r.Conflict.Detected {
		b.WriteString(conflictStyle.Render("Conflicting versions: " + strings.Join(r.Conflict.ConflictingSources, ", ")))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(r.Conflict.Reasoning))
		b.WriteString("\n\n")
	}
	b.WriteString(highlightBestSentence(r.Answer, m.lastQuery))
	b.WriteString("\n\n")
	b.WriteString(m.confidenceStyle(r).Render(fmt.Sprintf("confidence=%.2f", r.Confidence)))
	if len(r.Sources) > 0 {
		b.WriteString("\n\nSources (up/down to select):\n")
		for i, s := range r.Sources {
			line := fmt.Sprintf("%s (%s, %s) relevance=%.3f", s.Title, s.Date, s.Version, s.Relevance)
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) confidenceStyle(r *domain.QueryResponse) lipgloss.Style {
	switch {
	case len(r.Sources) == 0:
		return dimStyle
	case r.Confidence < m.minConfidence:
		return lowStyle
	}
	return okStyle
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	conflictStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	lowStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// highlightBestSentence emphasizes the sentence sharing the most terms with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := summarizer.Sentences(text)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTerms := tfidf.Terms(query)
	if len(qTerms) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := overlap(qTerms, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func overlap(queryTerms map[string]struct{}, sentence string) int {
	score := 0
	for t := range tfidf.Terms(sentence) {
		if _, ok := queryTerms[t]; ok {
			score++
		}
	}
	return score
}
