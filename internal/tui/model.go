package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragdemo/internal/domain"
	"ragdemo/internal/service"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Search(docs []domain.Document, query string, topK int) (*service.SearchOutput, error)
	AnswerFrom(ctx context.Context, query string, sources []domain.ScoredChunk, onDelta func(string)) (string, error)
}

const askTimeout = 2 * time.Minute

// answerMsg carries the generated answer back into the update loop.
type answerMsg struct {
	answer string
	err    error
}

// Model is the Bubble Tea model for the interactive search UI.
type Model struct {
	service   RAGPort
	docs      []domain.Document
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.ScoredChunk
	summary   string
	status    string
	answer    string
	asking    bool
	cursor    int
	ready     bool
	lastQuery string
	topK      int
}

// New creates a new TUI model over the given document set.
func New(svc RAGPort, docs []domain.Document, summary string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter; Tab asks the model"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 5
	}
	return Model{
		service:  svc,
		docs:     docs,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   fmt.Sprintf("Loaded %d document(s). Type to search.", len(docs)),
		topK:     topK,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case answerMsg:
		m.asking = false
		if msg.err != nil {
			m.status = "Generation error: " + msg.err.Error()
		} else {
			m.answer = msg.answer
			m.status = fmt.Sprintf("Answer for %q", m.lastQuery)
		}
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				out, err := m.service.Search(m.docs, q, m.topK)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.results = nil
				} else if len(out.Results) == 0 {
					m.status = fmt.Sprintf("No relevant content found for %q (%d chunks scored)", q, out.ChunkCount)
					m.results = nil
				} else {
					m.status = fmt.Sprintf("%d result(s) for %q across %d chunks", len(out.Results), q, out.ChunkCount)
					m.results = out.Results
				}
				m.cursor = 0
				m.answer = ""
				m.lastQuery = q
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "tab":
			if len(m.results) > 0 && !m.asking {
				m.asking = true
				m.status = "Generating answer..."
				return m, m.askCmd()
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd generates an answer from the current results off the update loop.
func (m Model) askCmd() tea.Cmd {
	svc, query, sources := m.service, m.lastQuery, m.results
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		answer, err := svc.AnswerFrom(ctx, query, sources, nil)
		return answerMsg{answer: answer, err: err}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Demo")
	summary := summaryStyle.Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f  %s (chunk %d)",
		m.cursor+1, len(m.results), r.Score, r.DocName, r.ID)
	matches := "matched: " + strings.Join(r.TermMatches, ", ")
	body := highlightTerms(r.Text, r.TermMatches)
	out := title + "\n" + matchStyle.Render(matches) + "\n\n" + body
	if m.answer != "" {
		out += "\n\n" + answerTitleStyle.Render("Answer") + "\n" + m.answer
	}
	return out
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	summaryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	matchStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	wordRe           = regexp.MustCompile(`[A-Za-z0-9]+`)
)

// highlightTerms emphasizes every occurrence of a matched query term.
func highlightTerms(text string, terms []string) string {
	if len(terms) == 0 {
		return text
	}
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return wordRe.ReplaceAllStringFunc(text, func(word string) string {
		if _, ok := set[strings.ToLower(word)]; ok {
			return highlightStyle.Render(word)
		}
		return word
	})
}
