package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/halit-vural/autorag/internal/models"
	"github.com/halit-vural/autorag/internal/parsing"
	"github.com/halit-vural/autorag/internal/session"
)

// Handler runs one session cycle. *session.Controller implements it.
type Handler interface {
	Handle(ctx context.Context, s *session.State, ev session.Event) (*session.View, error)
}

type cycleDoneMsg struct {
	view *session.View
	err  error

	// notice is set when the request was rejected before reaching the controller.
	notice *session.Notice
}

type progressMsg session.Notice

// Model is the Bubble Tea model of the chat terminal. It owns one session.
type Model struct {
	ctx      context.Context
	handler  Handler
	state    *session.State
	progress chan session.Notice

	input    textinput.Model
	viewport viewport.Model
	view     *session.View
	notices  []session.Notice
	status   string
	extra    string
	busy     bool
	ready    bool
}

// New creates the model. The first cycle starts with Init and loads the greeting or the run's history.
func New(ctx context.Context, handler Handler) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask me anything! (/help for commands)"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		ctx:      ctx,
		handler:  handler,
		state:    session.NewState(),
		progress: make(chan session.Notice, 16),
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Loading...",
		busy:     true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForProgress(), m.runCycle(request{}))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header lines, status, input box
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.input.Width = max(10, msg.Width-ih-4)
		m.refresh()
		return m, nil

	case progressMsg:
		// Progress sent by a finished cycle can arrive after its cycleDoneMsg.
		if m.busy {
			m.status = msg.Text
		}
		return m, m.waitForProgress()

	case cycleDoneMsg:
		m.busy = false
		if msg.notice != nil {
			m.status = ""
			m.notices = []session.Notice{*msg.notice}
			return m, nil
		}
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.view = msg.view
		m.notices = msg.view.Notices
		m.status = ""
		m.extra = ""
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter. Input is ignored while a cycle is running.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.Reset()

	req, err := parseInput(line, m.selection())
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	switch {
	case req.quit:
		return m, tea.Quit
	case req.showHelp:
		m.extra = help()
		m.refresh()
		return m, nil
	case req.showRuns:
		m.extra = m.runList()
		m.refresh()
		return m, nil
	}

	m.busy = true
	m.status = "Thinking..."
	return m, m.runCycle(req)
}

func (m Model) selection() session.Selection {
	return session.Selection{LLMModel: m.state.LLMModel, EmbeddingsModel: m.state.EmbeddingsModel}
}

// runCycle hands the request to the controller off the UI goroutine.
// The state is only touched there while busy is set.
func (m Model) runCycle(req request) tea.Cmd {
	ctx, handler, state, progress := m.ctx, m.handler, m.state, m.progress
	ev := req.event

	return func() tea.Msg {
		ev.Progress = func(n session.Notice) {
			select {
			case progress <- n:
			default:
			}
		}

		if req.pdfPath != "" {
			upload, notice := readUpload(req.pdfPath)
			if notice != nil {
				return cycleDoneMsg{notice: notice}
			}
			ev.Upload = upload
		}

		view, err := handler.Handle(ctx, state, ev)
		return cycleDoneMsg{view: view, err: err}
	}
}

func (m Model) waitForProgress() tea.Cmd {
	progress := m.progress
	return func() tea.Msg {
		return progressMsg(<-progress)
	}
}

func readUpload(path string) (*session.Upload, *session.Notice) {
	if !parsing.IsPDF(path) {
		return nil, &session.Notice{Level: session.LevelError, Text: "Please upload a PDF file"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &session.Notice{Level: session.LevelError, Text: "Could not read PDF: " + err.Error()}
	}
	return &session.Upload{Name: filepath.Base(path), Data: data}, nil
}

func (m Model) runList() string {
	if m.view == nil || len(m.view.RunIDs) == 0 {
		return "No runs yet."
	}
	var b strings.Builder
	b.WriteString("Runs (use /run <id>):\n")
	for _, id := range m.view.RunIDs {
		marker := "  "
		if id == m.view.RunID {
			marker = "* "
		}
		b.WriteString(marker + id + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	width := max(20, m.viewport.Width-4)
	var parts []string
	if m.view != nil {
		for _, msg := range m.view.Messages {
			parts = append(parts, renderMessage(msg, width))
		}
	}
	if m.extra != "" {
		parts = append(parts, extraStyle.Width(width).Render(m.extra))
	}
	if len(parts) == 0 {
		return "No messages yet."
	}
	return strings.Join(parts, "\n\n")
}

func renderMessage(msg models.Message, width int) string {
	label := assistantLabelStyle.Render("Assistant")
	if msg.Role == models.RoleUser {
		label = userLabelStyle.Render("You")
	}
	return label + "\n" + lipgloss.NewStyle().Width(width).Render(msg.Content)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := headerStyle.Render("Autonomous RAG")
	info := "not ready"
	if m.view != nil {
		info = fmt.Sprintf("model: %s  embeddings: %s  run: %s", m.view.Selection.LLMModel, m.view.Selection.EmbeddingsModel, m.view.RunID)
	}

	return header + "\n" +
		infoStyle.Render(info) + "\n" +
		transcriptBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		m.renderStatus()
}

func (m Model) renderStatus() string {
	if m.status != "" {
		return infoStyle.Render(m.status)
	}
	rendered := make([]string, 0, len(m.notices))
	for _, n := range m.notices {
		rendered = append(rendered, noticeStyle(n.Level).Render(n.Text))
	}
	return strings.Join(rendered, "  ")
}

var (
	headerStyle         = lipgloss.NewStyle().Bold(true)
	infoStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	transcriptBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userLabelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	extraStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func noticeStyle(level session.Level) lipgloss.Style {
	switch level {
	case session.LevelSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case session.LevelWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case session.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	}
}
