// Package tui is the interactive chat front end.
package tui

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/pages"
	"docqa/internal/service"
)

// Greeting opens every conversation.
const Greeting = "I'm ready to retrieve information"

// ChatPort is the TUI-facing subset of the service.
type ChatPort interface {
	UploadDocument(ctx context.Context, r io.Reader, filename string, progress pages.ProgressFunc) (service.IngestReport, error)
	Respond(ctx context.Context, history []domain.Message, model string, useKnowledge bool) iter.Seq2[string, error]
}

type entry struct {
	msg domain.Message
	err error
}

type fragmentMsg struct{ text string }

type streamEndMsg struct{ err error }

type uploadMsg struct {
	report service.IngestReport
	err    error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx          context.Context
	service      ChatPort
	modelName    string
	useKnowledge bool

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	entries  []entry
	summary  string
	status   string
	ready    bool
	busy     bool

	// next and stop drive the answer stream. They are only called from
	// Update or from the single pull command in flight.
	next     func() (string, error, bool)
	stop     func()
	stopping bool
}

// New creates a chat model. modelName is passed through to the language
// model backend; useKnowledge sets the initial answer policy.
func New(ctx context.Context, svc ChatPort, modelName string, useKnowledge bool) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /upload <file>"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:          ctx,
		service:      svc,
		modelName:    modelName,
		useKnowledge: useKnowledge,
		input:        ti,
		viewport:     viewport.New(0, 0),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		entries:      []entry{{msg: domain.Message{Role: domain.RoleAssistant, Content: Greeting}}},
		status:       "No document loaded. Use /upload <file>.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header and summary, status, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "esc":
			if m.next != nil && !m.stopping {
				m.stopping = true
				m.status = "Stopping..."
				return m, nil
			}
		case "ctrl+k":
			m.useKnowledge = !m.useKnowledge
			m.status = "Model knowledge " + onOff(m.useKnowledge) + "."
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			return m.submit(strings.TrimSpace(m.input.Value()))
		}

	case fragmentMsg:
		last := &m.entries[len(m.entries)-1]
		last.msg.Content += msg.text
		if m.stopping {
			m.cancelStream()
			m.busy = false
			m.status = "Answer stopped."
			m.refresh()
			return m, nil
		}
		m.refresh()
		return m, m.pull()

	case streamEndMsg:
		m.cancelStream()
		m.busy = false
		if msg.err != nil {
			m.entries[len(m.entries)-1].err = msg.err
			m.status = "Answer failed."
		} else {
			m.status = "Ready."
		}
		m.refresh()
		return m, nil

	case uploadMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Upload failed: " + msg.err.Error()
			return m, nil
		}
		r := msg.report
		m.summary = r.Summary
		m.status = fmt.Sprintf("Indexed %d chunks from %d pages into %s.", r.Chunks, r.Pages, r.Collection)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if text == "" {
		return m, nil
	}
	m.input.SetValue("")

	if path, ok := strings.CutPrefix(text, "/upload"); ok {
		path = strings.TrimSpace(path)
		if path == "" {
			m.status = "Usage: /upload <file>"
			return m, nil
		}
		m.busy = true
		m.status = "Ingesting " + filepath.Base(path) + "..."
		return m, tea.Batch(m.upload(path), m.spinner.Tick)
	}

	m.entries = append(m.entries, entry{msg: domain.Message{Role: domain.RoleUser, Content: text}})
	history := m.history()
	m.entries = append(m.entries, entry{msg: domain.Message{Role: domain.RoleAssistant}})
	m.next, m.stop = iter.Pull2(m.service.Respond(m.ctx, history, m.modelName, m.useKnowledge))
	m.busy = true
	m.status = "Thinking..."
	m.refresh()
	return m, m.pull()
}

// history is the conversation sent to the model. Failed answers keep
// whatever text arrived before the error; a failure with no text is left out.
func (m Model) history() []domain.Message {
	out := make([]domain.Message, 0, len(m.entries))
	for _, e := range m.entries {
		if e.err != nil && e.msg.Content == "" {
			continue
		}
		out = append(out, e.msg)
	}
	return out
}

func (m Model) pull() tea.Cmd {
	next := m.next
	if next == nil {
		return nil
	}
	return func() tea.Msg {
		frag, err, ok := next()
		switch {
		case !ok:
			return streamEndMsg{}
		case err != nil:
			return streamEndMsg{err: err}
		default:
			return fragmentMsg{text: frag}
		}
	}
}

func (m *Model) cancelStream() {
	if m.stop != nil {
		m.stop()
	}
	m.next, m.stop = nil, nil
	m.stopping = false
}

func (m Model) upload(path string) tea.Cmd {
	svc, ctx := m.service, m.ctx
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return uploadMsg{err: err}
		}
		defer f.Close()
		report, err := svc.UploadDocument(ctx, f, filepath.Base(path), nil)
		return uploadMsg{report: report, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderChat())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Document Q&A") + "  " +
		mutedStyle.Render("knowledge "+onOff(m.useKnowledge)+" (ctrl+k)")
	summary := mutedStyle.Render(m.summary)
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" +
		chatBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) renderChat() string {
	width := max(10, m.viewport.Width)
	body := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e.msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You"))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n")
		if e.msg.Content != "" {
			b.WriteString(body.Render(e.msg.Content))
		}
		if e.err != nil {
			if e.msg.Content != "" {
				b.WriteString("\n")
			}
			b.WriteString(errorStyle.Width(width).Render("[error] " + e.err.Error()))
		}
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
