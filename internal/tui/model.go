package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfsearch/internal/domain"
)

// SearchPort is the TUI-facing subset of the retrieval pipeline.
type SearchPort interface {
	Ask(ctx context.Context, contentHash, question string) (string, []domain.PageHit, error)
}

// Model is the Bubble Tea model for the chat view over one document.
type Model struct {
	pipeline    SearchPort
	contentHash string
	docName     string
	turns       []domain.ChatTurn
	input       textinput.Model
	viewport    viewport.Model
	status      string
	ready       bool
}

// New creates a chat model for the given document, pre-populated with its
// stored history.
func New(pipeline SearchPort, contentHash, docName string, history []domain.ChatTurn) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question..."
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "Ready. Type a question and press Enter."
	if len(history) > 0 {
		status = fmt.Sprintf("Loaded %d previous messages.", len(history))
	}
	return Model{
		pipeline:    pipeline,
		contentHash: contentHash,
		docName:     docName,
		turns:       history,
		input:       ti,
		viewport:    vp,
		status:      status,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderConversation())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			answer, hits, err := m.pipeline.Ask(context.Background(), m.contentHash, q)
			if err != nil {
				m.status = "Error: " + err.Error()
			} else {
				m.turns = append(m.turns,
					domain.ChatTurn{Role: domain.RoleUser, Text: q},
					domain.ChatTurn{Role: domain.RoleAssistant, Text: answer},
				)
				m.status = fmt.Sprintf("%d matching chunks.", len(hits))
			}
			m.input.SetValue("")
			m.viewport.SetContent(m.renderConversation())
			m.viewport.GotoBottom()
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("PDF Search: " + m.docName)
	conversation := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + conversation + "\n" + input + "\n" + status
}

func (m Model) renderConversation() string {
	if len(m.turns) == 0 {
		return "No messages yet. Ask something about the document."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch t.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("you: ") + t.Text)
		default:
			b.WriteString(assistantStyle.Render("assistant: ") + t.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
