package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/koscakluka/ema-voice/core"
)

const statusRefreshInterval = 150 * time.Millisecond

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	interimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7")).Padding(0, 1)
	activeStyle    = statusStyle.Background(lipgloss.Color("9")).Bold(true)
)

// controls is the part of the orchestrator the view drives.
type controls interface {
	StartListening()
	StopListening()
	BargeIn()
	Interrupt()
	SetMode(mode orchestration.ConversationMode)
	SendText(text string)
	Status() orchestration.Status
}

type statusTickMsg time.Time

type model struct {
	controls controls
	status   orchestration.Status

	entries []logEntryMsg
	interim string

	viewport viewport.Model
	input    textinput.Model
	width    int
	ready    bool
}

func newModel(c controls) model {
	input := textinput.New()
	input.Placeholder = "Type a message, or ctrl+l to talk"
	input.Focus()

	return model{controls: c, status: c.Status(), input: input}
}

func tickStatus() tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(t time.Time) tea.Msg { return statusTickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tickStatus())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-3, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-4, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+l":
			if m.status.Flags.IsListening {
				m.controls.StopListening()
			} else {
				m.controls.StartListening()
			}
			return m, nil
		case "ctrl+b":
			m.controls.BargeIn()
			return m, nil
		case "esc":
			m.controls.Interrupt()
			return m, nil
		case "ctrl+t":
			if m.status.Mode == orchestration.ModeContinuous {
				m.controls.SetMode(orchestration.ModePushToTalk)
			} else {
				m.controls.SetMode(orchestration.ModeContinuous)
			}
			return m, nil
		case "enter":
			if text := strings.TrimSpace(m.input.Value()); text != "" {
				m.controls.SendText(text)
			}
			m.input.SetValue("")
			return m, nil
		}

	case statusTickMsg:
		m.status = m.controls.Status()
		return m, tickStatus()

	case logEntryMsg:
		m.entries = append(m.entries, msg)
		if msg.role == orchestration.RoleUser {
			m.interim = ""
		}
		m.refresh()
		return m, nil

	case interimMsg:
		m.interim = string(msg)
		m.refresh()
		return m, nil

	case modeChangedMsg:
		m.status.Mode = msg.mode
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m model) renderLog() string {
	width := max(m.width-2, 10)

	var b strings.Builder
	for _, entry := range m.entries {
		b.WriteString(renderEntry(entry, width))
		b.WriteString("\n")
	}
	if m.interim != "" {
		b.WriteString(interimStyle.Render(wordwrap.String("… "+m.interim, width)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderEntry(entry logEntryMsg, width int) string {
	switch entry.role {
	case orchestration.RoleUser:
		return userStyle.Render("You") + " " + wordwrap.String(entry.text, width-4)
	case orchestration.RoleAssistant:
		return assistantStyle.Render("Ema") + " " + wordwrap.String(entry.text, width-4)
	}
	return systemStyle.Render(wordwrap.String(entry.text, width))
}

func (m model) renderStatus() string {
	parts := []string{statusStyle.Render(m.status.Mode.String())}

	flags := m.status.Flags
	switch {
	case flags.IsListening:
		parts = append(parts, activeStyle.Render("listening"))
	case flags.IsSpeaking:
		parts = append(parts, activeStyle.Render("speaking"))
	}
	if flags.IsProcessing {
		parts = append(parts, statusStyle.Render("thinking"))
	}
	if m.status.BreakerActive {
		parts = append(parts, statusStyle.Render("hands-free off"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m model) View() string {
	if !m.ready {
		return "Starting…"
	}
	return m.viewport.View() + "\n" + m.renderStatus() + "\n" + m.input.View()
}
