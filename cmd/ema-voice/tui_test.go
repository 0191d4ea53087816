package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/ema-voice/core"
)

type controlsStub struct {
	status orchestration.Status
	calls  []string
	texts  []string
	modes  []orchestration.ConversationMode
}

func (c *controlsStub) StartListening() { c.calls = append(c.calls, "start") }
func (c *controlsStub) StopListening()  { c.calls = append(c.calls, "stop") }
func (c *controlsStub) BargeIn()        { c.calls = append(c.calls, "barge-in") }
func (c *controlsStub) Interrupt()      { c.calls = append(c.calls, "interrupt") }
func (c *controlsStub) SetMode(mode orchestration.ConversationMode) {
	c.modes = append(c.modes, mode)
}
func (c *controlsStub) SendText(text string)         { c.texts = append(c.texts, text) }
func (c *controlsStub) Status() orchestration.Status { return c.status }

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	updated, ok := next.(model)
	if !ok {
		t.Fatalf("expected model, got %T", next)
	}
	return updated
}

func TestListenKeyToggles(t *testing.T) {
	stub := &controlsStub{}
	m := newModel(stub)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	stub.status.Flags.IsListening = true
	m = update(t, m, statusTickMsg{})
	update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

	if strings.Join(stub.calls, ",") != "start,stop" {
		t.Fatalf("expected start then stop, got %v", stub.calls)
	}
}

func TestModeKeySwitchesMode(t *testing.T) {
	stub := &controlsStub{}
	m := newModel(stub)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	m = update(t, m, modeChangedMsg{mode: orchestration.ModeContinuous})
	update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})

	if len(stub.modes) != 2 || stub.modes[0] != orchestration.ModeContinuous || stub.modes[1] != orchestration.ModePushToTalk {
		t.Fatalf("expected continuous then push-to-talk, got %v", stub.modes)
	}
}

func TestEnterSendsTypedText(t *testing.T) {
	stub := &controlsStub{}
	m := newModel(stub)

	m.input.SetValue("  hello there ")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(stub.texts) != 1 || stub.texts[0] != "hello there" {
		t.Fatalf("expected one trimmed message, got %v", stub.texts)
	}
}

func TestLogEntriesRender(t *testing.T) {
	m := newModel(&controlsStub{})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m = update(t, m, interimMsg("turn on"))
	m = update(t, m, logEntryMsg{role: orchestration.RoleUser, text: "turn on the lights"})
	m = update(t, m, logEntryMsg{role: orchestration.RoleAssistant, text: "Lights on."})

	view := m.renderLog()
	if !strings.Contains(view, "turn on the lights") || !strings.Contains(view, "Lights on.") {
		t.Fatalf("expected both turns in the log, got %q", view)
	}
	if m.interim != "" {
		t.Fatalf("expected interim text to clear once the utterance is logged")
	}
}

func TestSinkDropsWhenFull(t *testing.T) {
	sink := &conversationSink{msgs: make(chan tea.Msg, 1)}

	sink.Append(orchestration.RoleUser, "first")
	sink.Append(orchestration.RoleUser, "second")

	if len(sink.msgs) != 1 {
		t.Fatalf("expected sink to keep one message, got %d", len(sink.msgs))
	}
}

func TestParseMode(t *testing.T) {
	if mode, err := parseMode("continuous"); err != nil || mode != orchestration.ModeContinuous {
		t.Fatalf("expected continuous, got %v, %v", mode, err)
	}
	if _, err := parseMode("walkie-talkie"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}
