package main

import (
	"context"
	log "log/slog"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/ema-voice/core"
)

const sinkCapacity = 256

type logEntryMsg struct {
	role orchestration.Role
	text string
}

type interimMsg string

type modeChangedMsg struct {
	mode   orchestration.ConversationMode
	forced bool
}

// conversationSink turns orchestrator callbacks into UI messages. The
// callbacks run on the orchestrator's event loop, so nothing here blocks.
type conversationSink struct {
	msgs chan tea.Msg
}

func newConversationSink() *conversationSink {
	return &conversationSink{msgs: make(chan tea.Msg, sinkCapacity)}
}

func (s *conversationSink) Append(role orchestration.Role, text string) {
	s.send(logEntryMsg{role: role, text: text})
}

func (s *conversationSink) interim(transcript string) {
	s.send(interimMsg(transcript))
}

func (s *conversationSink) modeChanged(mode orchestration.ConversationMode, forced bool) {
	s.send(modeChangedMsg{mode: mode, forced: forced})
}

func (s *conversationSink) send(msg tea.Msg) {
	select {
	case s.msgs <- msg:
	default:
		log.Warn("conversation view is behind, dropping update")
	}
}

func (s *conversationSink) forward(ctx context.Context, program *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.msgs:
			program.Send(msg)
		}
	}
}
