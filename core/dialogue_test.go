package orchestration

import (
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/events"
)

func TestSendTextUsesTextModality(t *testing.T) {
	h := newHarness(t, ModePushToTalk)

	h.c.sendText("  what time is it  ")
	if !h.c.vc.flags.IsProcessing {
		t.Fatalf("expected processing while waiting for a reply")
	}
	h.runSpawned()

	sent := h.gateway.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one request, got %d", len(sent))
	}
	if sent[0].UtteranceText != "what time is it" || sent[0].Modality != dialogue.ModalityText {
		t.Fatalf("expected trimmed text request, got %+v", sent[0])
	}
	if h.c.vc.flags.IsProcessing {
		t.Fatalf("expected processing to end")
	}
	if got := h.log.count(RoleUser, "what time is it"); got != 1 {
		t.Fatalf("expected user text to be logged, got %d", got)
	}
	if got := h.log.count(RoleAssistant, "ok"); got != 1 {
		t.Fatalf("expected reply to be logged, got %d", got)
	}
}

func TestBlankTextIsIgnored(t *testing.T) {
	h := newHarness(t, ModePushToTalk)

	h.c.sendText("   ")
	h.runSpawned()

	if got := len(h.gateway.sent()); got != 0 {
		t.Fatalf("expected no request, got %d", got)
	}
	if len(h.events) != 0 {
		t.Fatalf("expected no events, got %d", len(h.events))
	}
}

func TestGatewayErrorApologizesAndKeepsListening(t *testing.T) {
	h := newHarness(t, ModeContinuous)
	h.gateway.err = errBackendDown

	session := h.listen()
	session.final("turn on the lights")
	h.scheduler.advance(1500 * time.Millisecond)
	h.runSpawned()

	if got := h.log.count(RoleAssistant, apologyDialogue); got != 1 {
		t.Fatalf("expected an apology, got %d", got)
	}
	failed := h.indexOf(func(e events.Event) bool {
		f, ok := e.(events.AssistantResponseFailed)
		return ok && errors.Is(f.Err, errBackendDown)
	})
	if failed < 0 {
		t.Fatalf("expected a failed response event")
	}
	if h.c.vc.state != stateActive || !h.c.vc.flags.IsListening {
		t.Fatalf("expected continuous listening to carry on")
	}
	if h.c.vc.flags.IsProcessing {
		t.Fatalf("expected processing to end")
	}
}

func TestMissingGatewayApologizes(t *testing.T) {
	h := newHarness(t, ModePushToTalk)
	h.c.clients.gateway = nil

	h.c.sendText("hello")
	h.runSpawned()

	if got := h.log.count(RoleAssistant, apologyDialogue); got != 1 {
		t.Fatalf("expected an apology, got %d", got)
	}
	if h.c.vc.flags.IsProcessing {
		t.Fatalf("expected processing never to start")
	}
}

func TestOverlappingRequestsKeepProcessing(t *testing.T) {
	h := newHarness(t, ModePushToTalk)

	h.c.sendText("first")
	h.c.sendText("second")
	if len(h.spawned) != 2 {
		t.Fatalf("expected two requests in flight, got %d", len(h.spawned))
	}

	work := h.spawned[0]
	h.spawned = h.spawned[1:]
	work()
	if !h.c.vc.flags.IsProcessing {
		t.Fatalf("expected processing while a request is still pending")
	}

	h.runSpawned()
	if h.c.vc.flags.IsProcessing {
		t.Fatalf("expected processing to end after both replies")
	}
	changes := h.countEvents(func(e events.Event) bool { _, ok := e.(events.ProcessingChanged); return ok })
	if changes != 2 {
		t.Fatalf("expected processing to toggle once each way, got %d changes", changes)
	}
}

func TestTextOnlyVoiceReplyIsSynthesized(t *testing.T) {
	h := newHarness(t, ModePushToTalk)
	synthesizer := &synthesizerStub{payload: []byte("RIFF")}
	h.c.clients.synthesizer = synthesizer
	h.gateway.response = dialogue.Response{ResponseText: "Lights on."}

	session := h.listen()
	session.final("turn on the lights")
	h.runSpawned()

	if len(synthesizer.texts) != 1 || synthesizer.texts[0] != "Lights on." {
		t.Fatalf("expected reply to be synthesized, got %v", synthesizer.texts)
	}
	if len(h.output.plays) != 1 || string(h.output.plays[0]) != "RIFF" {
		t.Fatalf("expected synthesized audio to play")
	}
	if !h.c.vc.flags.IsSpeaking || h.c.vc.flags.IsProcessing {
		t.Fatalf("expected speaking and not processing, got %+v", h.c.vc.flags)
	}
}

func TestTypedReplyIsNotSynthesized(t *testing.T) {
	h := newHarness(t, ModePushToTalk)
	synthesizer := &synthesizerStub{payload: []byte("RIFF")}
	h.c.clients.synthesizer = synthesizer

	h.c.sendText("hello")
	h.runSpawned()

	if len(synthesizer.texts) != 0 || len(h.output.plays) != 0 {
		t.Fatalf("expected typed turns to stay silent")
	}
}

func TestNewTurnDropsPendingSynthesis(t *testing.T) {
	h := newHarness(t, ModePushToTalk)
	h.c.clients.synthesizer = &synthesizerStub{payload: []byte("RIFF")}
	h.gateway.response = dialogue.Response{ResponseText: "Lights on."}

	session := h.listen()
	session.final("turn on the lights")
	for len(h.spawned) > 0 && len(h.gateway.sent()) == 0 {
		work := h.spawned[0]
		h.spawned = h.spawned[1:]
		work()
	}
	h.c.startListening(false)
	h.runSpawned()

	if len(h.output.plays) != 0 {
		t.Fatalf("expected stale synthesized audio to be dropped")
	}
	if !h.c.vc.flags.IsListening || h.c.vc.flags.IsProcessing {
		t.Fatalf("expected the new turn to be listening, got %+v", h.c.vc.flags)
	}
}

func TestSynthesisFailureStillEndsTurn(t *testing.T) {
	h := newHarness(t, ModePushToTalk)
	h.c.clients.synthesizer = &synthesizerStub{err: errBackendDown}
	h.gateway.response = dialogue.Response{ResponseText: "Lights on."}

	session := h.listen()
	session.final("turn on the lights")
	h.runSpawned()

	if h.c.vc.flags.IsSpeaking || h.c.vc.flags.IsProcessing {
		t.Fatalf("expected the turn to end quietly, got %+v", h.c.vc.flags)
	}
	if got := h.log.count(RoleAssistant, "Lights on."); got != 1 {
		t.Fatalf("expected the reply text to be logged, got %d", got)
	}
}
