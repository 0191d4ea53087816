package orchestration

import (
	"errors"
	"strings"

	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoDialogueGateway = errors.New("no dialogue gateway configured")

func (c *controller) sendUtterance(text string, modality dialogue.Modality) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.emit(events.NewUserUtteranceFinal(text, string(modality)))
	c.appendLog(RoleUser, text)

	gateway := c.clients.gateway
	if gateway == nil {
		c.apologize(apologyDialogue, ErrNoDialogueGateway)
		return
	}

	c.metrics.utteranceSent(c.ctx, string(modality))
	c.beginProcessing()

	request := dialogue.Request{
		UtteranceText: text,
		SessionID:     c.vc.sessionID,
		Modality:      modality,
	}
	ctx := c.ctx
	c.spawn(panicSafe("dialogue request", func() {
		ctx, span := tracer.Start(ctx, "dialogue turn", trace.WithAttributes(
			attribute.String("dialogue.modality", string(modality)),
			attribute.String("dialogue.session_id", request.SessionID),
		))
		defer span.End()

		response, err := gateway.Send(ctx, request)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.post(func() { c.onDialogueResponse(request, response, err) })
	}))
}

func (c *controller) onDialogueResponse(request dialogue.Request, response dialogue.Response, err error) {
	c.endProcessing()
	if err != nil {
		c.apologize(apologyDialogue, err)
		c.resumeAfterTurn()
		return
	}

	text := strings.TrimSpace(response.ResponseText)
	if text != "" {
		c.appendLog(RoleAssistant, text)
	}
	c.emit(events.NewAssistantResponseFinal(text, len(response.AudioResponsePayload) > 0))

	if len(response.AudioResponsePayload) > 0 {
		c.play(response.AudioResponsePayload)
		return
	}
	if text != "" && request.Modality == dialogue.ModalityVoice && c.clients.synthesizer != nil {
		c.synthesize(text)
		return
	}
	c.resumeAfterTurn()
}

// synthesize voices a text-only reply to a spoken turn. Starting a new turn
// before the audio arrives drops it.
func (c *controller) synthesize(text string) {
	c.vc.synthesisSeq++
	seq := c.vc.synthesisSeq
	synthesizer := c.clients.synthesizer
	ctx := c.ctx

	c.beginProcessing()
	c.spawn(panicSafe("speech synthesis", func() {
		payload, err := synthesizer.Synthesize(ctx, text)
		c.post(func() { c.onSynthesized(seq, payload, err) })
	}))
}

func (c *controller) onSynthesized(seq uint64, payload []byte, err error) {
	c.endProcessing()
	if seq != c.vc.synthesisSeq {
		return
	}
	if err != nil {
		logger.Warn("failed to synthesize reply", "error", err)
		c.resumeAfterTurn()
		return
	}
	c.play(payload)
}
