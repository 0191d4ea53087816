package orchestration

import (
	"context"

	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/events"
)

type collaborators struct {
	recognizer  Recognizer
	microphone  Microphone
	transcriber Transcriber
	gateway     DialogueGateway
	output      AudioOutput
	synthesizer Synthesizer
	log         ConversationLog
}

// controller holds the turn-taking logic. Every method runs on the event
// loop; post and spawn are the only ways work leaves or re-enters it.
type controller struct {
	vc        *voiceSessionContext
	timing    Timing
	scheduler timerScheduler
	// post queues work onto the event loop.
	post func(func())
	// spawn runs blocking collaborator calls off the event loop.
	spawn func(func())
	ctx   context.Context

	clients   collaborators
	emit      eventEmitter
	metrics   voiceMetrics
	sentinels []string
	onStatus  func(Status)
}

func (c *controller) setMode(mode ConversationMode) {
	vc := c.vc
	if mode == ModeContinuous && (vc.breaker.tripped || vc.continuousDisabled) {
		logger.Info("continuous mode re-enabled by user")
		vc.breaker = circuitBreaker{}
		vc.continuousDisabled = false
	}
	if mode == vc.mode {
		return
	}

	vc.mode = mode
	c.emit(events.NewModeChanged(mode.String(), false))
	if mode == ModePushToTalk {
		vc.listeningIntent = false
		cancelTimer(&vc.timers.resume)
	}

	// a fallback recording is dropped and listening starts over in the new
	// mode, like a live recognition session
	if vc.fallback.active {
		c.stopFallback(false)
		c.startListening(false)
		return
	}
	if vc.state != stateIdle {
		c.dispatch(sessionEvent{kind: sessionHalt})
		c.dispatch(sessionEvent{kind: sessionStart})
	}
}

// demote turns continuous mode off after repeated recognition failures.
func (c *controller) demote(notice string) {
	vc := c.vc
	vc.continuousDisabled = true
	vc.listeningIntent = false
	cancelTimer(&vc.timers.resume)
	if vc.mode != ModePushToTalk {
		vc.mode = ModePushToTalk
		c.emit(events.NewModeChanged(ModePushToTalk.String(), true))
	}
	c.notify(notice)
}

func (c *controller) startListening(bargeIn bool) {
	vc := c.vc
	if vc.flags.IsSpeaking {
		if !bargeIn {
			logger.Debug("not listening while the assistant is speaking")
			return
		}
		c.interruptPlayback()
	}

	cancelTimer(&vc.timers.resume)
	vc.synthesisSeq++
	vc.listeningIntent = vc.mode == ModeContinuous
	if c.clients.recognizer == nil {
		c.startFallback()
		return
	}

	c.stopFallback(false)
	c.dispatch(sessionEvent{kind: sessionStart})
}

func (c *controller) stopListening() {
	vc := c.vc
	vc.listeningIntent = false
	cancelTimer(&vc.timers.resume)

	if vc.fallback.active {
		c.stopFallback(true)
	}
	c.dispatch(sessionEvent{kind: sessionStop})
}

func (c *controller) sendText(text string) {
	c.vc.synthesisSeq++
	c.sendUtterance(text, dialogue.ModalityText)
}

// interrupt stops the assistant without starting a new turn.
func (c *controller) interrupt() {
	c.vc.listeningIntent = false
	c.vc.synthesisSeq++
	c.interruptPlayback()
}

func (c *controller) shutdown() {
	vc := c.vc
	vc.listeningIntent = false
	vc.synthesisSeq++
	cancelTimer(&vc.timers.resume)
	c.stopFallback(false)
	c.dispatch(sessionEvent{kind: sessionHalt})
	c.interruptPlayback()
}

// setListening refuses to listen while the assistant is speaking.
func (c *controller) setListening(isListening bool) {
	flags := &c.vc.flags
	if isListening && flags.IsSpeaking {
		logger.Warn("refusing to listen while speaking")
		return
	}
	if flags.IsListening == isListening {
		return
	}

	flags.IsListening = isListening
	c.emit(events.NewListeningChanged(isListening))
}

func (c *controller) setSpeaking(isSpeaking bool) {
	flags := &c.vc.flags
	if isSpeaking && flags.IsListening {
		c.setListening(false)
	}
	if flags.IsSpeaking == isSpeaking {
		return
	}

	flags.IsSpeaking = isSpeaking
	c.emit(events.NewSpeakingChanged(isSpeaking))
}

func (c *controller) beginProcessing() {
	c.vc.pendingRequests++
	if c.vc.pendingRequests == 1 {
		c.vc.flags.IsProcessing = true
		c.emit(events.NewProcessingChanged(true))
	}
}

func (c *controller) endProcessing() {
	if c.vc.pendingRequests == 0 {
		return
	}
	c.vc.pendingRequests--
	if c.vc.pendingRequests == 0 {
		c.vc.flags.IsProcessing = false
		c.emit(events.NewProcessingChanged(false))
	}
}

func (c *controller) notify(text string) {
	if text == "" {
		return
	}
	c.appendLog(RoleSystem, text)
	c.emit(events.NewNotice(text))
}

func (c *controller) apologize(apology string, err error) {
	logger.Warn("turn failed", "error", err)
	c.appendLog(RoleAssistant, apology)
	c.emit(events.NewAssistantResponseFailed(apology, err))
}

func (c *controller) appendLog(role Role, text string) {
	if c.clients.log != nil {
		c.clients.log.Append(role, text)
	}
}

func (c *controller) status() Status {
	return Status{
		Mode:          c.vc.mode,
		Flags:         c.vc.flags,
		Recognition:   c.vc.state.String(),
		BreakerActive: c.vc.breaker.tripped,
	}
}

func (c *controller) publish() {
	if c.onStatus != nil {
		c.onStatus(c.status())
	}
}
