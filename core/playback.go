package orchestration

import "github.com/koscakluka/ema-voice/core/events"

// play hands payload to the single audio output. Listening is stopped first
// so the assistant's own voice is never captured.
func (c *controller) play(payload []byte) {
	vc := c.vc
	output := c.clients.output
	if output == nil {
		c.resumeAfterTurn()
		return
	}

	if vc.flags.IsSpeaking {
		c.stopOutput()
	}
	c.stopFallback(false)
	c.dispatch(sessionEvent{kind: sessionHalt})
	cancelTimer(&vc.timers.resume)

	vc.playbackSeq++
	seq := vc.playbackSeq
	c.setSpeaking(true)
	c.emit(events.NewAssistantPlaybackStarted(len(payload)))

	err := output.Play(c.ctx, payload, func(err error) {
		c.post(func() { c.onPlaybackFinished(seq, err) })
	})
	if err != nil {
		c.onPlaybackFinished(seq, err)
	}
}

func (c *controller) onPlaybackFinished(seq uint64, err error) {
	if seq != c.vc.playbackSeq {
		return
	}
	if err != nil {
		logger.Warn("playback failed", "error", err)
	}

	c.vc.playbackSeq++
	c.setSpeaking(false)
	c.emit(events.NewAssistantPlaybackEnded(false, err))
	c.resumeAfterTurn()
}

// interruptPlayback stops speech without resuming listening.
func (c *controller) interruptPlayback() {
	if !c.vc.flags.IsSpeaking {
		return
	}

	c.stopOutput()
	cancelTimer(&c.vc.timers.resume)
	c.setSpeaking(false)
	c.emit(events.NewAssistantPlaybackEnded(true, nil))
}

func (c *controller) stopOutput() {
	c.vc.playbackSeq++
	if c.clients.output == nil {
		return
	}
	if err := c.clients.output.Stop(); err != nil {
		logger.Warn("failed to stop playback", "error", err)
	}
}

// resumeAfterTurn starts the next listening turn in continuous mode once
// the assistant is done, after a short delay.
func (c *controller) resumeAfterTurn() {
	vc := c.vc
	if vc.mode != ModeContinuous || !vc.listeningIntent {
		return
	}
	if vc.flags.IsSpeaking || vc.state != stateIdle || vc.fallback.active {
		return
	}

	cancelTimer(&vc.timers.resume)
	generation := vc.generation
	vc.timers.resume = c.scheduler.AfterFunc(c.timing.ResumeDelay, func() {
		if generation != vc.generation {
			return
		}
		vc.timers.resume = nil
		if vc.mode != ModeContinuous || !vc.listeningIntent {
			return
		}
		c.startListening(false)
	})
}
