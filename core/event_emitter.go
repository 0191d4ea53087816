package orchestration

import "github.com/koscakluka/ema-voice/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.ListeningChanged:
			if opts.onListeningChanged != nil {
				opts.onListeningChanged(typedEvent.IsListening)
			}
		case events.SpeakingChanged:
			if opts.onSpeakingChanged != nil {
				opts.onSpeakingChanged(typedEvent.IsSpeaking)
			}
		case events.ProcessingChanged:
			if opts.onProcessingChanged != nil {
				opts.onProcessingChanged(typedEvent.IsProcessing)
			}
		case events.ModeChanged:
			if opts.onModeChanged != nil {
				opts.onModeChanged(parseMode(typedEvent.Mode), typedEvent.Forced)
			}
		case events.UserTranscriptInterimUpdated:
			if opts.onInterimTranscript != nil {
				opts.onInterimTranscript(typedEvent.Transcript)
			}
		case events.UserUtteranceFinal:
			if opts.onUtterance != nil {
				opts.onUtterance(typedEvent.Text)
			}
		case events.AssistantResponseFinal:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Text)
			}
		case events.AssistantResponseFailed:
			if opts.onResponseFailed != nil {
				opts.onResponseFailed(typedEvent.Apology)
			}
		case events.Notice:
			if opts.onNotice != nil {
				opts.onNotice(typedEvent.Text)
			}
		}

		if opts.onEvent != nil {
			opts.onEvent(event)
		}
	}
}

func parseMode(mode string) ConversationMode {
	if mode == ModeContinuous.String() {
		return ModeContinuous
	}
	return ModePushToTalk
}
