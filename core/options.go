package orchestration

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/transcription"
)

type OrchestratorOption func(*Orchestrator)

// Recognizer opens local streaming recognition sessions. Only one session
// is kept open at a time.
type Recognizer interface {
	Open(ctx context.Context, opts ...speechtotext.SessionOption) (speechtotext.Session, error)
}

func WithRecognizer(client Recognizer) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNilClient(client) {
			o.clients.recognizer = nil
			return
		}
		o.clients.recognizer = client
	}
}

// Microphone is the capture device used for recording when no recognizer is
// available. StopCapture must release the device.
type Microphone interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}

func WithMicrophone(client Microphone) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNilClient(client) {
			o.clients.microphone = nil
			return
		}
		o.clients.microphone = client
	}
}

type Transcriber interface {
	Transcribe(ctx context.Context, payload []byte) (transcription.Result, error)
}

func WithTranscriber(client Transcriber) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNilClient(client) {
			o.clients.transcriber = nil
			return
		}
		o.clients.transcriber = client
	}
}

type DialogueGateway interface {
	Send(ctx context.Context, request dialogue.Request) (dialogue.Response, error)
}

func WithDialogueGateway(client DialogueGateway) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNilClient(client) {
			o.clients.gateway = nil
			return
		}
		o.clients.gateway = client
	}
}

// AudioOutput plays one payload at a time. Play replaces whatever is
// playing; onFinished fires once on natural end or playback error and never
// after Stop.
type AudioOutput interface {
	Play(ctx context.Context, payload []byte, onFinished func(err error)) error
	Stop() error
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNilClient(client) {
			o.clients.output = nil
			return
		}
		o.clients.output = client
	}
}

// Synthesizer voices a spoken turn's reply when the dialogue backend sent
// text without audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

func WithSynthesizer(client Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNilClient(client) {
			o.clients.synthesizer = nil
			return
		}
		o.clients.synthesizer = client
	}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ConversationLog interface {
	Append(role Role, text string)
}

func WithConversationLog(log ConversationLog) OrchestratorOption {
	return func(o *Orchestrator) {
		if isNilClient(log) {
			o.clients.log = nil
			return
		}
		o.clients.log = log
	}
}

func WithMode(mode ConversationMode) OrchestratorOption {
	return func(o *Orchestrator) { o.initialMode = mode }
}

func WithSessionID(sessionID string) OrchestratorOption {
	return func(o *Orchestrator) {
		if sessionID != "" {
			o.sessionID = sessionID
		}
	}
}

func WithClock(clock clockwork.Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithTiming overrides the non-zero fields of timing over DefaultTiming.
func WithTiming(timing Timing) OrchestratorOption {
	return func(o *Orchestrator) { o.timing = o.timing.overlay(timing) }
}

// WithPlaceholderSentinels replaces the prefixes that mark a transcription
// as a placeholder rather than real speech.
func WithPlaceholderSentinels(sentinels ...string) OrchestratorOption {
	return func(o *Orchestrator) { o.sentinels = sentinels }
}

type OrchestrateOptions struct {
	onListeningChanged  func(isListening bool)
	onSpeakingChanged   func(isSpeaking bool)
	onProcessingChanged func(isProcessing bool)
	onModeChanged       func(mode ConversationMode, forced bool)
	onInterimTranscript func(transcript string)
	onUtterance         func(text string)
	onResponse          func(response string)
	onResponseFailed    func(apology string)
	onNotice            func(notice string)
	onEvent             func(event events.Event)
}

type OrchestrateOption func(*OrchestrateOptions)

func WithListeningChangedCallback(callback func(isListening bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onListeningChanged = callback
	}
}

func WithSpeakingChangedCallback(callback func(isSpeaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeakingChanged = callback
	}
}

func WithProcessingChangedCallback(callback func(isProcessing bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onProcessingChanged = callback
	}
}

// WithModeChangedCallback registers a callback for mode changes. forced is
// set when continuous mode was turned off after repeated recognition
// failures.
func WithModeChangedCallback(callback func(mode ConversationMode, forced bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onModeChanged = callback
	}
}

// WithInterimTranscriptCallback registers a callback for the in-progress
// transcript: finalized fragments followed by the current interim guess.
func WithInterimTranscriptCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInterimTranscript = callback
	}
}

// WithUtteranceCallback registers a callback for every utterance handed to
// the dialogue backend, spoken or typed.
func WithUtteranceCallback(callback func(text string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onUtterance = callback
	}
}

func WithResponseCallback(callback func(response string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponse = callback
	}
}

func WithResponseFailedCallback(callback func(apology string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponseFailed = callback
	}
}

func WithNoticeCallback(callback func(notice string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onNotice = callback
	}
}

// WithEventCallback receives every event, after the typed callbacks.
// Callbacks run on the orchestrator's event loop and must not block.
func WithEventCallback(callback func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = callback
	}
}
