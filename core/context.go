package orchestration

import "github.com/koscakluka/ema-voice/core/speechtotext"

type sessionState int

const (
	stateIdle sessionState = iota
	stateStarting
	stateActive
	stateRestarting
	stateStopping
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateStarting:
		return "starting"
	case stateActive:
		return "active"
	case stateRestarting:
		return "restarting"
	case stateStopping:
		return "stopping"
	}
	return "unknown"
}

type pendingTimers struct {
	silence stopFunc
	restart stopFunc
	grace   stopFunc
	resume  stopFunc
}

func (t *pendingTimers) cancelSession() {
	cancelTimer(&t.silence)
	cancelTimer(&t.restart)
	cancelTimer(&t.grace)
}

type fallbackState struct {
	active    bool
	seq       uint64
	recording *recording
}

// voiceSessionContext is all mutable state of one conversation. It is only
// touched from the event loop.
type voiceSessionContext struct {
	sessionID string

	mode            ConversationMode
	flags           ConversationFlags
	pendingRequests int

	state  sessionState
	handle speechtotext.Session
	// releasedHandle is the last handle let go of, kept so a recognizer that
	// still reports it live can be told to stop again.
	releasedHandle speechtotext.Session
	// handleSeq identifies the current recognizer handle; callbacks from any
	// other handle are dropped.
	handleSeq uint64
	// generation is bumped on every start and stop; timers scheduled under an
	// older generation are dropped when they fire.
	generation uint64
	// continueListening keeps a continuous session restarting after it ends.
	continueListening bool
	// reopenPending retries an open the recognizer refused as already
	// started.
	reopenPending bool
	// listeningIntent is the user's wish to keep talking in continuous mode,
	// it survives playback and is cleared only by an explicit stop.
	listeningIntent bool

	buffer             utteranceBuffer
	history            errorHistory
	breaker            circuitBreaker
	continuousDisabled bool

	timers       pendingTimers
	playbackSeq  uint64
	// synthesisSeq invalidates a reply still being synthesized once a new
	// turn starts.
	synthesisSeq uint64
	fallback     fallbackState
}

func newVoiceSessionContext(sessionID string, mode ConversationMode) *voiceSessionContext {
	return &voiceSessionContext{sessionID: sessionID, mode: mode}
}
