package orchestration

import (
	"time"

	"github.com/koscakluka/ema-voice/core/speechtotext"
)

type errorHandling int

const (
	handlingIgnore errorHandling = iota
	handlingRetry
	// handlingDemote disables continuous mode after retries run out.
	handlingDemote
	// handlingTrip disables continuous mode after a burst of aborts.
	handlingTrip
	handlingFatal
)

func (h errorHandling) String() string {
	switch h {
	case handlingIgnore:
		return "ignored"
	case handlingRetry:
		return "retry"
	case handlingDemote:
		return "demoted"
	case handlingTrip:
		return "circuit-breaker"
	case handlingFatal:
		return "fatal"
	}
	return "unknown"
}

type errorDecision struct {
	handling errorHandling
	// fallback asks for the server-side recording path after a fatal error.
	fallback bool
	message  string
}

type errorHistory struct {
	networkRetryCount int
	abortedBurstCount int
	lastAbortedAt     time.Time
	// busyReopenCount counts opens refused while an old handle was live.
	busyReopenCount int
}

type circuitBreaker struct {
	tripped bool
}

// classifyError decides how to handle a recognition error. It does not
// mutate anything: the updated history is returned for the caller to keep.
func classifyError(
	err speechtotext.Error,
	mode ConversationMode,
	history errorHistory,
	breaker circuitBreaker,
	now time.Time,
	timing Timing,
) (errorDecision, errorHistory) {
	continuous := mode == ModeContinuous

	switch err.Kind {
	case speechtotext.ErrorKindAborted:
		if !history.lastAbortedAt.IsZero() && now.Sub(history.lastAbortedAt) < timing.AbortedBurstWindow {
			history.abortedBurstCount++
		} else {
			history.abortedBurstCount = 1
		}
		history.lastAbortedAt = now

		if !continuous {
			return errorDecision{handling: handlingFatal, message: messageRecognitionAborted}, history
		}
		if history.abortedBurstCount > timing.AbortedBurstLimit && !breaker.tripped {
			return errorDecision{handling: handlingTrip, message: noticeBreakerTripped}, history
		}
		return errorDecision{handling: handlingIgnore}, history

	case speechtotext.ErrorKindNoSpeech:
		if continuous {
			return errorDecision{handling: handlingIgnore}, history
		}
		return errorDecision{handling: handlingFatal, fallback: true, message: messageNoSpeech}, history

	case speechtotext.ErrorKindNetwork:
		if !continuous {
			return errorDecision{handling: handlingFatal, fallback: true, message: messageNetwork}, history
		}
		history.networkRetryCount++
		if history.networkRetryCount <= timing.MaxNetworkRetries {
			return errorDecision{handling: handlingRetry}, history
		}
		return errorDecision{handling: handlingDemote, message: noticeNetworkExhausted}, history

	case speechtotext.ErrorKindAudioCapture, speechtotext.ErrorKindNotAllowed:
		return errorDecision{handling: handlingFatal, message: messagePermission}, history
	}

	return errorDecision{handling: handlingFatal, message: messageRecognitionFailed}, history
}
