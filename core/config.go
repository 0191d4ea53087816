package orchestration

import (
	"time"

	"github.com/jinzhu/copier"
)

// Timing holds every delay and threshold of the turn-taking logic. Zero
// fields of an override keep the default.
type Timing struct {
	// SilenceCheckDelay is how long after a final fragment the silence check
	// runs in continuous mode.
	SilenceCheckDelay time.Duration
	// SilenceThreshold is the quiet time required at check time to finalize.
	SilenceThreshold time.Duration

	NetworkRetryDelay time.Duration
	MaxNetworkRetries int

	// RestartDebounce delays reopening a continuous session that ended on
	// its own.
	RestartDebounce time.Duration
	// MaxBusyReopens caps the reopen attempts made while the recognizer
	// still reports the previous session as live.
	MaxBusyReopens int
	// ResumeDelay separates the end of assistant playback from listening
	// again, so the tail of the assistant's audio is not captured.
	ResumeDelay time.Duration

	AbortedBurstWindow time.Duration
	AbortedBurstLimit  int

	// StopGracePeriod bounds how long a push-to-talk stop waits for the
	// recognizer to deliver its last fragment.
	StopGracePeriod time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		SilenceCheckDelay:  1500 * time.Millisecond,
		SilenceThreshold:   1400 * time.Millisecond,
		NetworkRetryDelay:  2000 * time.Millisecond,
		MaxNetworkRetries:  3,
		RestartDebounce:    300 * time.Millisecond,
		MaxBusyReopens:     5,
		ResumeDelay:        300 * time.Millisecond,
		AbortedBurstWindow: 1000 * time.Millisecond,
		AbortedBurstLimit:  10,
		StopGracePeriod:    2000 * time.Millisecond,
	}
}

func (t Timing) overlay(overrides Timing) Timing {
	if err := copier.CopyWithOption(&t, &overrides, copier.Option{IgnoreEmpty: true}); err != nil {
		logger.Warn("failed to apply timing overrides", "error", err)
	}
	return t
}
