package speechtotext

import "github.com/koscakluka/ema-voice/core/audio"

// Session is one live recognition attempt. Stop is a graceful request: the
// recognizer may still deliver trailing results before EndedCallback fires.
type Session interface {
	Stop() error
}

type Result struct {
	Transcript string
	IsFinal    bool
	Confidence float64
}

type SessionOptions struct {
	// Continuous keeps the session open across pauses. When false the session
	// ends after the first finalized utterance.
	Continuous     bool
	InterimResults bool
	Language       string

	OpenedCallback func()
	ResultCallback func(result Result)
	ErrorCallback  func(err Error)
	EndedCallback  func()

	EncodingInfo audio.EncodingInfo
}

type SessionOption func(*SessionOptions)

func WithContinuous(continuous bool) SessionOption {
	return func(o *SessionOptions) {
		o.Continuous = continuous
	}
}

func WithInterimResults(interimResults bool) SessionOption {
	return func(o *SessionOptions) {
		o.InterimResults = interimResults
	}
}

func WithLanguage(language string) SessionOption {
	return func(o *SessionOptions) {
		o.Language = language
	}
}

func WithOpenedCallback(callback func()) SessionOption {
	return func(o *SessionOptions) {
		o.OpenedCallback = callback
	}
}

func WithResultCallback(callback func(result Result)) SessionOption {
	return func(o *SessionOptions) {
		o.ResultCallback = callback
	}
}

func WithErrorCallback(callback func(err Error)) SessionOption {
	return func(o *SessionOptions) {
		o.ErrorCallback = callback
	}
}

func WithEndedCallback(callback func()) SessionOption {
	return func(o *SessionOptions) {
		o.EndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SessionOption {
	return func(o *SessionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

// NewSessionOptions applies opts over the defaults: linear16 at the default
// sample rate, English, interim results off.
func NewSessionOptions(opts ...SessionOption) SessionOptions {
	options := SessionOptions{
		Language:     "en-US",
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return options
}
