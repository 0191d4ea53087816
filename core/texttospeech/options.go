package texttospeech

import (
	"errors"

	"github.com/koscakluka/ema-voice/core/audio"
)

var ErrEmptyText = errors.New("nothing to synthesize")

type SynthesisOptions struct {
	Voice        string
	EncodingInfo audio.EncodingInfo
}

type SynthesisOption func(*SynthesisOptions)

func WithVoice(voice string) SynthesisOption {
	return func(o *SynthesisOptions) {
		if voice != "" {
			o.Voice = voice
		}
	}
}

// WithEncodingInfo sets the encoding speech is generated in. Incomplete
// encodings are ignored.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func NewSynthesisOptions(defaults SynthesisOptions, opts ...SynthesisOption) SynthesisOptions {
	options := defaults
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
