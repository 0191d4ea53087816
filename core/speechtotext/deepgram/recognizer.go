package deepgram

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

const (
	defaultListenURL       = "wss://api.deepgram.com/v1/listen"
	defaultModel           = "nova-3"
	defaultNoSpeechTimeout = 8 * time.Second
	keepAliveInterval      = 5 * time.Second
)

// AudioSource feeds microphone audio into a recognition session. It is
// started when a session opens and stopped when it ends.
type AudioSource interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}

// Recognizer opens streaming Deepgram sessions, one at a time.
type Recognizer struct {
	apiKey          string
	model           string
	listenURL       string
	noSpeechTimeout time.Duration
	clock           clockwork.Clock

	source AudioSource

	mu        sync.Mutex
	active    *session
	capturing *session
}

type RecognizerOption func(*Recognizer)

func WithAPIKey(apiKey string) RecognizerOption {
	return func(r *Recognizer) {
		r.apiKey = apiKey
	}
}

func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) {
		r.model = model
	}
}

func WithListenURL(listenURL string) RecognizerOption {
	return func(r *Recognizer) {
		r.listenURL = listenURL
	}
}

// WithNoSpeechTimeout sets how long a non-continuous session waits for any
// transcript before reporting no-speech.
func WithNoSpeechTimeout(timeout time.Duration) RecognizerOption {
	return func(r *Recognizer) {
		r.noSpeechTimeout = timeout
	}
}

func WithClock(clock clockwork.Clock) RecognizerOption {
	return func(r *Recognizer) {
		r.clock = clock
	}
}

func NewRecognizer(source AudioSource, opts ...RecognizerOption) (*Recognizer, error) {
	r := &Recognizer{
		model:           defaultModel,
		listenURL:       defaultListenURL,
		noSpeechTimeout: defaultNoSpeechTimeout,
		clock:           clockwork.NewRealClock(),
		source:          source,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok {
			return nil, fmt.Errorf("deepgram api key not found")
		}
		r.apiKey = apiKey
	}

	return r, nil
}

// Open starts a recognition session streaming the audio source to Deepgram.
// It fails with speechtotext.ErrAlreadyStarted while a previous session is
// still live.
func (r *Recognizer) Open(ctx context.Context, opts ...speechtotext.SessionOption) (speechtotext.Session, error) {
	ctx, span := tracer.Start(ctx, "open recognition session")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, speechtotext.ErrAlreadyStarted
	}

	if r.source != nil {
		opts = append(opts, speechtotext.WithEncodingInfo(r.source.EncodingInfo()))
	}
	options := speechtotext.NewSessionOptions(opts...)

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := connectWebsocket(r.listenURL, r.apiKey, connectionOptions{
		model:          r.model,
		language:       options.Language,
		sampleRate:     encoding.SampleRate,
		encoding:       encoding.Format.Name(),
		interimResults: options.InterimResults,
	})
	if err != nil {
		span.RecordError(err)
		return nil, speechtotext.NewError(speechtotext.ErrorKindNetwork, err)
	}

	s := newSession(r, options)
	s.conn = conn
	s.lastAudioAt = r.clock.Now()
	r.active = s

	if r.source != nil {
		if err := r.source.StartCapture(ctx, s.sendAudio); err != nil {
			r.active = nil
			_ = conn.Close()
			span.RecordError(err)
			return nil, speechtotext.NewError(speechtotext.ErrorKindAudioCapture, err)
		}
		r.capturing = s
	}

	// everything the reader goroutine touches is set before it starts
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if !options.Continuous && r.noSpeechTimeout > 0 {
		s.noSpeechTimer = r.clock.AfterFunc(r.noSpeechTimeout, s.onNoSpeech)
	}
	go s.readMessages(sessionCtx)
	go s.keepAlive(sessionCtx)

	if options.OpenedCallback != nil {
		options.OpenedCallback()
	}

	return s, nil
}

func (r *Recognizer) release(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopCaptureLocked(s)
	if r.active == s {
		r.active = nil
	}
}

// stopCapture stops the audio source only while s still owns it, so a late
// stop from an old session cannot cut off the next one.
func (r *Recognizer) stopCapture(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCaptureLocked(s)
}

func (r *Recognizer) stopCaptureLocked(s *session) {
	if r.source == nil || r.capturing != s {
		return
	}
	r.capturing = nil
	if err := r.source.StopCapture(); err != nil {
		logger.Warn("failed to stop audio capture", "error", err)
	}
}
