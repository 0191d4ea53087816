package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultSpeakURL   = "wss://api.deepgram.com/v1/speak"
	defaultVoice      = "aura-2-thalia-en"
	defaultSampleRate = 24000
)

var availableVoices = []string{
	"aura-2-thalia-en",
	"aura-2-andromeda-en",
	"aura-2-helena-en",
	"aura-2-apollo-en",
	"aura-2-arcas-en",
	"aura-2-aries-en",
	"aura-asteria-en",
	"aura-luna-en",
	"aura-orion-en",
}

func GetAvailableVoices() []string {
	return slices.Clone(availableVoices)
}

// Synthesizer turns reply text into a WAV payload with Deepgram's streaming
// speak API. Every call uses its own connection.
type Synthesizer struct {
	apiKey   string
	speakURL string
	options  texttospeech.SynthesisOptions
}

type SynthesizerOption func(*Synthesizer)

func WithAPIKey(apiKey string) SynthesizerOption {
	return func(s *Synthesizer) { s.apiKey = apiKey }
}

func WithSpeakURL(speakURL string) SynthesizerOption {
	return func(s *Synthesizer) { s.speakURL = speakURL }
}

func WithSynthesisOptions(opts ...texttospeech.SynthesisOption) SynthesizerOption {
	return func(s *Synthesizer) {
		s.options = texttospeech.NewSynthesisOptions(s.options, opts...)
	}
}

func NewSynthesizer(opts ...SynthesizerOption) (*Synthesizer, error) {
	s := &Synthesizer{
		speakURL: defaultSpeakURL,
		options: texttospeech.SynthesisOptions{
			Voice:        defaultVoice,
			EncodingInfo: audio.EncodingInfo{SampleRate: defaultSampleRate, Format: audio.EncodingLinear16},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if !slices.Contains(availableVoices, s.options.Voice) {
		return nil, fmt.Errorf("invalid voice %q", s.options.Voice)
	}
	if s.options.EncodingInfo.Format != audio.EncodingLinear16 {
		return nil, audio.ErrUnsupportedEncoding
	}
	if s.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok {
			return nil, fmt.Errorf("deepgram api key not found")
		}
		s.apiKey = apiKey
	}

	return s, nil
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("synthesis.voice", s.options.Voice),
		attribute.Int("synthesis.text_length", len(text)),
	)

	payload, err := s.synthesize(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return payload, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, texttospeech.ErrEmptyText
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return nil, fmt.Errorf("failed to send text: %w", err)
	}
	if err := conn.WriteJSON(speakMessage{Type: "Flush"}); err != nil {
		return nil, fmt.Errorf("failed to flush text: %w", err)
	}

	var pcm []byte
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("speech stream closed early: %w", err)
		}

		if msgType == websocket.BinaryMessage {
			pcm = append(pcm, msg...)
			continue
		}

		var parsed struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Debug("skipping unreadable speak message", "error", err)
			continue
		}

		switch parsed.Type {
		case "Flushed":
			if err := conn.WriteJSON(speakMessage{Type: "Close"}); err != nil {
				logger.Debug("failed to close speak stream", "error", err)
			}
			if len(pcm) == 0 {
				return nil, errors.New("deepgram returned no audio")
			}
			return audio.EncodeWAV(pcm, s.options.EncodingInfo)
		case "Warning":
			logger.Warn("deepgram speak warning", "description", parsed.Description)
		case "Error":
			return nil, fmt.Errorf("deepgram speak error: %s", parsed.Description)
		}
	}
}

func (s *Synthesizer) connect(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.speakURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}
	query := u.Query()
	query.Set("model", s.options.Voice)
	query.Set("encoding", s.options.EncodingInfo.Format.Name())
	query.Set("sample_rate", strconv.Itoa(s.options.EncodingInfo.SampleRate))
	u.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
