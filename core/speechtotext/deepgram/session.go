package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

// Deepgram reports request failures with a message of this type before
// closing the socket.
const typeErrorResponse api.TypeResponse = "Error"

type session struct {
	recognizer *Recognizer
	options    speechtotext.SessionOptions

	conn        *websocket.Conn
	connMu      sync.Mutex
	lastAudioAt time.Time

	heardSpeech   atomic.Bool
	stopping      atomic.Bool
	noSpeechTimer clockwork.Timer
	cancel        context.CancelFunc
	endOnce       sync.Once
}

func newSession(r *Recognizer, options speechtotext.SessionOptions) *session {
	return &session{recognizer: r, options: options}
}

type connectionOptions struct {
	model      string
	language   string
	sampleRate int
	encoding   string

	interimResults bool
}

func connectWebsocket(listenURL string, apiKey string, options connectionOptions) (*websocket.Conn, error) {
	u, err := url.Parse(listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}
	queryParams := u.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", options.model)
	queryParams.Set("language", options.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("endpointing", "300")
	queryParams.Set("utterance_end_ms", "1000")
	// utterance end detection needs interim results on the wire even when the
	// caller does not want them
	queryParams.Set("interim_results", "true")
	queryParams.Set("vad_events", "true")

	u.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (s *session) sendAudio(audio []byte) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.stopping.Load() {
		return
	}

	s.lastAudioAt = s.recognizer.clock.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		logger.Warn("failed to write audio to deepgram", "error", err)
	}
}

func (s *session) writeControl(msgType api.TypeResponse) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return nil
	}

	return s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(msgType)})
}

// Stop asks Deepgram to flush and close the stream. Results still in flight
// are delivered before EndedCallback. A second Stop closes the socket.
func (s *session) Stop() error {
	if s.noSpeechTimer != nil {
		s.noSpeechTimer.Stop()
	}

	if s.stopping.Swap(true) {
		s.connMu.Lock()
		defer s.connMu.Unlock()
		if s.conn != nil {
			return s.conn.Close()
		}
		return nil
	}

	s.recognizer.stopCapture(s)

	if err := s.writeControl(api.TypeCloseStreamResponse); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (s *session) keepAlive(ctx context.Context) {
	ticker := s.recognizer.clock.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.connMu.Lock()
			idle := s.recognizer.clock.Since(s.lastAudioAt) >= keepAliveInterval
			s.connMu.Unlock()
			if !idle {
				continue
			}
			if err := s.writeControl("KeepAlive"); err != nil {
				logger.Warn("failed to send keep alive to deepgram", "error", err)
			}
		}
	}
}

func (s *session) readMessages(ctx context.Context) {
	defer s.end()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !s.stopping.Load() &&
				!websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.reportError(speechtotext.NewError(speechtotext.ErrorKindNetwork, err))
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg)
		}
	}
}

func (s *session) processMessage(msg []byte) {
	var parsedMsg struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}

		alternative := msgResp.Channel.Alternatives[0]
		transcript := strings.TrimSpace(alternative.Transcript)
		if len(transcript) > 0 {
			s.heardSpeech.Store(true)
			if s.noSpeechTimer != nil {
				s.noSpeechTimer.Stop()
			}

			if msgResp.IsFinal || s.options.InterimResults {
				s.deliver(speechtotext.Result{
					Transcript: transcript,
					IsFinal:    msgResp.IsFinal,
					Confidence: alternative.Confidence,
				})
			}
		}
		if msgResp.IsFinal && msgResp.SpeechFinal && !s.options.Continuous && s.heardSpeech.Load() {
			_ = s.Stop()
		}

	case api.TypeUtteranceEndResponse:
		if !s.options.Continuous && s.heardSpeech.Load() {
			_ = s.Stop()
		}

	case typeErrorResponse:
		s.reportError(speechtotext.NewError(speechtotext.ErrorKindNetwork,
			fmt.Errorf("deepgram: %s", parsedMsg.Description)))
	}
}

func (s *session) deliver(result speechtotext.Result) {
	if s.options.ResultCallback != nil {
		s.options.ResultCallback(result)
	}
}

func (s *session) reportError(err speechtotext.Error) {
	if s.options.ErrorCallback != nil {
		s.options.ErrorCallback(err)
	}
}

func (s *session) onNoSpeech() {
	if s.heardSpeech.Load() || s.stopping.Load() {
		return
	}
	s.reportError(speechtotext.NewError(speechtotext.ErrorKindNoSpeech, nil))
	_ = s.Stop()
}

func (s *session) end() {
	s.endOnce.Do(func() {
		if s.noSpeechTimer != nil {
			s.noSpeechTimer.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}

		s.connMu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.connMu.Unlock()

		s.recognizer.release(s)

		if s.options.EndedCallback != nil {
			s.options.EndedCallback()
		}
	})
}
