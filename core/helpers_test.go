package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/transcription"
)

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

// manualScheduler fires timers synchronously from advance.
type manualScheduler struct {
	now    time.Time
	timers []*manualTimer
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *manualScheduler) Now() time.Time { return s.now }

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) stopFunc {
	timer := &manualTimer{at: s.now.Add(d), f: f}
	s.timers = append(s.timers, timer)
	return func() bool {
		if timer.fired || timer.stopped {
			return false
		}
		timer.stopped = true
		return true
	}
}

func (s *manualScheduler) advance(d time.Duration) {
	target := s.now.Add(d)
	for {
		var next *manualTimer
		for _, timer := range s.timers {
			if timer.fired || timer.stopped || timer.at.After(target) {
				continue
			}
			if next == nil || timer.at.Before(next.at) {
				next = timer
			}
		}
		if next == nil {
			break
		}

		s.now = next.at
		next.fired = true
		next.f()
	}
	s.now = target
}

func (s *manualScheduler) pending() int {
	count := 0
	for _, timer := range s.timers {
		if !timer.fired && !timer.stopped {
			count++
		}
	}
	return count
}

type recognitionSessionStub struct {
	options   speechtotext.SessionOptions
	mu        sync.Mutex
	stopCalls int
}

func (s *recognitionSessionStub) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
	return nil
}

func (s *recognitionSessionStub) stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCalls
}

func (s *recognitionSessionStub) interim(text string) {
	s.options.ResultCallback(speechtotext.Result{Transcript: text})
}

func (s *recognitionSessionStub) final(text string) {
	s.options.ResultCallback(speechtotext.Result{Transcript: text, IsFinal: true})
}

func (s *recognitionSessionStub) fail(kind speechtotext.ErrorKind) {
	s.options.ErrorCallback(speechtotext.NewError(kind, nil))
}

func (s *recognitionSessionStub) end() {
	s.options.EndedCallback()
}

type recognizerStub struct {
	mu       sync.Mutex
	sessions []*recognitionSessionStub
	openErrs []error
	// busy refuses every open with ErrAlreadyStarted once openErrs run out.
	busy     bool
	attempts int
	opened   chan *recognitionSessionStub
}

func (r *recognizerStub) Open(_ context.Context, opts ...speechtotext.SessionOption) (speechtotext.Session, error) {
	r.mu.Lock()
	r.attempts++
	if len(r.openErrs) > 0 {
		err := r.openErrs[0]
		r.openErrs = r.openErrs[1:]
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}
	if r.busy {
		r.mu.Unlock()
		return nil, speechtotext.ErrAlreadyStarted
	}

	session := &recognitionSessionStub{options: speechtotext.NewSessionOptions(opts...)}
	r.sessions = append(r.sessions, session)
	opened := r.opened
	r.mu.Unlock()

	if opened != nil {
		opened <- session
	}
	return session, nil
}

func (r *recognizerStub) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *recognizerStub) last(t *testing.T) *recognitionSessionStub {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		t.Fatalf("expected a recognition session to be open")
	}
	return r.sessions[len(r.sessions)-1]
}

type dialogueGatewayStub struct {
	mu       sync.Mutex
	requests []dialogue.Request
	response dialogue.Response
	err      error
	onSend   func(dialogue.Request)
}

func (g *dialogueGatewayStub) Send(_ context.Context, request dialogue.Request) (dialogue.Response, error) {
	g.mu.Lock()
	g.requests = append(g.requests, request)
	onSend := g.onSend
	response, err := g.response, g.err
	g.mu.Unlock()

	if onSend != nil {
		onSend(request)
	}
	return response, err
}

func (g *dialogueGatewayStub) sent() []dialogue.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]dialogue.Request(nil), g.requests...)
}

type audioOutputStub struct {
	mu         sync.Mutex
	plays      [][]byte
	stopCalls  int
	onFinished func(error)
	playErr    error
	autoFinish bool
}

func (a *audioOutputStub) Play(_ context.Context, payload []byte, onFinished func(error)) error {
	a.mu.Lock()
	if a.playErr != nil {
		a.mu.Unlock()
		return a.playErr
	}
	a.plays = append(a.plays, payload)
	a.onFinished = onFinished
	autoFinish := a.autoFinish
	a.mu.Unlock()

	if autoFinish {
		go onFinished(nil)
	}
	return nil
}

func (a *audioOutputStub) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopCalls++
	a.onFinished = nil
	return nil
}

func (a *audioOutputStub) finish(err error) {
	a.mu.Lock()
	onFinished := a.onFinished
	a.onFinished = nil
	a.mu.Unlock()
	if onFinished != nil {
		onFinished(err)
	}
}

type microphoneStub struct {
	mu        sync.Mutex
	onAudio   func([]byte)
	startErr  error
	starts    int
	stops     int
	capturing bool
}

func (m *microphoneStub) StartCapture(_ context.Context, onAudio func([]byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.onAudio = onAudio
	m.capturing = true
	return nil
}

func (m *microphoneStub) StopCapture() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.onAudio = nil
	m.capturing = false
	return nil
}

func (m *microphoneStub) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (m *microphoneStub) speak(pcm []byte) {
	m.mu.Lock()
	onAudio := m.onAudio
	m.mu.Unlock()
	if onAudio != nil {
		onAudio(pcm)
	}
}

type transcriberStub struct {
	payloads [][]byte
	result   transcription.Result
	err      error
}

func (s *transcriberStub) Transcribe(_ context.Context, payload []byte) (transcription.Result, error) {
	s.payloads = append(s.payloads, payload)
	return s.result, s.err
}

type logEntry struct {
	role Role
	text string
}

type conversationLogStub struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *conversationLogStub) Append(role Role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{role: role, text: text})
}

func (l *conversationLogStub) count(role Role, text string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, entry := range l.entries {
		if entry.role == role && entry.text == text {
			count++
		}
	}
	return count
}

// harness drives a controller without an event loop: posted work runs
// inline and spawned work runs when the test calls runSpawned.
type harness struct {
	t          *testing.T
	c          *controller
	scheduler  *manualScheduler
	spawned    []func()
	events     []events.Event
	recognizer *recognizerStub
	gateway    *dialogueGatewayStub
	output     *audioOutputStub
	microphone *microphoneStub
	transcribe *transcriberStub
	log        *conversationLogStub
}

type harnessOption func(*harness)

func withoutRecognizer() harnessOption {
	return func(h *harness) { h.c.clients.recognizer = nil }
}

func newHarness(t *testing.T, mode ConversationMode, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		t:          t,
		scheduler:  newManualScheduler(),
		recognizer: &recognizerStub{},
		gateway:    &dialogueGatewayStub{response: dialogue.Response{ResponseText: "ok"}},
		output:     &audioOutputStub{},
		microphone: &microphoneStub{},
		transcribe: &transcriberStub{},
		log:        &conversationLogStub{},
	}
	h.c = &controller{
		vc:        newVoiceSessionContext("session-test", mode),
		timing:    DefaultTiming(),
		scheduler: h.scheduler,
		post:      func(work func()) { work() },
		spawn:     func(work func()) { h.spawned = append(h.spawned, work) },
		ctx:       context.Background(),
		clients: collaborators{
			recognizer:  h.recognizer,
			microphone:  h.microphone,
			transcriber: h.transcribe,
			gateway:     h.gateway,
			output:      h.output,
			log:         h.log,
		},
		emit:      func(event events.Event) { h.events = append(h.events, event) },
		metrics:   newVoiceMetrics(),
		sentinels: transcription.DefaultPlaceholderSentinels,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *harness) runSpawned() {
	for len(h.spawned) > 0 {
		work := h.spawned[0]
		h.spawned = h.spawned[1:]
		work()
	}
}

// listen starts listening and opens the recognition session.
func (h *harness) listen() *recognitionSessionStub {
	h.t.Helper()
	h.c.startListening(false)
	h.runSpawned()
	session := h.recognizer.last(h.t)
	if h.c.vc.state != stateActive {
		h.t.Fatalf("expected active session, got %v", h.c.vc.state)
	}
	return session
}

func (h *harness) countEvents(match func(events.Event) bool) int {
	count := 0
	for _, event := range h.events {
		if match(event) {
			count++
		}
	}
	return count
}

func (h *harness) indexOf(match func(events.Event) bool) int {
	for i, event := range h.events {
		if match(event) {
			return i
		}
	}
	return -1
}

func (h *harness) assertExclusive() {
	h.t.Helper()
	if h.c.vc.flags.IsListening && h.c.vc.flags.IsSpeaking {
		h.t.Fatalf("expected listening and speaking never to be set together")
	}
}

func isNotice(event events.Event) bool {
	_, ok := event.(events.Notice)
	return ok
}

var errBackendDown = errors.New("backend down")

type synthesizerStub struct {
	texts   []string
	payload []byte
	err     error
}

func (s *synthesizerStub) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.texts = append(s.texts, text)
	return s.payload, s.err
}
