package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/koscakluka/ema-voice/core/transcription"
)

const closeTimeout = 5 * time.Second

// Orchestrator decides at every moment whether the conversation is
// listening, speaking or waiting on the dialogue backend.
//
// All methods are safe for concurrent use. Commands are queued onto a single
// event loop and return immediately; queries read the last published Status.
type Orchestrator struct {
	loop       *eventLoop
	controller *controller
	status     atomic.Pointer[Status]

	clients     collaborators
	clock       clockwork.Clock
	timing      Timing
	sentinels   []string
	sessionID   string
	initialMode ConversationMode

	orchestrateOnce sync.Once
	closeOnce       sync.Once
	cancel          context.CancelFunc
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		loop:      newEventLoop(),
		clock:     clockwork.NewRealClock(),
		timing:    DefaultTiming(),
		sentinels: transcription.DefaultPlaceholderSentinels,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.controller = &controller{
		vc:        newVoiceSessionContext(o.sessionID, o.initialMode),
		timing:    o.timing,
		scheduler: clockScheduler{clock: o.clock, post: o.post},
		post:      o.post,
		spawn:     func(work func()) { go work() },
		ctx:       context.Background(),
		clients:   o.clients,
		emit:      noopEventEmitter,
		metrics:   newVoiceMetrics(),
		sentinels: o.sentinels,
		onStatus:  func(status Status) { o.status.Store(&status) },
	}
	o.controller.publish()

	return o
}

// Orchestrate starts processing. Commands issued before it are kept and
// run once it starts.
//
// ctx is the base context for every recognizer, dialogue and transcription
// call; cancelling it closes the orchestrator. Only the first call has any
// effect.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.loop.isClosed() {
		logger.Warn("orchestrator already closed, skipping Orchestrate")
		return
	}

	o.orchestrateOnce.Do(func() {
		options := OrchestrateOptions{}
		for _, opt := range opts {
			opt(&options)
		}

		ctx, cancel := context.WithCancel(ctx)
		o.cancel = cancel
		o.controller.ctx = ctx
		o.controller.emit = newCallbackEventEmitter(options)

		if started := o.loop.start(); started {
			go func() {
				<-ctx.Done()
				o.Close()
			}()
		}
	})
}

// Close stops listening and playback, releases the microphone and ends the
// event loop. It must not be called from an orchestrator callback.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		if o.loop.started.Load() {
			done := make(chan struct{})
			if o.loop.post(func() {
				o.controller.shutdown()
				o.controller.publish()
				close(done)
			}) {
				select {
				case <-done:
				case <-time.After(closeTimeout):
					logger.Warn("timed out waiting for shutdown")
				}
			}
		} else {
			o.controller.shutdown()
			o.controller.publish()
		}

		o.loop.end()
		o.loop.waitUntilEnded()
		if o.cancel != nil {
			o.cancel()
		}
	})
}

func (o *Orchestrator) post(work func()) {
	o.loop.post(func() {
		work()
		o.controller.publish()
	})
}

// SetMode switches between push-to-talk and continuous listening. A live
// recognition session is restarted under the new mode. Choosing continuous
// explicitly re-enables it after it was turned off by repeated failures.
func (o *Orchestrator) SetMode(mode ConversationMode) {
	o.post(func() { o.controller.setMode(mode) })
}

// StartListening starts a listening turn. It does nothing while the
// assistant is speaking; use BargeIn to interrupt.
func (o *Orchestrator) StartListening() {
	o.post(func() { o.controller.startListening(false) })
}

// BargeIn stops the assistant's speech and starts listening.
func (o *Orchestrator) BargeIn() {
	o.post(func() { o.controller.startListening(true) })
}

// StopListening ends the listening turn. In push-to-talk the last fragment
// still in recognition is sent; a fallback recording is transcribed and
// sent. Calling it while idle does nothing.
func (o *Orchestrator) StopListening() {
	o.post(func() { o.controller.stopListening() })
}

// Interrupt stops the assistant's speech without starting a new turn.
func (o *Orchestrator) Interrupt() {
	o.post(func() { o.controller.interrupt() })
}

// SendText sends a typed message through the same dialogue path as speech.
func (o *Orchestrator) SendText(text string) {
	o.post(func() { o.controller.sendText(text) })
}

func (o *Orchestrator) Status() Status {
	if status := o.status.Load(); status != nil {
		return *status
	}
	return Status{}
}

func (o *Orchestrator) Mode() ConversationMode   { return o.Status().Mode }
func (o *Orchestrator) Flags() ConversationFlags { return o.Status().Flags }
func (o *Orchestrator) IsBusy() bool             { return o.Status().Flags.IsBusy() }
func (o *Orchestrator) SessionID() string        { return o.sessionID }
