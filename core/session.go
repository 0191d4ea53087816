package orchestration

import (
	"errors"
	"time"

	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

type sessionEventKind int

const (
	sessionStart sessionEventKind = iota
	sessionOpened
	sessionOpenFailed
	sessionInterim
	sessionFinal
	sessionSilenceCheck
	sessionError
	sessionEnded
	sessionRestartDue
	sessionGraceExpired
	// sessionStop is the user's stop: push-to-talk gets a graceful flush.
	sessionStop
	// sessionHalt stops at once, for playback, mode switches and shutdown.
	sessionHalt
)

func (k sessionEventKind) String() string {
	switch k {
	case sessionStart:
		return "start"
	case sessionOpened:
		return "opened"
	case sessionOpenFailed:
		return "open-failed"
	case sessionInterim:
		return "interim"
	case sessionFinal:
		return "final"
	case sessionSilenceCheck:
		return "silence-check"
	case sessionError:
		return "error"
	case sessionEnded:
		return "ended"
	case sessionRestartDue:
		return "restart-due"
	case sessionGraceExpired:
		return "grace-expired"
	case sessionStop:
		return "stop"
	case sessionHalt:
		return "halt"
	}
	return "unknown"
}

type sessionEvent struct {
	kind sessionEventKind
	text string
	err  speechtotext.Error
}

type effect func(c *controller)

// transition is the next state plus the effects to run once it is
// committed.
type transition struct {
	next    sessionState
	effects []effect
}

type transitionFunc func(c *controller, ev sessionEvent) transition

var sessionTable map[sessionState]map[sessionEventKind]transitionFunc

func init() {
	live := map[sessionEventKind]transitionFunc{
		sessionStart:        onStart,
		sessionInterim:      onInterim,
		sessionFinal:        onFinal,
		sessionSilenceCheck: onSilenceCheck,
		sessionError:        onError,
		sessionEnded:        onEnded,
		sessionStop:         onStop,
		sessionHalt:         toIdle,
	}

	starting := map[sessionEventKind]transitionFunc{
		sessionOpened:     onOpened,
		sessionOpenFailed: onOpenFailed,
	}
	for kind, fn := range live {
		starting[kind] = fn
	}

	sessionTable = map[sessionState]map[sessionEventKind]transitionFunc{
		stateIdle: {
			sessionStart: onStart,
		},
		stateStarting: starting,
		stateActive:   live,
		stateRestarting: {
			sessionStart:        onStart,
			sessionRestartDue:   onRestartDue,
			sessionSilenceCheck: onSilenceCheck,
			sessionStop:         toIdle,
			sessionHalt:         toIdle,
		},
		stateStopping: {
			sessionStart:        onStart,
			sessionInterim:      onInterim,
			sessionFinal:        sendAndIdle,
			sessionError:        onStoppingError,
			sessionEnded:        toIdle,
			sessionGraceExpired: toIdle,
			sessionStop:         toIdle,
			sessionHalt:         toIdle,
		},
	}
}

// dispatch runs one event through the session table. Events without an
// entry for the current state are dropped.
func (c *controller) dispatch(ev sessionEvent) {
	from := c.vc.state
	fn, ok := sessionTable[from][ev.kind]
	if !ok {
		logger.Debug("dropped recognition event", "state", from.String(), "event", ev.kind.String())
		return
	}

	t := fn(c, ev)
	c.vc.state = t.next
	if from != t.next {
		logger.Debug("recognition state changed", "from", from.String(), "to", t.next.String(), "event", ev.kind.String())
	}
	for _, apply := range t.effects {
		apply(c)
	}
}

// fromHandle delivers a recognizer callback if it still belongs to the
// current handle.
func (c *controller) fromHandle(seq uint64, ev sessionEvent) {
	if seq != c.vc.handleSeq {
		return
	}
	c.dispatch(ev)
}

// after schedules ev under the current generation.
func (c *controller) after(d time.Duration, ev sessionEvent) stopFunc {
	generation := c.vc.generation
	return c.scheduler.AfterFunc(d, func() {
		if generation != c.vc.generation {
			return
		}
		c.dispatch(ev)
	})
}

func stay(c *controller, effects ...effect) transition {
	return transition{next: c.vc.state, effects: effects}
}

func onStart(c *controller, _ sessionEvent) transition {
	effects := []effect{}
	if c.vc.state != stateIdle {
		effects = append(effects, endSession(true))
	}
	return transition{next: stateStarting, effects: append(effects, beginSession, openSession)}
}

func onOpened(c *controller, _ sessionEvent) transition {
	return transition{next: stateActive, effects: []effect{func(c *controller) {
		c.vc.history.busyReopenCount = 0
		c.vc.releasedHandle = nil
		c.emit(events.NewRecognitionStarted(c.vc.continueListening))
	}}}
}

// onOpenFailed retries an open the recognizer refused because an earlier
// handle is still winding down. Each retry stops that handle again, which
// closes it outright, and the retries are capped.
func onOpenFailed(c *controller, ev sessionEvent) transition {
	if !errors.Is(ev.err, speechtotext.ErrAlreadyStarted) {
		return onError(c, ev)
	}

	busyReopens := c.vc.history.busyReopenCount + 1
	if busyReopens > c.timing.MaxBusyReopens {
		return transition{next: stateIdle, effects: []effect{
			func(c *controller) {
				logger.Warn("recognizer stayed busy, giving up", "attempts", busyReopens)
				c.emit(events.NewRecognitionFailed(ev.err.Code, handlingFatal.String()))
			},
			endSession(true),
			func(c *controller) { c.notify(messageRecognizerBusy) },
		}}
	}

	logger.Info("recognizer still busy, retrying", "attempt", busyReopens)
	return transition{next: stateRestarting, effects: []effect{
		func(c *controller) { c.vc.history.busyReopenCount = busyReopens },
		releaseHandle,
		stopReleasedHandle,
		func(c *controller) { c.vc.reopenPending = true },
		scheduleRestart(c.timing.RestartDebounce),
	}}
}

func onInterim(c *controller, ev sessionEvent) transition {
	return stay(c, func(c *controller) {
		c.vc.history.networkRetryCount = 0
		c.vc.buffer.setInterim(ev.text, c.scheduler.Now())
		c.emit(events.NewUserTranscriptInterimUpdated(c.vc.buffer.display()))
	})
}

func onFinal(c *controller, ev sessionEvent) transition {
	if !c.vc.continueListening {
		return sendAndIdle(c, ev)
	}

	return stay(c, appendFinal(ev.text), func(c *controller) {
		cancelTimer(&c.vc.timers.silence)
		c.vc.timers.silence = c.after(c.timing.SilenceCheckDelay, sessionEvent{kind: sessionSilenceCheck})
	})
}

// sendAndIdle stops the session before the utterance goes out.
func sendAndIdle(_ *controller, ev sessionEvent) transition {
	return transition{next: stateIdle, effects: []effect{
		appendFinal(ev.text),
		endSession(false),
		sendBuffered,
	}}
}

func onSilenceCheck(c *controller, _ sessionEvent) transition {
	c.vc.timers.silence = nil
	elapsed := c.scheduler.Now().Sub(c.vc.buffer.lastUpdateAt)
	if elapsed < c.timing.SilenceThreshold || c.vc.buffer.isEmpty() {
		return stay(c)
	}
	return stay(c, sendBuffered)
}

func onError(c *controller, ev sessionEvent) transition {
	decision, history := classifyError(ev.err, c.vc.mode, c.vc.history, c.vc.breaker, c.scheduler.Now(), c.timing)
	record := func(c *controller) {
		c.vc.history = history
		c.metrics.recognitionError(c.ctx, ev.err, decision.handling.String())
		c.emit(events.NewRecognitionFailed(ev.err.Code, decision.handling.String()))
		logger.Warn("recognition error", "code", ev.err.Code, "handling", decision.handling.String(), "error", ev.err.Err)
	}

	switch decision.handling {
	case handlingIgnore:
		return stay(c, record)

	case handlingRetry:
		return transition{next: stateRestarting, effects: []effect{
			record,
			releaseHandle,
			scheduleRestart(c.timing.NetworkRetryDelay),
		}}

	case handlingDemote:
		return transition{next: stateIdle, effects: []effect{
			record,
			endSession(true),
			func(c *controller) {
				c.metrics.demotions.Add(c.ctx, 1)
				c.demote(decision.message)
			},
		}}

	case handlingTrip:
		return transition{next: stateIdle, effects: []effect{
			record,
			endSession(true),
			func(c *controller) {
				c.vc.breaker.tripped = true
				c.metrics.breakerTrips.Add(c.ctx, 1)
				c.emit(events.NewCircuitBreakerTripped(history.abortedBurstCount))
				c.demote(decision.message)
			},
		}}
	}

	effects := []effect{record, endSession(true), func(c *controller) { c.notify(decision.message) }}
	if decision.fallback {
		effects = append(effects, func(c *controller) { c.startFallback() })
	}
	return transition{next: stateIdle, effects: effects}
}

func onStoppingError(c *controller, ev sessionEvent) transition {
	return transition{next: stateIdle, effects: []effect{
		func(c *controller) {
			logger.Warn("recognition error while stopping", "code", ev.err.Code, "error", ev.err.Err)
		},
		endSession(true),
	}}
}

func onEnded(c *controller, _ sessionEvent) transition {
	if c.vc.continueListening {
		return transition{next: stateRestarting, effects: []effect{
			releaseHandle,
			scheduleRestart(c.timing.RestartDebounce),
		}}
	}
	return toIdle(c, sessionEvent{})
}

func onRestartDue(c *controller, _ sessionEvent) transition {
	c.vc.timers.restart = nil
	if !c.vc.continueListening && !c.vc.reopenPending {
		return toIdle(c, sessionEvent{})
	}
	return transition{next: stateStarting, effects: []effect{
		func(c *controller) { c.metrics.restart(c.ctx, "scheduled") },
		openSession,
	}}
}

// onStop flushes a live push-to-talk session so its last fragment is still
// sent; everything else stops at once.
func onStop(c *controller, ev sessionEvent) transition {
	if c.vc.continueListening || c.vc.handle == nil {
		return toIdle(c, ev)
	}

	return transition{next: stateStopping, effects: []effect{func(c *controller) {
		c.vc.generation++
		c.vc.timers.cancelSession()
		c.setListening(false)

		handle := c.vc.handle
		c.spawn(panicSafe("recognition stop", func() {
			if err := handle.Stop(); err != nil {
				logger.Warn("failed to stop recognition session", "error", err)
			}
		}))
		c.vc.timers.grace = c.after(c.timing.StopGracePeriod, sessionEvent{kind: sessionGraceExpired})
	}}}
}

func toIdle(_ *controller, _ sessionEvent) transition {
	return transition{next: stateIdle, effects: []effect{endSession(true)}}
}

func beginSession(c *controller) {
	c.vc.generation++
	c.vc.timers.cancelSession()
	c.vc.history = errorHistory{}
	c.vc.buffer.clear()
	c.vc.continueListening = c.vc.mode == ModeContinuous
	c.setListening(true)
}

func openSession(c *controller) {
	c.vc.reopenPending = false
	c.vc.handleSeq++
	seq := c.vc.handleSeq
	c.vc.handle = nil

	opts := []speechtotext.SessionOption{
		speechtotext.WithContinuous(c.vc.continueListening),
		speechtotext.WithInterimResults(true),
		speechtotext.WithResultCallback(func(result speechtotext.Result) {
			kind := sessionInterim
			if result.IsFinal {
				kind = sessionFinal
			}
			c.post(func() { c.fromHandle(seq, sessionEvent{kind: kind, text: result.Transcript}) })
		}),
		speechtotext.WithErrorCallback(func(err speechtotext.Error) {
			c.post(func() { c.fromHandle(seq, sessionEvent{kind: sessionError, err: err}) })
		}),
		speechtotext.WithEndedCallback(func() {
			c.post(func() { c.fromHandle(seq, sessionEvent{kind: sessionEnded}) })
		}),
	}

	recognizer := c.clients.recognizer
	ctx := c.ctx
	c.spawn(panicSafe("recognition open", func() {
		handle, err := recognizer.Open(ctx, opts...)
		c.post(func() { c.onHandleOpened(seq, handle, err) })
	}))
}

func (c *controller) onHandleOpened(seq uint64, handle speechtotext.Session, err error) {
	if seq != c.vc.handleSeq {
		if handle != nil {
			c.vc.releasedHandle = handle
			c.spawn(panicSafe("recognition stop", func() { _ = handle.Stop() }))
		}
		return
	}

	if err != nil {
		c.dispatch(sessionEvent{kind: sessionOpenFailed, err: speechtotext.AsError(err)})
		return
	}

	c.vc.handle = handle
	c.dispatch(sessionEvent{kind: sessionOpened})
}

// releaseHandle stops the current handle, if any, and invalidates every
// callback still in flight for it.
func releaseHandle(c *controller) {
	c.vc.handleSeq++
	handle := c.vc.handle
	c.vc.handle = nil
	if handle == nil {
		return
	}
	c.vc.releasedHandle = handle

	c.spawn(panicSafe("recognition stop", func() {
		if err := handle.Stop(); err != nil {
			logger.Warn("failed to stop recognition session", "error", err)
		}
	}))
}

// stopReleasedHandle stops the last released handle once more. A session
// that ignored the graceful stop is closed by the second one.
func stopReleasedHandle(c *controller) {
	handle := c.vc.releasedHandle
	if handle == nil {
		return
	}

	c.spawn(panicSafe("recognition stop", func() {
		if err := handle.Stop(); err != nil {
			logger.Warn("failed to close stale recognition session", "error", err)
		}
	}))
}

func scheduleRestart(delay time.Duration) effect {
	return func(c *controller) {
		cancelTimer(&c.vc.timers.restart)
		c.vc.timers.restart = c.after(delay, sessionEvent{kind: sessionRestartDue})
	}
}

func endSession(clearBuffer bool) effect {
	return func(c *controller) {
		c.vc.generation++
		c.vc.timers.cancelSession()
		releaseHandle(c)
		c.vc.continueListening = false
		c.vc.reopenPending = false
		if clearBuffer {
			hadDisplay := c.vc.buffer.display() != ""
			c.vc.buffer.clear()
			if hadDisplay {
				c.emit(events.NewUserTranscriptInterimUpdated(""))
			}
		}
		c.setListening(false)
		c.emit(events.NewRecognitionEnded())
	}
}

func appendFinal(text string) effect {
	return func(c *controller) {
		c.vc.history.networkRetryCount = 0
		c.vc.buffer.appendFinal(text, c.scheduler.Now())
		c.emit(events.NewUserTranscriptInterimUpdated(c.vc.buffer.display()))
	}
}

func sendBuffered(c *controller) {
	text := c.vc.buffer.snapshot()
	c.vc.buffer.clear()
	c.emit(events.NewUserTranscriptInterimUpdated(""))
	c.sendUtterance(text, dialogue.ModalityVoice)
}
