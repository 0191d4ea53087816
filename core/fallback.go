package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/transcription"
)

var (
	ErrEmptyRecording   = errors.New("recording captured no audio")
	ErrNoTranscriber    = errors.New("no transcriber configured")
	ErrPlaceholderReply = errors.New("transcription returned a placeholder")
)

// recording buffers microphone audio for one fallback turn. The device is
// acquired and released under deviceMu so a release can never run before
// the acquire it undoes.
type recording struct {
	mu   sync.Mutex
	data []byte

	deviceMu sync.Mutex
	released bool
}

func (r *recording) write(p []byte) {
	r.mu.Lock()
	r.data = append(r.data, p...)
	r.mu.Unlock()
}

func (r *recording) take() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := r.data
	r.data = nil
	return data
}

func (r *recording) acquire(ctx context.Context, mic Microphone) error {
	r.deviceMu.Lock()
	defer r.deviceMu.Unlock()
	if r.released {
		return nil
	}
	return mic.StartCapture(ctx, r.write)
}

func (r *recording) release(mic Microphone) {
	r.deviceMu.Lock()
	defer r.deviceMu.Unlock()
	if r.released {
		return
	}
	r.released = true
	if err := mic.StopCapture(); err != nil {
		logger.Warn("failed to release microphone", "error", err)
	}
}

func (c *controller) startFallback() {
	vc := c.vc
	if vc.fallback.active || vc.flags.IsSpeaking {
		return
	}
	mic := c.clients.microphone
	if mic == nil {
		c.notify(noticeNoMicrophone)
		return
	}

	vc.fallback.seq++
	seq := vc.fallback.seq
	rec := &recording{}
	vc.fallback.active = true
	vc.fallback.recording = rec
	c.setListening(true)

	ctx := c.ctx
	c.spawn(panicSafe("microphone capture", func() {
		if err := rec.acquire(ctx, mic); err != nil {
			c.post(func() { c.onFallbackCaptureFailed(seq, err) })
		}
	}))
}

func (c *controller) onFallbackCaptureFailed(seq uint64, err error) {
	vc := c.vc
	if !vc.fallback.active || vc.fallback.seq != seq {
		return
	}

	logger.Warn("failed to start microphone capture", "error", err)
	c.stopFallback(false)
	c.notify(messagePermission)
}

// stopFallback always releases the microphone. With submit set the recorded
// audio is transcribed and sent on as a spoken utterance.
func (c *controller) stopFallback(submit bool) {
	vc := c.vc
	if !vc.fallback.active {
		return
	}

	rec := vc.fallback.recording
	vc.fallback.active = false
	vc.fallback.recording = nil
	vc.fallback.seq++
	c.setListening(false)

	mic := c.clients.microphone
	transcriber := c.clients.transcriber
	ctx := c.ctx
	if !submit {
		c.spawn(panicSafe("microphone release", func() { rec.release(mic) }))
		return
	}

	c.beginProcessing()
	c.spawn(panicSafe("fallback transcription", func() {
		rec.release(mic)
		result, err := transcribeRecording(ctx, transcriber, rec.take(), mic.EncodingInfo())
		c.post(func() { c.onFallbackTranscribed(result, err) })
	}))
}

func transcribeRecording(
	ctx context.Context,
	transcriber Transcriber,
	pcm []byte,
	info audio.EncodingInfo,
) (transcription.Result, error) {
	if len(pcm) == 0 {
		return transcription.Result{}, ErrEmptyRecording
	}
	if transcriber == nil {
		return transcription.Result{}, ErrNoTranscriber
	}

	payload, err := audio.EncodeWAV(pcm, info)
	if err != nil {
		return transcription.Result{}, fmt.Errorf("failed to encode recording: %w", err)
	}
	logger.Info("transcribing recording", "duration", info.Duration(len(pcm)), "bytes", len(payload))

	return transcriber.Transcribe(ctx, payload)
}

func (c *controller) onFallbackTranscribed(result transcription.Result, err error) {
	c.endProcessing()

	if err == nil && (result.Text == "" || transcription.IsPlaceholder(result.Text, c.sentinels)) {
		err = fmt.Errorf("%w: %q", ErrPlaceholderReply, result.Text)
	}
	if err != nil {
		c.apologize(apologyTranscription, err)
		c.resumeAfterTurn()
		return
	}

	c.sendUtterance(result.Text, dialogue.ModalityVoice)
}
