package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

var ErrPlaybackStopped = errors.New("playback stopped")

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	sampleRate   uint32

	leftoverAudio []byte
	onFinished    func(error)
	// generation invalidates the finish callback of replaced playbacks
	generation uint64
	// stopWatch detaches the context watch of the current playback
	stopWatch func() bool

	mu      sync.Mutex
	audioMu sync.Mutex
}

func (c *playbackClient) init(sampleRate uint32) error {
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		c.device = nil
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	c.sampleRate = sampleRate

	return nil
}

// Play replaces whatever is playing with payload. onFinished fires once when
// the buffered audio has drained, or with the context error if ctx ends first.
// It never fires for playback replaced or stopped through Stop.
func (c *playbackClient) Play(ctx context.Context, payload []byte, onFinished func(error)) error {
	pcm, info, err := audio.DecodePayload(payload)
	if err != nil {
		return fmt.Errorf("failed to decode playback payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audioContext == nil {
		return fmt.Errorf("audio context not initialized")
	}

	c.resetLocked()
	if c.device != nil && c.sampleRate != uint32(info.SampleRate) {
		c.device.Uninit()
		c.device = nil
	}
	if c.device == nil {
		if err := c.init(uint32(info.SampleRate)); err != nil {
			return err
		}
	}

	c.arm(ctx, pcm, onFinished)

	if !c.device.IsStarted() {
		if err := c.device.Start(); err != nil {
			return fmt.Errorf("failed to start playback device: %w", err)
		}
	}

	return nil
}

// arm buffers pcm as the current playback and ties its end to ctx until it
// finishes or is reset.
func (c *playbackClient) arm(ctx context.Context, pcm []byte, onFinished func(error)) {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()

	c.generation++
	generation := c.generation
	c.leftoverAudio = append([]byte(nil), pcm...)
	c.onFinished = onFinished
	c.stopWatch = context.AfterFunc(ctx, func() {
		c.finish(generation, ctx.Err())
	})
}

// Stop halts output and drops the buffered audio, resetting the position.
func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) resetLocked() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.generation++
	c.leftoverAudio = nil
	c.onFinished = nil
	c.detachLocked()
}

func (c *playbackClient) detachLocked() {
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
}

func (c *playbackClient) finish(generation uint64, err error) {
	c.audioMu.Lock()
	if generation != c.generation || c.onFinished == nil {
		c.audioMu.Unlock()
		return
	}
	onFinished := c.onFinished
	c.onFinished = nil
	c.leftoverAudio = nil
	c.detachLocked()
	c.audioMu.Unlock()

	onFinished(err)
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.audioMu.Lock()
		if c.onFinished == nil {
			c.audioMu.Unlock()
			return
		}

		n := copy(pOutput[:min(need, len(pOutput))], c.leftoverAudio)
		c.leftoverAudio = c.leftoverAudio[n:]
		drained := len(c.leftoverAudio) == 0
		generation := c.generation
		c.audioMu.Unlock()

		if drained {
			// the device thread must not block on callbacks
			go c.finish(generation, nil)
		}
	}
}
