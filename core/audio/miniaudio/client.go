package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

// Client owns one miniaudio context shared by the microphone and the single
// playback output.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {}, //log.Println("malgo:", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}

	client := Client{audioContext: audioCtx}
	client.playbackClient.audioContext = audioCtx
	client.captureClient.audioContext = audioCtx

	return &client, nil
}

// StartCapture acquires the capture device and streams linear16 frames to
// onAudio until StopCapture.
func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

// StopCapture stops and uninitializes the capture device so the OS-level
// device lock is released.
func (c *Client) StopCapture() error {
	return c.captureClient.Release()
}

func (c *Client) Play(ctx context.Context, payload []byte, onFinished func(error)) error {
	return c.playbackClient.Play(ctx, payload, onFinished)
}

func (c *Client) Stop() error {
	return c.playbackClient.Stop()
}

func (c *Client) Close() {
	_ = c.captureClient.Release()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
