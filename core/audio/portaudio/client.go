package portaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-voice/core/audio"
)

// Client is a capture-only microphone. The input stream is opened on
// StartCapture and closed on StopCapture so the device is not held between
// turns.
type Client struct {
	bufferSize int

	stream *portaudio.Stream
	in     []int16
	cancel context.CancelFunc
	done   chan struct{}

	mu sync.Mutex
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &Client{bufferSize: bufferSize}, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	in := make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, c.bufferSize, in)
	if err != nil {
		return fmt.Errorf("failed to open PortAudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	captureCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stream = stream
	c.in = in
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.read(captureCtx, stream, in, c.done, onAudio)

	return nil
}

func (c *Client) read(ctx context.Context, stream *portaudio.Stream, in []int16, done chan struct{}, onAudio func(audio []byte)) {
	defer close(done)

	frame := make([]byte, len(in)*2)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("failed to read from PortAudio stream", "error", err)
			continue
		}

		for i, sample := range in {
			binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
		}
		onAudio(append([]byte(nil), frame...))
	}
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}

	c.cancel()
	err := c.stream.Stop()
	<-c.done
	if closeErr := c.stream.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	c.stream = nil
	c.in = nil
	if err != nil {
		return fmt.Errorf("failed to release PortAudio stream: %w", err)
	}

	return nil
}

func (c *Client) Close() {
	_ = c.StopCapture()
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
