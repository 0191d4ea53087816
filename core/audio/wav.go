package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const (
	wavBitDepth  = 16
	wavPCMFormat = 1
)

var ErrUnsupportedEncoding = errors.New("audio: only linear16 audio can be wrapped as wav")

// EncodeWAV wraps mono little-endian linear16 samples into a WAV container.
func EncodeWAV(pcm []byte, info EncodingInfo) ([]byte, error) {
	if info.IsZero() {
		info = GetDefaultEncodingInfo()
	}
	if info.Format != EncodingLinear16 {
		return nil, ErrUnsupportedEncoding
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	// the encoder seeks back to patch the header sizes on Close
	out := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(out, info.SampleRate, wavBitDepth, 1, wavPCMFormat)
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: info.SampleRate},
		Data:           samples,
		SourceBitDepth: wavBitDepth,
	}
	if err := encoder.Write(buffer); err != nil {
		return nil, fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav header: %w", err)
	}

	payload, err := io.ReadAll(out.Reader())
	if err != nil {
		return nil, fmt.Errorf("failed to read wav payload: %w", err)
	}
	return payload, nil
}

func decodeWAV(payload []byte) ([]byte, EncodingInfo, error) {
	decoder := wav.NewDecoder(bytes.NewReader(payload))
	if !decoder.IsValidFile() {
		return nil, EncodingInfo{}, errors.New("invalid wav payload")
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, EncodingInfo{}, fmt.Errorf("failed to decode wav payload: %w", err)
	}
	if buffer == nil || len(buffer.Data) == 0 {
		return nil, EncodingInfo{}, errors.New("empty wav payload")
	}

	channels := int(decoder.NumChans)
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = wavBitDepth
	}

	pcm := make([]byte, 0, len(buffer.Data)/channels*2)
	for i := 0; i+channels <= len(buffer.Data); i += channels {
		sum := 0
		for ch := range channels {
			sum += buffer.Data[i+ch]
		}
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(toInt16(sum/channels, bitDepth)))
	}

	return pcm, EncodingInfo{SampleRate: int(decoder.SampleRate), Format: EncodingLinear16}, nil
}

func toInt16(sample, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		return int16((sample - 128) << 8)
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	default:
		return int16(sample)
	}
}
