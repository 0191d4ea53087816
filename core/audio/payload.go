package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodePayload turns a response audio payload into mono linear16 samples.
//
// WAV and MP3 containers are sniffed from their magic bytes. Anything else is
// treated as raw linear16 at the default sample rate.
func DecodePayload(payload []byte) ([]byte, EncodingInfo, error) {
	switch {
	case bytes.HasPrefix(payload, []byte("RIFF")):
		return decodeWAV(payload)
	case isMP3(payload):
		return decodeMP3(payload)
	default:
		return payload, GetDefaultEncodingInfo(), nil
	}
}

func isMP3(payload []byte) bool {
	if bytes.HasPrefix(payload, []byte("ID3")) {
		return true
	}
	// MPEG frame sync: 11 set bits
	return len(payload) > 2 && payload[0] == 0xFF && payload[1]&0xE0 == 0xE0
}

func decodeMP3(payload []byte) ([]byte, EncodingInfo, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(payload))
	if err != nil {
		return nil, EncodingInfo{}, fmt.Errorf("failed to open mp3 payload: %w", err)
	}

	var stereo bytes.Buffer
	if _, err := io.Copy(&stereo, decoder); err != nil {
		return nil, EncodingInfo{}, fmt.Errorf("failed to decode mp3 payload: %w", err)
	}

	// go-mp3 always yields interleaved 16-bit stereo
	raw := stereo.Bytes()
	mono := make([]byte, 0, len(raw)/2)
	for i := 0; i+4 <= len(raw); i += 4 {
		left := int(int16(binary.LittleEndian.Uint16(raw[i:])))
		right := int(int16(binary.LittleEndian.Uint16(raw[i+2:])))
		mono = binary.LittleEndian.AppendUint16(mono, uint16(int16((left+right)/2)))
	}

	return mono, EncodingInfo{SampleRate: decoder.SampleRate(), Format: EncodingLinear16}, nil
}
