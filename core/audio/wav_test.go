package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestEncodeWAVProducesDecodablePayload(t *testing.T) {
	pcm := []byte{}
	for _, sample := range []int16{0, 1000, -1000, 32767, -32768} {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(sample))
	}

	payload, err := EncodeWAV(pcm, GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected wav encoding to succeed, got %v", err)
	}
	if !bytes.HasPrefix(payload, []byte("RIFF")) {
		t.Fatalf("expected RIFF header, got %q", payload[:4])
	}

	decoded, info, err := DecodePayload(payload)
	if err != nil {
		t.Fatalf("expected wav payload to decode, got %v", err)
	}
	if info.SampleRate != DefaultSampleRate || info.Format != EncodingLinear16 {
		t.Fatalf("expected default encoding info, got %+v", info)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Fatalf("expected decoded samples %v, got %v", pcm, decoded)
	}
}

func TestEncodeWAVRejectsCompandedAudio(t *testing.T) {
	_, err := EncodeWAV([]byte{0xFF}, EncodingInfo{SampleRate: 8000, Format: EncodingMulaw})
	if err != ErrUnsupportedEncoding {
		t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
	}
}

func TestDecodePayloadPassesRawAudioThrough(t *testing.T) {
	raw := []byte{0x01, 0x00, 0x02, 0x00}

	decoded, info, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("expected raw payload to pass through, got %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Fatalf("expected raw payload unchanged, got %v", decoded)
	}
	if info != GetDefaultEncodingInfo() {
		t.Fatalf("expected default encoding info, got %+v", info)
	}
}

func TestEncodingInfoDuration(t *testing.T) {
	info := GetDefaultEncodingInfo()

	if got := info.Duration(DefaultSampleRate * 2); got != time.Second {
		t.Fatalf("expected one second of audio, got %v", got)
	}
	if got := (EncodingInfo{}).Duration(100); got != 0 {
		t.Fatalf("expected zero duration for unset encoding, got %v", got)
	}
}
