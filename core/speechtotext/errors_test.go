package speechtotext

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseErrorCodeMapsKnownCodes(t *testing.T) {
	testCases := []struct {
		code string
		kind ErrorKind
	}{
		{code: "aborted", kind: ErrorKindAborted},
		{code: "no-speech", kind: ErrorKindNoSpeech},
		{code: "network", kind: ErrorKindNetwork},
		{code: "audio-capture", kind: ErrorKindAudioCapture},
		{code: "not-allowed", kind: ErrorKindNotAllowed},
		{code: "service-not-allowed", kind: ErrorKindNotAllowed},
		{code: "language-not-supported", kind: ErrorKindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			err := ParseErrorCode(tc.code)
			if err.Kind != tc.kind {
				t.Fatalf("expected kind %v, got %v", tc.kind, err.Kind)
			}
			if err.Code != tc.code {
				t.Fatalf("expected code %q to be kept, got %q", tc.code, err.Code)
			}
		})
	}
}

func TestAsErrorUnwrapsWrappedRecognitionError(t *testing.T) {
	cause := errors.New("socket closed")
	wrapped := fmt.Errorf("reading: %w", NewError(ErrorKindNetwork, cause))

	err := AsError(wrapped)
	if err.Kind != ErrorKindNetwork {
		t.Fatalf("expected network kind, got %v", err.Kind)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to unwrap to its cause")
	}
}

func TestAsErrorFallsBackToUnknown(t *testing.T) {
	err := AsError(errors.New("boom"))
	if err.Kind != ErrorKindUnknown {
		t.Fatalf("expected unknown kind, got %v", err.Kind)
	}

	alreadyStarted := AsError(fmt.Errorf("open: %w", ErrAlreadyStarted))
	if !errors.Is(alreadyStarted, ErrAlreadyStarted) {
		t.Fatalf("expected already started error to be preserved")
	}
}

func TestNewSessionOptionsAppliesOverrides(t *testing.T) {
	options := NewSessionOptions(WithContinuous(true), WithInterimResults(true), WithLanguage("hr-HR"))

	if !options.Continuous || !options.InterimResults {
		t.Fatalf("expected continuous and interim results enabled, got %+v", options)
	}
	if options.Language != "hr-HR" {
		t.Fatalf("expected language override, got %q", options.Language)
	}
	if options.EncodingInfo.IsZero() {
		t.Fatalf("expected default encoding info")
	}
}
