package speechtotext

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned by recognizers that refuse to open a second
// session while one is still live.
var ErrAlreadyStarted = errors.New("recognition already started")

type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindAborted
	ErrorKindNoSpeech
	ErrorKindNetwork
	ErrorKindAudioCapture
	ErrorKindNotAllowed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindAborted:
		return "aborted"
	case ErrorKindNoSpeech:
		return "no-speech"
	case ErrorKindNetwork:
		return "network"
	case ErrorKindAudioCapture:
		return "audio-capture"
	case ErrorKindNotAllowed:
		return "not-allowed"
	}
	return "unknown"
}

// Error is a recognition failure reported through ErrorCallback. Code keeps
// the raw code for unknown kinds.
type Error struct {
	Kind ErrorKind
	Code string
	Err  error
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recognition error %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("recognition error %s", e.Code)
}

func (e Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, err error) Error {
	return Error{Kind: kind, Code: kind.String(), Err: err}
}

// Unknown wraps a code no known kind matches.
func Unknown(code string) Error {
	return Error{Kind: ErrorKindUnknown, Code: code}
}

// ParseErrorCode maps the recognizer's wire codes onto the closed set of
// kinds, falling back to Unknown.
func ParseErrorCode(code string) Error {
	switch code {
	case "aborted":
		return NewError(ErrorKindAborted, nil)
	case "no-speech":
		return NewError(ErrorKindNoSpeech, nil)
	case "network":
		return NewError(ErrorKindNetwork, nil)
	case "audio-capture":
		return NewError(ErrorKindAudioCapture, nil)
	case "not-allowed", "service-not-allowed":
		return Error{Kind: ErrorKindNotAllowed, Code: code}
	}
	return Unknown(code)
}

// AsError extracts a recognition Error from err, classifying anything else
// as unknown.
func AsError(err error) Error {
	var recognitionErr Error
	if errors.As(err, &recognitionErr) {
		return recognitionErr
	}
	if errors.Is(err, ErrAlreadyStarted) {
		return Error{Kind: ErrorKindUnknown, Code: "already-started", Err: err}
	}
	return Error{Kind: ErrorKindUnknown, Code: "unknown", Err: err}
}
