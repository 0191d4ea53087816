package events

const (
	KindRecognitionStarted    Kind = "recognition.started"
	KindRecognitionEnded      Kind = "recognition.ended"
	KindRecognitionFailed     Kind = "recognition.failed"
	KindCircuitBreakerTripped Kind = "recognition.circuit_breaker_tripped"
)

type RecognitionStarted struct {
	Base
	Continuous bool
}

func NewRecognitionStarted(continuous bool) RecognitionStarted {
	return RecognitionStarted{Base: NewBase(KindRecognitionStarted), Continuous: continuous}
}

type RecognitionEnded struct{ Base }

func NewRecognitionEnded() RecognitionEnded {
	return RecognitionEnded{Base: NewBase(KindRecognitionEnded)}
}

type RecognitionFailed struct {
	Base
	Code     string
	Handling string
}

func NewRecognitionFailed(code, handling string) RecognitionFailed {
	return RecognitionFailed{Base: NewBase(KindRecognitionFailed), Code: code, Handling: handling}
}

type CircuitBreakerTripped struct {
	Base
	BurstCount int
}

func NewCircuitBreakerTripped(burstCount int) CircuitBreakerTripped {
	return CircuitBreakerTripped{Base: NewBase(KindCircuitBreakerTripped), BurstCount: burstCount}
}
