package events

const (
	// KindAssistantResponseFinal identifies a completed dialogue response.
	KindAssistantResponseFinal Kind = "assistant_response.final"
	// KindAssistantResponseFailed identifies a failed dialogue request.
	KindAssistantResponseFailed Kind = "assistant_response.failed"
)

// AssistantResponseFinal carries the dialogue response text.
type AssistantResponseFinal struct {
	Base
	Text     string
	HasAudio bool
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(text string, hasAudio bool) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), Text: text, HasAudio: hasAudio}
}

// AssistantResponseFailed carries the apology surfaced for a failed request.
type AssistantResponseFailed struct {
	Base
	Apology string
	Err     error
}

// NewAssistantResponseFailed creates an assistant response failed event.
func NewAssistantResponseFailed(apology string, err error) AssistantResponseFailed {
	return AssistantResponseFailed{Base: NewBase(KindAssistantResponseFailed), Apology: apology, Err: err}
}
