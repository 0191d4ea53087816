package events

const (
	// KindUserTranscriptInterimUpdated identifies mutable interim transcript updates.
	KindUserTranscriptInterimUpdated Kind = "user_input.transcript_interim_updated"
	// KindUserUtteranceFinal identifies a finalized utterance sent for a response.
	KindUserUtteranceFinal Kind = "user_input.utterance_final"
)

// UserTranscriptInterimUpdated carries the mutable interim display text.
type UserTranscriptInterimUpdated struct {
	Base
	Transcript string
}

// NewUserTranscriptInterimUpdated creates an interim transcript update event.
func NewUserTranscriptInterimUpdated(transcript string) UserTranscriptInterimUpdated {
	return UserTranscriptInterimUpdated{Base: NewBase(KindUserTranscriptInterimUpdated), Transcript: transcript}
}

// UserUtteranceFinal carries a finalized utterance and its modality.
type UserUtteranceFinal struct {
	Base
	Text     string
	Modality string
}

// NewUserUtteranceFinal creates a finalized utterance event.
func NewUserUtteranceFinal(text, modality string) UserUtteranceFinal {
	return UserUtteranceFinal{Base: NewBase(KindUserUtteranceFinal), Text: text, Modality: modality}
}
