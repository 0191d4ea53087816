// Package dialogue talks to the conversational backend that turns a
// finalized utterance into the assistant's reply.
package dialogue

import "time"

type Modality string

const (
	ModalityVoice Modality = "voice"
	ModalityText  Modality = "text"
)

type Request struct {
	UtteranceText string
	SessionID     string
	Modality      Modality
}

// Response is the assistant's reply. AudioResponsePayload is empty when the
// backend produced no speech.
type Response struct {
	ResponseText         string
	AudioResponsePayload []byte
	Timestamp            time.Time
}
