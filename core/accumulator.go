package orchestration

import (
	"strings"
	"time"
)

// utteranceBuffer collects recognized fragments until they are sent as one
// utterance.
type utteranceBuffer struct {
	finalizedText string
	interimText   string
	lastUpdateAt  time.Time
}

func (b *utteranceBuffer) appendFinal(text string, now time.Time) {
	text = strings.TrimSpace(text)
	b.interimText = ""
	b.lastUpdateAt = now
	if text == "" {
		return
	}

	if b.finalizedText == "" {
		b.finalizedText = text
	} else {
		b.finalizedText += " " + text
	}
}

func (b *utteranceBuffer) setInterim(text string, now time.Time) {
	b.interimText = strings.TrimSpace(text)
	b.lastUpdateAt = now
}

func (b *utteranceBuffer) snapshot() string {
	return strings.TrimSpace(b.finalizedText)
}

// display is what the user sees while speaking: finalized text followed by
// the current interim guess.
func (b *utteranceBuffer) display() string {
	return strings.TrimSpace(b.finalizedText + " " + b.interimText)
}

func (b *utteranceBuffer) isEmpty() bool {
	return b.snapshot() == ""
}

func (b *utteranceBuffer) clear() {
	b.finalizedText = ""
	b.interimText = ""
}
