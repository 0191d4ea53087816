package events

const (
	// KindModeChanged identifies a conversation mode change.
	KindModeChanged Kind = "conversation_state.mode_changed"
	// KindListeningChanged identifies a listening flag transition.
	KindListeningChanged Kind = "conversation_state.listening_changed"
	// KindSpeakingChanged identifies a speaking flag transition.
	KindSpeakingChanged Kind = "conversation_state.speaking_changed"
	// KindProcessingChanged identifies a processing flag transition.
	KindProcessingChanged Kind = "conversation_state.processing_changed"
)

// ModeChanged carries the new conversation mode.
type ModeChanged struct {
	Base
	Mode   string
	Forced bool
}

// NewModeChanged creates a mode changed event.
func NewModeChanged(mode string, forced bool) ModeChanged {
	return ModeChanged{Base: NewBase(KindModeChanged), Mode: mode, Forced: forced}
}

// ListeningChanged carries the new listening flag.
type ListeningChanged struct {
	Base
	IsListening bool
}

// NewListeningChanged creates a listening changed event.
func NewListeningChanged(isListening bool) ListeningChanged {
	return ListeningChanged{Base: NewBase(KindListeningChanged), IsListening: isListening}
}

// SpeakingChanged carries the new speaking flag.
type SpeakingChanged struct {
	Base
	IsSpeaking bool
}

// NewSpeakingChanged creates a speaking changed event.
func NewSpeakingChanged(isSpeaking bool) SpeakingChanged {
	return SpeakingChanged{Base: NewBase(KindSpeakingChanged), IsSpeaking: isSpeaking}
}

// ProcessingChanged carries the new processing flag.
type ProcessingChanged struct {
	Base
	IsProcessing bool
}

// NewProcessingChanged creates a processing changed event.
func NewProcessingChanged(isProcessing bool) ProcessingChanged {
	return ProcessingChanged{Base: NewBase(KindProcessingChanged), IsProcessing: isProcessing}
}
