package orchestration

type ConversationMode int

const (
	// ModePushToTalk sends each utterance as soon as it is final and stops
	// listening until the next explicit start.
	ModePushToTalk ConversationMode = iota
	// ModeContinuous keeps listening, finalizes on silence and resumes
	// listening after the assistant speaks.
	ModeContinuous
)

func (m ConversationMode) String() string {
	switch m {
	case ModeContinuous:
		return "continuous"
	case ModePushToTalk:
		return "push-to-talk"
	}
	return "unknown"
}

// ConversationFlags never has IsListening and IsSpeaking set together.
type ConversationFlags struct {
	IsListening  bool
	IsSpeaking   bool
	IsProcessing bool
}

func (f ConversationFlags) IsBusy() bool {
	return f.IsListening || f.IsSpeaking || f.IsProcessing
}

// Status is a point-in-time view of the orchestrator published after every
// processed event.
type Status struct {
	Mode          ConversationMode
	Flags         ConversationFlags
	Recognition   string
	BreakerActive bool
}
