package events

// KindNotice identifies a user-facing system notice.
const KindNotice Kind = "notice.raised"

// Notice carries a system message shown to the user.
type Notice struct {
	Base
	Text string
}

// NewNotice creates a notice event.
func NewNotice(text string) Notice {
	return Notice{Base: NewBase(KindNotice), Text: text}
}
