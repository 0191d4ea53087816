package orchestration

const (
	noticeNetworkExhausted = "Speech recognition keeps losing its connection, so hands-free listening is off. Use push-to-talk instead."
	noticeBreakerTripped   = "Speech recognition keeps getting interrupted, so hands-free listening is off. Use push-to-talk instead."
	noticeNoMicrophone     = "No microphone is available for recording."

	messagePermission         = "Microphone access is unavailable. Check the permissions and try again."
	messageNoSpeech           = "I didn't hear anything. Recording instead, speak and stop when done."
	messageNetwork            = "Speech recognition is unreachable. Recording instead, speak and stop when done."
	messageRecognitionAborted = "Speech recognition was interrupted."
	messageRecognitionFailed  = "Speech recognition stopped unexpectedly. Please try again."
	messageRecognizerBusy     = "Speech recognition is still busy with the last session. Please try again in a moment."

	apologyDialogue      = "Sorry, I couldn't get a response just now. Please try again."
	apologyTranscription = "Sorry, I couldn't make out that recording. Please try again."
)
