// Package events defines the typed voice conversation event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - conversation_state.*
//   - user_input.*
//   - recognition.*
//   - assistant_response.*
//   - assistant_playback.*
//   - notice.*
//
// Semantics used across the package:
//
//   - Changed: a flag or mode transitioned; carries the new value.
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Final: terminal immutable text for the current utterance.
//   - Started/Ended: lifecycle boundaries.
//
// conversation_state events
//
//   - ModeChanged (conversation_state.mode_changed): conversation mode
//     changed; Forced is set when the change was a demotion.
//   - ListeningChanged (conversation_state.listening_changed)
//   - SpeakingChanged (conversation_state.speaking_changed)
//   - ProcessingChanged (conversation_state.processing_changed)
//
// user_input events
//
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim display (finalized text plus interim suffix).
//   - UserUtteranceFinal (user_input.utterance_final): finalized utterance
//     handed to the dialogue gateway.
//
// recognition events
//
//   - RecognitionStarted (recognition.started): a recognition session handle
//     was opened.
//   - RecognitionEnded (recognition.ended): the manager returned to idle.
//   - RecognitionFailed (recognition.failed): recognizer reported an error
//     code; Handling names the classifier decision.
//   - CircuitBreakerTripped (recognition.circuit_breaker_tripped)
//
// assistant_response events
//
//   - AssistantResponseFinal (assistant_response.final): dialogue response
//     text arrived.
//   - AssistantResponseFailed (assistant_response.failed): the dialogue
//     request failed; Apology is what the user is shown.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started)
//   - AssistantPlaybackEnded (assistant_playback.ended): playback ended
//     naturally, failed, or was interrupted.
//
// notice events
//
//   - Notice (notice.raised): user-facing system message.
package events
