// Package events defines the typed interview event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - interview_state.*
//   - interviewer_speech.*
//   - candidate_input.*
//   - dialogue.*
//   - turn_state.*
//
// interview_state events
//
//   - StateChanged (interview_state.changed): the interview moved from one
//     state to another.
//
// interviewer_speech events
//
//   - PromptStarted (interviewer_speech.started): synthesis of a prompt
//     started.
//   - PromptSpoken (interviewer_speech.spoken): the prompt was fully played
//     and the output device drained.
//
// candidate_input events
//
//   - ListeningStarted (candidate_input.listening_started): the microphone
//     was opened and the first frame started a recognition answer.
//   - CaptureEnded (candidate_input.capture_ended): the end frame was sent;
//     includes why capture stopped.
//   - TranscriptFinal (candidate_input.transcript_final): terminal transcript
//     for the answer.
//   - AnswerMissing (candidate_input.answer_missing): no usable transcript
//     arrived for an attempt.
//
// dialogue events
//
//   - ReplyGenerated (dialogue.reply_generated): the dialogue collaborator
//     produced the next prompt.
//   - ReplyFallback (dialogue.reply_fallback): generation failed and the
//     scripted fallback reply is used instead.
//
// turn_state events
//
//   - TurnSkipped (turn_state.skipped): the turn did not start because a
//     required component was not ready.
//   - TurnFailed (turn_state.failed): a step of the turn failed.
package events
