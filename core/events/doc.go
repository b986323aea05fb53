// Package events defines the typed events a session emits to its client.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - assistant_speech.*
//   - session.*
//
// user_input events
//
//   - UserTranscriptFinal (user_input.transcript_final): terminal full
//     transcript for the utterance. Wire type "final".
//
// assistant_response events
//
//   - AssistantResponseFinal (assistant_response.final): complete reply text
//     for the utterance. Wire type "assistant".
//
// assistant_speech events
//
//   - AssistantSpeechFrame (assistant_speech.frame): synthesized speech for
//     one sentence of the reply. Wire type "audio", base64 encoded.
//
// session events
//
//   - SessionError (session.error): user-visible failure message. Wire type
//     "error".
//
// For one utterance the order is always final, assistant, then audio frames
// in sentence order.
package events
