// Package engine turns one chapter of an audiobook into timed sentences.
// It extracts the chapter's audio range with ffmpeg, streams recognizer
// spans through the sentence assembler, and hands finished sentences to the
// caller as they complete. The engine never touches the store; persistence
// and retry policy belong to the scheduler.
package engine
