// Package services defines the error taxonomy shared by the transcription
// engine, the chapter store, and the scheduler, plus context annotations for
// correlating log lines across a task's lifetime. Components report typed
// outcomes through these sentinels; only the scheduler decides retry versus
// give-up.
package services
