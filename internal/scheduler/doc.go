// Package scheduler orders and runs chapter transcription tasks. A single
// worker goroutine owns the queue and the one running slot; callers talk to
// it through commands, so there is no shared mutable queue state. The
// scheduler is the only component that decides about retries, preemption,
// deduplication, and prefetch.
package scheduler
