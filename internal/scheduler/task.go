package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders competing transcription tasks. Higher values win.
type Priority int

const (
	// PriorityLow is background work, such as transcribing a fresh book
	// from the beginning.
	PriorityLow Priority = iota
	// PriorityMedium is look-ahead work for the chapter after the one
	// being played.
	PriorityMedium
	// PriorityHigh is the chapter the listener is hearing right now.
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParsePriority maps a priority name to its value, defaulting to low.
func ParsePriority(name string) Priority {
	switch name {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// State tracks a task through its lifecycle.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateRetryWait State = "retry_wait"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Task is one unit of work: transcribe a single chapter. Tasks live
// entirely inside the worker goroutine; snapshots cross the boundary.
type Task struct {
	ID         string
	BookID     string
	ChapterID  string
	Priority   Priority
	State      State
	Attempts   int
	EnqueuedAt time.Time
	StartedAt  time.Time
	NotBefore  time.Time
	LastError  string
}

func newTask(bookID, chapterID string, priority Priority) *Task {
	return &Task{
		ID:         uuid.NewString(),
		BookID:     bookID,
		ChapterID:  chapterID,
		Priority:   priority,
		State:      StateQueued,
		EnqueuedAt: time.Now(),
	}
}

func (t *Task) key() string {
	return t.BookID + "\x00" + t.ChapterID
}

func taskKey(bookID, chapterID string) string {
	return bookID + "\x00" + chapterID
}

// eligible reports whether the task may start now.
func (t *Task) eligible(now time.Time) bool {
	if t.State != StateQueued && t.State != StateRetryWait {
		return false
	}
	return !t.NotBefore.After(now)
}
