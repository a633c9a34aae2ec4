package scheduler

import "time"

// TaskStatus is a point-in-time copy of a task for status reporting.
type TaskStatus struct {
	TaskID     string    `json:"task_id"`
	BookID     string    `json:"book_id"`
	ChapterID  string    `json:"chapter_id"`
	Priority   string    `json:"priority"`
	State      string    `json:"state"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	NotBefore  time.Time `json:"not_before,omitempty"`
	Sentences  int       `json:"sentences,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Snapshot describes the scheduler's current workload.
type Snapshot struct {
	Running   *TaskStatus  `json:"running,omitempty"`
	Queued    []TaskStatus `json:"queued"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
}

func taskStatus(t *Task) TaskStatus {
	return TaskStatus{
		TaskID:     t.ID,
		BookID:     t.BookID,
		ChapterID:  t.ChapterID,
		Priority:   t.Priority.String(),
		State:      string(t.State),
		Attempts:   t.Attempts,
		EnqueuedAt: t.EnqueuedAt,
		StartedAt:  t.StartedAt,
		NotBefore:  t.NotBefore,
		LastError:  t.LastError,
	}
}
