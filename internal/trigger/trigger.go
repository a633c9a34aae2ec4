// Package trigger converts player events into transcription requests. It
// debounces rapid chapter flips with a settle delay and revalidates the
// player position before committing work, so seek-scrubbing through a book
// doesn't flood the scheduler.
package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/playback"
	"lectern/internal/scheduler"
)

// Enqueuer is the scheduler surface the trigger needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, req scheduler.Request) (scheduler.EnqueueResult, error)
}

// EventType discriminates player events.
type EventType string

const (
	// EventPlayback reports a position or play-state change.
	EventPlayback EventType = "playback"
	// EventChaptersLoaded reports that a book's chapter index is ready.
	EventChaptersLoaded EventType = "chapters_loaded"
)

// Event is one player notification.
type Event struct {
	Type      EventType `json:"type"`
	BookID    string    `json:"book_id"`
	ChapterID string    `json:"chapter_id,omitempty"`
	Position  float64   `json:"position,omitempty"`
	Playing   bool      `json:"playing,omitempty"`
}

// Trigger reacts to player events.
type Trigger struct {
	cfg    *config.Config
	sched  Enqueuer
	books  scheduler.BookSource
	state  *playback.State
	logger *slog.Logger

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New constructs a trigger around the playback mirror.
func New(cfg *config.Config, sched Enqueuer, books scheduler.BookSource, state *playback.State, logger *slog.Logger) *Trigger {
	return &Trigger{
		cfg:    cfg,
		sched:  sched,
		books:  books,
		state:  state,
		logger: logging.NewComponentLogger(logger, "trigger"),
		done:   make(chan struct{}),
	}
}

// Close stops pending settle timers and waits for in-flight work.
func (t *Trigger) Close() {
	t.once.Do(func() { close(t.done) })
	t.wg.Wait()
}

// HandleEvent processes one player event. Playback events that land on a
// new chapter arm a settle timer; the enqueue happens only if the player
// is still on that chapter when the timer fires. Playback events for a
// book whose chapter index hasn't loaded yet are ignored.
func (t *Trigger) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventChaptersLoaded:
		return t.handleChaptersLoaded(ctx, ev)
	case EventPlayback:
		t.handlePlayback(ev)
		return nil
	default:
		t.logger.Warn("ignoring unknown event type", logging.String(logging.FieldEventType, string(ev.Type)))
		return nil
	}
}

func (t *Trigger) handleChaptersLoaded(ctx context.Context, ev Event) error {
	if !t.state.MarkChaptersLoaded(ev.BookID) {
		return nil
	}
	return t.QueueFirstChapter(ctx, ev.BookID)
}

// QueueFirstChapter starts background transcription from the beginning of
// a book. The scheduler's own checks skip chapters that are already done.
func (t *Trigger) QueueFirstChapter(ctx context.Context, bookID string) error {
	book, ok := t.books.Book(bookID)
	if !ok {
		t.logger.Warn("chapters loaded for unknown book", logging.String(logging.FieldBookID, bookID))
		return nil
	}
	first, ok := book.FirstChapter()
	if !ok {
		return nil
	}
	result, err := t.sched.Enqueue(ctx, scheduler.Request{
		BookID:    bookID,
		ChapterID: first.ID,
		Priority:  scheduler.PriorityLow,
	})
	if err != nil {
		return err
	}
	t.logger.Info("first chapter queued",
		logging.String(logging.FieldBookID, bookID),
		logging.String(logging.FieldChapterID, first.ID),
		logging.String("result", string(result)),
	)
	return nil
}

func (t *Trigger) handlePlayback(ev Event) {
	// Until the chapter index is in, chapter ids in playback events can't
	// be trusted, so the event is dropped without touching the mirror.
	if !t.state.ChaptersLoaded(ev.BookID) {
		t.logger.Debug("dropping playback event before chapters loaded",
			logging.String(logging.FieldBookID, ev.BookID))
		return
	}
	prev := t.state.Update(playback.Status{
		BookID:    ev.BookID,
		ChapterID: ev.ChapterID,
		Position:  ev.Position,
		Playing:   ev.Playing,
	})

	if !ev.Playing || ev.BookID == "" || ev.ChapterID == "" {
		return
	}
	newChapter := prev.BookID != ev.BookID || prev.ChapterID != ev.ChapterID
	resumed := !prev.Playing
	if !newChapter && !resumed {
		return
	}

	t.wg.Add(1)
	go t.settleThenEnqueue(ev.BookID, ev.ChapterID)
}

// settleThenEnqueue waits out the settle delay and enqueues only if the
// player is still on the same chapter. A seek that flies past ten chapters
// arms ten timers, but only the last one survives revalidation.
func (t *Trigger) settleThenEnqueue(bookID, chapterID string) {
	defer t.wg.Done()

	select {
	case <-time.After(t.cfg.SettleDelay()):
	case <-t.done:
		return
	}

	current := t.state.Current()
	if !current.Playing || current.BookID != bookID || current.ChapterID != chapterID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := t.sched.Enqueue(ctx, scheduler.Request{
		BookID:    bookID,
		ChapterID: chapterID,
		Priority:  scheduler.PriorityHigh,
	})
	if err != nil {
		t.logger.Warn("playback-triggered enqueue failed",
			logging.String(logging.FieldBookID, bookID),
			logging.String(logging.FieldChapterID, chapterID),
			logging.Error(err),
		)
		return
	}
	t.logger.Debug("playback chapter queued",
		logging.String(logging.FieldBookID, bookID),
		logging.String(logging.FieldChapterID, chapterID),
		logging.String("result", string(result)),
	)
}
