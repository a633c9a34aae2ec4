package trigger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lectern/internal/library"
	"lectern/internal/playback"
	"lectern/internal/scheduler"
	"lectern/internal/testsupport"
	"lectern/internal/trigger"
)

type fakeBooks map[string]*library.Book

func (f fakeBooks) Book(id string) (*library.Book, bool) {
	book, ok := f[id]
	return book, ok
}

type recordingEnqueuer struct {
	mu   sync.Mutex
	reqs []scheduler.Request
}

func (r *recordingEnqueuer) Enqueue(ctx context.Context, req scheduler.Request) (scheduler.EnqueueResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return scheduler.EnqueueAccepted, nil
}

func (r *recordingEnqueuer) requests() []scheduler.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduler.Request, len(r.reqs))
	copy(out, r.reqs)
	return out
}

func newTrigger(t *testing.T, settleMillis int, books fakeBooks) (*trigger.Trigger, *recordingEnqueuer, *playback.State) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Trigger.SettleDelayMillis = settleMillis

	enq := &recordingEnqueuer{}
	state := playback.NewState()
	tr := trigger.New(cfg, enq, books, state, nil)
	t.Cleanup(tr.Close)
	return tr, enq, state
}

func waitForRequests(t *testing.T, enq *recordingEnqueuer, want int) []scheduler.Request {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reqs := enq.requests(); len(reqs) >= want {
			return reqs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d requests, have %d", want, len(enq.requests()))
	return nil
}

func TestTriggerChapterChangeEnqueuesHigh(t *testing.T) {
	book := testsupport.NewBook(t, "book-1", 3, 300)
	tr, enq, state := newTrigger(t, 10, fakeBooks{"book-1": book})
	state.MarkChaptersLoaded("book-1")

	err := tr.HandleEvent(context.Background(), trigger.Event{
		Type: trigger.EventPlayback, BookID: "book-1", ChapterID: "ch-2", Position: 310, Playing: true,
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	reqs := waitForRequests(t, enq, 1)
	if reqs[0].ChapterID != "ch-2" || reqs[0].Priority != scheduler.PriorityHigh {
		t.Fatalf("unexpected request %+v", reqs[0])
	}
}

func TestTriggerDropsPlaybackBeforeChaptersLoaded(t *testing.T) {
	book := testsupport.NewBook(t, "book-1", 3, 300)
	tr, enq, _ := newTrigger(t, 10, fakeBooks{"book-1": book})
	ctx := context.Background()

	// The player reports a position before the chapter index is in.
	if err := tr.HandleEvent(ctx, trigger.Event{
		Type: trigger.EventPlayback, BookID: "book-1", ChapterID: "ch-1", Position: 5, Playing: true,
	}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if reqs := enq.requests(); len(reqs) != 0 {
		t.Fatalf("expected no requests before chapters loaded, got %+v", reqs)
	}

	// Once the index loads, playback events take effect again.
	if err := tr.HandleEvent(ctx, trigger.Event{Type: trigger.EventChaptersLoaded, BookID: "book-1"}); err != nil {
		t.Fatalf("HandleEvent chapters loaded: %v", err)
	}
	if err := tr.HandleEvent(ctx, trigger.Event{
		Type: trigger.EventPlayback, BookID: "book-1", ChapterID: "ch-2", Position: 310, Playing: true,
	}); err != nil {
		t.Fatalf("HandleEvent playback: %v", err)
	}
	reqs := waitForRequests(t, enq, 2)
	last := reqs[len(reqs)-1]
	if last.ChapterID != "ch-2" || last.Priority != scheduler.PriorityHigh {
		t.Fatalf("unexpected request %+v", last)
	}
}

func TestTriggerSettleSuppressesScrubbing(t *testing.T) {
	book := testsupport.NewBook(t, "book-1", 5, 300)
	tr, enq, state := newTrigger(t, 60, fakeBooks{"book-1": book})
	state.MarkChaptersLoaded("book-1")
	ctx := context.Background()

	// Rapid seeks through three chapters, all inside the settle window.
	for _, chapter := range []string{"ch-1", "ch-2", "ch-3"} {
		if err := tr.HandleEvent(ctx, trigger.Event{
			Type: trigger.EventPlayback, BookID: "book-1", ChapterID: chapter, Playing: true,
		}); err != nil {
			t.Fatalf("HandleEvent %s: %v", chapter, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	reqs := waitForRequests(t, enq, 1)
	time.Sleep(100 * time.Millisecond)
	reqs = enq.requests()
	if len(reqs) != 1 {
		t.Fatalf("expected only the settled chapter to enqueue, got %d requests", len(reqs))
	}
	if reqs[0].ChapterID != "ch-3" {
		t.Fatalf("expected ch-3 to win, got %s", reqs[0].ChapterID)
	}
}

func TestTriggerPauseCancelsSettledEnqueue(t *testing.T) {
	book := testsupport.NewBook(t, "book-1", 2, 300)
	tr, enq, state := newTrigger(t, 50, fakeBooks{"book-1": book})
	state.MarkChaptersLoaded("book-1")
	ctx := context.Background()

	if err := tr.HandleEvent(ctx, trigger.Event{
		Type: trigger.EventPlayback, BookID: "book-1", ChapterID: "ch-1", Playing: true,
	}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	// Pause before the settle timer fires.
	if err := tr.HandleEvent(ctx, trigger.Event{
		Type: trigger.EventPlayback, BookID: "book-1", ChapterID: "ch-1", Playing: false,
	}); err != nil {
		t.Fatalf("HandleEvent pause: %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	if reqs := enq.requests(); len(reqs) != 0 {
		t.Fatalf("expected no requests after pause, got %+v", reqs)
	}
}

func TestTriggerPositionUpdatesWithinChapterAreQuiet(t *testing.T) {
	book := testsupport.NewBook(t, "book-1", 2, 300)
	tr, enq, state := newTrigger(t, 10, fakeBooks{"book-1": book})
	state.MarkChaptersLoaded("book-1")
	ctx := context.Background()

	if err := tr.HandleEvent(ctx, trigger.Event{
		Type: trigger.EventPlayback, BookID: "book-1", ChapterID: "ch-1", Position: 1, Playing: true,
	}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	waitForRequests(t, enq, 1)

	// Steady position ticks inside the same chapter must not re-enqueue.
	for i := 0; i < 5; i++ {
		if err := tr.HandleEvent(ctx, trigger.Event{
			Type: trigger.EventPlayback, BookID: "book-1", ChapterID: "ch-1", Position: float64(2 + i), Playing: true,
		}); err != nil {
			t.Fatalf("HandleEvent tick: %v", err)
		}
	}
	time.Sleep(60 * time.Millisecond)
	if reqs := enq.requests(); len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
}

func TestTriggerChaptersLoadedQueuesFirstChapterOnce(t *testing.T) {
	book := testsupport.NewBook(t, "book-1", 3, 300)
	tr, enq, _ := newTrigger(t, 10, fakeBooks{"book-1": book})
	ctx := context.Background()

	if err := tr.HandleEvent(ctx, trigger.Event{Type: trigger.EventChaptersLoaded, BookID: "book-1"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if err := tr.HandleEvent(ctx, trigger.Event{Type: trigger.EventChaptersLoaded, BookID: "book-1"}); err != nil {
		t.Fatalf("HandleEvent repeat: %v", err)
	}

	reqs := enq.requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].ChapterID != "ch-1" || reqs[0].Priority != scheduler.PriorityLow {
		t.Fatalf("unexpected request %+v", reqs[0])
	}
}

func TestTriggerUnknownBookIsIgnored(t *testing.T) {
	tr, enq, _ := newTrigger(t, 10, fakeBooks{})

	if err := tr.HandleEvent(context.Background(), trigger.Event{Type: trigger.EventChaptersLoaded, BookID: "ghost"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if reqs := enq.requests(); len(reqs) != 0 {
		t.Fatalf("expected no requests, got %+v", reqs)
	}
}
