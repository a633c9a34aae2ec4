package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/library"
	"lectern/internal/logging"
	"lectern/internal/services"
	"lectern/internal/transcript"
)

// Transcriber produces timed sentences for one chapter.
type Transcriber interface {
	TranscribeChapter(ctx context.Context, book *library.Book, chapter library.Chapter, emit func(transcript.Sentence) error) error
}

// BookSource resolves book ids to their chapter indexes.
type BookSource interface {
	Book(id string) (*library.Book, bool)
}

// EnqueueResult reports how an enqueue request was resolved.
type EnqueueResult string

const (
	EnqueueAccepted       EnqueueResult = "accepted"
	EnqueueUpgraded       EnqueueResult = "upgraded"
	EnqueueDuplicate      EnqueueResult = "duplicate"
	EnqueueAlreadyRunning EnqueueResult = "already_running"
	EnqueueAlreadyDone    EnqueueResult = "already_transcribed"
)

// Request asks for one chapter to be transcribed.
type Request struct {
	BookID    string
	ChapterID string
	Priority  Priority
	// Force enqueues even when a completed transcription exists.
	Force bool
}

// ErrNotRunning is returned for calls made while the scheduler is stopped.
var ErrNotRunning = errors.New("scheduler not running")

type enqueueReply struct {
	result EnqueueResult
	err    error
}

type enqueueCmd struct {
	req   Request
	reply chan enqueueReply
}

type cancelCmd struct {
	bookID string
	reply  chan int
}

type statusCmd struct {
	reply chan Snapshot
}

type taskResult struct {
	err       error
	sentences int
}

type runningTask struct {
	task      *Task
	book      *library.Book
	chapter   library.Chapter
	cancel    context.CancelFunc
	tracker   *progressTracker
	done      chan taskResult
	preempted bool
	canceled  bool
}

type seenEntry struct {
	at       time.Time
	priority Priority
}

// Scheduler runs chapter transcriptions one at a time, ordered by priority.
type Scheduler struct {
	cfg    *config.Config
	store  *transcript.Store
	books  BookSource
	engine Transcriber
	logger *slog.Logger

	cmds chan any

	// Worker-owned state. Only the worker goroutine touches these.
	queue     []*Task
	run       *runningTask
	seen      map[string]seenEntry
	completed int
	failed    int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
	wg      sync.WaitGroup
}

// New constructs a scheduler. Start must be called before requests are
// accepted.
func New(cfg *config.Config, store *transcript.Store, books BookSource, engine Transcriber, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		store:  store,
		books:  books,
		engine: engine,
		logger: logging.NewComponentLogger(logger, "scheduler"),
		cmds:   make(chan any),
		seen:   make(map[string]seenEntry),
	}
}

// Start launches the worker goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.stopped = make(chan struct{})
	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop cancels the worker and waits for it to drain, bounded by the
// configured shutdown timeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	waitDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitDone)
	}()
	timeout := time.Duration(s.cfg.Scheduler.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-waitDone:
	case <-time.After(timeout):
		s.logger.Warn("scheduler shutdown timed out; abandoning worker")
	}
}

// Enqueue submits a transcription request.
func (s *Scheduler) Enqueue(ctx context.Context, req Request) (EnqueueResult, error) {
	cmd := enqueueCmd{req: req, reply: make(chan enqueueReply, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return "", err
	}
	select {
	case reply := <-cmd.reply:
		return reply.result, reply.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// EnqueueNextChapter queues the chapter following afterChapterID, if any.
func (s *Scheduler) EnqueueNextChapter(ctx context.Context, bookID, afterChapterID string, priority Priority) (EnqueueResult, error) {
	book, ok := s.books.Book(bookID)
	if !ok {
		return "", fmt.Errorf("unknown book %q", bookID)
	}
	next, ok := book.NextChapter(afterChapterID)
	if !ok {
		return EnqueueDuplicate, nil
	}
	return s.Enqueue(ctx, Request{BookID: bookID, ChapterID: next.ID, Priority: priority})
}

// CancelBook drops every queued task for the book and aborts its running
// task. It returns the number of tasks removed.
func (s *Scheduler) CancelBook(ctx context.Context, bookID string) (int, error) {
	cmd := cancelCmd{bookID: bookID, reply: make(chan int, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return 0, err
	}
	select {
	case n := <-cmd.reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Status returns a snapshot of the current workload.
func (s *Scheduler) Status(ctx context.Context) (Snapshot, error) {
	cmd := statusCmd{reply: make(chan Snapshot, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-cmd.reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Scheduler) send(ctx context.Context, cmd any) error {
	s.mu.Lock()
	stopped := s.stopped
	running := s.running
	s.mu.Unlock()
	if !running || stopped == nil {
		return ErrNotRunning
	}
	select {
	case s.cmds <- cmd:
		return nil
	case <-stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if s.stopped != nil {
			close(s.stopped)
			s.stopped = nil
		}
		s.running = false
		s.mu.Unlock()
	}()

	for {
		s.maybeStart(ctx)

		var timer *time.Timer
		var timerC <-chan time.Time
		if wait, ok := s.nextWake(); ok {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}
		var doneC chan taskResult
		if s.run != nil {
			doneC = s.run.done
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.shutdown()
			return
		case cmd := <-s.cmds:
			s.handleCommand(ctx, cmd)
		case res := <-doneC:
			s.handleResult(res)
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (s *Scheduler) shutdown() {
	if s.run == nil {
		return
	}
	rt := s.run
	rt.cancel()
	timeout := time.Duration(s.cfg.Scheduler.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-rt.done:
	case <-time.After(timeout):
		s.logger.Warn("running task did not stop before shutdown deadline",
			logging.String(logging.FieldTaskID, rt.task.ID))
	}
	s.run = nil
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd any) {
	switch c := cmd.(type) {
	case enqueueCmd:
		result, err := s.handleEnqueue(ctx, c.req)
		c.reply <- enqueueReply{result: result, err: err}
		if err == nil && c.req.Priority == PriorityHigh && s.cfg.Scheduler.PrefetchNextChapter {
			s.prefetchAfter(ctx, c.req)
		}
	case cancelCmd:
		c.reply <- s.handleCancel(c.bookID)
	case statusCmd:
		c.reply <- s.snapshot()
	}
}

func (s *Scheduler) handleEnqueue(ctx context.Context, req Request) (EnqueueResult, error) {
	book, ok := s.books.Book(req.BookID)
	if !ok {
		return "", fmt.Errorf("unknown book %q", req.BookID)
	}
	chapter, ok := book.ChapterByID(req.ChapterID)
	if !ok {
		return "", fmt.Errorf("book %s has no chapter %q", req.BookID, req.ChapterID)
	}

	key := taskKey(req.BookID, req.ChapterID)
	now := time.Now()

	if s.run != nil && !s.run.canceled && s.run.task.key() == key {
		return EnqueueAlreadyRunning, nil
	}

	if existing := s.findQueued(key); existing != nil {
		if req.Priority > existing.Priority {
			existing.Priority = req.Priority
			s.seen[key] = seenEntry{at: now, priority: req.Priority}
			return EnqueueUpgraded, nil
		}
		return EnqueueDuplicate, nil
	}

	if !req.Force {
		if entry, ok := s.seen[key]; ok &&
			now.Sub(entry.at) < s.cfg.DedupWindow() && req.Priority <= entry.priority {
			return EnqueueDuplicate, nil
		}
		done, err := s.store.IsChapterTranscribed(ctx, req.BookID, req.ChapterID)
		if err != nil {
			return "", services.Wrap(services.ErrStore, "scheduler", "enqueue", "read chapter state", err)
		}
		if done {
			s.seen[key] = seenEntry{at: now, priority: req.Priority}
			return EnqueueAlreadyDone, nil
		}
	}

	s.seen[key] = seenEntry{at: now, priority: req.Priority}
	task := newTask(req.BookID, req.ChapterID, req.Priority)
	s.queue = append(s.queue, task)
	s.logger.Info("chapter queued",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldBookID, task.BookID),
		logging.String(logging.FieldChapterID, task.ChapterID),
		logging.String(logging.FieldPriority, task.Priority.String()),
		logging.Float64("chapter_start", chapter.Start),
	)
	return EnqueueAccepted, nil
}

// prefetchAfter queues the following chapter at medium priority. Only
// listener-driven requests prefetch, so look-ahead never chains across the
// whole book.
func (s *Scheduler) prefetchAfter(ctx context.Context, req Request) {
	book, ok := s.books.Book(req.BookID)
	if !ok {
		return
	}
	next, ok := book.NextChapter(req.ChapterID)
	if !ok {
		return
	}
	result, err := s.handleEnqueue(ctx, Request{
		BookID:    req.BookID,
		ChapterID: next.ID,
		Priority:  PriorityMedium,
	})
	if err != nil {
		s.logger.Warn("prefetch enqueue failed",
			logging.String(logging.FieldBookID, req.BookID),
			logging.String(logging.FieldChapterID, next.ID),
			logging.Error(err),
		)
		return
	}
	if result == EnqueueAccepted {
		s.logger.Debug("prefetched next chapter",
			logging.String(logging.FieldBookID, req.BookID),
			logging.String(logging.FieldChapterID, next.ID),
		)
	}
}

func (s *Scheduler) handleCancel(bookID string) int {
	removed := 0
	kept := s.queue[:0]
	for _, task := range s.queue {
		if task.BookID == bookID {
			task.State = StateCanceled
			delete(s.seen, task.key())
			removed++
			continue
		}
		kept = append(kept, task)
	}
	s.queue = kept
	if s.run != nil && s.run.task.BookID == bookID && !s.run.canceled {
		s.run.canceled = true
		delete(s.seen, s.run.task.key())
		s.run.cancel()
		removed++
	}
	if removed > 0 {
		s.logger.Info("book canceled",
			logging.String(logging.FieldBookID, bookID),
			logging.Int("tasks_removed", removed),
		)
	}
	return removed
}

func (s *Scheduler) snapshot() Snapshot {
	snap := Snapshot{Completed: s.completed, Failed: s.failed}
	if s.run != nil {
		status := taskStatus(s.run.task)
		status.Sentences = s.run.tracker.sentences()
		snap.Running = &status
	}
	queued := make([]*Task, len(s.queue))
	copy(queued, s.queue)
	sort.SliceStable(queued, func(i, j int) bool {
		if queued[i].Priority != queued[j].Priority {
			return queued[i].Priority > queued[j].Priority
		}
		return queued[i].EnqueuedAt.Before(queued[j].EnqueuedAt)
	})
	snap.Queued = make([]TaskStatus, 0, len(queued))
	for _, task := range queued {
		snap.Queued = append(snap.Queued, taskStatus(task))
	}
	return snap
}

func (s *Scheduler) findQueued(key string) *Task {
	for _, task := range s.queue {
		if task.key() == key {
			return task
		}
	}
	return nil
}

func (s *Scheduler) bestEligible(now time.Time) *Task {
	var best *Task
	for _, task := range s.queue {
		if !task.eligible(now) {
			continue
		}
		if best == nil ||
			task.Priority > best.Priority ||
			(task.Priority == best.Priority && task.EnqueuedAt.Before(best.EnqueuedAt)) {
			best = task
		}
	}
	return best
}

// nextWake returns how long to sleep before a retry-delayed task becomes
// eligible.
func (s *Scheduler) nextWake() (time.Duration, bool) {
	now := time.Now()
	var earliest time.Time
	for _, task := range s.queue {
		if task.NotBefore.After(now) {
			if earliest.IsZero() || task.NotBefore.Before(earliest) {
				earliest = task.NotBefore
			}
		}
	}
	if earliest.IsZero() {
		return 0, false
	}
	wait := time.Until(earliest)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait, true
}

func (s *Scheduler) maybeStart(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	best := s.bestEligible(time.Now())
	if best == nil {
		return
	}
	if s.run == nil {
		s.startTask(ctx, best)
		return
	}
	if s.run.preempted || s.run.canceled {
		return
	}
	// A listener request for a different chapter displaces whatever is
	// running, even another high-priority task. The EnqueuedAt check keeps
	// a requeued preempted task from bouncing the task that displaced it.
	preempt := best.Priority > s.run.task.Priority ||
		(best.Priority == PriorityHigh && best.key() != s.run.task.key() &&
			best.EnqueuedAt.After(s.run.task.StartedAt))
	if preempt {
		s.run.preempted = true
		s.logger.Info("preempting running task",
			logging.String(logging.FieldTaskID, s.run.task.ID),
			logging.String(logging.FieldChapterID, s.run.task.ChapterID),
			logging.String("for_chapter", best.ChapterID),
		)
		s.run.cancel()
	}
}

func (s *Scheduler) startTask(ctx context.Context, task *Task) {
	book, ok := s.books.Book(task.BookID)
	if !ok {
		s.removeTask(task)
		task.State = StateFailed
		task.LastError = "book disappeared from library"
		s.failed++
		return
	}
	chapter, ok := book.ChapterByID(task.ChapterID)
	if !ok {
		s.removeTask(task)
		task.State = StateFailed
		task.LastError = "chapter missing from book manifest"
		s.failed++
		return
	}

	s.removeTask(task)
	task.State = StateRunning
	task.StartedAt = time.Now()
	task.Attempts++

	taskCtx := services.WithChapterID(services.WithBookID(ctx, task.BookID), task.ChapterID)
	runCtx, cancel := context.WithCancel(taskCtx)
	rt := &runningTask{
		task:    task,
		book:    book,
		chapter: chapter,
		cancel:  cancel,
		tracker: &progressTracker{},
		done:    make(chan taskResult, 1),
	}
	s.run = rt

	wd := &watchdog{
		tracker:       rt.tracker,
		poll:          s.cfg.ProgressPollInterval(),
		stallTimeout:  s.cfg.StallTimeout(),
		firstSentence: s.cfg.FirstSentenceTimeout(),
		abort:         cancel,
	}
	go wd.run(runCtx)
	go s.runTask(runCtx, rt)

	s.logger.Info("task started",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldBookID, task.BookID),
		logging.String(logging.FieldChapterID, task.ChapterID),
		logging.String(logging.FieldPriority, task.Priority.String()),
		logging.Int(logging.FieldAttempt, task.Attempts),
	)
}

func (s *Scheduler) removeTask(task *Task) {
	for i, queued := range s.queue {
		if queued == task {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// runTask executes one transcription attempt. Sentences buffer in memory
// and persist only after the engine finishes cleanly, so a failed attempt
// leaves no partial transcript behind.
func (s *Scheduler) runTask(ctx context.Context, rt *runningTask) {
	if err := s.store.MarkChapterTranscribing(ctx, rt.book.ID, rt.chapter.ID, rt.chapter.Start, rt.chapter.End()); err != nil {
		rt.done <- taskResult{err: services.Wrap(services.ErrStore, "scheduler", "run", "record chapter start", err)}
		return
	}

	var buffered []transcript.Sentence
	err := s.engine.TranscribeChapter(ctx, rt.book, rt.chapter, func(sentence transcript.Sentence) error {
		buffered = append(buffered, sentence)
		rt.tracker.bump()
		return nil
	})
	if err != nil {
		if rt.tracker.isStalled() && errors.Is(err, context.Canceled) {
			err = services.Wrap(services.ErrStall, "scheduler", "run", "recognizer produced no output within the stall timeout", err)
		}
		rt.done <- taskResult{err: err}
		return
	}

	// The attempt succeeded; don't let a preemption or shutdown that
	// lands during the write throw the finished chapter away.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.store.SaveChapterTranscription(saveCtx, rt.book.ID, rt.chapter.ID, buffered); err != nil {
		rt.done <- taskResult{err: services.Wrap(services.ErrStore, "scheduler", "run", "persist transcription", err)}
		return
	}
	rt.done <- taskResult{sentences: len(buffered)}
}

// clearChapterRow drops the in-progress record of a task that won't finish,
// so the chapter reads as never started instead of stuck transcribing.
func (s *Scheduler) clearChapterRow(task *Task) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.ClearChapterInProgress(ctx, task.BookID, task.ChapterID); err != nil {
		s.logger.Warn("could not clear in-progress chapter record",
			logging.String(logging.FieldBookID, task.BookID),
			logging.String(logging.FieldChapterID, task.ChapterID),
			logging.Error(err),
		)
	}
}

func (s *Scheduler) handleResult(res taskResult) {
	rt := s.run
	if rt == nil {
		return
	}
	s.run = nil
	rt.cancel()
	task := rt.task

	switch {
	case rt.canceled:
		task.State = StateCanceled
		s.clearChapterRow(task)
		s.logger.Info("task canceled",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldChapterID, task.ChapterID),
		)
	case res.err == nil:
		task.State = StateDone
		s.completed++
		s.logger.Info("task completed",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldBookID, task.BookID),
			logging.String(logging.FieldChapterID, task.ChapterID),
			logging.Int("sentences", res.sentences),
			logging.Int(logging.FieldAttempt, task.Attempts),
		)
	case rt.preempted && !rt.tracker.isStalled():
		// A preempted attempt isn't a failure; give the attempt back and
		// requeue behind whatever preempted it.
		task.Attempts--
		task.State = StateQueued
		task.StartedAt = time.Time{}
		s.queue = append(s.queue, task)
		s.logger.Info("task requeued after preemption",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldChapterID, task.ChapterID),
		)
	case !services.IsRetryable(res.err):
		task.State = StateFailed
		task.LastError = res.err.Error()
		s.failed++
		delete(s.seen, task.key())
		s.clearChapterRow(task)
		s.logger.Error("task failed permanently",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldChapterID, task.ChapterID),
			logging.Error(res.err),
			logging.String(logging.FieldErrorHint, "transcription capability unavailable; check recognizer install"),
		)
	case task.Attempts >= s.cfg.Scheduler.MaxAttempts:
		task.State = StateFailed
		task.LastError = res.err.Error()
		s.failed++
		delete(s.seen, task.key())
		s.clearChapterRow(task)
		s.logger.Error("task failed after final attempt",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldChapterID, task.ChapterID),
			logging.Int(logging.FieldAttempt, task.Attempts),
			logging.Error(res.err),
		)
	default:
		task.State = StateRetryWait
		task.NotBefore = time.Now().Add(s.cfg.RetryDelay())
		task.LastError = res.err.Error()
		s.queue = append(s.queue, task)
		s.logger.Warn("task will retry",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldChapterID, task.ChapterID),
			logging.Int(logging.FieldAttempt, task.Attempts),
			logging.Duration("retry_in", s.cfg.RetryDelay()),
			logging.Error(res.err),
		)
	}
}
