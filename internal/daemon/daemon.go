// Package daemon wires the transcription services together and enforces
// single-instance execution through a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lectern/internal/config"
	"lectern/internal/engine"
	"lectern/internal/library"
	"lectern/internal/logging"
	"lectern/internal/playback"
	"lectern/internal/scheduler"
	"lectern/internal/stt"
	"lectern/internal/transcript"
	"lectern/internal/trigger"
)

// Daemon owns the store, scheduler, and trigger for one lectern instance.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *transcript.Store
	books    *libraryView
	sched    *scheduler.Scheduler
	trig     *trigger.Trigger
	state    *playback.State
	provider stt.Provider
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DBPath       string
	LockFilePath string
	BookCount    int
	Scheduler    scheduler.Snapshot
	Playback     playback.Status
	Dependencies []DependencyStatus
}

// DependencyStatus describes availability of an external tool.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := transcript.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}

	books := newLibraryView(cfg.Paths.LibraryDir)
	if err := books.Reload(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load library: %w", err)
	}

	var provider stt.Provider
	if cfg.Transcription.Enabled {
		provider = stt.NewWhisperCLI(cfg.Transcription.Binary, cfg.Transcription.Model, cfg.Paths.CacheDir)
	} else {
		provider = stt.Disabled{Reason: "transcription disabled in configuration"}
	}

	eng := engine.New(provider, engine.Options{
		FFmpegBinary:  cfg.FFmpegBinary(),
		CacheDir:      cfg.Paths.CacheDir,
		DefaultLocale: cfg.Transcription.Locale,
	}, logger)

	sched := scheduler.New(cfg, store, books, eng, logger)
	state := playback.NewState()
	trig := trigger.New(cfg, sched, books, state, logger)

	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		books:    books,
		sched:    sched,
		trig:     trig,
		state:    state,
		provider: provider,
		logPath:  filepath.Join(cfg.Paths.LogDir, "lectern.log"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the daemon lock and launches the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.sched.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start scheduler: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("lectern daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("books", d.books.Len()),
	)
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.trig.Close()
	d.sched.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// SetLogPath records the active log file location reported by LogPath.
func (d *Daemon) SetLogPath(path string) {
	d.logPath = path
}

// Status reports current daemon state.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		BookCount:    d.books.Len(),
		Playback:     d.state.Current(),
		Dependencies: d.Dependencies(),
	}
	if status.Running {
		if snap, err := d.sched.Status(ctx); err == nil {
			status.Scheduler = snap
		}
	}
	return status
}

// Dependencies checks the external tools the daemon shells out to.
func (d *Daemon) Dependencies() []DependencyStatus {
	ffmpeg := d.cfg.FFmpegBinary()
	recognizer := d.cfg.Transcription.Binary
	if strings.TrimSpace(recognizer) == "" {
		recognizer = "whisper-cli"
	}
	return []DependencyStatus{
		{Name: "ffmpeg", Command: ffmpeg, Available: binaryAvailable(ffmpeg)},
		{Name: "recognizer", Command: recognizer, Available: binaryAvailable(recognizer)},
	}
}

// HandlePlaybackEvent forwards a player event to the trigger.
func (d *Daemon) HandlePlaybackEvent(ctx context.Context, ev trigger.Event) error {
	return d.trig.HandleEvent(ctx, ev)
}

// EnqueueChapter submits a transcription request.
func (d *Daemon) EnqueueChapter(ctx context.Context, req scheduler.Request) (scheduler.EnqueueResult, error) {
	return d.sched.Enqueue(ctx, req)
}

// QueueFirstChapter starts background transcription of a book.
func (d *Daemon) QueueFirstChapter(ctx context.Context, bookID string) error {
	return d.trig.QueueFirstChapter(ctx, bookID)
}

// CancelBook drops all pending and running work for a book.
func (d *Daemon) CancelBook(ctx context.Context, bookID string) (int, error) {
	return d.sched.CancelBook(ctx, bookID)
}

// Captions returns the stored sentences for one chapter.
func (d *Daemon) Captions(ctx context.Context, bookID, chapterID string) ([]transcript.Sentence, error) {
	return d.store.SentencesForChapter(ctx, bookID, chapterID)
}

// CaptionsInRange returns sentences for a timeline window of a book.
func (d *Daemon) CaptionsInRange(ctx context.Context, bookID string, from, to float64) ([]transcript.Sentence, error) {
	return d.store.SentencesInRange(ctx, bookID, from, to)
}

// Progress reports the furthest transcribed point of a book.
func (d *Daemon) Progress(ctx context.Context, bookID string) (float64, error) {
	return d.store.Progress(ctx, bookID)
}

// ChapterRecords lists per-chapter transcription state for a book.
func (d *Daemon) ChapterRecords(ctx context.Context, bookID string) ([]*transcript.ChapterRecord, error) {
	return d.store.ChapterRecords(ctx, bookID)
}

// TranscriptionHealth runs store diagnostics.
func (d *Daemon) TranscriptionHealth(ctx context.Context) (transcript.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// DeleteBook removes a book's transcription state entirely: pending tasks,
// stored sentences, and the playback mirror.
func (d *Daemon) DeleteBook(ctx context.Context, bookID string) (int, error) {
	removed, err := d.sched.CancelBook(ctx, bookID)
	if err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		return 0, err
	}
	if err := d.store.DeleteBook(ctx, bookID); err != nil {
		return removed, err
	}
	d.state.ForgetBook(bookID)
	d.logger.Info("book transcription state deleted",
		logging.String(logging.FieldBookID, bookID),
		logging.Int("tasks_removed", removed),
	)
	return removed, nil
}

// Books lists the library's book manifests.
func (d *Daemon) Books() []*library.Book {
	return d.books.Books()
}

// ReloadLibrary rescans the library directory for new or changed manifests.
func (d *Daemon) ReloadLibrary() error {
	if err := d.books.Reload(); err != nil {
		return err
	}
	d.logger.Info("library reloaded", logging.Int("books", d.books.Len()))
	return nil
}

// SchedulerStatus returns the scheduler's workload snapshot.
func (d *Daemon) SchedulerStatus(ctx context.Context) (scheduler.Snapshot, error) {
	return d.sched.Status(ctx)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
