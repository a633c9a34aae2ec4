package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/scheduler"
	"lectern/internal/transcript"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Lectern", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DBPath = status.DBPath
	resp.LockPath = status.LockFilePath
	resp.BookCount = status.BookCount
	resp.Scheduler = status.Scheduler
	resp.Playback = PlaybackStatus{
		BookID:    status.Playback.BookID,
		ChapterID: status.Playback.ChapterID,
		Position:  status.Playback.Position,
		Playing:   status.Playback.Playing,
	}
	resp.Dependencies = status.Dependencies
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC")
	return nil
}

func (s *service) PlaybackEvent(req PlaybackEventRequest, resp *PlaybackEventResponse) error {
	if err := s.daemon.HandlePlaybackEvent(s.ctx, req.Event); err != nil {
		return err
	}
	resp.Accepted = true
	return nil
}

func (s *service) Transcribe(req TranscribeRequest, resp *TranscribeResponse) error {
	if req.BookID == "" || req.ChapterID == "" {
		return errors.New("transcribe requires book_id and chapter_id")
	}
	result, err := s.daemon.EnqueueChapter(s.ctx, scheduler.Request{
		BookID:    req.BookID,
		ChapterID: req.ChapterID,
		Priority:  scheduler.ParsePriority(req.Priority),
		Force:     req.Force,
	})
	if err != nil {
		return err
	}
	resp.Result = string(result)
	return nil
}

func (s *service) QueueBook(req QueueBookRequest, resp *QueueBookResponse) error {
	if req.BookID == "" {
		return errors.New("queue book requires book_id")
	}
	if err := s.daemon.QueueFirstChapter(s.ctx, req.BookID); err != nil {
		return err
	}
	resp.Queued = true
	return nil
}

func (s *service) CancelBook(req CancelBookRequest, resp *CancelBookResponse) error {
	if req.BookID == "" {
		return errors.New("cancel book requires book_id")
	}
	removed, err := s.daemon.CancelBook(s.ctx, req.BookID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) DeleteBook(req DeleteBookRequest, resp *DeleteBookResponse) error {
	if req.BookID == "" {
		return errors.New("delete book requires book_id")
	}
	removed, err := s.daemon.DeleteBook(s.ctx, req.BookID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("book deleted via IPC", logging.String(logging.FieldBookID, req.BookID))
	return nil
}

func (s *service) Captions(req CaptionsRequest, resp *CaptionsResponse) error {
	if req.BookID == "" {
		return errors.New("captions requires book_id")
	}
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	var (
		sentences []transcript.Sentence
		err       error
	)
	if req.ByRange {
		sentences, err = s.daemon.CaptionsInRange(ctx, req.BookID, req.From, req.To)
	} else {
		if req.ChapterID == "" {
			return errors.New("captions requires chapter_id or a range")
		}
		sentences, err = s.daemon.Captions(ctx, req.BookID, req.ChapterID)
	}
	if err != nil {
		return err
	}
	resp.Sentences = make([]Sentence, 0, len(sentences))
	for _, sentence := range sentences {
		resp.Sentences = append(resp.Sentences, Sentence{
			ID:        sentence.ID,
			BookID:    sentence.BookID,
			ChapterID: sentence.ChapterID,
			Text:      sentence.Text,
			Start:     sentence.StartTime,
			End:       sentence.EndTime,
		})
	}
	return nil
}

func (s *service) Progress(req ProgressRequest, resp *ProgressResponse) error {
	if req.BookID == "" {
		return errors.New("progress requires book_id")
	}
	seconds, err := s.daemon.Progress(s.ctx, req.BookID)
	if err != nil {
		return err
	}
	resp.Seconds = seconds
	return nil
}

func (s *service) Chapters(req ChaptersRequest, resp *ChaptersResponse) error {
	if req.BookID == "" {
		return errors.New("chapters requires book_id")
	}
	records, err := s.daemon.ChapterRecords(s.ctx, req.BookID)
	if err != nil {
		return err
	}
	resp.Chapters = make([]ChapterState, 0, len(records))
	for _, record := range records {
		state := ChapterState{
			ChapterID: record.ChapterID,
			Start:     record.StartTime,
			End:       record.EndTime,
			Completed: record.Completed,
		}
		if record.TranscribedAt != nil {
			state.TranscribedAt = record.TranscribedAt.Format(time.RFC3339)
		}
		resp.Chapters = append(resp.Chapters, state)
	}
	return nil
}

func (s *service) Books(_ BooksRequest, resp *BooksResponse) error {
	books := s.daemon.Books()
	resp.Books = make([]BookSummary, 0, len(books))
	for _, book := range books {
		resp.Books = append(resp.Books, BookSummary{
			ID:       book.ID,
			Title:    book.Title,
			Author:   book.Author,
			Chapters: len(book.Chapters),
		})
	}
	return nil
}

func (s *service) ReloadLibrary(_ ReloadLibraryRequest, resp *ReloadLibraryResponse) error {
	if err := s.daemon.ReloadLibrary(); err != nil {
		return err
	}
	resp.BookCount = s.daemon.Status(s.ctx).BookCount
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	health, err := s.daemon.TranscriptionHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TablesPresent = append(resp.TablesPresent, health.TablesPresent...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.ChapterRows = health.ChapterRows
	resp.SentenceRows = health.SentenceRows
	resp.Error = health.Error
	return err
}
