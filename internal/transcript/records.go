package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const chapterColumns = "book_id, chapter_id, start_time, end_time, completed, created_at, transcribed_at"

// IsChapterTranscribed reports whether the chapter has a completed
// transcription on disk.
func (s *Store) IsChapterTranscribed(ctx context.Context, bookID, chapterID string) (bool, error) {
	var completed int
	err := s.readDB.QueryRowContext(ctx,
		"SELECT completed FROM chapter_transcriptions WHERE book_id = ? AND chapter_id = ?",
		bookID, chapterID,
	).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query chapter state: %w", err)
	}
	return completed != 0, nil
}

// IsChapterTranscribing reports whether a transcription for the chapter has
// started but not yet completed. Rows in this state with no live task are
// leftovers from an interrupted run and are safe to restart over.
func (s *Store) IsChapterTranscribing(ctx context.Context, bookID, chapterID string) (bool, error) {
	var completed int
	err := s.readDB.QueryRowContext(ctx,
		"SELECT completed FROM chapter_transcriptions WHERE book_id = ? AND chapter_id = ?",
		bookID, chapterID,
	).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query chapter state: %w", err)
	}
	return completed == 0, nil
}

// MarkChapterTranscribing records that work on the chapter has begun. The
// upsert resets completed on retry so a previously failed row doesn't read
// as done.
func (s *Store) MarkChapterTranscribing(ctx context.Context, bookID, chapterID string, startTime, endTime float64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.writeDB.ExecContext(ctx, `
		INSERT INTO chapter_transcriptions (book_id, chapter_id, start_time, end_time, completed, created_at, transcribed_at)
		VALUES (?, ?, ?, ?, 0, ?, NULL)
		ON CONFLICT(book_id, chapter_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			completed = 0,
			transcribed_at = NULL`,
		bookID, chapterID, startTime, endTime, now)
	if err != nil {
		return fmt.Errorf("mark chapter transcribing: %w", err)
	}
	return nil
}

// ClearChapterInProgress deletes an incomplete transcription row so the
// chapter reads as never started. Completed rows are left untouched.
func (s *Store) ClearChapterInProgress(ctx context.Context, bookID, chapterID string) error {
	_, err := s.writeDB.ExecContext(ctx,
		"DELETE FROM chapter_transcriptions WHERE book_id = ? AND chapter_id = ? AND completed = 0",
		bookID, chapterID)
	if err != nil {
		return fmt.Errorf("clear in-progress chapter: %w", err)
	}
	return nil
}

// ChapterRecord returns the stored state for one chapter, or nil when no
// transcription was ever started.
func (s *Store) ChapterRecord(ctx context.Context, bookID, chapterID string) (*ChapterRecord, error) {
	row := s.readDB.QueryRowContext(ctx,
		"SELECT "+chapterColumns+" FROM chapter_transcriptions WHERE book_id = ? AND chapter_id = ?",
		bookID, chapterID)
	record, err := scanChapterRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ChapterRecords returns all chapter rows for a book ordered by start time.
func (s *Store) ChapterRecords(ctx context.Context, bookID string) ([]*ChapterRecord, error) {
	rows, err := s.readDB.QueryContext(ctx,
		"SELECT "+chapterColumns+" FROM chapter_transcriptions WHERE book_id = ? ORDER BY start_time ASC",
		bookID)
	if err != nil {
		return nil, fmt.Errorf("query chapter records: %w", err)
	}
	defer rows.Close()

	var records []*ChapterRecord
	for rows.Next() {
		record, scanErr := scanChapterRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapter records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChapterRecord(row rowScanner) (*ChapterRecord, error) {
	var (
		record        ChapterRecord
		completed     int
		createdAt     string
		transcribedAt sql.NullString
	)
	err := row.Scan(&record.BookID, &record.ChapterID, &record.StartTime, &record.EndTime,
		&completed, &createdAt, &transcribedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan chapter record: %w", err)
	}
	record.Completed = completed != 0
	if t, parseErr := parseTimeString(createdAt); parseErr == nil {
		record.CreatedAt = t
	}
	if transcribedAt.Valid {
		if t, parseErr := parseTimeString(transcribedAt.String); parseErr == nil {
			record.TranscribedAt = &t
		}
	}
	return &record, nil
}
