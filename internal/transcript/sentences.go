package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveChapterTranscription atomically replaces the chapter's sentence set
// and marks the chapter completed. Readers see either the previous complete
// transcription or the new one, never a partial mix. Sentence IDs and
// CreatedAt are assigned here; callers only supply text and timing.
func (s *Store) SaveChapterTranscription(ctx context.Context, bookID, chapterID string, sentences []Sentence) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM transcript_sentences WHERE book_id = ? AND chapter_id = ?",
		bookID, chapterID); err != nil {
		return fmt.Errorf("clear prior sentences: %w", err)
	}

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript_sentences (id, book_id, chapter_id, chunk_id, text, start_time, end_time, created_at)
		VALUES (?, ?, ?, NULL, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sentence insert: %w", err)
	}
	defer stmt.Close()

	for _, sentence := range sentences {
		id := sentence.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, bookID, chapterID,
			sentence.Text, sentence.StartTime, sentence.EndTime, nowStr); err != nil {
			return fmt.Errorf("insert sentence: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE chapter_transcriptions
		SET completed = 1, transcribed_at = ?
		WHERE book_id = ? AND chapter_id = ?`,
		nowStr, bookID, chapterID)
	if err != nil {
		return fmt.Errorf("mark chapter completed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check completion update: %w", err)
	}
	if affected == 0 {
		// The chapter row is created when work starts; saving without it
		// means the caller skipped MarkChapterTranscribing.
		return fmt.Errorf("no chapter row for %s/%s", bookID, chapterID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// SentencesForChapter returns the chapter's sentences ordered by start time.
func (s *Store) SentencesForChapter(ctx context.Context, bookID, chapterID string) ([]Sentence, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, book_id, chapter_id, text, start_time, end_time, created_at
		FROM transcript_sentences
		WHERE book_id = ? AND chapter_id = ?
		ORDER BY start_time ASC`,
		bookID, chapterID)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	defer rows.Close()

	var sentences []Sentence
	for rows.Next() {
		var (
			sentence  Sentence
			createdAt string
		)
		if err := rows.Scan(&sentence.ID, &sentence.BookID, &sentence.ChapterID,
			&sentence.Text, &sentence.StartTime, &sentence.EndTime, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		if t, parseErr := parseTimeString(createdAt); parseErr == nil {
			sentence.CreatedAt = t
		}
		sentences = append(sentences, sentence)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentences: %w", err)
	}
	return sentences, nil
}

// SentencesInRange returns sentences whose start falls inside [from, to),
// across chapter boundaries, ordered by start time. The caption surface uses
// this to render a window around the playhead.
func (s *Store) SentencesInRange(ctx context.Context, bookID string, from, to float64) ([]Sentence, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, book_id, chapter_id, text, start_time, end_time, created_at
		FROM transcript_sentences
		WHERE book_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC`,
		bookID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query sentence range: %w", err)
	}
	defer rows.Close()

	var sentences []Sentence
	for rows.Next() {
		var (
			sentence  Sentence
			createdAt string
		)
		if err := rows.Scan(&sentence.ID, &sentence.BookID, &sentence.ChapterID,
			&sentence.Text, &sentence.StartTime, &sentence.EndTime, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		if t, parseErr := parseTimeString(createdAt); parseErr == nil {
			sentence.CreatedAt = t
		}
		sentences = append(sentences, sentence)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentence range: %w", err)
	}
	return sentences, nil
}

// Progress returns the furthest transcribed end time for a book, across all
// completed chapters. Returns 0 when nothing has been transcribed yet.
func (s *Store) Progress(ctx context.Context, bookID string) (float64, error) {
	var progress sql.NullFloat64
	err := s.readDB.QueryRowContext(ctx, `
		SELECT MAX(ts.end_time)
		FROM transcript_sentences ts
		JOIN chapter_transcriptions ct
			ON ct.book_id = ts.book_id AND ct.chapter_id = ts.chapter_id
		WHERE ts.book_id = ? AND ct.completed = 1`,
		bookID).Scan(&progress)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("query progress: %w", err)
	}
	if !progress.Valid {
		return 0, nil
	}
	return progress.Float64, nil
}

// DeleteBook removes all transcription state for a book.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM transcript_sentences WHERE book_id = ?", bookID); err != nil {
		return fmt.Errorf("delete sentences: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chapter_transcriptions WHERE book_id = ?", bookID); err != nil {
		return fmt.Errorf("delete chapter records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}
