package transcript

import (
	"math"
	"time"
)

// TimeResolution is the normalization step applied to every persisted
// timestamp. The recognizer reports jittery sub-millisecond offsets; caption
// display only needs tenths of a second, and rounding keeps re-transcribed
// chapters byte-comparable.
const TimeResolution = 0.1

// RoundTimestamp rounds a timeline position to the nearest TimeResolution.
func RoundTimestamp(seconds float64) float64 {
	return math.Round(seconds/TimeResolution) * TimeResolution
}

// ChapterRecord tracks transcription state for one (book, chapter) pair.
// The record is created when a task starts running; Completed flips to true
// only inside the atomic save, never with a partial sentence set.
type ChapterRecord struct {
	BookID        string
	ChapterID     string
	StartTime     float64
	EndTime       float64
	Completed     bool
	CreatedAt     time.Time
	TranscribedAt *time.Time
}

// Sentence is the smallest transcribed unit. Times are absolute seconds on
// the book's timeline, rounded to TimeResolution, with StartTime < EndTime.
type Sentence struct {
	ID        string
	BookID    string
	ChapterID string
	Text      string
	StartTime float64
	EndTime   float64
	CreatedAt time.Time
}

// DatabaseHealth captures diagnostic information about the transcript
// database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	IntegrityCheck   bool
	ChapterRows      int
	SentenceRows     int
	Error            string
}
