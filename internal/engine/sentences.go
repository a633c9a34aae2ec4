package engine

import (
	"strings"
	"unicode"

	"lectern/internal/stt"
	"lectern/internal/transcript"
)

// terminalRunes end a sentence. Covers Latin and CJK terminators.
const terminalRunes = ".!?…。！？"

// trailingClosers may follow a terminator without breaking sentence detection.
const trailingClosers = "\"'”’)»]」』"

// sentenceAssembler accumulates recognizer words into sentences and emits
// each one as soon as its terminator arrives. Times are shifted onto the
// book's absolute timeline, rounded, and clamped to the chapter's range.
type sentenceAssembler struct {
	offset     float64
	limitStart float64
	limitEnd   float64
	emit       func(transcript.Sentence) error

	pending []stt.Word
	count   int
}

func newSentenceAssembler(offset, limitStart, limitEnd float64, emit func(transcript.Sentence) error) *sentenceAssembler {
	return &sentenceAssembler{
		offset:     offset,
		limitStart: limitStart,
		limitEnd:   limitEnd,
		emit:       emit,
	}
}

// AddSpan folds a recognizer span into the pending sentence, emitting
// completed sentences along the way.
func (a *sentenceAssembler) AddSpan(span stt.Span) error {
	words := span.Words
	if len(words) == 0 && strings.TrimSpace(span.Text) != "" {
		words = []stt.Word{{Text: strings.TrimSpace(span.Text), Start: span.Start, End: span.End}}
	}
	for _, word := range words {
		if strings.TrimSpace(word.Text) == "" {
			continue
		}
		a.pending = append(a.pending, word)
		if endsSentence(word.Text) {
			if err := a.flushPending(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush emits any trailing words that never saw a terminator. Recognizers
// routinely drop the final period at a chapter boundary; the words still
// belong in the transcript.
func (a *sentenceAssembler) Flush() error {
	return a.flushPending()
}

// Count returns how many sentences have been emitted.
func (a *sentenceAssembler) Count() int {
	return a.count
}

func (a *sentenceAssembler) flushPending() error {
	if len(a.pending) == 0 {
		return nil
	}
	words := a.pending
	a.pending = nil

	text := joinWords(words)
	if text == "" {
		return nil
	}

	start := transcript.RoundTimestamp(a.offset + words[0].Start)
	end := transcript.RoundTimestamp(a.offset + words[len(words)-1].End)
	if start < a.limitStart {
		start = a.limitStart
	}
	if end > a.limitEnd {
		end = a.limitEnd
	}
	// Short sentences can collapse under rounding; keep start strictly
	// before end so ordering by start stays unambiguous.
	if end <= start {
		end = start + transcript.TimeResolution
		if end > a.limitEnd {
			end = a.limitEnd
			start = end - transcript.TimeResolution
			if start < a.limitStart {
				start = a.limitStart
			}
		}
	}

	a.count++
	return a.emit(transcript.Sentence{
		Text:      text,
		StartTime: start,
		EndTime:   end,
	})
}

// joinWords concatenates word tokens, space-separated except where the next
// token starts with a script that is written without spaces.
func joinWords(words []stt.Word) string {
	var b strings.Builder
	for _, word := range words {
		token := strings.TrimSpace(word.Text)
		if token == "" {
			continue
		}
		if b.Len() > 0 && !startsUnspacedScript(token) {
			b.WriteByte(' ')
		}
		b.WriteString(token)
	}
	return b.String()
}

func startsUnspacedScript(token string) bool {
	for _, r := range token {
		return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
	}
	return false
}

// endsSentence reports whether the token closes a sentence. Trailing quote
// and bracket characters are skipped before checking the terminator.
func endsSentence(token string) bool {
	trimmed := strings.TrimRightFunc(strings.TrimSpace(token), func(r rune) bool {
		return strings.ContainsRune(trailingClosers, r)
	})
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	return strings.ContainsRune(terminalRunes, runes[len(runes)-1])
}
