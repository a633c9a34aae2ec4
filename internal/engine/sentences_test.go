package engine

import (
	"math"
	"testing"

	"lectern/internal/stt"
	"lectern/internal/transcript"
)

func collectSentences(t *testing.T, offset, limitStart, limitEnd float64, spans []stt.Span) []transcript.Sentence {
	t.Helper()
	var got []transcript.Sentence
	assembler := newSentenceAssembler(offset, limitStart, limitEnd, func(s transcript.Sentence) error {
		got = append(got, s)
		return nil
	})
	for _, span := range spans {
		if err := assembler.AddSpan(span); err != nil {
			t.Fatalf("AddSpan: %v", err)
		}
	}
	if err := assembler.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return got
}

func TestAssemblerSplitsOnTerminators(t *testing.T) {
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "It", Start: 0.2, End: 0.5},
			{Text: "was", Start: 0.5, End: 0.8},
			{Text: "night.", Start: 0.8, End: 1.4},
			{Text: "Rain", Start: 1.6, End: 2.0},
		}},
		{Words: []stt.Word{
			{Text: "fell", Start: 2.0, End: 2.4},
			{Text: "hard!", Start: 2.4, End: 3.1},
		}},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(got))
	}
	if got[0].Text != "It was night." {
		t.Fatalf("unexpected first sentence %q", got[0].Text)
	}
	if got[1].Text != "Rain fell hard!" {
		t.Fatalf("unexpected second sentence %q", got[1].Text)
	}
	if got[0].EndTime > got[1].StartTime {
		t.Fatal("sentences overlap")
	}
}

func TestAssemblerSentenceSpansSegmentBoundary(t *testing.T) {
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "The", Start: 0, End: 0.3},
			{Text: "story", Start: 0.3, End: 0.9},
		}},
		{Words: []stt.Word{
			{Text: "continues", Start: 1.0, End: 1.8},
			{Text: "here.", Start: 1.8, End: 2.3},
		}},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence across the boundary, got %d", len(got))
	}
	if got[0].Text != "The story continues here." {
		t.Fatalf("unexpected text %q", got[0].Text)
	}
}

func TestAssemblerOffsetsToBookTimeline(t *testing.T) {
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "Offset", Start: 1.0, End: 1.5},
			{Text: "check.", Start: 1.5, End: 2.0},
		}},
	}
	got := collectSentences(t, 300, 300, 360, spans)
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(got))
	}
	if math.Abs(got[0].StartTime-301.0) > 1e-9 {
		t.Fatalf("expected start 301.0, got %v", got[0].StartTime)
	}
	if math.Abs(got[0].EndTime-302.0) > 1e-9 {
		t.Fatalf("expected end 302.0, got %v", got[0].EndTime)
	}
}

func TestAssemblerFlushEmitsTrailingWords(t *testing.T) {
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "No", Start: 0, End: 0.4},
			{Text: "terminator", Start: 0.4, End: 1.2},
		}},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 1 {
		t.Fatalf("expected trailing words to flush, got %d sentences", len(got))
	}
	if got[0].Text != "No terminator" {
		t.Fatalf("unexpected text %q", got[0].Text)
	}
}

func TestAssemblerClampsToChapterRange(t *testing.T) {
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "Runs", Start: 58, End: 59},
			{Text: "long.", Start: 59, End: 63},
		}},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(got))
	}
	if got[0].EndTime > 60 {
		t.Fatalf("end %v exceeds chapter range", got[0].EndTime)
	}
	if got[0].StartTime >= got[0].EndTime {
		t.Fatalf("degenerate range [%v, %v]", got[0].StartTime, got[0].EndTime)
	}
}

func TestAssemblerKeepsStartBeforeEnd(t *testing.T) {
	// A single clipped word can round to a zero-length range.
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "Hm.", Start: 10.01, End: 10.04},
		}},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(got))
	}
	if got[0].StartTime >= got[0].EndTime {
		t.Fatalf("degenerate range [%v, %v]", got[0].StartTime, got[0].EndTime)
	}
}

func TestAssemblerCJKTerminators(t *testing.T) {
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "むかしむかし。", Start: 0, End: 1.5},
			{Text: "ある日", Start: 1.8, End: 2.5},
			{Text: "です。", Start: 2.5, End: 3.2},
		}},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(got))
	}
	if got[0].Text != "むかしむかし。" {
		t.Fatalf("unexpected first sentence %q", got[0].Text)
	}
	if got[1].Text != "ある日です。" {
		t.Fatalf("expected unspaced join, got %q", got[1].Text)
	}
}

func TestAssemblerTerminatorInsideQuotes(t *testing.T) {
	spans := []stt.Span{
		{Words: []stt.Word{
			{Text: "He", Start: 0, End: 0.3},
			{Text: "said,", Start: 0.3, End: 0.7},
			{Text: "\"Stop.\"", Start: 0.7, End: 1.3},
			{Text: "She", Start: 1.5, End: 1.8},
			{Text: "didn't.", Start: 1.8, End: 2.4},
		}},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 2 {
		t.Fatalf("expected terminator inside quotes to split, got %d sentences", len(got))
	}
	if got[0].Text != "He said, \"Stop.\"" {
		t.Fatalf("unexpected first sentence %q", got[0].Text)
	}
}

func TestAssemblerSpanWithoutWords(t *testing.T) {
	spans := []stt.Span{
		{Text: "Whole segment as one unit.", Start: 4, End: 8},
	}
	got := collectSentences(t, 0, 0, 60, spans)
	if len(got) != 1 {
		t.Fatalf("expected span text fallback, got %d sentences", len(got))
	}
	if got[0].Text != "Whole segment as one unit." {
		t.Fatalf("unexpected text %q", got[0].Text)
	}
}
