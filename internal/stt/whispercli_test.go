package stt

import (
	"context"
	"errors"
	"math"
	"testing"

	"lectern/internal/services"
)

func TestParseSegmentLine(t *testing.T) {
	span, ok := parseSegmentLine("[00:01:02.340 --> 00:01:05.780]   Hello there, listener.")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if span.Text != "Hello there, listener." {
		t.Fatalf("unexpected text %q", span.Text)
	}
	if math.Abs(span.Start-62.34) > 1e-9 {
		t.Fatalf("unexpected start %v", span.Start)
	}
	if math.Abs(span.End-65.78) > 1e-9 {
		t.Fatalf("unexpected end %v", span.End)
	}
	if len(span.Words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(span.Words))
	}
}

func TestParseSegmentLineRejectsNoise(t *testing.T) {
	lines := []string{
		"",
		"whisper_init_from_file: loading model",
		"[bad --> worse] nope",
		"[00:00:00.000 --> 00:00:00.000] zero length",
		"[00:00:05.000 --> 00:00:02.000] reversed",
		"[00:00:00.000 --> 00:00:01.000]",
	}
	for _, line := range lines {
		if _, ok := parseSegmentLine(line); ok {
			t.Fatalf("expected %q to be rejected", line)
		}
	}
}

func TestInterpolateWordsCoversSpan(t *testing.T) {
	words := interpolateWords("one two three", 10, 16)
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	if words[0].Start != 10 {
		t.Fatalf("first word should start at span start, got %v", words[0].Start)
	}
	if words[2].End != 16 {
		t.Fatalf("last word should end at span end, got %v", words[2].End)
	}
	for i := 1; i < len(words); i++ {
		if words[i].Start != words[i-1].End {
			t.Fatalf("word %d start %v does not meet previous end %v", i, words[i].Start, words[i-1].End)
		}
	}
	for _, w := range words {
		if w.End <= w.Start {
			t.Fatalf("word %q has non-positive duration", w.Text)
		}
	}
}

func TestWhisperCLIAvailableMissingBinary(t *testing.T) {
	provider := NewWhisperCLI("definitely-not-on-path-48151623", "small", t.TempDir())
	err := provider.Available(context.Background(), "en-US")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("missing binary must not be retryable")
	}
}

func TestNormalizeLocale(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en-US", "en"},
		{"en_GB", "en"},
		{"ja", "ja"},
		{"pt-BR", "pt"},
	}
	for _, tc := range cases {
		got, err := NormalizeLocale(tc.in)
		if err != nil {
			t.Fatalf("NormalizeLocale(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeLocale(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
	if _, err := NormalizeLocale(""); err == nil {
		t.Fatal("expected error for empty locale")
	}
	if _, err := NormalizeLocale("not a locale!!"); err == nil {
		t.Fatal("expected error for malformed locale")
	}
}
