package stt

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// WhisperCLI runs the whisper-cli executable and streams its segment output.
//
// The recognizer prints one line per decoded segment as it works, which is
// what drives upstream progress tracking. Word timings are interpolated
// across each segment proportional to word length.
type WhisperCLI struct {
	binary     string
	model      string
	cacheDir   string
	newCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewWhisperCLI creates a provider around the given whisper-cli binary and
// model. A bare model name resolves to a ggml file under cacheDir; a path
// is used as-is.
func NewWhisperCLI(binary, model, cacheDir string) *WhisperCLI {
	if binary == "" {
		binary = "whisper-cli"
	}
	return &WhisperCLI{
		binary:     binary,
		model:      model,
		cacheDir:   cacheDir,
		newCommand: exec.CommandContext,
	}
}

// WithCommand sets a custom command constructor (for testing).
func (w *WhisperCLI) WithCommand(fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	w.newCommand = fn
}

// ModelPath returns the resolved recognizer model file location.
func (w *WhisperCLI) ModelPath() string {
	model := w.model
	if model == "" {
		model = "small"
	}
	if strings.ContainsRune(model, os.PathSeparator) || strings.HasSuffix(model, ".bin") {
		return model
	}
	return filepath.Join(w.cacheDir, "models", "ggml-"+model+".bin")
}

// Available verifies the recognizer binary is on PATH and the locale is
// usable. Failures wrap services.ErrUnavailable so callers skip retries.
func (w *WhisperCLI) Available(ctx context.Context, locale string) error {
	if _, err := exec.LookPath(w.binary); err != nil {
		return services.Wrap(services.ErrUnavailable, "stt", "available",
			fmt.Sprintf("recognizer binary %q not found", w.binary), err)
	}
	if _, err := NormalizeLocale(locale); err != nil {
		return services.Wrap(services.ErrUnavailable, "stt", "available",
			"unsupported locale", err)
	}
	return nil
}

// Transcribe runs whisper-cli over the WAV file, emitting a Span per
// printed segment line. The run aborts when ctx is canceled or when emit
// returns an error.
func (w *WhisperCLI) Transcribe(ctx context.Context, wavPath, locale string, emit func(Span) error) error {
	lang, err := NormalizeLocale(locale)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "stt", "transcribe", "unsupported locale", err)
	}

	args := []string{
		"-m", w.ModelPath(),
		"-l", lang,
		"-f", wavPath,
	}
	cmd := w.newCommand(ctx, w.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrUnavailable, "stt", "transcribe",
			fmt.Sprintf("start %s", w.binary), err)
	}

	var emitErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		span, ok := parseSegmentLine(scanner.Text())
		if !ok {
			continue
		}
		if err := emit(span); err != nil {
			emitErr = err
			_ = cmd.Process.Kill()
			break
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if emitErr != nil {
		return emitErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		return services.Wrap(services.ErrTransient, "stt", "transcribe",
			fmt.Sprintf("%s failed: %s", w.binary, strings.TrimSpace(stderr.String())), waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("read recognizer output: %w", scanErr)
	}
	return nil
}

// parseSegmentLine parses one recognizer output line of the form
//
//	[00:01:02.340 --> 00:01:05.780]   text of the segment
//
// returning false for any line that doesn't match.
func parseSegmentLine(line string) (Span, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return Span{}, false
	}
	closing := strings.Index(line, "]")
	if closing < 0 {
		return Span{}, false
	}
	window := line[1:closing]
	parts := strings.Split(window, "-->")
	if len(parts) != 2 {
		return Span{}, false
	}
	start, err := parseClockTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return Span{}, false
	}
	end, err := parseClockTime(strings.TrimSpace(parts[1]))
	if err != nil {
		return Span{}, false
	}
	text := strings.TrimSpace(line[closing+1:])
	if text == "" || end <= start {
		return Span{}, false
	}
	return Span{
		Text:  text,
		Start: start,
		End:   end,
		Words: interpolateWords(text, start, end),
	}, true
}

// parseClockTime parses "hh:mm:ss.mmm" into seconds.
func parseClockTime(value string) (float64, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed clock time %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed hours in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed minutes in %q", value)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed seconds in %q", value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

// interpolateWords distributes the span's time range across its words
// proportional to word length. The recognizer's segment prints carry no
// per-word timing, so this is the best available approximation.
func interpolateWords(text string, start, end float64) []Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	total := 0
	for _, field := range fields {
		total += len([]rune(field))
	}
	if total == 0 {
		return nil
	}
	duration := end - start
	words := make([]Word, 0, len(fields))
	cursor := start
	consumed := 0
	for i, field := range fields {
		consumed += len([]rune(field))
		wordEnd := start + duration*float64(consumed)/float64(total)
		if i == len(fields)-1 {
			wordEnd = end
		}
		words = append(words, Word{Text: field, Start: cursor, End: wordEnd})
		cursor = wordEnd
	}
	return words
}
