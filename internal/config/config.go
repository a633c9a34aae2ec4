package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	CacheDir   string `toml:"cache_dir"`
}

// Transcription contains speech-to-text provider configuration.
type Transcription struct {
	Enabled bool   `toml:"enabled"`
	Locale  string `toml:"locale"`
	Model   string `toml:"model"`
	Binary  string `toml:"binary"`
	FFmpeg  string `toml:"ffmpeg"`
}

// Scheduler contains timing and retry configuration for the transcription
// scheduler. All durations are expressed in the unit named by the key.
type Scheduler struct {
	MaxAttempts            int     `toml:"max_attempts"`
	RetryDelaySeconds      int     `toml:"retry_delay_seconds"`
	ProgressPollSeconds    int     `toml:"progress_poll_seconds"`
	StallTimeoutSeconds    int     `toml:"stall_timeout_seconds"`
	FirstSentenceSeconds   int     `toml:"first_sentence_seconds"`
	DedupWindowSeconds     float64 `toml:"dedup_window_seconds"`
	PrefetchNextChapter    bool    `toml:"prefetch_next_chapter"`
	ShutdownTimeoutSeconds int     `toml:"shutdown_timeout_seconds"`
}

// Trigger contains playback trigger configuration.
type Trigger struct {
	SettleDelayMillis int `toml:"settle_delay_millis"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lectern.
//
// Configuration sections by subsystem:
//   - Paths: book library, database, log, and scratch directories
//   - Transcription: speech-to-text locale, model, and tool binaries
//   - Scheduler: retry budget, watchdog timing, dedup tolerance
//   - Trigger: playback settle delay
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Trigger       Trigger       `toml:"trigger"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lectern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	fields := []*string{
		&c.Paths.LibraryDir,
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.Paths.CacheDir,
	}
	for _, field := range fields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Transcription.Locale = strings.TrimSpace(c.Transcription.Locale)
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	c.Transcription.FFmpeg = strings.TrimSpace(c.Transcription.FFmpeg)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the transcript database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "transcripts.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "lectern.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "lecternd.lock")
}

// FFmpegBinary returns the ffmpeg executable used for segment extraction.
func (c *Config) FFmpegBinary() string {
	if c.Transcription.FFmpeg != "" {
		return c.Transcription.FFmpeg
	}
	return "ffmpeg"
}

// RetryDelay returns the pause between failed attempts for a chapter.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Scheduler.RetryDelaySeconds) * time.Second
}

// ProgressPollInterval returns how often the watchdog samples progress.
func (c *Config) ProgressPollInterval() time.Duration {
	return time.Duration(c.Scheduler.ProgressPollSeconds) * time.Second
}

// StallTimeout returns how long a running task may go without a new sentence.
func (c *Config) StallTimeout() time.Duration {
	return time.Duration(c.Scheduler.StallTimeoutSeconds) * time.Second
}

// FirstSentenceTimeout returns the grace period before the first sentence.
func (c *Config) FirstSentenceTimeout() time.Duration {
	return time.Duration(c.Scheduler.FirstSentenceSeconds) * time.Second
}

// DedupWindow returns the tolerance within which duplicate requests for the
// same chapter are suppressed.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Scheduler.DedupWindowSeconds * float64(time.Second))
}

// SettleDelay returns the trigger debounce before acting on playback changes.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Trigger.SettleDelayMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
