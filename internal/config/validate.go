package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateTrigger(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !c.Transcription.Enabled {
		return nil
	}
	if c.Transcription.Locale == "" {
		return errors.New("transcription.locale must be set when transcription.enabled is true")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if err := ensurePositiveMap(map[string]int{
		"scheduler.max_attempts":             c.Scheduler.MaxAttempts,
		"scheduler.retry_delay_seconds":      c.Scheduler.RetryDelaySeconds,
		"scheduler.progress_poll_seconds":    c.Scheduler.ProgressPollSeconds,
		"scheduler.stall_timeout_seconds":    c.Scheduler.StallTimeoutSeconds,
		"scheduler.first_sentence_seconds":   c.Scheduler.FirstSentenceSeconds,
		"scheduler.shutdown_timeout_seconds": c.Scheduler.ShutdownTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Scheduler.DedupWindowSeconds < 0 {
		return errors.New("scheduler.dedup_window_seconds must be >= 0")
	}
	if c.Scheduler.StallTimeoutSeconds <= c.Scheduler.ProgressPollSeconds {
		return errors.New("scheduler.stall_timeout_seconds must be greater than scheduler.progress_poll_seconds")
	}
	if c.Scheduler.FirstSentenceSeconds < c.Scheduler.StallTimeoutSeconds {
		return errors.New("scheduler.first_sentence_seconds must be at least scheduler.stall_timeout_seconds")
	}
	return nil
}

func (c *Config) validateTrigger() error {
	if c.Trigger.SettleDelayMillis < 0 {
		return errors.New("trigger.settle_delay_millis must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
