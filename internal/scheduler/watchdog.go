package scheduler

import (
	"context"
	"sync/atomic"
	"time"
)

// progressTracker counts emitted sentences for a running task. The task
// goroutine bumps it, the watchdog and status snapshots read it.
type progressTracker struct {
	count   atomic.Int64
	stalled atomic.Bool
}

func (p *progressTracker) bump() {
	p.count.Add(1)
}

func (p *progressTracker) sentences() int {
	return int(p.count.Load())
}

func (p *progressTracker) markStalled() {
	p.stalled.Store(true)
}

func (p *progressTracker) isStalled() bool {
	return p.stalled.Load()
}

// watchdog samples a task's sentence count and cancels the run when output
// stops flowing. Before the first sentence the recognizer is still loading
// models, so a longer grace period applies; after that the regular stall
// timeout takes over.
type watchdog struct {
	tracker       *progressTracker
	poll          time.Duration
	stallTimeout  time.Duration
	firstSentence time.Duration
	abort         context.CancelFunc
}

func (w *watchdog) run(ctx context.Context) {
	if w.poll <= 0 || w.stallTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	lastCount := w.tracker.sentences()
	lastChange := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := w.tracker.sentences()
			if current != lastCount {
				lastCount = current
				lastChange = time.Now()
				continue
			}
			limit := w.stallTimeout
			if lastCount == 0 && w.firstSentence > limit {
				limit = w.firstSentence
			}
			if time.Since(lastChange) >= limit {
				w.tracker.markStalled()
				w.abort()
				return
			}
		}
	}
}
