// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_clock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hireflowai/pkg/commons"
)

// MaxElapsedSkew bounds the delta between now and the stored session start
// timestamp. Anything beyond it is treated as clock skew and the elapsed
// counter restarts from zero instead of showing a nonsensical duration.
const MaxElapsedSkew = 24 * time.Hour

// timestampLayouts are tried in order when parsing a server start timestamp.
// Naive layouts (no zone suffix) are normalized to UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseStartTimestamp parses a server-supplied start timestamp. Timestamps
// without timezone information are interpreted as UTC.
func ParseStartTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			if t.Location() == time.Local {
				t = t.UTC()
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start timestamp: %q", value)
}

// ============================================================================
// Elapsed — monotonic session clock
// ============================================================================

// Elapsed counts whole seconds since session activation. It is not pausable:
// a fresh Start always re-derives the counter, and Stop discards it. A
// lingering ticker after session teardown is a defect, so Stop must always be
// called when the owning session leaves the active state.
type Elapsed struct {
	logger   commons.Logger
	seconds  atomic.Int64
	stopCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	// clock and interval are injectable for testing.
	clock    func() time.Time
	interval time.Duration
}

// NewElapsed creates an elapsed-time clock. It does not tick until Start.
func NewElapsed(logger commons.Logger) *Elapsed {
	return &Elapsed{
		logger:   logger,
		stopCh:   make(chan struct{}),
		clock:    time.Now,
		interval: time.Second,
	}
}

// Start begins ticking. When startedAt is non-nil the counter resumes from
// now-startedAt; a negative or implausibly large delta (beyond MaxElapsedSkew)
// resets to zero.
func (e *Elapsed) Start(startedAt *time.Time) {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	e.seconds.Store(e.initialSeconds(startedAt))

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.seconds.Add(1)
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Elapsed) initialSeconds(startedAt *time.Time) int64 {
	if startedAt == nil {
		return 0
	}
	delta := e.clock().Sub(*startedAt)
	if delta < 0 {
		e.logger.Warnw("session start timestamp is in the future, resetting elapsed clock",
			"started_at", startedAt.Format(time.RFC3339))
		return 0
	}
	if delta > MaxElapsedSkew {
		e.logger.Warnw("session start timestamp exceeds skew bound, resetting elapsed clock",
			"started_at", startedAt.Format(time.RFC3339),
			"delta", delta.String())
		return 0
	}
	return int64(delta.Seconds())
}

// Seconds returns the current elapsed seconds. Always >= 0.
func (e *Elapsed) Seconds() int64 {
	return e.seconds.Load()
}

// Stop halts the ticker. Safe to call redundantly.
func (e *Elapsed) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// ============================================================================
// Countdown — fixed-budget per-question timer
// ============================================================================

// Countdown decrements once per second from a fixed budget. On reaching zero
// it fires onExpire exactly once and immediately rearms to the full budget
// for the next question. Reset rearms without firing.
type Countdown struct {
	logger    commons.Logger
	budget    int64
	remaining atomic.Int64
	onExpire  func()
	stopCh    chan struct{}
	stopOnce  sync.Once
	started   atomic.Bool

	interval time.Duration
}

// NewCountdown creates a countdown with the given budget in seconds. onExpire
// runs on the ticker goroutine; callers must do their own locking.
func NewCountdown(logger commons.Logger, budgetSeconds int, onExpire func()) *Countdown {
	c := &Countdown{
		logger:   logger,
		budget:   int64(budgetSeconds),
		onExpire: onExpire,
		stopCh:   make(chan struct{}),
		interval: time.Second,
	}
	c.remaining.Store(c.budget)
	return c
}

// Start begins ticking from the full budget.
func (c *Countdown) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.remaining.Store(c.budget)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if v := c.remaining.Add(-1); v <= 0 {
					// Rearm before notifying so a slow handler never observes
					// a negative counter.
					c.remaining.Store(c.budget)
					if c.onExpire != nil {
						c.onExpire()
					}
				}
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Reset rearms the countdown to the full budget without firing onExpire.
// Called on every question advance.
func (c *Countdown) Reset() {
	c.remaining.Store(c.budget)
}

// Remaining returns the seconds left in the current cycle.
func (c *Countdown) Remaining() int64 {
	return c.remaining.Load()
}

// Stop halts the ticker. Safe to call redundantly.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
