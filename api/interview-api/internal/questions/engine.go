// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_questions

import (
	"context"
	"sync"
	"sync/atomic"

	internal_clock "github.com/hireflowai/api/interview-api/internal/clock"
	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	"github.com/hireflowai/pkg/commons"
)

// PlaceholderAnswer is recorded for any question the candidate never
// answered before its countdown expired or before final submission.
const PlaceholderAnswer = "No answer provided"

// SubmitFunc delivers the frozen answer batch as a single remote operation.
type SubmitFunc func(ctx context.Context, answers []internal_entity.QuestionAnswer) error

// Engine advances through a fixed, ordered question list on a per-question
// countdown. Answers are keyed by question id; a later write replaces the
// earlier one. Reaching the end of the list triggers exactly one batch
// submission, guarded by an explicit in-flight flag rather than UI state.
type Engine struct {
	logger    commons.Logger
	sessionID string

	mu        sync.Mutex
	questions []internal_entity.InterviewQuestion
	cursor    int
	answers   map[uint64]string

	countdown  *internal_clock.Countdown
	submit     SubmitFunc
	onComplete func(err error)

	submitting atomic.Bool
}

// NewEngine builds the progression engine. onComplete fires once after the
// final submission attempt, with its error if any.
func NewEngine(
	logger commons.Logger,
	sessionID string,
	questions []internal_entity.InterviewQuestion,
	budgetSeconds int,
	submit SubmitFunc,
	onComplete func(err error),
) *Engine {
	e := &Engine{
		logger:     logger,
		sessionID:  sessionID,
		questions:  questions,
		answers:    make(map[uint64]string),
		submit:     submit,
		onComplete: onComplete,
	}
	e.countdown = internal_clock.NewCountdown(logger, budgetSeconds, func() {
		// Countdown expiry behaves like an implicit "done" with no typed text.
		if err := e.Advance(context.Background(), ""); err != nil {
			logger.Warnw("question advance on expiry failed", "error", err.Error())
		}
	})
	return e
}

// Start begins the countdown for the first question.
func (e *Engine) Start() {
	e.countdown.Start()
}

// Stop halts the countdown. Safe to call redundantly.
func (e *Engine) Stop() {
	e.countdown.Stop()
}

// Countdown exposes the per-question timer for status reads.
func (e *Engine) Countdown() *internal_clock.Countdown {
	return e.countdown
}

// Cursor returns the index of the current question.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Answer returns the recorded answer for a question id, if any.
func (e *Engine) Answer(questionID uint64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.answers[questionID]
	return v, ok
}

// RecordAnswer inserts or replaces the answer for a question. Ignored once
// submission is in flight — the set is frozen at that point.
func (e *Engine) RecordAnswer(questionID uint64, text string) {
	if e.submitting.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.answers[questionID] = text
}

// Advance records an answer for the current question (the typed text when
// given, a placeholder when nothing was ever recorded) and moves the cursor
// forward, rearming the countdown. At the last question it instead freezes
// the set and submits the full batch once; re-entrant calls while the
// submission is in flight are suppressed.
func (e *Engine) Advance(ctx context.Context, typed string) error {
	if e.submitting.Load() {
		return nil
	}

	e.mu.Lock()
	if len(e.questions) == 0 {
		e.mu.Unlock()
		return nil
	}
	current := e.questions[e.cursor]
	if typed != "" {
		e.answers[current.Id] = typed
	} else if _, ok := e.answers[current.Id]; !ok {
		e.answers[current.Id] = PlaceholderAnswer
	}

	if e.cursor < len(e.questions)-1 {
		e.cursor++
		e.mu.Unlock()
		e.countdown.Reset()
		e.logger.Debugf("advanced to question %d/%d for session %s", e.cursor+1, len(e.questions), e.sessionID)
		return nil
	}
	e.mu.Unlock()

	return e.finalize(ctx)
}

// finalize builds one batch covering every question (placeholder-filling any
// never-visited ones) and submits it exactly once.
func (e *Engine) finalize(ctx context.Context) error {
	if !e.submitting.CompareAndSwap(false, true) {
		return nil
	}
	e.countdown.Stop()

	e.mu.Lock()
	batch := make([]internal_entity.QuestionAnswer, 0, len(e.questions))
	for _, q := range e.questions {
		answer, ok := e.answers[q.Id]
		if !ok {
			answer = PlaceholderAnswer
		}
		batch = append(batch, internal_entity.QuestionAnswer{
			SessionID:  e.sessionID,
			QuestionID: q.Id,
			Answer:     answer,
		})
	}
	e.mu.Unlock()

	err := e.submit(ctx, batch)
	if err != nil {
		e.logger.Errorw("final answer submission failed",
			"session", e.sessionID,
			"error", err.Error())
	} else {
		e.logger.Infof("submitted %d answers for session %s", len(batch), e.sessionID)
	}
	if e.onComplete != nil {
		e.onComplete(err)
	}
	return err
}
