// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_questions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	"github.com/hireflowai/pkg/commons"
)

func testLogger(t *testing.T) commons.Logger {
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return logger
}

type submitRecorder struct {
	mu      sync.Mutex
	calls   int
	batches [][]internal_entity.QuestionAnswer
	err     error
}

func (s *submitRecorder) submit(ctx context.Context, answers []internal_entity.QuestionAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.batches = append(s.batches, answers)
	return s.err
}

func (s *submitRecorder) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func threeQuestions() []internal_entity.InterviewQuestion {
	return []internal_entity.InterviewQuestion{
		{Id: 11, SessionID: "sess-1", Position: 1, Prompt: "Tell me about yourself"},
		{Id: 12, SessionID: "sess-1", Position: 2, Prompt: "Describe a hard bug"},
		{Id: 13, SessionID: "sess-1", Position: 3, Prompt: "Questions for us?"},
	}
}

func newTestEngine(t *testing.T, questions []internal_entity.InterviewQuestion, sub *submitRecorder, onComplete func(error)) *Engine {
	return NewEngine(testLogger(t), "sess-1", questions, 120, sub.submit, onComplete)
}

// ============================================================================
// Advance
// ============================================================================

func TestAdvance_TypedAnswerIsRecorded(t *testing.T) {
	sub := &submitRecorder{}
	e := newTestEngine(t, threeQuestions(), sub, nil)

	require.NoError(t, e.Advance(context.Background(), "my answer"))
	assert.Equal(t, 1, e.Cursor())

	answer, ok := e.Answer(11)
	require.True(t, ok)
	assert.Equal(t, "my answer", answer)
}

func TestAdvance_EmptyAnswerFillsPlaceholder(t *testing.T) {
	sub := &submitRecorder{}
	e := newTestEngine(t, threeQuestions(), sub, nil)

	require.NoError(t, e.Advance(context.Background(), ""))

	answer, ok := e.Answer(11)
	require.True(t, ok)
	assert.Equal(t, PlaceholderAnswer, answer)
}

func TestAdvance_PlaceholderDoesNotOverwriteRecordedAnswer(t *testing.T) {
	sub := &submitRecorder{}
	e := newTestEngine(t, threeQuestions(), sub, nil)

	e.RecordAnswer(11, "typed earlier")
	require.NoError(t, e.Advance(context.Background(), ""))

	answer, _ := e.Answer(11)
	assert.Equal(t, "typed earlier", answer)
}

func TestAdvance_TypedReplacesRecordedAnswer(t *testing.T) {
	sub := &submitRecorder{}
	e := newTestEngine(t, threeQuestions(), sub, nil)

	e.RecordAnswer(11, "draft")
	require.NoError(t, e.Advance(context.Background(), "final"))

	answer, _ := e.Answer(11)
	assert.Equal(t, "final", answer)
}

func TestAdvance_NoQuestionsIsNoop(t *testing.T) {
	sub := &submitRecorder{}
	e := newTestEngine(t, nil, sub, nil)
	require.NoError(t, e.Advance(context.Background(), "x"))
	assert.Equal(t, 0, sub.Calls())
}

// ============================================================================
// Final submission
// ============================================================================

func TestFinalize_SubmitsFullBatchWithPlaceholders(t *testing.T) {
	sub := &submitRecorder{}
	var completed atomic.Bool
	var completeErr error
	e := newTestEngine(t, threeQuestions(), sub, func(err error) {
		completeErr = err
		completed.Store(true)
	})

	require.NoError(t, e.Advance(context.Background(), "answer one"))
	require.NoError(t, e.Advance(context.Background(), ""))
	require.NoError(t, e.Advance(context.Background(), "answer three"))

	require.True(t, completed.Load())
	require.NoError(t, completeErr)
	require.Equal(t, 1, sub.Calls())

	batch := sub.batches[0]
	require.Len(t, batch, 3)
	assert.Equal(t, "answer one", batch[0].Answer)
	assert.Equal(t, PlaceholderAnswer, batch[1].Answer)
	assert.Equal(t, "answer three", batch[2].Answer)
	for i, q := range threeQuestions() {
		assert.Equal(t, q.Id, batch[i].QuestionID)
		assert.Equal(t, "sess-1", batch[i].SessionID)
	}
}

func TestFinalize_SubmitsExactlyOnce(t *testing.T) {
	sub := &submitRecorder{}
	e := newTestEngine(t, threeQuestions()[:1], sub, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Advance(context.Background(), "race")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sub.Calls())
}

func TestFinalize_SubmitErrorReachesOnComplete(t *testing.T) {
	sub := &submitRecorder{err: errors.New("platform down")}
	var gotErr error
	e := newTestEngine(t, threeQuestions()[:1], sub, func(err error) { gotErr = err })

	err := e.Advance(context.Background(), "only answer")
	assert.Error(t, err)
	assert.Error(t, gotErr)
}

func TestRecordAnswer_IgnoredAfterSubmission(t *testing.T) {
	sub := &submitRecorder{}
	e := newTestEngine(t, threeQuestions()[:1], sub, nil)

	require.NoError(t, e.Advance(context.Background(), "done"))
	e.RecordAnswer(11, "too late")

	answer, _ := e.Answer(11)
	assert.Equal(t, "done", answer)
}

// ============================================================================
// Countdown expiry
// ============================================================================

func TestCountdownExpiry_AdvancesWithPlaceholder(t *testing.T) {
	sub := &submitRecorder{}
	e := NewEngine(testLogger(t), "sess-1", threeQuestions(), 1, sub.submit, nil)
	e.Start()
	defer e.Stop()

	require.Eventually(t, func() bool {
		return e.Cursor() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	answer, ok := e.Answer(11)
	require.True(t, ok)
	assert.Equal(t, PlaceholderAnswer, answer)
}
