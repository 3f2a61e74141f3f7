// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_consent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	internal_gateway "github.com/hireflowai/api/interview-api/internal/gateway"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/types"
)

type memoryDecisions struct {
	decisions map[string]*internal_entity.ConsentDecision
	saveErr   error
	getErr    error
}

func newMemoryDecisions() *memoryDecisions {
	return &memoryDecisions{decisions: make(map[string]*internal_entity.ConsentDecision)}
}

func (m *memoryDecisions) key(sessionID, participantID string) string {
	return sessionID + "/" + participantID
}

func (m *memoryDecisions) GetConsent(ctx context.Context, sessionID, participantID string) (*internal_entity.ConsentDecision, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.decisions[m.key(sessionID, participantID)]
	if !ok {
		return nil, internal_gateway.ErrNoConsent
	}
	return d, nil
}

func (m *memoryDecisions) SaveConsent(ctx context.Context, decision *internal_entity.ConsentDecision) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.decisions[m.key(decision.SessionID, decision.ParticipantID)] = decision
	return nil
}

func newTestGate(t *testing.T) (*Gate, *memoryDecisions) {
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	store := newMemoryDecisions()
	return NewGate(store, logger), store
}

var (
	candidate   = types.Principle{UserID: "cand-1", Role: types.RoleCandidate, DisplayName: "Alex"}
	interviewer = types.Principle{UserID: "int-1", Role: types.RoleInterviewer, DisplayName: "Sam"}
)

// ============================================================================
// Allow
// ============================================================================

func TestAllow_PrivilegedBypassesPrompt(t *testing.T) {
	gate, _ := newTestGate(t)
	allowed, err := gate.Allow(context.Background(), "sess-1", interviewer)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_CandidateWithoutDecisionNeedsPrompt(t *testing.T) {
	gate, _ := newTestGate(t)
	allowed, err := gate.Allow(context.Background(), "sess-1", candidate)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllow_GrantedDecisionIsNotReasked(t *testing.T) {
	gate, store := newTestGate(t)
	store.decisions[store.key("sess-1", "cand-1")] = &internal_entity.ConsentDecision{
		SessionID: "sess-1", ParticipantID: "cand-1", Granted: true,
	}

	allowed, err := gate.Allow(context.Background(), "sess-1", candidate)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_DeclinedDecisionReprompts(t *testing.T) {
	gate, store := newTestGate(t)
	store.decisions[store.key("sess-1", "cand-1")] = &internal_entity.ConsentDecision{
		SessionID: "sess-1", ParticipantID: "cand-1", Granted: false,
	}

	allowed, err := gate.Allow(context.Background(), "sess-1", candidate)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllow_LookupFailureIsAnError(t *testing.T) {
	gate, store := newTestGate(t)
	store.getErr = errors.New("store down")

	_, err := gate.Allow(context.Background(), "sess-1", candidate)
	assert.Error(t, err)
}

// ============================================================================
// Record
// ============================================================================

func TestRecord_AcceptPersists(t *testing.T) {
	gate, store := newTestGate(t)
	require.NoError(t, gate.Record(context.Background(), "sess-1", candidate, true))

	saved := store.decisions[store.key("sess-1", "cand-1")]
	require.NotNil(t, saved)
	assert.True(t, saved.Granted)
}

func TestRecord_DeclinePersistsAndBlocks(t *testing.T) {
	gate, store := newTestGate(t)
	err := gate.Record(context.Background(), "sess-1", candidate, false)
	assert.ErrorIs(t, err, ErrConsentRequired)

	saved := store.decisions[store.key("sess-1", "cand-1")]
	require.NotNil(t, saved)
	assert.False(t, saved.Granted)
}

func TestRecord_AcceptOverGrantedIsNoop(t *testing.T) {
	gate, store := newTestGate(t)
	existing := &internal_entity.ConsentDecision{SessionID: "sess-1", ParticipantID: "cand-1", Granted: true}
	store.decisions[store.key("sess-1", "cand-1")] = existing

	require.NoError(t, gate.Record(context.Background(), "sess-1", candidate, true))
	assert.Same(t, existing, store.decisions[store.key("sess-1", "cand-1")])
}

func TestRecord_SaveFailureIsReported(t *testing.T) {
	gate, store := newTestGate(t)
	store.saveErr = errors.New("store down")

	err := gate.Record(context.Background(), "sess-1", candidate, true)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrConsentRequired)
}
