// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_consent

import (
	"context"
	"errors"
	"fmt"

	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	internal_gateway "github.com/hireflowai/api/interview-api/internal/gateway"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/types"
)

// ErrConsentRequired is the recoverable, user-visible outcome of a declined
// (or still missing) recording-consent decision. It never corrupts session
// state; the start path simply does not proceed.
var ErrConsentRequired = errors.New("consent required")

// DecisionStore is the per-session consent decision backend.
type DecisionStore interface {
	GetConsent(ctx context.Context, sessionID, participantID string) (*internal_entity.ConsentDecision, error)
	SaveConsent(ctx context.Context, decision *internal_entity.ConsentDecision) error
}

// Gate decides whether a session's capture may begin for a participant.
// Privileged roles bypass the prompt entirely; the candidate must have an
// explicit granted decision on record.
type Gate struct {
	store  DecisionStore
	logger commons.Logger
}

// NewGate creates a consent gate over the given decision store.
func NewGate(store DecisionStore, logger commons.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// Allow reports whether capture may proceed for the participant. A false
// result with a nil error means a consent prompt is needed — a previously
// declined decision may be re-asked, but a granted one is never re-requested
// for the same session instance.
func (g *Gate) Allow(ctx context.Context, sessionID string, p types.Principle) (bool, error) {
	if !p.Role.RequiresConsent() {
		return true, nil
	}
	decision, err := g.store.GetConsent(ctx, sessionID, p.UserID)
	if errors.Is(err, internal_gateway.ErrNoConsent) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consent lookup failed: %w", err)
	}
	return decision.Granted, nil
}

// Record persists the participant's decision upstream. Accepting unblocks
// the start path; declining aborts it with ErrConsentRequired. Recording an
// acceptance over an existing granted decision is a no-op.
func (g *Gate) Record(ctx context.Context, sessionID string, p types.Principle, granted bool) error {
	if granted {
		if existing, err := g.store.GetConsent(ctx, sessionID, p.UserID); err == nil && existing.Granted {
			return nil
		}
	}

	decision := &internal_entity.ConsentDecision{
		SessionID:     sessionID,
		ParticipantID: p.UserID,
		Granted:       granted,
	}
	if err := g.store.SaveConsent(ctx, decision); err != nil {
		return fmt.Errorf("consent save failed: %w", err)
	}

	g.logger.Infof("consent recorded: sessionId=%s, participant=%s, granted=%t", sessionID, p.UserID, granted)
	if !granted {
		return ErrConsentRequired
	}
	return nil
}
