// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_gateway

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	internal_store "github.com/hireflowai/api/interview-api/internal/store"
)

// ErrNoConsent is returned by GetConsent when no decision has been recorded
// yet for the participant.
var ErrNoConsent = errors.New("no consent decision recorded")

// ErrSessionNotFound is returned by GetSession for unknown session ids,
// whichever gateway backs the call.
var ErrSessionNotFound = errors.New("interview session not found")

// ErrNotStartable mirrors the store sentinel so callers need not know which
// gateway backs them.
var ErrNotStartable = internal_store.ErrNotStartable

// Gateway is the remote session/record store the orchestration engine talks
// to. Every method is a request/response call; failures are returned, never
// panicked, so they can be converted to typed outcomes at the call site.
type Gateway interface {
	GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error)
	StartSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error)
	EndSession(ctx context.Context, sessionID, recordingURL string) error
	GetConsent(ctx context.Context, sessionID, participantID string) (*internal_entity.ConsentDecision, error)
	SaveConsent(ctx context.Context, decision *internal_entity.ConsentDecision) error
	ListQuestions(ctx context.Context, sessionID string) ([]internal_entity.InterviewQuestion, error)
	SubmitAnswers(ctx context.Context, sessionID string, answers []internal_entity.QuestionAnswer) error
}

// storeGateway serves the gateway contract straight from the in-process
// store, for deployments where the orchestrator and the session store live in
// the same service.
type storeGateway struct {
	internal_store.Store
}

// NewStoreGateway wraps a store as a Gateway.
func NewStoreGateway(store internal_store.Store) Gateway {
	return &storeGateway{Store: store}
}

func (g *storeGateway) GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	sess, err := g.Store.GetSession(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return sess, err
}

func (g *storeGateway) GetConsent(ctx context.Context, sessionID, participantID string) (*internal_entity.ConsentDecision, error) {
	decision, err := g.Store.GetConsent(ctx, sessionID, participantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoConsent
	}
	return decision, err
}

func (g *storeGateway) SubmitAnswers(ctx context.Context, sessionID string, answers []internal_entity.QuestionAnswer) error {
	return g.Store.SaveAnswers(ctx, sessionID, answers)
}
