// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_gateway

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	internal_store "github.com/hireflowai/api/interview-api/internal/store"
)

// notFoundStore answers every session lookup the way the store does for an
// unknown id.
type notFoundStore struct {
	internal_store.Store
}

func (notFoundStore) GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	return nil, fmt.Errorf("interview session not found: %s: %w", sessionID, gorm.ErrRecordNotFound)
}

func TestStoreGateway_GetSessionNotFound(t *testing.T) {
	gateway := NewStoreGateway(notFoundStore{})

	_, err := gateway.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
