// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/connectors"
)

// ActivationLock serializes session activation across replicas: only the
// holder may run the live pipeline for a session.
type ActivationLock interface {
	// Acquire attempts to take the lock. false with nil error means another
	// replica holds it.
	Acquire(ctx context.Context, sessionID string) (bool, error)
	// Release frees the lock. Releasing a lock not held is a no-op.
	Release(ctx context.Context, sessionID string) error
}

// activationLockTTL caps how long a crashed replica can keep a session
// locked. Comfortably above any realistic interview duration.
const activationLockTTL = 6 * time.Hour

type redisActivationLock struct {
	redis  connectors.RedisConnector
	logger commons.Logger
}

// NewRedisActivationLock creates a Redis-backed activation lock.
func NewRedisActivationLock(conn connectors.RedisConnector, logger commons.Logger) ActivationLock {
	return &redisActivationLock{redis: conn, logger: logger}
}

func activationKey(sessionID string) string {
	return "interview:active:" + sessionID
}

func (l *redisActivationLock) Acquire(ctx context.Context, sessionID string) (bool, error) {
	ok, err := l.redis.Client().SetNX(ctx, activationKey(sessionID), "1", activationLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("activation lock acquire for %s: %w", sessionID, err)
	}
	if !ok {
		l.logger.Warnf("activation lock for session %s held elsewhere", sessionID)
	}
	return ok, nil
}

func (l *redisActivationLock) Release(ctx context.Context, sessionID string) error {
	if err := l.redis.Client().Del(ctx, activationKey(sessionID)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("activation lock release for %s: %w", sessionID, err)
	}
	return nil
}
