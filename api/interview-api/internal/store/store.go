// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/connectors"
)

// ErrNotStartable is returned when a start is attempted on a session that is
// no longer in the "scheduled" status (already started, completed or
// cancelled). Only one concurrent start can win.
var ErrNotStartable = errors.New("interview session not startable")

// Store provides operations to persist and retrieve interview sessions,
// consent decisions, questions and answers.
//
// Sessions are created by the external scheduler; this service only
// transitions them through statuses: scheduled → in_progress → completed.
// The row is never deleted during the lifecycle — late reads (recordings,
// transcripts, audit) must keep resolving after completion.
type Store interface {
	// GetSession retrieves a session by its public sessionId regardless of
	// status.
	GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error)

	// StartSession atomically transitions scheduled → in_progress and stamps
	// started_date. Only one concurrent caller can win; the rest receive
	// ErrNotStartable.
	StartSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error)

	// EndSession marks the session completed and records the recording
	// reference (may be empty when no artifact was produced).
	EndSession(ctx context.Context, sessionID, recordingURL string) error

	// GetConsent returns the recorded consent decision for a participant, or
	// gorm.ErrRecordNotFound when none exists yet.
	GetConsent(ctx context.Context, sessionID, participantID string) (*internal_entity.ConsentDecision, error)

	// SaveConsent upserts a consent decision for (session, participant).
	SaveConsent(ctx context.Context, decision *internal_entity.ConsentDecision) error

	// ListQuestions returns the fixed question list in position order.
	ListQuestions(ctx context.Context, sessionID string) ([]internal_entity.InterviewQuestion, error)

	// SaveAnswers upserts the final answer batch. A later write for the same
	// (session, question) replaces the earlier answer.
	SaveAnswers(ctx context.Context, sessionID string, answers []internal_entity.QuestionAnswer) error
}

type postgresStore struct {
	postgres connectors.PostgresConnector
	logger   commons.Logger
}

// NewStore creates an interview store backed by Postgres.
func NewStore(postgres connectors.PostgresConnector, logger commons.Logger) Store {
	return &postgresStore{
		postgres: postgres,
		logger:   logger,
	}
}

func (s *postgresStore) GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	db := s.postgres.DB(ctx)
	var sess internal_entity.InterviewSession
	if err := db.Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
		return nil, fmt.Errorf("interview session not found: %s: %w", sessionID, err)
	}
	return &sess, nil
}

// StartSession uses an atomic UPDATE ... WHERE status = 'scheduled' so only
// one concurrent caller can win the transition.
func (s *postgresStore) StartSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	db := s.postgres.DB(ctx)

	now := time.Now()
	result := db.Model(&internal_entity.InterviewSession{}).
		Where("session_id = ? AND status = ?", sessionID, internal_entity.StatusScheduled).
		Updates(map[string]interface{}{
			"status":       internal_entity.StatusInProgress,
			"started_date": now,
			"updated_date": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to start session %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotStartable)
	}

	var sess internal_entity.InterviewSession
	if err := db.Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch started session %s: %w", sessionID, err)
	}

	s.logger.Infof("started interview session: sessionId=%s, startedDate=%s",
		sess.SessionID, sess.StartedDate.Format(time.RFC3339))
	return &sess, nil
}

func (s *postgresStore) EndSession(ctx context.Context, sessionID, recordingURL string) error {
	db := s.postgres.DB(ctx)

	updates := map[string]interface{}{
		"status":       internal_entity.StatusCompleted,
		"updated_date": time.Now(),
	}
	if recordingURL != "" {
		updates["recording_url"] = recordingURL
	}

	result := db.Model(&internal_entity.InterviewSession{}).
		Where("session_id = ?", sessionID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to end session %s: %w", sessionID, result.Error)
	}

	s.logger.Infof("completed interview session: sessionId=%s, recording=%q", sessionID, recordingURL)
	return nil
}

func (s *postgresStore) GetConsent(ctx context.Context, sessionID, participantID string) (*internal_entity.ConsentDecision, error) {
	db := s.postgres.DB(ctx)
	var decision internal_entity.ConsentDecision
	if err := db.Where("session_id = ? AND participant_id = ?", sessionID, participantID).
		First(&decision).Error; err != nil {
		return nil, err
	}
	return &decision, nil
}

func (s *postgresStore) SaveConsent(ctx context.Context, decision *internal_entity.ConsentDecision) error {
	db := s.postgres.DB(ctx)
	decision.DecidedDate = time.Now()
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"granted", "decided_date"}),
	}).Create(decision).Error; err != nil {
		return fmt.Errorf("failed to save consent for session %s: %w", decision.SessionID, err)
	}

	s.logger.Debugf("saved consent decision: sessionId=%s, participant=%s, granted=%t",
		decision.SessionID, decision.ParticipantID, decision.Granted)
	return nil
}

func (s *postgresStore) ListQuestions(ctx context.Context, sessionID string) ([]internal_entity.InterviewQuestion, error) {
	db := s.postgres.DB(ctx)
	var questions []internal_entity.InterviewQuestion
	if err := db.Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions for session %s: %w", sessionID, err)
	}
	return questions, nil
}

func (s *postgresStore) SaveAnswers(ctx context.Context, sessionID string, answers []internal_entity.QuestionAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	db := s.postgres.DB(ctx)
	for i := range answers {
		answers[i].SessionID = sessionID
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer"}),
	}).Create(&answers).Error; err != nil {
		return fmt.Errorf("failed to save answers for session %s: %w", sessionID, err)
	}

	s.logger.Infof("saved answer batch: sessionId=%s, answers=%d", sessionID, len(answers))
	return nil
}
