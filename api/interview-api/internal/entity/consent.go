// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_entity

import (
	"time"

	"gorm.io/gorm"
)

// ConsentDecision records a participant's recording-consent choice for one
// session instance. There is at most one row per (session, participant); a
// granted decision is never silently re-requested for that session.
type ConsentDecision struct {
	Id            uint64    `json:"id" gorm:"type:bigint;primaryKey;autoIncrement;<-:create"`
	SessionID     string    `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex:idx_consent_session_participant"`
	ParticipantID string    `json:"participantId" gorm:"column:participant_id;type:varchar(64);not null;uniqueIndex:idx_consent_session_participant"`
	Granted       bool      `json:"granted" gorm:"column:granted;not null;default:false"`
	DecidedDate   time.Time `json:"decidedDate" gorm:"column:decided_date;type:timestamp;not null;default:NOW()"`
}

func (ConsentDecision) TableName() string {
	return "consent_decisions"
}

func (d *ConsentDecision) BeforeCreate(tx *gorm.DB) (err error) {
	if d.DecidedDate.IsZero() {
		d.DecidedDate = time.Now()
	}
	return nil
}
