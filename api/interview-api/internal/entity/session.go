// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interview session status constants.
const (
	StatusScheduled  = "scheduled"   // created by the scheduler, not yet started
	StatusInProgress = "in_progress" // started, call live
	StatusCompleted  = "completed"   // ended normally, immutable except annotations
	StatusCancelled  = "cancelled"   // withdrawn before start
)

// InterviewSession is the scheduled interview record. It is created by the
// external scheduler and mutated only through the start/end operations; once
// completed, only post-hoc annotations (notes, transcript) may change.
//
// Stored in Postgres (interview_sessions table). The status column provides
// atomic starting: only one caller can transition scheduled→in_progress.
type InterviewSession struct {
	Id              uint64     `json:"id" gorm:"type:bigint;primaryKey;autoIncrement;<-:create"`
	SessionID       string     `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex"`
	Title           string     `json:"title" gorm:"column:title;type:varchar(200);not null;default:''"`
	CandidateName   string     `json:"candidateName" gorm:"column:candidate_name;type:varchar(200);not null;default:''"`
	InterviewerName string     `json:"interviewerName" gorm:"column:interviewer_name;type:varchar(200);not null;default:''"`
	Status          string     `json:"status" gorm:"column:status;type:varchar(20);not null;default:scheduled"`
	StartedDate     *time.Time `json:"startedDate" gorm:"column:started_date;type:timestamp;default:null"`
	MeetingURL      string     `json:"meetingUrl" gorm:"column:meeting_url;type:varchar(500);not null;default:''"`
	DurationMinutes int        `json:"durationMinutes" gorm:"column:duration_minutes;type:int;not null;default:60"`
	Automated       bool       `json:"automated" gorm:"column:automated;not null;default:false"`
	RecordingURL    string     `json:"recordingUrl" gorm:"column:recording_url;type:varchar(500);not null;default:''"`
	TranscriptURL   string     `json:"transcriptUrl" gorm:"column:transcript_url;type:varchar(500);not null;default:''"`
	Notes           string     `json:"notes" gorm:"column:notes;type:text;not null;default:''"`
	CreatedDate     time.Time  `json:"createdDate" gorm:"type:timestamp;not null;default:NOW();<-:create"`
	UpdatedDate     time.Time  `json:"updatedDate" gorm:"type:timestamp;default:null"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

func (s *InterviewSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.SessionID == "" {
		s.SessionID = uuid.New().String()
	}
	if s.CreatedDate.IsZero() {
		s.CreatedDate = time.Now()
	}
	return nil
}

// IsActive reports whether the session is currently live.
func (s *InterviewSession) IsActive() bool {
	return s.Status == StatusInProgress
}

// IsStartable reports whether the session may still be started.
func (s *InterviewSession) IsStartable() bool {
	return s.Status == StatusScheduled
}
