// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_entity

import (
	"time"

	"gorm.io/gorm"
)

// InterviewQuestion is one entry of the fixed, ordered question list used by
// the automated-question variant. The list is produced upstream; this service
// only reads it in Position order.
type InterviewQuestion struct {
	Id        uint64 `json:"id" gorm:"type:bigint;primaryKey;autoIncrement;<-:create"`
	SessionID string `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;index"`
	Position  int    `json:"position" gorm:"column:position;type:int;not null"`
	Prompt    string `json:"prompt" gorm:"column:prompt;type:text;not null"`
}

func (InterviewQuestion) TableName() string {
	return "interview_questions"
}

// QuestionAnswer pairs a question with the candidate's answer text. Keys are
// unique per (session, question); later writes replace earlier ones. The set
// is frozen once the final batch has been submitted.
type QuestionAnswer struct {
	Id          uint64    `json:"id" gorm:"type:bigint;primaryKey;autoIncrement;<-:create"`
	SessionID   string    `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex:idx_answer_session_question"`
	QuestionID  uint64    `json:"questionId" gorm:"column:question_id;type:bigint;not null;uniqueIndex:idx_answer_session_question"`
	Answer      string    `json:"answer" gorm:"column:answer;type:text;not null;default:''"`
	CreatedDate time.Time `json:"createdDate" gorm:"type:timestamp;not null;default:NOW();<-:create"`
}

func (QuestionAnswer) TableName() string {
	return "question_answers"
}

func (a *QuestionAnswer) BeforeCreate(tx *gorm.DB) (err error) {
	if a.CreatedDate.IsZero() {
		a.CreatedDate = time.Now()
	}
	return nil
}
