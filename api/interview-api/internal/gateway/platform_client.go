// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	internal_clock "github.com/hireflowai/api/interview-api/internal/clock"
	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	"github.com/hireflowai/pkg/commons"
)

// platformClient implements the Gateway over the scheduling platform's HTTP
// API, for split deployments where the orchestrator runs apart from the
// store. Bodies are JSON; start timestamps may arrive without timezone
// suffixes and are normalized on parse.
type platformClient struct {
	client *resty.Client
	logger commons.Logger
}

// NewPlatformClient builds an HTTP gateway against the platform host.
func NewPlatformClient(host string, logger commons.Logger) Gateway {
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(15 * time.Second)
	return &platformClient{client: client, logger: logger}
}

type sessionDTO struct {
	SessionID       string `json:"sessionId"`
	Title           string `json:"title"`
	CandidateName   string `json:"candidateName"`
	InterviewerName string `json:"interviewerName"`
	Status          string `json:"status"`
	StartedDate     string `json:"startedDate"`
	MeetingURL      string `json:"meetingUrl"`
	DurationMinutes int    `json:"durationMinutes"`
	Automated       bool   `json:"automated"`
	RecordingURL    string `json:"recordingUrl"`
}

func (d *sessionDTO) toEntity(logger commons.Logger) *internal_entity.InterviewSession {
	sess := &internal_entity.InterviewSession{
		SessionID:       d.SessionID,
		Title:           d.Title,
		CandidateName:   d.CandidateName,
		InterviewerName: d.InterviewerName,
		Status:          d.Status,
		MeetingURL:      d.MeetingURL,
		DurationMinutes: d.DurationMinutes,
		Automated:       d.Automated,
		RecordingURL:    d.RecordingURL,
	}
	if d.StartedDate != "" {
		if t, err := internal_clock.ParseStartTimestamp(d.StartedDate); err == nil {
			sess.StartedDate = &t
		} else {
			logger.Warnw("discarding unparseable session start timestamp",
				"session", d.SessionID, "value", d.StartedDate)
		}
	}
	return sess
}

func (c *platformClient) GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	var dto sessionDTO
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&dto).
		Get(fmt.Sprintf("/v1/interview/%s", sessionID))
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch session %s: status %d", sessionID, resp.StatusCode())
	}
	return dto.toEntity(c.logger), nil
}

func (c *platformClient) StartSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	var dto sessionDTO
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&dto).
		Post(fmt.Sprintf("/v1/interview/%s/start", sessionID))
	if err != nil {
		return nil, fmt.Errorf("start session %s: %w", sessionID, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotStartable)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("start session %s: status %d", sessionID, resp.StatusCode())
	}
	return dto.toEntity(c.logger), nil
}

func (c *platformClient) EndSession(ctx context.Context, sessionID, recordingURL string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"recordingUrl": recordingURL}).
		Post(fmt.Sprintf("/v1/interview/%s/end", sessionID))
	if err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("end session %s: status %d", sessionID, resp.StatusCode())
	}
	return nil
}

func (c *platformClient) GetConsent(ctx context.Context, sessionID, participantID string) (*internal_entity.ConsentDecision, error) {
	var decision internal_entity.ConsentDecision
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&decision).
		Get(fmt.Sprintf("/v1/interview/%s/consent/%s", sessionID, participantID))
	if err != nil {
		return nil, fmt.Errorf("fetch consent for session %s: %w", sessionID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNoConsent
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch consent for session %s: status %d", sessionID, resp.StatusCode())
	}
	return &decision, nil
}

func (c *platformClient) SaveConsent(ctx context.Context, decision *internal_entity.ConsentDecision) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(decision).
		Patch(fmt.Sprintf("/v1/interview/%s/consent", decision.SessionID))
	if err != nil {
		return fmt.Errorf("save consent for session %s: %w", decision.SessionID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("save consent for session %s: status %d", decision.SessionID, resp.StatusCode())
	}
	return nil
}

func (c *platformClient) ListQuestions(ctx context.Context, sessionID string) ([]internal_entity.InterviewQuestion, error) {
	var questions []internal_entity.InterviewQuestion
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&questions).
		Get(fmt.Sprintf("/v1/interview/%s/questions", sessionID))
	if err != nil {
		return nil, fmt.Errorf("list questions for session %s: %w", sessionID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list questions for session %s: status %d", sessionID, resp.StatusCode())
	}
	return questions, nil
}

func (c *platformClient) SubmitAnswers(ctx context.Context, sessionID string, answers []internal_entity.QuestionAnswer) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"answers": answers}).
		Post(fmt.Sprintf("/v1/interview/%s/answers", sessionID))
	if err != nil {
		return fmt.Errorf("submit answers for session %s: %w", sessionID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("submit answers for session %s: status %d", sessionID, resp.StatusCode())
	}
	return nil
}
