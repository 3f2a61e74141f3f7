// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package interview_session_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internal_consent "github.com/hireflowai/api/interview-api/internal/consent"
	internal_gateway "github.com/hireflowai/api/interview-api/internal/gateway"
	internal_session "github.com/hireflowai/api/interview-api/internal/session"
	"github.com/hireflowai/config"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/types"
)

// SessionApi exposes the interview session lifecycle over HTTP. One
// controller exists per (session, participant); handlers resolve it through
// the manager and translate typed domain errors to status codes.
type SessionApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	manager *internal_session.Manager
}

// NewSessionApi creates the session lifecycle API.
func NewSessionApi(cfg *config.AppConfig, logger commons.Logger, manager *internal_session.Manager) *SessionApi {
	return &SessionApi{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
	}
}

type consentRequest struct {
	Granted bool `json:"granted"`
}

type answerRequest struct {
	QuestionID uint64 `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

type advanceRequest struct {
	Answer string `json:"answer"`
}

// statusBody builds the session status payload. Upload failures are only
// surfaced to privileged roles.
func statusBody(c *internal_session.Controller, p types.Principle) gin.H {
	body := gin.H{
		"state":          c.State(),
		"elapsedSeconds": c.ElapsedSeconds(),
		"connected":      c.Connected(),
		"warnings":       c.Warnings(),
	}
	if sess := c.Session(); sess != nil {
		body["session"] = sess
	}
	if engine := c.Engine(); engine != nil {
		body["question"] = gin.H{
			"cursor":    engine.Cursor(),
			"remaining": engine.Countdown().Remaining(),
		}
	}
	if p.Role.Privileged() {
		if err := c.UploadError(); err != nil {
			body["uploadError"] = err.Error()
		}
		if err := c.LastError(); err != nil {
			body["lastError"] = err.Error()
		}
	}
	return body
}

// Get loads (or resumes) the participant's session view.
//
// @Router /v1/session/:sessionId [get]
func (api *SessionApi) Get(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID := c.Param("sessionId")

	ctrl := api.manager.Get(sessionID, auth)
	if ctrl == nil {
		var err error
		ctrl, err = api.manager.Open(c.Request.Context(), sessionID, auth)
		if err != nil {
			if errors.Is(err, internal_gateway.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			api.logger.Errorw("session load failed", "session", sessionID, "error", err.Error())
			c.JSON(http.StatusBadGateway, gin.H{"error": "unable to load session"})
			return
		}
	}
	c.JSON(http.StatusOK, statusBody(ctrl, auth))
}

// Start requests session start. When the participant still owes a consent
// decision the response carries consentRequired=true and no remote start is
// issued.
//
// @Router /v1/session/:sessionId/start [post]
func (api *SessionApi) Start(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID := c.Param("sessionId")

	ctrl, err := api.manager.Open(c.Request.Context(), sessionID, auth)
	if err != nil {
		if errors.Is(err, internal_gateway.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to load session"})
		return
	}

	consentRequired, err := ctrl.RequestStart(c.Request.Context())
	if err != nil {
		api.startError(c, sessionID, err)
		return
	}
	body := statusBody(ctrl, auth)
	body["consentRequired"] = consentRequired
	c.JSON(http.StatusOK, body)
}

// Consent records the participant's recording-consent decision while the
// session awaits it. A decline responds 409 and the session does not start.
//
// @Router /v1/session/:sessionId/consent [post]
func (api *SessionApi) Consent(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID := c.Param("sessionId")

	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid consent body"})
		return
	}

	ctrl := api.manager.Get(sessionID, auth)
	if ctrl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session in progress"})
		return
	}

	if err := ctrl.Consent(c.Request.Context(), req.Granted); err != nil {
		if errors.Is(err, internal_consent.ErrConsentRequired) {
			c.JSON(http.StatusConflict, gin.H{"error": "consent declined", "consentRequired": true})
			return
		}
		api.startError(c, sessionID, err)
		return
	}
	c.JSON(http.StatusOK, statusBody(ctrl, auth))
}

func (api *SessionApi) startError(c *gin.Context, sessionID string, err error) {
	switch {
	case errors.Is(err, internal_gateway.ErrNotStartable):
		c.JSON(http.StatusConflict, gin.H{"error": "session not startable"})
	case errors.Is(err, internal_session.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		api.logger.Errorw("session start failed", "session", sessionID, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to start session"})
	}
}

// End triggers the ordered session teardown. Idempotent: repeating the call
// while teardown runs is accepted.
//
// @Router /v1/session/:sessionId/end [post]
func (api *SessionApi) End(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID := c.Param("sessionId")

	ctrl := api.manager.Get(sessionID, auth)
	if ctrl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session in progress"})
		return
	}

	if err := ctrl.End(c.Request.Context(), internal_session.EndReasonRequested); err != nil {
		if errors.Is(err, internal_session.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		api.logger.Errorw("session end failed", "session", sessionID, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to end session"})
		return
	}
	c.JSON(http.StatusOK, statusBody(ctrl, auth))
}

// Answer records a typed answer for a question without advancing.
//
// @Router /v1/session/:sessionId/answer [post]
func (api *SessionApi) Answer(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID := c.Param("sessionId")

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid answer body"})
		return
	}

	ctrl := api.manager.Get(sessionID, auth)
	if ctrl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session in progress"})
		return
	}
	if err := ctrl.RecordAnswer(req.QuestionID, req.Answer); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, statusBody(ctrl, auth))
}

// Advance moves to the next question, recording the given answer text for
// the current one. On the last question this freezes and submits the batch.
//
// @Router /v1/session/:sessionId/advance [post]
func (api *SessionApi) Advance(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID := c.Param("sessionId")

	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid advance body"})
		return
	}

	ctrl := api.manager.Get(sessionID, auth)
	if ctrl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session in progress"})
		return
	}
	if err := ctrl.AdvanceQuestion(c.Request.Context(), req.Answer); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, statusBody(ctrl, auth))
}

// Unmount releases the participant's live resources without ending the
// session remotely. An in-flight recording upload keeps running.
//
// @Router /v1/session/:sessionId/unmount [post]
func (api *SessionApi) Unmount(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	api.manager.Close(c.Param("sessionId"), auth)
	c.JSON(http.StatusOK, gin.H{"released": true})
}

// JoinLink returns the call join address for the session.
//
// @Router /v1/session/:sessionId/join-link [get]
func (api *SessionApi) JoinLink(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID := c.Param("sessionId")

	ctrl := api.manager.Get(sessionID, auth)
	if ctrl == nil || ctrl.Session() == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetingUrl": ctrl.Session().MeetingURL})
}
