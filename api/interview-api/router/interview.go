// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package interview_routers

import (
	"context"

	"github.com/gin-gonic/gin"

	sessionApi "github.com/hireflowai/api/interview-api/api/session"
	internal_callprovider "github.com/hireflowai/api/interview-api/internal/callprovider"
	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	internal_gateway "github.com/hireflowai/api/interview-api/internal/gateway"
	internal_recorder "github.com/hireflowai/api/interview-api/internal/recorder"
	internal_session "github.com/hireflowai/api/interview-api/internal/session"
	internal_store "github.com/hireflowai/api/interview-api/internal/store"
	"github.com/hireflowai/config"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/connectors"
)

// NewSessionManager assembles the session orchestration stack from config:
// the gateway (in-process store, or the platform HTTP API when PlatformHost
// is set), the recording uploader, the call provider factory and the
// cross-replica activation lock.
func NewSessionManager(
	cfg *config.AppConfig,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	redis connectors.RedisConnector,
) *internal_session.Manager {
	var gateway internal_gateway.Gateway
	if cfg.PlatformHost != "" {
		gateway = internal_gateway.NewPlatformClient(cfg.PlatformHost, logger)
	} else {
		gateway = internal_gateway.NewStoreGateway(internal_store.NewStore(postgres, logger))
	}

	uploader := internal_recorder.NewAssetUploader(cfg.RecordingStore, logger)

	var newProvider internal_session.ProviderFactory
	if cfg.CallProvider == "twilio" {
		credentials := map[string]string{
			"account_sid":   cfg.TwilioAccountSid,
			"account_token": cfg.TwilioAccountToken,
		}
		newProvider = func() internal_callprovider.Provider {
			return internal_callprovider.NewTwilioRooms(logger, credentials)
		}
	} else {
		newProvider = func() internal_callprovider.Provider {
			return internal_callprovider.NewBridge(logger)
		}
	}

	var lock internal_session.ActivationLock
	if redis != nil {
		lock = internal_session.NewRedisActivationLock(redis, logger)
	}

	return internal_session.NewManager(logger, gateway, uploader, newProvider, lock, cfg.QuestionBudgetSeconds)
}

// SessionApiRoute registers the interview session lifecycle endpoints.
func SessionApiRoute(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	manager *internal_session.Manager,
) {
	api := sessionApi.NewSessionApi(cfg, logger, manager)
	apiv1 := engine.Group("v1/session")
	apiv1.Use(Authenticated(cfg, logger))
	{
		apiv1.GET("/:sessionId", api.Get)
		apiv1.GET("/:sessionId/join-link", api.JoinLink)
		apiv1.POST("/:sessionId/start", api.Start)
		apiv1.POST("/:sessionId/consent", api.Consent)
		apiv1.POST("/:sessionId/end", api.End)
		apiv1.POST("/:sessionId/answer", api.Answer)
		apiv1.POST("/:sessionId/advance", api.Advance)
		apiv1.POST("/:sessionId/unmount", api.Unmount)
	}
}

// AutoMigrate creates or updates the interview tables. Only meaningful when
// the in-process store gateway is in use.
func AutoMigrate(ctx context.Context, postgres connectors.PostgresConnector) error {
	return postgres.DB(ctx).AutoMigrate(
		&internal_entity.InterviewSession{},
		&internal_entity.ConsentDecision{},
		&internal_entity.InterviewQuestion{},
		&internal_entity.QuestionAnswer{},
	)
}
