// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package health_check_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireflowai/config"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/connectors"
)

type HealthCheckApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	postgres connectors.PostgresConnector
}

func New(cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector) *HealthCheckApi {
	return &HealthCheckApi{cfg: cfg, logger: logger, postgres: postgres}
}

// Healthz reports process liveness only.
func (api *HealthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": api.cfg.Name,
		"version": api.cfg.Version,
	})
}

// Readiness additionally checks the database connection.
func (api *HealthCheckApi) Readiness(c *gin.Context) {
	db, err := api.postgres.DB(c.Request.Context()).DB()
	if err == nil {
		err = db.PingContext(c.Request.Context())
	}
	if err != nil {
		api.logger.Warnw("readiness probe failed", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
