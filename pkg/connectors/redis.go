// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package connectors

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/configs"
)

// RedisConnector hands out the shared redis client.
type RedisConnector interface {
	Client() *redis.Client
	Close() error
}

type redisConnector struct {
	client *redis.Client
	logger commons.Logger
}

// NewRedisConnector opens and pings a redis connection from config.
func NewRedisConnector(cfg configs.RedisConfig, logger commons.Logger) (RedisConnector, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect redis: %w", err)
	}
	logger.Infof("redis connected: host=%s db=%d", cfg.Host, cfg.Database)
	return &redisConnector{client: client, logger: logger}, nil
}

func (c *redisConnector) Client() *redis.Client { return c.client }

func (c *redisConnector) Close() error { return c.client.Close() }

// NewRedisClientConnector wraps an existing client. Used by tests with redismock.
func NewRedisClientConnector(client *redis.Client, logger commons.Logger) RedisConnector {
	return &redisConnector{client: client, logger: logger}
}
