// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package configs

// PostgresAuth carries database credentials.
type PostgresAuth struct {
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

// PostgresConfig configures the gorm Postgres connector.
type PostgresConfig struct {
	Host               string       `mapstructure:"host" validate:"required"`
	Port               int          `mapstructure:"port" validate:"required"`
	DbName             string       `mapstructure:"db_name" validate:"required"`
	Auth               PostgresAuth `mapstructure:"auth" validate:"required"`
	MaxOpenConnection  int          `mapstructure:"max_open_connection"`
	MaxIdealConnection int          `mapstructure:"max_ideal_connection"`
	SslMode            string       `mapstructure:"ssl_mode"`
}

// RedisConfig configures the redis connector.
type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// RecordingStoreConfig points at the asset store that receives finished
// recording artifacts. Uploads run under UploadTimeoutMinutes because
// artifacts can be large.
type RecordingStoreConfig struct {
	Endpoint             string `mapstructure:"endpoint" validate:"required"`
	ApiKey               string `mapstructure:"api_key"`
	UploadTimeoutMinutes int    `mapstructure:"upload_timeout_minutes"`
}
