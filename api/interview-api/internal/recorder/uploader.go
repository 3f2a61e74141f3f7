// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_recorder

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/configs"
)

// Artifact is a finished recording, assembled by the buffer and immutable
// from here on.
type Artifact struct {
	SessionID string
	MimeType  string
	Data      []byte
}

// Uploader transmits a finished artifact and returns its stored reference.
type Uploader interface {
	Upload(ctx context.Context, artifact *Artifact) (string, error)
}

type assetUploader struct {
	client *resty.Client
	cfg    configs.RecordingStoreConfig
	logger commons.Logger
}

// NewAssetUploader builds the multipart uploader against the recording asset
// store. The client timeout is minutes-scale because artifacts can be large.
func NewAssetUploader(cfg configs.RecordingStoreConfig, logger commons.Logger) Uploader {
	timeout := time.Duration(cfg.UploadTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout)
	return &assetUploader{client: client, cfg: cfg, logger: logger}
}

type uploadResponse struct {
	Url string `json:"url"`
}

func (u *assetUploader) Upload(ctx context.Context, artifact *Artifact) (string, error) {
	fileName := fmt.Sprintf("%s.%s", artifact.SessionID, extensionFor(artifact.MimeType))

	var out uploadResponse
	req := u.client.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(artifact.Data)).
		SetFormData(map[string]string{
			"sessionId": artifact.SessionID,
			"mimeType":  artifact.MimeType,
		}).
		SetResult(&out)
	if u.cfg.ApiKey != "" {
		req.SetHeader("x-api-key", u.cfg.ApiKey)
	}

	resp, err := req.Post("/v1/recordings")
	if err != nil {
		return "", fmt.Errorf("recording upload failed for session %s: %w", artifact.SessionID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("recording upload rejected for session %s: status %d", artifact.SessionID, resp.StatusCode())
	}

	u.logger.Infof("recording uploaded: sessionId=%s, bytes=%d, url=%s",
		artifact.SessionID, len(artifact.Data), out.Url)
	return out.Url, nil
}

func extensionFor(mimeType string) string {
	switch {
	case mimeType == "audio/wav":
		return "wav"
	case strings.Contains(mimeType, "webm"):
		return "webm"
	default:
		return "bin"
	}
}
