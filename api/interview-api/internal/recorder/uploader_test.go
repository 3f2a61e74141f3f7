// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_recorder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflowai/pkg/configs"
)

func TestAssetUploader_MultipartUpload(t *testing.T) {
	var gotSessionID, gotMimeType, gotApiKey, gotFileName string
	var gotFile []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/recordings", r.URL.Path)
		gotApiKey = r.Header.Get("x-api-key")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotSessionID = r.FormValue("sessionId")
		gotMimeType = r.FormValue("mimeType")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFileName = header.Filename
		gotFile, err = io.ReadAll(file)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": "https://assets/sess-1.wav"})
	}))
	defer server.Close()

	uploader := NewAssetUploader(configs.RecordingStoreConfig{
		Endpoint: server.URL,
		ApiKey:   "secret-key",
	}, testLogger(t))

	url, err := uploader.Upload(context.Background(), &Artifact{
		SessionID: "sess-1",
		MimeType:  "audio/wav",
		Data:      []byte{1, 2, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://assets/sess-1.wav", url)
	assert.Equal(t, "sess-1", gotSessionID)
	assert.Equal(t, "audio/wav", gotMimeType)
	assert.Equal(t, "secret-key", gotApiKey)
	assert.Equal(t, "sess-1.wav", gotFileName)
	assert.Equal(t, []byte{1, 2, 3}, gotFile)
}

func TestAssetUploader_RejectionIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	uploader := NewAssetUploader(configs.RecordingStoreConfig{Endpoint: server.URL}, testLogger(t))
	_, err := uploader.Upload(context.Background(), &Artifact{
		SessionID: "sess-1",
		MimeType:  "audio/wav",
		Data:      []byte{1},
	})
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "wav", extensionFor("audio/wav"))
	assert.Equal(t, "webm", extensionFor("video/webm;codecs=vp8,opus"))
	assert.Equal(t, "bin", extensionFor("application/octet-stream"))
}
