// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_recorder

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_capture "github.com/hireflowai/api/interview-api/internal/capture"
)

// scriptedSource emits the queued frames then blocks until closed.
type scriptedSource struct {
	mu        sync.Mutex
	frames    [][]byte
	closed    atomic.Bool
	closeCh   chan struct{}
	closeOnce sync.Once
}

func newScriptedSource(frames ...[]byte) *scriptedSource {
	return &scriptedSource{frames: frames, closeCh: make(chan struct{})}
}

func (s *scriptedSource) Kind() internal_capture.Kind { return internal_capture.KindAudioOnly }

func (s *scriptedSource) Read(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if len(s.frames) > 0 {
		frame := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		return frame, nil
	}
	s.mu.Unlock()

	select {
	case <-s.closeCh:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scriptedSource) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() { close(s.closeCh) })
	return nil
}

// countingUploader records upload calls.
type countingUploader struct {
	mu       sync.Mutex
	calls    int
	lastData []byte
	url      string
	err      error
}

func (u *countingUploader) Upload(ctx context.Context, artifact *Artifact) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.lastData = artifact.Data
	return u.url, u.err
}

func (u *countingUploader) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

func waitForAppends(t *testing.T, r *Recorder, n int) {
	require.Eventually(t, func() bool {
		return r.buffer.Len() >= n
	}, 2*time.Second, time.Millisecond)
}

// ============================================================================
// Recorder
// ============================================================================

func TestRecorder_UploadsOnStop(t *testing.T) {
	source := newScriptedSource([]byte{1, 2}, []byte{3, 4})
	uploader := &countingUploader{url: "https://assets/rec.webm"}
	r := NewRecorder(testLogger(t), "sess-1", source, internal_capture.Profile{MimeType: "audio/webm"}, uploader)

	r.Start()
	waitForAppends(t, r, 2)

	url, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, "https://assets/rec.webm", url)
	assert.Equal(t, 1, uploader.Calls())
	assert.True(t, source.closed.Load(), "capture source must be released")
	assert.Equal(t, []byte{1, 2, 3, 4}, uploader.lastData)
}

func TestRecorder_EmptySessionSkipsUpload(t *testing.T) {
	source := newScriptedSource()
	uploader := &countingUploader{}
	r := NewRecorder(testLogger(t), "sess-1", source, internal_capture.ProfileWAV, uploader)

	r.Start()
	url, err := r.Stop()
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Equal(t, 0, uploader.Calls())
}

func TestRecorder_StopIsSingleFlight(t *testing.T) {
	source := newScriptedSource([]byte{1, 2})
	uploader := &countingUploader{url: "https://assets/rec.webm"}
	r := NewRecorder(testLogger(t), "sess-1", source, internal_capture.Profile{MimeType: "audio/webm"}, uploader)

	r.Start()
	waitForAppends(t, r, 1)

	var wg sync.WaitGroup
	urls := make([]string, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url, err := r.Stop()
			assert.NoError(t, err)
			urls[i] = url
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, uploader.Calls())
	for _, url := range urls {
		assert.Equal(t, "https://assets/rec.webm", url)
	}
}

func TestRecorder_UploadErrorIsReturned(t *testing.T) {
	source := newScriptedSource([]byte{1, 2})
	uploader := &countingUploader{err: errors.New("store unavailable")}
	r := NewRecorder(testLogger(t), "sess-1", source, internal_capture.Profile{MimeType: "audio/webm"}, uploader)

	r.Start()
	waitForAppends(t, r, 1)

	_, err := r.Stop()
	assert.Error(t, err)

	// Later calls surface the same cached result.
	_, err = r.Stop()
	assert.Error(t, err)
	assert.Equal(t, 1, uploader.Calls())
}
