// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_recorder

import (
	"context"
	"errors"
	"sync"

	internal_capture "github.com/hireflowai/api/interview-api/internal/capture"
	"github.com/hireflowai/pkg/commons"
)

// Recorder pumps one capture source into the buffer and, on stop, releases
// the source, assembles the artifact and hands it to the uploader.
//
// The pump runs on a context owned by the recorder (derived from
// context.Background) so that teardown is never short-circuited by the
// caller's context being cancelled first. The same applies to the upload: an
// upload already started runs to completion even when the session is being
// torn down, because losing the recording is worse than a late write.
type Recorder struct {
	logger    commons.Logger
	sessionID string
	source    internal_capture.Source
	profile   internal_capture.Profile
	uploader  Uploader
	buffer    *Buffer

	cancel context.CancelFunc
	done   chan struct{}

	stopOnce sync.Once
	url      string
	stopErr  error
}

// NewRecorder wires a capture source to the upload pipeline.
func NewRecorder(
	logger commons.Logger,
	sessionID string,
	source internal_capture.Source,
	profile internal_capture.Profile,
	uploader Uploader,
) *Recorder {
	return &Recorder{
		logger:    logger,
		sessionID: sessionID,
		source:    source,
		profile:   profile,
		uploader:  uploader,
		buffer:    NewBuffer(logger),
		done:      make(chan struct{}),
	}
}

// Start begins buffering capture output.
func (r *Recorder) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.buffer.Start()
	go r.pump(ctx)
}

func (r *Recorder) pump(ctx context.Context) {
	defer close(r.done)
	for {
		data, err := r.source.Read(ctx)
		if err != nil {
			return
		}
		if err := r.buffer.Append(data); err != nil {
			if !errors.Is(err, ErrBufferStopped) {
				r.logger.Warnw("recording append failed", "error", err.Error())
			}
			return
		}
	}
}

// Stop halts buffering, releases the capture source and uploads the
// assembled artifact, returning its stored reference. It blocks until the
// upload completes or fails. When zero segments were collected the upload is
// skipped and Stop resolves cleanly with an empty reference. Safe to call
// redundantly — later calls return the first result.
func (r *Recorder) Stop() (string, error) {
	r.stopOnce.Do(func() {
		// Order matters: halt appends, stop the pump, release tracks, then
		// assemble and upload.
		r.buffer.Stop()
		if r.cancel != nil {
			r.cancel()
			<-r.done
		}
		if err := r.source.Close(); err != nil {
			r.logger.Warnw("capture source close failed", "error", err.Error())
		}

		data, err := r.buffer.Flush(r.profile)
		if err != nil {
			r.stopErr = err
			return
		}
		if data == nil {
			r.logger.Infof("no recording segments for session %s, skipping upload", r.sessionID)
			return
		}

		artifact := &Artifact{
			SessionID: r.sessionID,
			MimeType:  r.profile.MimeType,
			Data:      data,
		}
		// Detached context: session cancellation must not abort the upload.
		r.url, r.stopErr = r.uploader.Upload(context.Background(), artifact)
	})
	return r.url, r.stopErr
}
