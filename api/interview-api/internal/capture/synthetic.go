// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_capture

import (
	"context"
	"io"
	"sync"
	"time"
)

// Silent PCM parameters: LINEAR16 16kHz mono, the internal recording format.
const (
	SilentSampleRate     = 16000
	SilentChannels       = 1
	SilentBytesPerSample = 2
)

// silentSource synthesizes a muted audio stream so the recording pipeline
// always has a valid feed even with no devices available. Each Read blocks
// for one emission interval and yields that interval's worth of zeroed PCM,
// pacing the stream at real-time rate.
type silentSource struct {
	interval  time.Duration
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewSilentSource returns the last-resort capture source.
func NewSilentSource() Source {
	return &silentSource{
		interval: time.Second,
		closeCh:  make(chan struct{}),
	}
}

func (s *silentSource) Kind() Kind { return KindSynthetic }

func (s *silentSource) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-s.closeCh:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.interval):
	}
	frame := make([]byte, int(s.interval.Seconds()*float64(SilentSampleRate*SilentChannels*SilentBytesPerSample)))
	return frame, nil
}

func (s *silentSource) Close() error {
	s.closeOnce.Do(func() { close(s.closeCh) })
	return nil
}
