// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_capture

import (
	"context"
	"errors"
)

// ErrNoDevices is returned by NoDevices for every open attempt.
var ErrNoDevices = errors.New("no media devices available")

// NoDevices is the Devices implementation for sessions whose call provider
// exposes no subscribable tracks. Both open attempts fail, so the fallback
// chain lands on the synthetic source.
type NoDevices struct{}

func (NoDevices) OpenVideoAudio(ctx context.Context) (Source, error) {
	return nil, ErrNoDevices
}

func (NoDevices) OpenAudioOnly(ctx context.Context) (Source, error) {
	return nil, ErrNoDevices
}
