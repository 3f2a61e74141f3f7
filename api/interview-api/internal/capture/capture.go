// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/hireflowai/pkg/commons"
)

// Kind tags which capability set an acquired source carries.
type Kind int

const (
	KindVideoAudio Kind = iota
	KindAudioOnly
	KindSynthetic
)

func (k Kind) String() string {
	switch k {
	case KindVideoAudio:
		return "video+audio"
	case KindAudioOnly:
		return "audio-only"
	case KindSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// Source is a live capture handle. Exactly one Source is active per session;
// it is the exclusive feed into the recording buffer. Read blocks until the
// next media payload is available (sources pace themselves), and returns an
// error once the source is closed or the context is cancelled.
type Source interface {
	Kind() Kind
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Devices abstracts the media endpoints a session can capture from. The call
// provider bridge implements it by subscribing to the published tracks.
type Devices interface {
	OpenVideoAudio(ctx context.Context) (Source, error)
	OpenAudioOnly(ctx context.Context) (Source, error)
}

// Warning codes surfaced by the fallback chain. Degraded-but-continuing per
// the error taxonomy: the session proceeds.
const (
	WarnAudioOnly = "no camera; audio only"
	WarnNoDevice  = "no device; test recording"
)

// Attempt is one step of the prioritized fallback chain.
type Attempt struct {
	// Name identifies the step in logs.
	Name string
	// Warning is surfaced when this step succeeds after earlier steps failed.
	// Empty for the preferred step.
	Warning string
	// Open acquires the source. Failures are isolated to this attempt.
	Open func(ctx context.Context) (Source, error)
}

// Chain builds the standard three-step fallback sequence: combined
// video+audio, audio only, then a locally synthesized silent stream so that
// downstream recording always has a valid source.
func Chain(devices Devices) []Attempt {
	return []Attempt{
		{
			Name: "video+audio",
			Open: devices.OpenVideoAudio,
		},
		{
			Name:    "audio-only",
			Warning: WarnAudioOnly,
			Open:    devices.OpenAudioOnly,
		},
		{
			Name:    "synthetic-silent",
			Warning: WarnNoDevice,
			Open: func(ctx context.Context) (Source, error) {
				return NewSilentSource(), nil
			},
		},
	}
}

// Acquire walks the attempts in order and returns the first source that
// opens, together with the warnings accumulated along the way. Each attempt
// is isolated: an error (or panic) in one step never prevents the next from
// running. With the standard Chain the synthetic step cannot fail, so Acquire
// never leaves the caller without a source.
func Acquire(ctx context.Context, logger commons.Logger, attempts []Attempt) (Source, []string, error) {
	var warnings []string
	for _, attempt := range attempts {
		source, err := open(ctx, attempt)
		if err != nil {
			logger.Warnw("capture attempt failed, falling back",
				"attempt", attempt.Name,
				"error", err.Error())
			continue
		}
		if attempt.Warning != "" {
			warnings = append(warnings, attempt.Warning)
		}
		logger.Infof("capture acquired: %s", source.Kind())
		return source, warnings, nil
	}
	return nil, warnings, errors.New("all capture attempts failed")
}

func open(ctx context.Context, attempt Attempt) (source Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			source = nil
			err = fmt.Errorf("capture attempt %s panicked: %v", attempt.Name, r)
		}
	}()
	return attempt.Open(ctx)
}
