// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_callprovider

import "context"

// EventKind enumerates the discrete events a call provider reports.
type EventKind string

const (
	EventJoined            EventKind = "joined"
	EventParticipantJoined EventKind = "participant-joined"
	EventParticipantLeft   EventKind = "participant-left"
	EventError             EventKind = "error"
	EventReadyToClose      EventKind = "ready-to-close"
)

// Event is one provider notification. Participant is set for the
// participant-* kinds; Reason carries the provider's error or close detail.
type Event struct {
	Kind        EventKind
	Participant string
	Reason      string
}

// Handler receives provider events. Handlers run on the provider's read
// goroutine and must not block.
type Handler func(Event)

// Provider establishes a real-time call at a join address and reports
// lifecycle events. At most one Provider instance is live per session.
//
// Dispose must be idempotent: it is invoked both from explicit session end
// and from unmount/cleanup paths, and redundant calls are expected.
type Provider interface {
	Join(ctx context.Context, address, displayName string, handler Handler) error
	Dispose()
}
