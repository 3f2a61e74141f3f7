// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_callprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	internal_capture "github.com/hireflowai/api/interview-api/internal/capture"
	"github.com/hireflowai/pkg/commons"
)

const (
	writeDeadline = 5 * time.Second
	// mediaChannelSize bounds buffered media frames; the recorder drains at
	// segment cadence, so a small buffer suffices and overflow frames drop.
	mediaChannelSize = 32
)

// frame is the bridge wire format. Text messages carry JSON frames; binary
// messages carry raw media for the subscribed tracks.
type frame struct {
	Type        string   `json:"type"`
	DisplayName string   `json:"displayName,omitempty"`
	Participant string   `json:"participant,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Tracks      []string `json:"tracks,omitempty"`
}

// Bridge joins a meeting over a websocket bridge endpoint. It implements
// both the Provider contract (event stream) and capture.Devices (media track
// subscription): the session's "local capture" is fed by the binary frames
// the bridge publishes for the joined participant.
type Bridge struct {
	logger  commons.Logger
	handler Handler

	mu   sync.Mutex
	conn *websocket.Conn

	hasVideo atomic.Bool
	hasAudio atomic.Bool

	mediaCh     chan []byte
	closeCh     chan struct{}
	disposeOnce sync.Once
	closed      atomic.Bool
}

// NewBridge creates an unjoined bridge provider.
func NewBridge(logger commons.Logger) *Bridge {
	return &Bridge{
		logger:  logger,
		mediaCh: make(chan []byte, mediaChannelSize),
		closeCh: make(chan struct{}),
	}
}

// Join dials the bridge address, announces the display name and blocks until
// the provider confirms the join. Subsequent events are delivered on a
// background read loop.
func (b *Bridge) Join(ctx context.Context, address, displayName string, handler Handler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return fmt.Errorf("bridge dial failed: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.handler = handler
	b.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(frame{Type: "join", DisplayName: displayName}); err != nil {
		conn.Close()
		return fmt.Errorf("bridge join write failed: %w", err)
	}

	// Wait for the join confirmation, which advertises the published tracks.
	joined, err := b.awaitJoined(ctx, conn)
	if err != nil {
		conn.Close()
		return err
	}
	for _, track := range joined.Tracks {
		switch track {
		case "video":
			b.hasVideo.Store(true)
		case "audio":
			b.hasAudio.Store(true)
		}
	}
	b.dispatch(Event{Kind: EventJoined})

	go b.readLoop(conn)
	return nil
}

func (b *Bridge) awaitJoined(ctx context.Context, conn *websocket.Conn) (*frame, error) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	}
	defer conn.SetReadDeadline(time.Time{})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("bridge join confirmation failed: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		switch f.Type {
		case "joined":
			return &f, nil
		case "error":
			return nil, fmt.Errorf("bridge refused join: %s", f.Reason)
		}
	}
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !b.closed.Load() {
				b.dispatch(Event{Kind: EventError, Reason: err.Error()})
			}
			return
		}
		switch mt {
		case websocket.BinaryMessage:
			select {
			case b.mediaCh <- data:
			default:
				// Recorder is behind; drop rather than stall the event stream.
			}
		case websocket.TextMessage:
			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				b.logger.Warnw("bridge sent malformed frame", "error", err.Error())
				continue
			}
			b.handleFrame(f)
		}
	}
}

func (b *Bridge) handleFrame(f frame) {
	switch f.Type {
	case "participant-joined":
		b.dispatch(Event{Kind: EventParticipantJoined, Participant: f.Participant})
	case "participant-left":
		b.dispatch(Event{Kind: EventParticipantLeft, Participant: f.Participant})
	case "error":
		b.dispatch(Event{Kind: EventError, Reason: f.Reason})
	case "ready-to-close":
		b.dispatch(Event{Kind: EventReadyToClose, Reason: f.Reason})
	}
}

func (b *Bridge) dispatch(ev Event) {
	b.mu.Lock()
	handler := b.handler
	b.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// Dispose leaves the call and closes the connection. Idempotent — invoked
// from both explicit end and unmount paths.
func (b *Bridge) Dispose() {
	b.disposeOnce.Do(func() {
		b.closed.Store(true)
		close(b.closeCh)

		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()
		if conn == nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		// Best effort; the close below is what matters.
		_ = conn.WriteJSON(frame{Type: "leave"})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
}

// ============================================================================
// capture.Devices — media track subscription
// ============================================================================

// OpenVideoAudio subscribes to the combined media feed. Fails when the
// provider did not advertise a video track, pushing the fallback chain to
// the audio-only step.
func (b *Bridge) OpenVideoAudio(ctx context.Context) (internal_capture.Source, error) {
	if !b.hasVideo.Load() || !b.hasAudio.Load() {
		return nil, fmt.Errorf("video track unavailable")
	}
	return b.newTrackSource(internal_capture.KindVideoAudio), nil
}

// OpenAudioOnly subscribes to the audio feed.
func (b *Bridge) OpenAudioOnly(ctx context.Context) (internal_capture.Source, error) {
	if !b.hasAudio.Load() {
		return nil, fmt.Errorf("audio track unavailable")
	}
	return b.newTrackSource(internal_capture.KindAudioOnly), nil
}

func (b *Bridge) newTrackSource(kind internal_capture.Kind) internal_capture.Source {
	return &trackSource{
		kind:     kind,
		mediaCh:  b.mediaCh,
		bridgeCh: b.closeCh,
		closeCh:  make(chan struct{}),
	}
}

// trackSource adapts the bridge's binary frames to a capture.Source.
type trackSource struct {
	kind      internal_capture.Kind
	mediaCh   <-chan []byte
	bridgeCh  <-chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
}

func (t *trackSource) Kind() internal_capture.Kind { return t.kind }

func (t *trackSource) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-t.closeCh:
		return nil, io.EOF
	case <-t.bridgeCh:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-t.mediaCh:
		return data, nil
	}
}

func (t *trackSource) Close() error {
	t.closeOnce.Do(func() { close(t.closeCh) })
	return nil
}
