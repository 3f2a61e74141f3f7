// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_callprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_capture "github.com/hireflowai/api/interview-api/internal/capture"
	"github.com/hireflowai/pkg/commons"
)

func testLogger(t *testing.T) commons.Logger {
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return logger
}

var upgrader = websocket.Upgrader{}

// bridgeServer simulates the meeting bridge endpoint.
type bridgeServer struct {
	t      *testing.T
	tracks []string

	mu   sync.Mutex
	conn *websocket.Conn

	server *httptest.Server
	joined chan frame
}

func newBridgeServer(t *testing.T, tracks []string) *bridgeServer {
	s := &bridgeServer{t: t, tracks: tracks, joined: make(chan frame, 1)}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		var join frame
		require.NoError(t, conn.ReadJSON(&join))
		s.joined <- join
		require.NoError(t, conn.WriteJSON(frame{Type: "joined", Tracks: tracks}))

		// Keep reading so leave/close frames drain.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *bridgeServer) url() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *bridgeServer) send(t *testing.T, f frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NoError(t, s.conn.WriteJSON(f))
}

func (s *bridgeServer) sendMedia(t *testing.T, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NoError(t, s.conn.WriteMessage(websocket.BinaryMessage, data))
}

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) handle(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

func (s *eventSink) has(kind EventKind) bool {
	for _, k := range s.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// ============================================================================
// Join
// ============================================================================

func TestBridge_JoinAnnouncesAndConfirms(t *testing.T) {
	server := newBridgeServer(t, []string{"video", "audio"})
	bridge := NewBridge(testLogger(t))
	sink := &eventSink{}

	require.NoError(t, bridge.Join(context.Background(), server.url(), "Sam", sink.handle))
	defer bridge.Dispose()

	join := <-server.joined
	assert.Equal(t, "join", join.Type)
	assert.Equal(t, "Sam", join.DisplayName)
	assert.True(t, sink.has(EventJoined))
}

func TestBridge_JoinDialFailure(t *testing.T) {
	bridge := NewBridge(testLogger(t))
	err := bridge.Join(context.Background(), "ws://127.0.0.1:1/none", "Sam", func(Event) {})
	assert.Error(t, err)
}

// ============================================================================
// Event stream
// ============================================================================

func TestBridge_DispatchesParticipantEvents(t *testing.T) {
	server := newBridgeServer(t, []string{"audio"})
	bridge := NewBridge(testLogger(t))
	sink := &eventSink{}

	require.NoError(t, bridge.Join(context.Background(), server.url(), "Sam", sink.handle))
	defer bridge.Dispose()

	server.send(t, frame{Type: "participant-joined", Participant: "Alex"})
	server.send(t, frame{Type: "participant-left", Participant: "Alex"})
	server.send(t, frame{Type: "ready-to-close", Reason: "host ended"})

	require.Eventually(t, func() bool {
		return sink.has(EventReadyToClose)
	}, 2*time.Second, time.Millisecond)
	assert.True(t, sink.has(EventParticipantJoined))
	assert.True(t, sink.has(EventParticipantLeft))
}

// ============================================================================
// Media tracks
// ============================================================================

func TestBridge_TracksGateDeviceOpens(t *testing.T) {
	server := newBridgeServer(t, []string{"audio"})
	bridge := NewBridge(testLogger(t))

	require.NoError(t, bridge.Join(context.Background(), server.url(), "Sam", func(Event) {}))
	defer bridge.Dispose()

	_, err := bridge.OpenVideoAudio(context.Background())
	assert.Error(t, err, "no video track was advertised")

	source, err := bridge.OpenAudioOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, internal_capture.KindAudioOnly, source.Kind())
	require.NoError(t, source.Close())
}

func TestBridge_MediaFlowsToTrackSource(t *testing.T) {
	server := newBridgeServer(t, []string{"video", "audio"})
	bridge := NewBridge(testLogger(t))

	require.NoError(t, bridge.Join(context.Background(), server.url(), "Sam", func(Event) {}))
	defer bridge.Dispose()

	source, err := bridge.OpenVideoAudio(context.Background())
	require.NoError(t, err)

	server.sendMedia(t, []byte{9, 9, 9})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := source.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9}, data)
}

func TestBridge_DisposeEndsTrackReads(t *testing.T) {
	server := newBridgeServer(t, []string{"audio"})
	bridge := NewBridge(testLogger(t))

	require.NoError(t, bridge.Join(context.Background(), server.url(), "Sam", func(Event) {}))

	source, err := bridge.OpenAudioOnly(context.Background())
	require.NoError(t, err)

	bridge.Dispose()
	bridge.Dispose()

	_, err = source.Read(context.Background())
	assert.Error(t, err)
}

func TestBridge_DisposeBeforeJoinIsSafe(t *testing.T) {
	bridge := NewBridge(testLogger(t))
	bridge.Dispose()
	bridge.Dispose()
}
