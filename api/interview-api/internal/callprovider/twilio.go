// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_callprovider

import (
	"context"
	"fmt"
	"sync"

	"github.com/twilio/twilio-go"
	twilioVideo "github.com/twilio/twilio-go/rest/video/v1"

	"github.com/hireflowai/pkg/commons"
)

// twilioRooms is the Twilio Video variant of the provider contract. The join
// address is the room unique name; media flows peer-to-peer through Twilio,
// so this adapter only manages room lifecycle and cannot feed local capture
// (sessions on this provider record via the fallback chain's synthetic step
// unless a bridge is also configured).
type twilioRooms struct {
	logger      commons.Logger
	credentials map[string]string

	mu          sync.Mutex
	client      *twilio.RestClient
	roomSid     string
	disposeOnce sync.Once
}

// NewTwilioRooms creates a Twilio room provider from vault credentials.
func NewTwilioRooms(logger commons.Logger, credentials map[string]string) Provider {
	return &twilioRooms{
		logger:      logger,
		credentials: credentials,
	}
}

func (t *twilioRooms) restClient() (*twilio.RestClient, error) {
	accountSid, ok := t.credentials["account_sid"]
	if !ok {
		return nil, fmt.Errorf("illegal vault config account_sid is not found")
	}
	authToken, ok := t.credentials["account_token"]
	if !ok {
		return nil, fmt.Errorf("illegal vault config account_token not found")
	}
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	}), nil
}

// Join ensures the room exists (fetch by unique name, create when absent)
// and reports joined. Twilio room status callbacks arrive over webhooks
// outside this adapter, so no further events are emitted here.
func (t *twilioRooms) Join(ctx context.Context, address, displayName string, handler Handler) error {
	client, err := t.restClient()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.client = client
	t.mu.Unlock()

	room, err := client.VideoV1.FetchRoom(address)
	if err != nil {
		params := &twilioVideo.CreateRoomParams{}
		params.SetUniqueName(address)
		room, err = client.VideoV1.CreateRoom(params)
		if err != nil {
			return fmt.Errorf("twilio room create failed for %s: %w", address, err)
		}
	}
	if room.Sid != nil {
		t.mu.Lock()
		t.roomSid = *room.Sid
		t.mu.Unlock()
	}

	t.logger.Infof("twilio room ready: name=%s, sid=%s, participant=%s", address, t.roomSid, displayName)
	if handler != nil {
		handler(Event{Kind: EventJoined})
	}
	return nil
}

// Dispose completes the room so Twilio stops billing it. Idempotent.
func (t *twilioRooms) Dispose() {
	t.disposeOnce.Do(func() {
		t.mu.Lock()
		client, sid := t.client, t.roomSid
		t.mu.Unlock()
		if client == nil || sid == "" {
			return
		}
		params := &twilioVideo.UpdateRoomParams{}
		params.SetStatus("completed")
		if _, err := client.VideoV1.UpdateRoom(sid, params); err != nil {
			t.logger.Warnw("twilio room complete failed", "sid", sid, "error", err.Error())
		}
	})
}
