// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_session

import (
	"context"
	"sync"

	internal_callprovider "github.com/hireflowai/api/interview-api/internal/callprovider"
	internal_capture "github.com/hireflowai/api/interview-api/internal/capture"
	internal_gateway "github.com/hireflowai/api/interview-api/internal/gateway"
	internal_recorder "github.com/hireflowai/api/interview-api/internal/recorder"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/types"
)

// ProviderFactory builds a fresh call provider per controller. Each
// controller owns its provider instance for the full activation.
type ProviderFactory func() internal_callprovider.Provider

// Manager owns the live controllers, one per (session, participant) pair.
// Handlers resolve their controller through it; a completed or errored
// controller is replaced on the next Open so a manual retry starts clean.
type Manager struct {
	logger      commons.Logger
	gateway     internal_gateway.Gateway
	uploader    internal_recorder.Uploader
	newProvider ProviderFactory
	lock        ActivationLock
	budget      int

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewManager creates the controller registry.
func NewManager(
	logger commons.Logger,
	gateway internal_gateway.Gateway,
	uploader internal_recorder.Uploader,
	newProvider ProviderFactory,
	lock ActivationLock,
	questionBudgetSeconds int,
) *Manager {
	return &Manager{
		logger:      logger,
		gateway:     gateway,
		uploader:    uploader,
		newProvider: newProvider,
		lock:        lock,
		budget:      questionBudgetSeconds,
		controllers: make(map[string]*Controller),
	}
}

func controllerKey(sessionID, userID string) string {
	return sessionID + "/" + userID
}

// Open returns the participant's controller for a session, loading session
// metadata on first use. Terminal controllers (completed or errored) are
// discarded and rebuilt so the caller gets a fresh attempt.
func (m *Manager) Open(ctx context.Context, sessionID string, p types.Principle) (*Controller, error) {
	key := controllerKey(sessionID, p.UserID)

	m.mu.Lock()
	if c, ok := m.controllers[key]; ok {
		if s := c.State(); s != StateCompleted && s != StateError {
			m.mu.Unlock()
			return c, nil
		}
		delete(m.controllers, key)
		// An errored controller can still hold live resources (ticker,
		// provider handle, activation lock); release them before rebuilding.
		c.Unmount()
	}

	provider := m.newProvider()
	deps := Deps{
		Logger:                m.logger,
		Gateway:               m.gateway,
		Provider:              provider,
		Uploader:              m.uploader,
		Lock:                  m.lock,
		QuestionBudgetSeconds: m.budget,
	}
	// A bridge-style provider doubles as the capture device surface.
	if d, ok := provider.(internal_capture.Devices); ok {
		deps.Devices = d
	} else {
		deps.Devices = internal_capture.NoDevices{}
	}
	c := NewController(deps, sessionID, p)
	m.controllers[key] = c
	m.mu.Unlock()

	if err := c.Load(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Get returns an existing controller without loading, nil when absent.
func (m *Manager) Get(sessionID string, p types.Principle) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controllers[controllerKey(sessionID, p.UserID)]
}

// Close unmounts the participant's controller and drops it from the
// registry. Uploads already in flight keep running in the background.
func (m *Manager) Close(sessionID string, p types.Principle) {
	key := controllerKey(sessionID, p.UserID)
	m.mu.Lock()
	c, ok := m.controllers[key]
	if ok {
		delete(m.controllers, key)
	}
	m.mu.Unlock()
	if ok {
		c.Unmount()
	}
}

// Shutdown unmounts every live controller. Called on process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		controllers = append(controllers, c)
	}
	m.controllers = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range controllers {
		c.Unmount()
	}
}
