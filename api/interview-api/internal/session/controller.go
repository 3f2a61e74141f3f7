// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	internal_callprovider "github.com/hireflowai/api/interview-api/internal/callprovider"
	internal_capture "github.com/hireflowai/api/interview-api/internal/capture"
	internal_clock "github.com/hireflowai/api/interview-api/internal/clock"
	internal_consent "github.com/hireflowai/api/interview-api/internal/consent"
	internal_entity "github.com/hireflowai/api/interview-api/internal/entity"
	internal_gateway "github.com/hireflowai/api/interview-api/internal/gateway"
	internal_questions "github.com/hireflowai/api/interview-api/internal/questions"
	internal_recorder "github.com/hireflowai/api/interview-api/internal/recorder"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/types"
)

// State is the session controller's tagged state.
type State string

const (
	StateIdle            State = "idle"
	StateLoading         State = "loading"
	StateAwaitingConsent State = "awaiting_consent"
	StateStarting        State = "starting"
	StateActive          State = "active"
	StateEnding          State = "ending"
	StateCompleted       State = "completed"
	StateError           State = "error"
)

// EndReason names what triggered the ending transition. The cleanup sequence
// is identical for every reason.
type EndReason string

const (
	EndReasonRequested      EndReason = "requested"
	EndReasonProviderClosed EndReason = "provider-closed"
	EndReasonQuestionsDone  EndReason = "questions-exhausted"
)

// ErrInvalidTransition is returned for operations that are not legal in the
// current state (e.g. consenting before a start was requested).
var ErrInvalidTransition = errors.New("invalid session transition")

// transitions is the single source of truth for legal state edges. StateError
// is additionally reachable from every non-terminal state.
var transitions = map[State][]State{
	StateIdle:            {StateLoading},
	StateLoading:         {StateAwaitingConsent, StateStarting, StateActive},
	StateAwaitingConsent: {StateStarting},
	StateStarting:        {StateActive},
	StateActive:          {StateEnding},
	StateEnding:          {StateCompleted},
	// A failed remote end leaves the controller in error; re-running the
	// teardown from there is legal because every earlier step is idempotent.
	StateError: {StateEnding},
}

// Deps carries the controller's collaborators.
type Deps struct {
	Logger   commons.Logger
	Gateway  internal_gateway.Gateway
	Provider internal_callprovider.Provider
	Uploader internal_recorder.Uploader
	// Devices feeds the capture fallback chain. Nil means no device endpoints
	// are available and capture degrades to the synthetic step.
	Devices internal_capture.Devices
	// Lock enforces at most one live controller per session across replicas.
	// Nil disables cross-replica locking.
	Lock ActivationLock
	// QuestionBudgetSeconds is the countdown budget per automated question.
	QuestionBudgetSeconds int
}

// Controller owns one interview session's lifecycle: it loads metadata,
// gates start behind consent, activates clocks/capture/call, and guarantees
// the ordered teardown on every exit path.
//
// Teardown order is invariant regardless of trigger: (1) stop the question
// engine, (2) stop recording and await upload, (3) dispose the call
// provider, (4) stop clocks, (5) remote end call. It runs at most once per
// activation, guarded by an explicit single-flight flag — not by state
// alone, because triggers can race the state update.
type Controller struct {
	deps      Deps
	logger    commons.Logger
	sessionID string
	principle types.Principle

	mu       sync.Mutex
	state    State
	sess     *internal_entity.InterviewSession
	warnings []string
	lastErr  error

	gate    *internal_consent.Gate
	elapsed *internal_clock.Elapsed
	rec     *internal_recorder.Recorder
	engine  *internal_questions.Engine

	ending         atomic.Bool
	connected      atomic.Bool
	lockHeld       atomic.Bool
	closeRequested atomic.Bool
	uploadErr      error
}

// NewController creates an idle controller for one session and participant.
func NewController(deps Deps, sessionID string, principle types.Principle) *Controller {
	return &Controller{
		deps:      deps,
		logger:    deps.Logger,
		sessionID: sessionID,
		principle: principle,
		state:     StateIdle,
		gate:      internal_consent.NewGate(deps.Gateway, deps.Logger),
		elapsed:   internal_clock.NewElapsed(deps.Logger),
	}
}

// transition moves to the target state, validating the edge. Callers hold mu.
func (c *Controller) transition(to State) error {
	if to == StateError {
		if c.state == StateCompleted {
			return ErrInvalidTransition
		}
		c.state = StateError
		return nil
	}
	for _, allowed := range transitions[c.state] {
		if allowed == to {
			c.logger.Debugf("session %s: %s -> %s", c.sessionID, c.state, to)
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, to)
}

func (c *Controller) toError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	_ = c.transition(StateError)
	c.logger.Errorw("session entered error state", "session", c.sessionID, "error", err.Error())
}

// Load fetches session metadata. A session already in progress resumes
// directly: clocks resynchronize from the stored start timestamp and no
// consent is re-checked.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if err := c.transition(StateLoading); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	sess, err := c.deps.Gateway.GetSession(ctx, c.sessionID)
	if err != nil {
		// Metadata fetch failure is fatal: blocking error, manual retry only.
		c.toError(err)
		return err
	}

	c.mu.Lock()
	c.sess = sess
	resume := sess.IsActive()
	c.mu.Unlock()

	if resume {
		c.resumeLock(ctx)
		return c.activate(ctx)
	}
	return nil
}

// RequestStart handles an explicit start request. When the participant's
// role requires a consent decision that is not yet on record, the controller
// parks in awaiting_consent and reports consentRequired=true; the remote
// start call is not issued.
func (c *Controller) RequestStart(ctx context.Context) (consentRequired bool, err error) {
	c.mu.Lock()
	if c.state != StateLoading {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.state)
	}
	c.mu.Unlock()

	allowed, err := c.gate.Allow(ctx, c.sessionID, c.principle)
	if err != nil {
		// Transient consent lookup failure: recoverable, state unchanged.
		return false, err
	}
	if !allowed {
		c.mu.Lock()
		err := c.transition(StateAwaitingConsent)
		c.mu.Unlock()
		return true, err
	}
	return false, c.begin(ctx)
}

// Consent records the participant's decision while awaiting consent.
// Acceptance persists the decision upstream and proceeds to start; decline
// aborts with the recoverable ErrConsentRequired and no remote start call.
func (c *Controller) Consent(ctx context.Context, granted bool) error {
	c.mu.Lock()
	if c.state != StateAwaitingConsent {
		c.mu.Unlock()
		return fmt.Errorf("%w: consent from %s", ErrInvalidTransition, c.state)
	}
	c.mu.Unlock()

	if err := c.gate.Record(ctx, c.sessionID, c.principle, granted); err != nil {
		// Declines land here too (ErrConsentRequired): remain parked.
		return err
	}
	return c.begin(ctx)
}

// begin performs the remote start call and activates the session.
func (c *Controller) begin(ctx context.Context) error {
	c.mu.Lock()
	if err := c.transition(StateStarting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if err := c.acquireActivation(ctx); err != nil {
		c.toError(err)
		return err
	}

	sess, err := c.deps.Gateway.StartSession(ctx, c.sessionID)
	if err != nil {
		// No automatic retry: retrying could double-start the session on the
		// remote side. The lock is freed so the retry starts clean.
		c.releaseActivation()
		c.toError(err)
		return err
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	return c.activate(ctx)
}

// acquireActivation claims the cross-replica activation lock for a fresh
// start. A lock backend outage degrades to lockless operation; losing the
// claim to another replica is a hard stop.
func (c *Controller) acquireActivation(ctx context.Context) error {
	if c.deps.Lock == nil {
		return nil
	}
	won, err := c.deps.Lock.Acquire(ctx, c.sessionID)
	if err != nil {
		c.logger.Warnw("activation lock unavailable, continuing without it",
			"session", c.sessionID, "error", err.Error())
		return nil
	}
	if !won {
		return fmt.Errorf("session %s already active elsewhere", c.sessionID)
	}
	c.lockHeld.Store(true)
	return nil
}

// resumeLock re-claims the activation lock when picking a live session back
// up, covering the replica that originally held it having died. Losing the
// claim is expected here: another participant's controller can legitimately
// hold it for the same session.
func (c *Controller) resumeLock(ctx context.Context) {
	if c.deps.Lock == nil {
		return
	}
	won, err := c.deps.Lock.Acquire(ctx, c.sessionID)
	if err != nil {
		c.logger.Warnw("activation lock unavailable on resume",
			"session", c.sessionID, "error", err.Error())
		return
	}
	if won {
		c.lockHeld.Store(true)
	}
}

// releaseActivation frees the lock on any exit path. Only the controller
// that actually holds it issues the release, at most once.
func (c *Controller) releaseActivation() {
	if !c.lockHeld.CompareAndSwap(true, false) {
		return
	}
	if err := c.deps.Lock.Release(context.Background(), c.sessionID); err != nil {
		c.logger.Warnw("activation lock release failed", "session", c.sessionID, "error", err.Error())
	}
}

// activate brings up clocks, capture, recording, the call provider and (for
// the automated variant) the question engine, then flips to active.
func (c *Controller) activate(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	c.elapsed.Start(sess.StartedDate)

	devices := c.deps.Devices
	if devices == nil {
		if d, ok := c.deps.Provider.(internal_capture.Devices); ok {
			devices = d
		} else {
			devices = internal_capture.NoDevices{}
		}
	}

	// Provider joins before capture so bridge-backed devices have live tracks
	// to subscribe to. A join failure is surfaced as a provider error event,
	// not a fatal state: the recording pipeline still runs.
	if err := c.deps.Provider.Join(ctx, sess.MeetingURL, c.principle.DisplayName, c.handleProviderEvent); err != nil {
		c.logger.Warnw("call provider join failed", "session", c.sessionID, "error", err.Error())
		c.addWarning("call unavailable; retry from the call panel")
	}

	source, warnings, err := internal_capture.Acquire(ctx, c.logger, internal_capture.Chain(devices))
	if err != nil {
		// Release the partial bring-up before parking in error: a lingering
		// ticker or provider handle after a failed activation is a defect.
		c.Unmount()
		c.toError(err)
		return err
	}
	c.mu.Lock()
	c.warnings = append(c.warnings, warnings...)
	c.mu.Unlock()

	profile := internal_capture.SelectProfile(source.Kind(), nil)
	c.rec = internal_recorder.NewRecorder(c.logger, c.sessionID, source, profile, c.deps.Uploader)
	c.rec.Start()

	if sess.Automated {
		questions, err := c.deps.Gateway.ListQuestions(ctx, c.sessionID)
		if err != nil {
			c.Unmount()
			c.toError(err)
			return err
		}
		budget := c.deps.QuestionBudgetSeconds
		if budget <= 0 {
			budget = 120
		}
		c.engine = internal_questions.NewEngine(c.logger, c.sessionID, questions, budget,
			func(ctx context.Context, answers []internal_entity.QuestionAnswer) error {
				return c.deps.Gateway.SubmitAnswers(ctx, c.sessionID, answers)
			},
			func(err error) {
				if err != nil {
					c.addWarning("answer submission failed")
				}
				go c.End(context.Background(), EndReasonQuestionsDone)
			},
		)
		c.engine.Start()
	}

	c.mu.Lock()
	err = c.transition(StateActive)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if c.closeRequested.Load() {
		// The provider asked to close while activation was still in flight;
		// replay the trigger now that the ending edge is legal.
		go c.End(context.Background(), EndReasonProviderClosed)
	}
	return nil
}

func (c *Controller) handleProviderEvent(ev internal_callprovider.Event) {
	switch ev.Kind {
	case internal_callprovider.EventJoined:
		c.connected.Store(true)
	case internal_callprovider.EventParticipantJoined:
		c.logger.Infof("participant joined session %s: %s", c.sessionID, ev.Participant)
	case internal_callprovider.EventParticipantLeft:
		c.logger.Infof("participant left session %s: %s", c.sessionID, ev.Participant)
	case internal_callprovider.EventError:
		c.logger.Warnw("call provider error", "session", c.sessionID, "reason", ev.Reason)
		c.addWarning("call connection problem")
	case internal_callprovider.EventReadyToClose:
		// Runs on the provider's read goroutine; End must not block it. The
		// flag survives a close that races activation so activate can replay
		// the trigger once the session is active.
		c.closeRequested.Store(true)
		go c.End(context.Background(), EndReasonProviderClosed)
	}
}

// End triggers the ordered teardown. Idempotent: a second trigger while
// already ending is a no-op via the single-flight flag.
func (c *Controller) End(ctx context.Context, reason EndReason) error {
	if !c.ending.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	if err := c.transition(StateEnding); err != nil {
		c.ending.Store(false)
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.logger.Infof("ending session %s: reason=%s", c.sessionID, reason)

	// (1) stop question progression
	if c.engine != nil {
		c.engine.Stop()
	}

	// (2) stop recording and await uploader completion
	recordingURL := ""
	if c.rec != nil {
		url, err := c.rec.Stop()
		if err != nil {
			// Logged and surfaced to privileged roles only; never blocks
			// session completion.
			c.logger.Errorw("recording upload failed", "session", c.sessionID, "error", err.Error())
			c.mu.Lock()
			c.uploadErr = err
			c.mu.Unlock()
		}
		recordingURL = url
	}

	// (3) dispose call provider
	c.deps.Provider.Dispose()

	// (4) stop clocks
	c.elapsed.Stop()

	// (5) remote end call
	if err := c.deps.Gateway.EndSession(ctx, c.sessionID, recordingURL); err != nil {
		// Fatal; manual retry re-runs the teardown, whose earlier steps are
		// all idempotent.
		c.ending.Store(false)
		c.toError(err)
		return err
	}

	c.releaseActivation()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(StateCompleted)
}

// Unmount cancels timers and disposes the provider handle immediately, even
// when a remote end call is still in flight elsewhere. An upload already
// started is deliberately left to finish in the background — losing the
// recording is worse than a late-arriving write.
func (c *Controller) Unmount() {
	if c.engine != nil {
		c.engine.Stop()
	}
	c.elapsed.Stop()
	c.deps.Provider.Dispose()
	if c.rec != nil {
		go func() {
			if _, err := c.rec.Stop(); err != nil {
				c.logger.Errorw("recording upload failed after unmount", "session", c.sessionID, "error", err.Error())
			}
		}()
	}
	c.releaseActivation()
}

// RecordAnswer stores a typed answer for a question (automated variant).
func (c *Controller) RecordAnswer(questionID uint64, text string) error {
	if c.engine == nil {
		return errors.New("session has no question progression")
	}
	c.engine.RecordAnswer(questionID, text)
	return nil
}

// AdvanceQuestion moves to the next question, recording the typed text for
// the current one when given.
func (c *Controller) AdvanceQuestion(ctx context.Context, typed string) error {
	if c.engine == nil {
		return errors.New("session has no question progression")
	}
	return c.engine.Advance(ctx, typed)
}

func (c *Controller) addWarning(w string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the loaded session metadata, nil before Load completes.
func (c *Controller) Session() *internal_entity.InterviewSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// ElapsedSeconds returns the monotonic session clock reading.
func (c *Controller) ElapsedSeconds() int64 {
	return c.elapsed.Seconds()
}

// Connected reports whether the call provider confirmed the join.
func (c *Controller) Connected() bool {
	return c.connected.Load()
}

// Warnings returns the degraded-but-continuing notices collected so far.
func (c *Controller) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// UploadError exposes a failed recording upload. Callers must only surface
// it to privileged roles.
func (c *Controller) UploadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploadErr
}

// LastError returns the error that moved the controller into StateError.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Engine exposes the question engine for status reads; nil outside the
// automated variant.
func (c *Controller) Engine() *internal_questions.Engine {
	return c.engine
}
