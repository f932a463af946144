package timer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// StateMachine owns the transition rules for the active work-session timer.
// It holds no in-process session state: every operation re-reads the
// authoritative record from the store, so the same logic works whether one
// client or many concurrent devices drive it. Concurrent writers race under
// last-write-wins; every write fully overwrites the record, so the worst case
// is a few seconds of miscounted duration, never corruption.
type StateMachine struct {
	store     ActiveSessionStore
	finalizer *Finalizer
	bridge    CacheBridge
	policy    StalenessPolicy
	observer  Observer
	logger    zerolog.Logger

	now func() time.Time // test hook
}

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithBridge attaches a cache bridge notified after every mutation.
func WithBridge(b CacheBridge) Option {
	return func(m *StateMachine) { m.bridge = b }
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(m *StateMachine) { m.observer = o }
}

// WithClock overrides the wall clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(m *StateMachine) { m.now = now }
}

// NewStateMachine creates a StateMachine over the given store and finalizer.
func NewStateMachine(store ActiveSessionStore, finalizer *Finalizer, policy StalenessPolicy, logger zerolog.Logger, opts ...Option) *StateMachine {
	m := &StateMachine{
		store:     store,
		finalizer: finalizer,
		policy:    policy,
		logger:    logger.With().Str("component", "timer").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetEffective loads the user's active session and applies the staleness
// policy. A stale record is deleted and reported absent; the caller never
// sees staleness as an error. This is the read every other operation starts
// from.
func (m *StateMachine) GetEffective(ctx context.Context, userID string) (*ActiveSession, error) {
	session, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading active session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	reason, stale := m.policy.Evaluate(session, m.now())
	if !stale {
		return session, nil
	}

	if err := m.store.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("deleting stale session: %w", err)
	}
	m.notify(userID, nil)
	if m.observer != nil {
		m.observer.StaleReaped(reason)
		m.observer.ActiveDelta(-1)
	}
	m.logger.Warn().
		Str("user_id", userID).
		Str("reason", string(reason)).
		Time("start_time", session.StartTime).
		Msg("reaped stale session")

	return nil, nil
}

// Start begins a new timer. Fails with ErrAlreadyActive if an effective
// session exists. A custom start time supports backdated manual entries; it
// must not be in the future beyond the skew tolerance, nor older than the
// maximum session age (such a record would be reaped on the next read).
func (m *StateMachine) Start(ctx context.Context, userID string, in StartInput) (*ActiveSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}

	existing, err := m.GetEffective(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: started at %s", ErrAlreadyActive, existing.StartTime.Format(time.RFC3339))
	}

	now := m.now()
	start := now
	if in.CustomStartTime != nil {
		start = *in.CustomStartTime
		if reason, stale := m.policy.Evaluate(&ActiveSession{StartTime: start}, now); stale {
			return nil, fmt.Errorf("%w: start time rejected (%s)", ErrInvalidInput, reason)
		}
	}

	session := &ActiveSession{
		UserID:          userID,
		ProjectID:       in.ProjectID,
		StartTime:       start,
		PausedDuration:  0,
		Status:          StatusRunning,
		SelectedTaskIDs: in.SelectedTaskIDs,
	}

	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting active session: %w", err)
	}
	m.notify(userID, session)
	if m.observer != nil {
		m.observer.ActiveDelta(1)
	}
	m.logger.Info().
		Str("user_id", userID).
		Str("project_id", in.ProjectID).
		Time("start_time", start).
		Msg("timer started")

	return session, nil
}

// Pause freezes a running timer. The cumulative paused duration is left
// unchanged; the frozen elapsed time is recoverable from lastPausedAt, and
// Resume rebases the clock from it.
func (m *StateMachine) Pause(ctx context.Context, userID string) (*ActiveSession, error) {
	session, err := m.GetEffective(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != StatusRunning {
		return nil, ErrNotRunning
	}

	now := m.now()
	session.Status = StatusPaused
	session.LastPausedAt = &now

	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting paused session: %w", err)
	}
	m.notify(userID, session)
	m.logger.Info().
		Str("user_id", userID).
		Int64("elapsed_s", session.ElapsedSeconds(now)).
		Msg("timer paused")

	return session, nil
}

// Resume restarts a paused timer by rebasing the clock: the new start time is
// now minus the elapsed time frozen at pause, and the paused-duration
// baseline resets to zero. Elapsed running time is then simply now-startTime
// for the rest of the session, regardless of how many pause/resume cycles
// occurred.
func (m *StateMachine) Resume(ctx context.Context, userID string) (*ActiveSession, error) {
	session, err := m.GetEffective(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != StatusPaused {
		return nil, ErrNotPaused
	}

	now := m.now()
	frozen := session.ElapsedSeconds(now)
	session.StartTime = now.Add(-time.Duration(frozen) * time.Second)
	session.PausedDuration = 0
	session.Status = StatusRunning
	session.LastPausedAt = nil

	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting resumed session: %w", err)
	}
	m.notify(userID, session)
	m.logger.Info().
		Str("user_id", userID).
		Int64("elapsed_s", frozen).
		Time("rebased_start", session.StartTime).
		Msg("timer resumed")

	return session, nil
}

// Cancel discards the active session without archiving anything.
// Irreversible.
func (m *StateMachine) Cancel(ctx context.Context, userID string) error {
	session, err := m.GetEffective(ctx, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrNoActiveTimer
	}

	if err := m.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("deleting active session: %w", err)
	}
	m.notify(userID, nil)
	if m.observer != nil {
		m.observer.ActiveDelta(-1)
	}
	m.logger.Info().Str("user_id", userID).Msg("timer cancelled")

	return nil
}

// Finish archives the active session as an immutable Session and clears the
// active slot. The archive write happens first; if it fails, or the session
// is too short, the active session is left intact so the user can keep the
// timer.
func (m *StateMachine) Finish(ctx context.Context, userID string, in CompletionInput) (*Session, error) {
	active, err := m.GetEffective(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveTimer
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	session, err := m.finalizer.Finalize(ctx, active, in, m.now())
	if err != nil {
		return nil, err
	}

	if err := m.store.Delete(ctx, userID); err != nil {
		// The archive write is committed; the active record is still valid
		// and will be cleared on retry.
		return nil, fmt.Errorf("clearing active session after archive: %w", err)
	}
	m.notify(userID, nil)
	if m.observer != nil {
		m.observer.ActiveDelta(-1)
	}

	return session, nil
}

// UpdateTasks replaces the session's selected task list, preserving the
// caller's order. Fails with ErrNoActiveTimer when no session is active.
func (m *StateMachine) UpdateTasks(ctx context.Context, userID string, taskIDs []string) (*ActiveSession, error) {
	session, err := m.GetEffective(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveTimer
	}

	session.SelectedTaskIDs = taskIDs
	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting task selection: %w", err)
	}
	m.notify(userID, session)

	return session, nil
}

// notify runs the two-phase cache contract: set the authoritative value,
// then signal invalidation so every observer refetches.
func (m *StateMachine) notify(userID string, session *ActiveSession) {
	if m.bridge == nil {
		return
	}
	m.bridge.SetActive(userID, session.Clone())
	m.bridge.Invalidate(userID)
}
