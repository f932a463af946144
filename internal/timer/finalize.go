package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Finalizer converts a validated active session into an immutable archived
// Session. It never reads the active-session store; the caller owns loading
// and deleting the active record.
type Finalizer struct {
	archive           Archive
	minDuration       time.Duration
	defaultVisibility Visibility
	logger            zerolog.Logger
}

// NewFinalizer creates a Finalizer writing to the given archive.
func NewFinalizer(archive Archive, minDuration time.Duration, defaultVisibility Visibility, logger zerolog.Logger) *Finalizer {
	if defaultVisibility == "" {
		defaultVisibility = VisibilityEveryone
	}
	return &Finalizer{
		archive:           archive,
		minDuration:       minDuration,
		defaultVisibility: defaultVisibility,
		logger:            logger.With().Str("component", "finalizer").Logger(),
	}
}

// Finalize builds the archived record for active and appends it. Returns
// ErrTooShort when the elapsed time is below the minimum; the caller must
// leave the active session in place in that case.
func (f *Finalizer) Finalize(ctx context.Context, active *ActiveSession, in CompletionInput, now time.Time) (*Session, error) {
	duration := active.ElapsedSeconds(now)
	if duration < int64(f.minDuration.Seconds()) {
		return nil, fmt.Errorf("%w: %ds elapsed, minimum is %s", ErrTooShort, duration, f.minDuration)
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = f.defaultVisibility
	}
	if !IsValidVisibility(visibility) {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, visibility)
	}

	session := &Session{
		UserID:      active.UserID,
		ProjectID:   active.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Duration:    duration,
		StartedAt:   active.StartTime,
		CompletedAt: now,
		Visibility:  visibility,
		Tags:        in.Tags,
		GroupIDs:    in.GroupIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := f.archive.Append(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("archiving session: %w", err)
	}
	session.ID = id

	f.logger.Info().
		Str("user_id", session.UserID).
		Str("session_id", id).
		Int64("duration_s", duration).
		Msg("session archived")

	return session, nil
}
