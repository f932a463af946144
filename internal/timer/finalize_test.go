package timer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFinalizer(archive Archive) *Finalizer {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return NewFinalizer(archive, 10*time.Second, VisibilityEveryone, logger)
}

func TestFinalize(t *testing.T) {
	archive := &memArchive{}
	f := testFinalizer(archive)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	active := &ActiveSession{
		UserID:    "user-1",
		ProjectID: "proj-1",
		StartTime: now.Add(-30 * time.Minute),
		Status:    StatusRunning,
	}

	session, err := f.Finalize(context.Background(), active, CompletionInput{
		Title:       "Thesis chapter",
		Description: "intro draft",
		Visibility:  VisibilityFollowers,
		Tags:        []string{"writing"},
		GroupIDs:    []string{"grp-1"},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "archived-1", session.ID)
	assert.Equal(t, "user-1", session.UserID)
	assert.EqualValues(t, 1800, session.Duration)
	assert.Equal(t, active.StartTime, session.StartedAt)
	assert.Equal(t, now, session.CompletedAt)
	assert.Equal(t, VisibilityFollowers, session.Visibility)
	assert.Zero(t, session.SupportCount)
	assert.Zero(t, session.CommentCount)
	require.Len(t, archive.sessions, 1)
}

func TestFinalize_DefaultVisibility(t *testing.T) {
	f := testFinalizer(&memArchive{})

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	active := &ActiveSession{
		UserID:    "user-1",
		ProjectID: "proj-1",
		StartTime: now.Add(-time.Minute),
		Status:    StatusRunning,
	}

	session, err := f.Finalize(context.Background(), active, CompletionInput{Title: "x"}, now)
	require.NoError(t, err)
	assert.Equal(t, VisibilityEveryone, session.Visibility)
}

func TestFinalize_UnknownVisibility(t *testing.T) {
	f := testFinalizer(&memArchive{})

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	active := &ActiveSession{
		UserID:    "user-1",
		ProjectID: "proj-1",
		StartTime: now.Add(-time.Minute),
		Status:    StatusRunning,
	}

	_, err := f.Finalize(context.Background(), active, CompletionInput{
		Title:      "x",
		Visibility: "friends-of-friends",
	}, now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFinalize_TooShort(t *testing.T) {
	archive := &memArchive{}
	f := testFinalizer(archive)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	active := &ActiveSession{
		UserID:    "user-1",
		ProjectID: "proj-1",
		StartTime: now.Add(-5 * time.Second),
		Status:    StatusRunning,
	}

	_, err := f.Finalize(context.Background(), active, CompletionInput{Title: "blip"}, now)
	assert.ErrorIs(t, err, ErrTooShort)
	assert.Empty(t, archive.sessions, "nothing archived for a too-short session")
}

func TestFinalize_PausedUsesFrozenElapsed(t *testing.T) {
	f := testFinalizer(&memArchive{})

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	pausedAt := now.Add(-time.Hour)
	active := &ActiveSession{
		UserID:       "user-1",
		ProjectID:    "proj-1",
		StartTime:    pausedAt.Add(-40 * time.Second),
		Status:       StatusPaused,
		LastPausedAt: &pausedAt,
	}

	session, err := f.Finalize(context.Background(), active, CompletionInput{Title: "paused finish"}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 40, session.Duration, "an hour of paused time contributes nothing")
}
