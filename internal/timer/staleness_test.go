package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStalenessPolicy_Evaluate(t *testing.T) {
	policy := DefaultStalenessPolicy()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		startTime  time.Time
		wantStale  bool
		wantReason StaleReason
	}{
		{
			name:      "fresh session",
			startTime: now.Add(-time.Hour),
			wantStale: false,
		},
		{
			name:      "started just now",
			startTime: now,
			wantStale: false,
		},
		{
			name:      "slightly in the future within tolerance",
			startTime: now.Add(3 * time.Second),
			wantStale: false,
		},
		{
			name:       "future beyond tolerance",
			startTime:  now.Add(10 * time.Second),
			wantStale:  true,
			wantReason: StaleFutureStart,
		},
		{
			name:      "just under max age",
			startTime: now.Add(-24*time.Hour + time.Minute),
			wantStale: false,
		},
		{
			name:       "older than max age",
			startTime:  now.Add(-25 * time.Hour),
			wantStale:  true,
			wantReason: StaleExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, stale := policy.Evaluate(&ActiveSession{StartTime: tt.startTime}, now)
			assert.Equal(t, tt.wantStale, stale)
			if tt.wantStale {
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}

func TestStalenessPolicy_FutureCheckedBeforeAge(t *testing.T) {
	// A pathological clock could make a record both future and, after wrap,
	// expired; the future check wins because it runs first.
	policy := StalenessPolicy{MaxAge: time.Hour, FutureTolerance: time.Second}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reason, stale := policy.Evaluate(&ActiveSession{StartTime: now.Add(48 * time.Hour)}, now)
	assert.True(t, stale)
	assert.Equal(t, StaleFutureStart, reason)
}
