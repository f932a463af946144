package timer

import "time"

// StaleReason classifies why a persisted session is no longer trustworthy.
type StaleReason string

const (
	// StaleFutureStart: the record starts in the future beyond the skew
	// tolerance, so elapsed time would be negative.
	StaleFutureStart StaleReason = "future_start"
	// StaleExpired: the record is older than the maximum session age,
	// typically an orphan from a crashed or forgotten client.
	StaleExpired StaleReason = "expired"
)

// StalenessPolicy decides whether a loaded session is still valid. A stale
// result always means the record is deleted and the effective state becomes
// "no active session"; staleness is never surfaced to the user.
type StalenessPolicy struct {
	// MaxAge is the maximum wall-clock age before a session is expired.
	MaxAge time.Duration
	// FutureTolerance is the allowed clock skew before a future start time
	// is rejected.
	FutureTolerance time.Duration
}

// DefaultStalenessPolicy matches the product defaults: sessions live at most
// a day and a few seconds of client clock skew are tolerated.
func DefaultStalenessPolicy() StalenessPolicy {
	return StalenessPolicy{
		MaxAge:          24 * time.Hour,
		FutureTolerance: 5 * time.Second,
	}
}

// Evaluate classifies a session against now. Pure: no I/O, no side effects.
func (p StalenessPolicy) Evaluate(session *ActiveSession, now time.Time) (StaleReason, bool) {
	if session.StartTime.After(now.Add(p.FutureTolerance)) {
		return StaleFutureStart, true
	}
	if now.Sub(session.StartTime) > p.MaxAge {
		return StaleExpired, true
	}
	return "", false
}
