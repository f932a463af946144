// Package cache implements the client cache bridge: an observing cache of
// per-user active sessions plus an invalidation signal, following the
// set-then-invalidate contract. The state machine writes the authoritative
// new value first, then emits the user's key so every subscriber (other
// tabs, other devices) refetches and converges.
package cache

import (
	"github.com/rs/zerolog"

	"github.com/pulsetrack/timerd/internal/timer"
	"github.com/pulsetrack/timerd/pkg/lru"
)

// state is a cached per-user value. Caching "absent" is meaningful, so the
// session pointer is wrapped rather than stored directly.
type state struct {
	session *timer.ActiveSession // nil means no active session
}

// Bridge is the cache layer between the state machine and its observers.
type Bridge struct {
	entries *lru.Cache[string, state]
	signals *signalHub
	logger  zerolog.Logger
}

// NewBridge creates a Bridge holding at most capacity user entries.
func NewBridge(capacity int, logger zerolog.Logger) *Bridge {
	return &Bridge{
		entries: lru.New[string, state](capacity),
		signals: newSignalHub(),
		logger:  logger.With().Str("component", "cache_bridge").Logger(),
	}
}

// SetActive writes the authoritative value for a user. A nil session records
// "no active session", which is distinct from "not cached".
func (b *Bridge) SetActive(userID string, session *timer.ActiveSession) {
	b.entries.Put(userID, state{session: session})
}

// Invalidate emits the user's key to every subscriber. Slow subscribers drop
// signals rather than block the mutation path; a dropped signal only delays
// convergence until the next heartbeat refetch.
func (b *Bridge) Invalidate(userID string) {
	dropped := b.signals.publish(userID)
	if dropped > 0 {
		b.logger.Debug().
			Str("user_id", userID).
			Int("dropped", dropped).
			Msg("invalidation dropped for slow subscribers")
	}
}

// Peek returns the cached value for a user. The second return reports
// whether the user is cached at all; a cached nil session means the user has
// no active timer.
func (b *Bridge) Peek(userID string) (*timer.ActiveSession, bool) {
	st, ok := b.entries.Peek(userID)
	if !ok {
		return nil, false
	}
	return st.session, true
}

// Subscribe registers an invalidation observer. The returned cancel func
// must be called to release the subscription.
func (b *Bridge) Subscribe() (<-chan string, func()) {
	return b.signals.subscribe()
}

// Drop removes a user from the cache entirely (e.g. on logout).
func (b *Bridge) Drop(userID string) {
	b.entries.Delete(userID)
}

// Len returns the number of cached users.
func (b *Bridge) Len() int {
	return b.entries.Len()
}
