package timer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"pgregory.net/rapid"
)

// Property: across any sequence of pause/resume cycles with arbitrary gaps,
// the elapsed running time equals exactly the seconds spent in the running
// state. Pause/resume itself never gains or loses time.
func TestElapsedPreservedAcrossPauseResume(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
		st := newMemStore()
		logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

		// Generous staleness bounds: this property exercises arithmetic,
		// not reaping.
		policy := StalenessPolicy{MaxAge: 10000 * time.Hour, FutureTolerance: 5 * time.Second}
		finalizer := NewFinalizer(&memArchive{}, 0, VisibilityEveryone, logger)
		machine := NewStateMachine(st, finalizer, policy, logger, WithClock(clock.Now))

		ctx := context.Background()
		if _, err := machine.Start(ctx, user, StartInput{ProjectID: "proj-1"}); err != nil {
			rt.Fatalf("start: %v", err)
		}

		running := true
		var expected int64

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0: // advance
				d := rapid.Int64Range(0, 3600).Draw(rt, "seconds")
				clock.Advance(time.Duration(d) * time.Second)
				if running {
					expected += d
				}
			case 1: // pause
				_, err := machine.Pause(ctx, user)
				if running && err != nil {
					rt.Fatalf("pause while running: %v", err)
				}
				if !running && err == nil {
					rt.Fatalf("pause while paused succeeded")
				}
				running = false
			case 2: // resume
				_, err := machine.Resume(ctx, user)
				if !running && err != nil {
					rt.Fatalf("resume while paused: %v", err)
				}
				if running && err == nil {
					rt.Fatalf("resume while running succeeded")
				}
				running = true
			}

			session, err := machine.GetEffective(ctx, user)
			if err != nil || session == nil {
				rt.Fatalf("effective state lost: %v", err)
			}
			if got := session.ElapsedSeconds(clock.Now()); got != expected {
				rt.Fatalf("elapsed %d, expected %d after step %d", got, expected, i)
			}
		}
	})
}
