// Package cooldown gates the labor, ladder and slot commands. State is
// process-local only: cooldowns reset on restart, which the original design
// accepts in exchange for never touching the database on the hot path.
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/overwatchkr/overwatch-bot/overwatch/economy"
)

// Tracker maps (action, user) to an absolute expiry timestamp.
//
// Check and Commit are deliberately separate calls: a gated command validates
// its preconditions and resolves its random outcome between the two, so a
// failed precondition (insufficient stake, bad input) never burns the
// cooldown. The cost is that two concurrent invocations by the same user can
// both pass Check before either Commits; the windows are hours long and the
// payouts small, so this race is accepted rather than papered over with a
// per-user mutex.
type Tracker struct {
	entries sync.Map // "action:userID" -> time.Time
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// NewTrackerWithClock injects the clock, for tests.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

func key(action, userID string) string {
	return action + ":" + userID
}

// Check returns an *economy.OnCooldownError while the action is gated. It
// never arms the cooldown itself.
func (t *Tracker) Check(action, userID string) error {
	v, ok := t.entries.Load(key(action, userID))
	if !ok {
		return nil
	}
	expiry := v.(time.Time)
	if now := t.now(); now.Before(expiry) {
		return &economy.OnCooldownError{Action: action, Remaining: expiry.Sub(now)}
	}
	return nil
}

// Commit arms the cooldown for the given window, overwriting any prior value.
// Called only after the gated action has fully succeeded.
func (t *Tracker) Commit(action, userID string, window time.Duration) {
	t.entries.Store(key(action, userID), t.now().Add(window))
}

// Remaining reports the time left on a gate, zero when not gated.
func (t *Tracker) Remaining(action, userID string) time.Duration {
	v, ok := t.entries.Load(key(action, userID))
	if !ok {
		return 0
	}
	if d := v.(time.Time).Sub(t.now()); d > 0 {
		return d
	}
	return 0
}

func (t *Tracker) pruneExpired() {
	now := t.now()
	t.entries.Range(func(k, v interface{}) bool {
		if now.After(v.(time.Time)) {
			t.entries.Delete(k)
		}
		return true
	})
}

// StartCleanupRoutine prunes expired entries on a fixed interval so the map
// stays bounded by the active user set.
func (t *Tracker) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.pruneExpired()
			}
		}
	}()
}
