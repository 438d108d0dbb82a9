package cooldown

import (
	"errors"
	"testing"
	"time"

	"github.com/overwatchkr/overwatch-bot/overwatch/economy"
)

func TestCheckBeforeCommitIsFree(t *testing.T) {
	tr := NewTracker()
	if err := tr.Check("labor", "1"); err != nil {
		t.Fatalf("first check should pass, got %v", err)
	}
	// Check never arms the gate.
	if err := tr.Check("labor", "1"); err != nil {
		t.Fatalf("second check should still pass, got %v", err)
	}
}

func TestCommitArmsTheGate(t *testing.T) {
	now := time.Now()
	tr := NewTrackerWithClock(func() time.Time { return now })

	tr.Commit("labor", "1", time.Hour)

	err := tr.Check("labor", "1")
	if err == nil {
		t.Fatal("expected cooldown error")
	}
	var cd *economy.OnCooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected *economy.OnCooldownError, got %T", err)
	}
	if cd.Action != "labor" {
		t.Errorf("action = %q, want labor", cd.Action)
	}
	if cd.Remaining != time.Hour {
		t.Errorf("remaining = %v, want 1h", cd.Remaining)
	}
}

func TestGateExpiresWithTheClock(t *testing.T) {
	now := time.Now()
	tr := NewTrackerWithClock(func() time.Time { return now })

	tr.Commit("slots", "1", 5*time.Minute)
	if err := tr.Check("slots", "1"); err == nil {
		t.Fatal("expected gate to hold")
	}

	now = now.Add(5*time.Minute + time.Second)
	if err := tr.Check("slots", "1"); err != nil {
		t.Fatalf("gate should have expired, got %v", err)
	}
}

func TestGatesAreScopedPerActionAndUser(t *testing.T) {
	now := time.Now()
	tr := NewTrackerWithClock(func() time.Time { return now })

	tr.Commit("labor", "1", time.Hour)

	if err := tr.Check("slots", "1"); err != nil {
		t.Errorf("different action gated: %v", err)
	}
	if err := tr.Check("labor", "2"); err != nil {
		t.Errorf("different user gated: %v", err)
	}
}

func TestRemaining(t *testing.T) {
	now := time.Now()
	tr := NewTrackerWithClock(func() time.Time { return now })

	if got := tr.Remaining("labor", "1"); got != 0 {
		t.Errorf("ungated remaining = %v, want 0", got)
	}

	tr.Commit("labor", "1", 10*time.Minute)
	if got := tr.Remaining("labor", "1"); got != 10*time.Minute {
		t.Errorf("remaining = %v, want 10m", got)
	}

	now = now.Add(11 * time.Minute)
	if got := tr.Remaining("labor", "1"); got != 0 {
		t.Errorf("expired remaining = %v, want 0", got)
	}
}

func TestPruneExpired(t *testing.T) {
	now := time.Now()
	tr := NewTrackerWithClock(func() time.Time { return now })

	tr.Commit("labor", "1", time.Minute)
	tr.Commit("labor", "2", time.Hour)

	now = now.Add(2 * time.Minute)
	tr.pruneExpired()

	if _, ok := tr.entries.Load(key("labor", "1")); ok {
		t.Error("expired entry not pruned")
	}
	if _, ok := tr.entries.Load(key("labor", "2")); !ok {
		t.Error("live entry pruned")
	}
}
