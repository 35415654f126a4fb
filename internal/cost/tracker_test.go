package cost

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/truecheckia/detector/internal/config"
	"github.com/truecheckia/detector/internal/models"
)

func testCostConfig() config.CostConfig {
	return config.CostConfig{
		DailyAlertUSD:     10,
		DailyEmergencyUSD: 25,
		Free:              config.TierLimits{MaxRequestsPerDay: 3, MaxCostPerDayUSD: 0.10},
		Pro:               config.TierLimits{MaxRequestsPerDay: 500, MaxCostPerDayUSD: 2.50},
		Enterprise:        config.TierLimits{MaxRequestsPerDay: 10000, MaxCostPerDayUSD: 25},
	}
}

func newTestTracker() *Tracker {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewTracker(testCostConfig(), logger)
}

func TestAllowWithinLimits(t *testing.T) {
	tr := newTestTracker()

	allowed, remaining := tr.Allow("user-1", models.PlanFree, 0.01)
	if !allowed {
		t.Error("Expected fresh user to be allowed")
	}
	if remaining != 0.10 {
		t.Errorf("Expected full budget remaining, got %f", remaining)
	}
}

func TestAllowRequestCountLimit(t *testing.T) {
	tr := newTestTracker()

	for i := 0; i < 3; i++ {
		tr.Record("user-1", 0.001)
	}

	if allowed, _ := tr.Allow("user-1", models.PlanFree, 0.001); allowed {
		t.Error("Expected refusal after exhausting daily request count")
	}

	// A different user is unaffected
	if allowed, _ := tr.Allow("user-2", models.PlanFree, 0.001); !allowed {
		t.Error("Expected other users to remain allowed")
	}
}

func TestAllowCostLimit(t *testing.T) {
	tr := newTestTracker()

	tr.Record("user-1", 0.09)

	// Next request would push past the 0.10 tier budget
	if allowed, _ := tr.Allow("user-1", models.PlanFree, 0.02); allowed {
		t.Error("Expected refusal when estimated cost exceeds remaining budget")
	}

	if allowed, _ := tr.Allow("user-1", models.PlanFree, 0.005); !allowed {
		t.Error("Expected small request within remaining budget to be allowed")
	}
}

func TestAllowUnknownTierFallsBackToFree(t *testing.T) {
	tr := newTestTracker()

	for i := 0; i < 3; i++ {
		tr.Record("user-1", 0.001)
	}

	if allowed, _ := tr.Allow("user-1", models.PlanTier("MYSTERY"), 0.001); allowed {
		t.Error("Expected unknown tier to inherit FREE limits")
	}
}

func TestEmergencyStopAffectsAllUsers(t *testing.T) {
	tr := newTestTracker()

	tr.Record("whale", 30) // past the 25 USD emergency threshold

	if !tr.EmergencyStopped() {
		t.Fatal("Expected emergency stop to be active")
	}

	// Even enterprise users with untouched budgets are refused
	if allowed, _ := tr.Allow("other-user", models.PlanEnterprise, 0.001); allowed {
		t.Error("Expected emergency stop to refuse every user")
	}
}

func TestDailyTotal(t *testing.T) {
	tr := newTestTracker()

	tr.Record("a", 1.5)
	tr.Record("b", 2.5)

	if total := tr.DailyTotal(); total != 4.0 {
		t.Errorf("Expected daily total 4.0, got %f", total)
	}
}

func TestRollover(t *testing.T) {
	tr := newTestTracker()

	current := time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return current }
	tr.day = current.Format(dayFormat)

	tr.Record("whale", 30)
	if !tr.EmergencyStopped() {
		t.Fatal("Expected emergency stop before midnight")
	}
	for i := 0; i < 3; i++ {
		tr.Record("user-1", 0.001)
	}

	// Midnight passes
	current = current.Add(2 * time.Hour)

	if tr.EmergencyStopped() {
		t.Error("Expected emergency stop to clear on the new day")
	}
	if total := tr.DailyTotal(); total != 0 {
		t.Errorf("Expected ledger reset, got %f", total)
	}
	if allowed, _ := tr.Allow("user-1", models.PlanFree, 0.001); !allowed {
		t.Error("Expected per-user counters to reset on the new day")
	}
}

func TestAnonymousUser(t *testing.T) {
	tr := newTestTracker()

	for i := 0; i < 3; i++ {
		tr.Record("", 0.001)
	}

	// Empty user IDs share the anonymous bucket
	if allowed, _ := tr.Allow("", models.PlanFree, 0.001); allowed {
		t.Error("Expected anonymous bucket to hit its request limit")
	}
}
