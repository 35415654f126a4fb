// Package cost gates LLM spending with per-user tier budgets and a
// process-wide daily ledger.
package cost

import (
	"log/slog"
	"sync"
	"time"

	"github.com/truecheckia/detector/internal/config"
	"github.com/truecheckia/detector/internal/models"
)

const dayFormat = "2006-01-02"

type userUsage struct {
	day      string
	requests int
	costUSD  float64
}

// Tracker tracks per-user and process-wide spending. State is process-local:
// in a multi-instance deployment each instance keeps its own ledger, which is
// a known scaling limitation rather than something to paper over here.
type Tracker struct {
	mu     sync.Mutex
	users  map[string]*userUsage
	limits map[models.PlanTier]config.TierLimits

	day          string
	dailyCostUSD float64
	alertUSD     float64
	emergencyUSD float64
	alerted      bool

	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker from the cost configuration.
func NewTracker(cfg config.CostConfig, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		users: make(map[string]*userUsage),
		limits: map[models.PlanTier]config.TierLimits{
			models.PlanFree:       cfg.Free,
			models.PlanPro:        cfg.Pro,
			models.PlanEnterprise: cfg.Enterprise,
		},
		alertUSD:     cfg.DailyAlertUSD,
		emergencyUSD: cfg.DailyEmergencyUSD,
		logger:       logger,
		now:          time.Now,
	}
	t.day = t.now().Format(dayFormat)
	return t
}

// Allow reports whether a request with the given estimated cost may take the
// LLM path, and how much per-user budget remains. The process-wide emergency
// stop overrides individual budgets: once tripped, everyone falls back.
func (t *Tracker) Allow(userID string, tier models.PlanTier, estimatedCost float64) (allowed bool, remainingUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()

	if t.dailyCostUSD >= t.emergencyUSD {
		return false, 0
	}

	limits, ok := t.limits[tier]
	if !ok {
		limits = t.limits[models.PlanFree]
	}

	u := t.usage(userID)
	remaining := limits.MaxCostPerDayUSD - u.costUSD
	if remaining < 0 {
		remaining = 0
	}

	if u.requests >= limits.MaxRequestsPerDay {
		return false, remaining
	}
	if u.costUSD+estimatedCost > limits.MaxCostPerDayUSD {
		return false, remaining
	}
	return true, remaining
}

// Record charges an actual cost to the user and the daily ledger. Crossing
// the alert threshold logs a warning once per day; crossing the emergency
// threshold logs an error and subsequent Allow calls refuse the LLM path.
func (t *Tracker) Record(userID string, costUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()

	u := t.usage(userID)
	u.requests++
	u.costUSD += costUSD

	t.dailyCostUSD += costUSD

	switch {
	case t.dailyCostUSD >= t.emergencyUSD:
		t.logger.Error("daily cost emergency threshold reached, forcing fallback for all users",
			"daily_cost_usd", t.dailyCostUSD,
			"emergency_usd", t.emergencyUSD,
		)
	case t.dailyCostUSD >= t.alertUSD && !t.alerted:
		t.alerted = true
		t.logger.Warn("daily cost alert threshold reached",
			"daily_cost_usd", t.dailyCostUSD,
			"alert_usd", t.alertUSD,
		)
	}
}

// DailyTotal returns today's accumulated cost.
func (t *Tracker) DailyTotal() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.dailyCostUSD
}

// EmergencyStopped reports whether the process-wide emergency stop is active.
func (t *Tracker) EmergencyStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.dailyCostUSD >= t.emergencyUSD
}

// rollover resets ledgers when the calendar date changes. Callers must hold
// the lock.
func (t *Tracker) rollover() {
	today := t.now().Format(dayFormat)
	if today == t.day {
		return
	}
	t.day = today
	t.dailyCostUSD = 0
	t.alerted = false
	t.users = make(map[string]*userUsage)
}

// usage returns the current-day usage record for a user. Callers must hold
// the lock.
func (t *Tracker) usage(userID string) *userUsage {
	if userID == "" {
		userID = "anonymous"
	}
	u := t.users[userID]
	if u == nil || u.day != t.day {
		u = &userUsage{day: t.day}
		t.users[userID] = u
	}
	return u
}
