package services

import (
	"encoding/json"
	"fmt"
	"time"

	"trade-match-system/models"
)

// FreePlanMonthlyReveals is the reveal allowance for the free plan per calendar month.
const FreePlanMonthlyReveals = 3

// ErrNegativeUsage signals a corrupted usage count reaching the quota policy.
// The ledger is the only source of used counts, so this should never fire.
var ErrNegativeUsage = fmt.Errorf("quota: used count is negative")

// QuotaResult is the evaluated reveal quota for one profile and month.
type QuotaResult struct {
	Used      int
	Total     int // meaningless when Unlimited
	Remaining int // meaningless when Unlimited
	Unlimited bool
	Allowed   bool
}

// MarshalJSON renders total/remaining as the string "unlimited" on paid
// plans, matching what the dashboard expects.
func (q QuotaResult) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"used":    q.Used,
		"allowed": q.Allowed,
	}
	if q.Unlimited {
		out["total"] = "unlimited"
		out["remaining"] = "unlimited"
	} else {
		out["total"] = q.Total
		out["remaining"] = q.Remaining
	}
	return json.Marshal(out)
}

// EvaluateQuota is the pure quota policy: free plans get a fixed monthly
// allowance, every other plan value is unlimited. The caller supplies the
// ledger count for the current month; no I/O happens here.
func EvaluateQuota(plan string, used int) (QuotaResult, error) {
	if used < 0 {
		return QuotaResult{}, fmt.Errorf("%w: %d", ErrNegativeUsage, used)
	}

	if plan != models.PlanFree {
		return QuotaResult{
			Used:      used,
			Unlimited: true,
			Allowed:   true,
		}, nil
	}

	remaining := FreePlanMonthlyReveals - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaResult{
		Used:      used,
		Total:     FreePlanMonthlyReveals,
		Remaining: remaining,
		Allowed:   used < FreePlanMonthlyReveals,
	}, nil
}

// MonthKeyAt derives the canonical "YYYY-MM" quota period for an instant.
// Always UTC — the ledger write and the quota count must agree on the
// period boundary regardless of server timezone.
func MonthKeyAt(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CurrentMonthKey returns the quota period for now.
func CurrentMonthKey() string {
	return MonthKeyAt(time.Now())
}
