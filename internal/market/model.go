package market

import (
	"errors"
	"math"
	"time"
)

const (
	MicrosPerCredit = int64(1_000_000)

	hoursPerDay = 24.0
)

var (
	ErrNoCandidates       = errors.New("no eligible products in catalog")
	ErrProductInactive    = errors.New("product is no longer active")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidConfig      = errors.New("invalid engine configuration")
	ErrUnknownStrategy    = errors.New("unknown planner strategy")
	ErrNonPositiveBudget  = errors.New("wave budget must be > 0")
	ErrNonPositiveAmounts = errors.New("purchase quantity and cost must be > 0")
)

func CreditsToMicros(v float64) int64 {
	return int64(math.Round(v * float64(MicrosPerCredit)))
}

func MicrosToCredits(v int64) float64 {
	return float64(v) / float64(MicrosPerCredit)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ageDays returns the listing age in days, floored at one day so same-day
// listings never blow up rate divisions.
func ageDays(createdAt, now time.Time) float64 {
	d := now.Sub(createdAt).Hours() / hoursPerDay
	if d < 1 {
		return 1
	}
	return d
}
