package waterfall

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tekumsceh/gigstr/internal/money"
)

// GigBalance is one unpaid gig as seen by the simulator: its identity, its
// date (which decides settlement order) and how much it is still owed in EUR.
// Callers must pre-filter to Outstanding > 0; the simulator does not
// re-validate that.
type GigBalance struct {
	GigID       string
	Venue       string
	Date        time.Time
	Outstanding decimal.Decimal
}

// Allocation is the portion of the pool applied to one gig.
type Allocation struct {
	GigID     string          `json:"gigId"`
	Venue     string          `json:"venue,omitempty"`
	Applied   decimal.Decimal `json:"applied"`
	FullyPaid bool            `json:"fullyPaid"`
}

// Result is a complete allocation proposal. Leftover is the part of the pool
// that exceeded total debt; it is surfaced, never silently dropped.
type Result struct {
	Allocations []Allocation    `json:"allocations"`
	Leftover    decimal.Decimal `json:"leftover"`
}

// Simulate distributes pool (EUR) across the given gigs, oldest date first.
// Each gig receives min(remaining, outstanding), rounded to 2 decimals; the
// loop stops once the remaining pool drops below the sub-cent epsilon. The
// function has no side effects and is safe to call repeatedly for previews.
//
// Invariant: sum(Applied) + Leftover == pool.
func Simulate(gigs []GigBalance, pool decimal.Decimal) (Result, error) {
	if pool.LessThanOrEqual(decimal.Zero) {
		return Result{}, errors.New("payment pool must be positive")
	}

	// Oldest debts settle first. Sort a copy so the caller's slice is
	// left alone.
	ordered := make([]GigBalance, len(gigs))
	copy(ordered, gigs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	result := Result{Allocations: make([]Allocation, 0, len(ordered))}
	remaining := pool

	for _, gig := range ordered {
		if remaining.LessThanOrEqual(money.Epsilon) {
			break
		}

		applied := money.Round(decimal.Min(remaining, gig.Outstanding))
		result.Allocations = append(result.Allocations, Allocation{
			GigID:     gig.GigID,
			Venue:     gig.Venue,
			Applied:   applied,
			FullyPaid: applied.GreaterThanOrEqual(gig.Outstanding),
		})
		remaining = remaining.Sub(applied)
	}

	result.Leftover = remaining
	return result, nil
}
