package pricing

import (
	"errors"
	"sort"
)

var (
	ErrInvalidDuration  = errors.New("no duration bucket matches the requested duration")
	ErrInvalidPartySize = errors.New("party size must be positive")
	ErrUnknownAddOn     = errors.New("unknown add-on code")
	ErrInvalidRateTable = errors.New("invalid rate table")
)

// AddOn is a flat or per-person priced extra (e.g. a winery stop). Add-on
// charges are never subject to surcharge or discount multipliers. A winery
// stop additionally carries a per-guest tasting fee that feeds only the TBD
// estimate, never the priced subtotal.
type AddOn struct {
	Code               string
	Label              string
	Flat               Money
	PerPerson          Money
	WineryStop         bool
	TastingFeePerGuest Money
}

// RateTable is a versioned snapshot of the pricing configuration. It is a
// value: the engine never mutates it, and each quote computation works off
// the snapshot it was handed, so a concurrent reload cannot affect an
// in-flight computation.
type RateTable struct {
	Version int32

	// BaseRateByDuration maps a duration bucket in minutes to the base
	// price covering up to BasePartySize guests.
	BaseRateByDuration map[int]Money
	BasePartySize      int
	PerPersonOverage   Money

	// Percentages are basis points (890 = 8.9%) so they stay exact.
	WeekendSurchargeBps   int32
	HolidaySurchargeBps   int32
	LargeGroupDiscountBps int32
	LargeGroupThreshold   int
	TaxRateBps            int32
	DepositBps            int32

	// A requested duration snaps to the nearest bucket within this
	// tolerance; outside it the request is rejected as InvalidDuration.
	BucketToleranceMin int

	// TBD estimation parameters (informational costs only).
	AvgMealCostPerGuest Money
	MealsPerDay         int

	AddOns map[string]AddOn
}

func (rt RateTable) Validate() error {
	switch {
	case len(rt.BaseRateByDuration) == 0:
		return errors.New("rate table has no duration buckets")
	case rt.BasePartySize < 1:
		return errors.New("base party size must be at least 1")
	case rt.WeekendSurchargeBps < 0 || rt.HolidaySurchargeBps < 0:
		return errors.New("surcharge percentages must be non-negative")
	case rt.LargeGroupDiscountBps < 0 || rt.LargeGroupDiscountBps > 10_000:
		return errors.New("large group discount must be between 0 and 100%")
	case rt.TaxRateBps < 0 || rt.DepositBps < 0:
		return errors.New("tax and deposit rates must be non-negative")
	case rt.PerPersonOverage.IsNegative():
		return errors.New("per-person overage rate must be non-negative")
	case rt.BucketToleranceMin < 0:
		return errors.New("bucket tolerance must be non-negative")
	}
	for minutes, base := range rt.BaseRateByDuration {
		if minutes <= 0 || base.IsNegative() {
			return errors.New("duration buckets must have positive length and non-negative base rate")
		}
	}
	return nil
}

// MatchBucket snaps a requested duration to the nearest configured bucket.
// Ties go to the shorter bucket.
func (rt RateTable) MatchBucket(durationMin int) (int, error) {
	if durationMin <= 0 {
		return 0, ErrInvalidDuration
	}

	buckets := rt.sortedBuckets()
	best := -1
	bestDist := -1
	for _, b := range buckets {
		dist := durationMin - b
		if dist < 0 {
			dist = -dist
		}
		if best == -1 || dist < bestDist {
			best = b
			bestDist = dist
		}
	}

	if bestDist > rt.BucketToleranceMin {
		return 0, ErrInvalidDuration
	}
	return best, nil
}

func (rt RateTable) AddOn(code string) (AddOn, error) {
	a, ok := rt.AddOns[code]
	if !ok {
		return AddOn{}, ErrUnknownAddOn
	}
	return a, nil
}

func (rt RateTable) sortedBuckets() []int {
	buckets := make([]int, 0, len(rt.BaseRateByDuration))
	for minutes := range rt.BaseRateByDuration {
		buckets = append(buckets, minutes)
	}
	sort.Ints(buckets)
	return buckets
}
