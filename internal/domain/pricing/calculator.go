package pricing

import (
	"fmt"
	"sort"
)

// QuoteInput is the pricing-relevant slice of a booking request.
type QuoteInput struct {
	DurationMin    int
	PartySize      int
	SelectedAddOns []string
}

// CalendarFacts are resolved by the caller (weekend from the tour date,
// holiday from the holiday calendar) so the calculator itself stays pure.
type CalendarFacts struct {
	IsWeekend bool
	IsHoliday bool
}

// ComputeQuote prices a request against a rate table snapshot. It is pure
// and deterministic: same inputs, same cents, every time.
//
// Order of operations is a fixed policy: weekend surcharge, then holiday
// surcharge (both may apply), then the large-group discount on the
// surcharge-inflated amount. Add-ons are summed in flat afterwards and are
// never subject to the multipliers. The TBD estimate (tasting and dining
// figures) is computed additively on the side and excluded from the total
// and the deposit base.
func ComputeQuote(in QuoteInput, rt RateTable, facts CalendarFacts) (Quote, error) {
	if in.PartySize <= 0 {
		return Quote{}, ErrInvalidPartySize
	}

	bucket, err := rt.MatchBucket(in.DurationMin)
	if err != nil {
		return Quote{}, err
	}

	breakdown := make([]LineItem, 0, 8)

	base := rt.BaseRateByDuration[bucket]
	breakdown = append(breakdown, newLineItem(
		fmt.Sprintf("Base rate (%s, up to %d guests)", formatBucket(bucket), rt.BasePartySize), base))

	subtotal := base
	if overage := in.PartySize - rt.BasePartySize; overage > 0 {
		overageCost := rt.PerPersonOverage.MulInt(int64(overage))
		subtotal = subtotal.Add(overageCost)
		breakdown = append(breakdown, newLineItem(
			fmt.Sprintf("Additional guests (%d × %s)", overage, rt.PerPersonOverage), overageCost))
	}

	if facts.IsWeekend && rt.WeekendSurchargeBps > 0 {
		next := subtotal.SurchargeBps(rt.WeekendSurchargeBps)
		breakdown = append(breakdown, newLineItem("Weekend surcharge", next.Sub(subtotal)))
		subtotal = next
	}
	if facts.IsHoliday && rt.HolidaySurchargeBps > 0 {
		next := subtotal.SurchargeBps(rt.HolidaySurchargeBps)
		breakdown = append(breakdown, newLineItem("Holiday surcharge", next.Sub(subtotal)))
		subtotal = next
	}

	// Discount deliberately lands after the surcharges: volume is rewarded
	// regardless of timing premium.
	if rt.LargeGroupThreshold > 0 && in.PartySize >= rt.LargeGroupThreshold && rt.LargeGroupDiscountBps > 0 {
		next := subtotal.DiscountBps(rt.LargeGroupDiscountBps)
		breakdown = append(breakdown, newLineItem("Large group discount", next.Sub(subtotal)))
		subtotal = next
	}

	addOnTotal := Cents(0)
	tbd := Cents(0)
	for _, code := range sortedCodes(in.SelectedAddOns) {
		addOn, err := rt.AddOn(code)
		if err != nil {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnknownAddOn, code)
		}
		cost := addOn.Flat.Add(addOn.PerPerson.MulInt(int64(in.PartySize)))
		if !cost.IsZero() {
			addOnTotal = addOnTotal.Add(cost)
			breakdown = append(breakdown, newLineItem(addOn.Label, cost))
		}
		if addOn.WineryStop {
			tbd = tbd.Add(addOn.TastingFeePerGuest.MulInt(int64(in.PartySize)))
		}
	}

	tourServices := subtotal.Add(addOnTotal)

	days := (bucket + minutesPerDay - 1) / minutesPerDay
	if days < 1 {
		days = 1
	}
	tbd = tbd.Add(rt.AvgMealCostPerGuest.MulInt(int64(in.PartySize) * int64(rt.MealsPerDay) * int64(days)))

	tax := tourServices.MulBps(rt.TaxRateBps)
	breakdown = append(breakdown, newLineItem("Tax", tax))

	return Quote{
		RateTableVersion:     rt.Version,
		TourServicesSubtotal: tourServices,
		TBDEstimate:          tbd,
		TaxAmount:            tax,
		Total:                tourServices.Add(tax),
		DepositAmount:        tourServices.MulBps(rt.DepositBps),
		Breakdown:            breakdown,
	}, nil
}

const minutesPerDay = 24 * 60

func formatBucket(minutes int) string {
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}

// add-ons priced in stable order so the breakdown is deterministic
func sortedCodes(codes []string) []string {
	out := make([]string, len(codes))
	copy(out, codes)
	sort.Strings(out)
	return out
}
