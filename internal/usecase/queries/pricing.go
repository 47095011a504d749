package queries

import (
	"context"
	"time"

	"tourops-engine/internal/domain/pricing"
	"tourops-engine/internal/pkg/errs"
	"tourops-engine/internal/usecase/shared"
)

var ErrRateTableUnavailable = errs.New("rate table unavailable")

// PricePreviewInput prices a prospective tour without touching the schedule;
// no reservation, no mutation.
type PricePreviewInput struct {
	Start       time.Time
	DurationMin int
	PartySize   int
	AddOns      []string
}

type PricingQueries interface {
	PricePreview(ctx context.Context, in PricePreviewInput) (*pricing.Quote, error)
}

type pricingQueriesImpl struct {
	rates    shared.RateSource
	calendar shared.HolidayCalendar
	loc      *time.Location
}

func NewPricingQueries(rates shared.RateSource, calendar shared.HolidayCalendar, loc *time.Location) PricingQueries {
	return &pricingQueriesImpl{rates: rates, calendar: calendar, loc: loc}
}

func (q *pricingQueriesImpl) PricePreview(ctx context.Context, in PricePreviewInput) (*pricing.Quote, error) {
	rt, err := q.rates.ActiveRateTable(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrRateTableUnavailable)
	}

	facts, err := resolveCalendarFacts(ctx, q.calendar, in.Start, q.loc)
	if err != nil {
		return nil, errs.Mark(err, ErrQueryFailed)
	}

	quote, err := pricing.ComputeQuote(pricing.QuoteInput{
		DurationMin:    in.DurationMin,
		PartySize:      in.PartySize,
		SelectedAddOns: in.AddOns,
	}, rt, facts)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// resolveCalendarFacts derives weekend/holiday flags for a start instant in
// the operator's timezone. Shared with the submit path so preview and
// reservation always price identically.
func resolveCalendarFacts(ctx context.Context, calendar shared.HolidayCalendar, start time.Time, loc *time.Location) (pricing.CalendarFacts, error) {
	local := start.In(loc)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	isHoliday, err := calendar.IsHoliday(ctx, date)
	if err != nil {
		return pricing.CalendarFacts{}, err
	}

	wd := local.Weekday()
	return pricing.CalendarFacts{
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
		IsHoliday: isHoliday,
	}, nil
}
