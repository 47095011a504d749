package shared

import (
	"context"
	"time"

	"tourops-engine/internal/domain/booking"
	"tourops-engine/internal/domain/pricing"

	"github.com/google/uuid"
)

// RateSource yields the active rate table snapshot. The snapshot is a value:
// hot reloads between requests never touch an in-flight computation.
type RateSource interface {
	ActiveRateTable(ctx context.Context) (pricing.RateTable, error)
}

// HolidayCalendar resolves whether a calendar date is a configured holiday.
type HolidayCalendar interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// BookingEvent is the domain event emitted to the downstream dispatcher
// after a committed submit/edit/cancel.
type BookingEvent struct {
	BookingID uuid.UUID           `json:"booking_id"`
	EventType booking.EventType   `json:"event_type"`
	Quote     *pricing.QuoteCents `json:"quote,omitempty"`
}

// EventPublisher delivers booking events fire-and-forget; a publish failure
// must never roll back the booking transaction.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, evt BookingEvent) error
}
