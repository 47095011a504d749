package builder

import (
	"time"

	"tourops-engine/internal/domain/booking"

	"github.com/google/uuid"
)

// BookingRequestBuilder assembles a valid booking request and lets tests
// mutate exactly one knob per case.
type BookingRequestBuilder struct {
	start       time.Time
	durationMin int
	partySize   int
	serviceType booking.ServiceType
	driverID    *uuid.UUID
	vehicleID   *uuid.UUID
	addOns      []string
	now         time.Time
}

func NewBookingRequestBuilder() *BookingRequestBuilder {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	driverID := uuid.New()
	vehicleID := uuid.New()
	return &BookingRequestBuilder{
		start:       now.Add(48 * time.Hour),
		durationMin: 360,
		partySize:   4,
		serviceType: booking.ServiceTour,
		driverID:    &driverID,
		vehicleID:   &vehicleID,
		now:         now,
	}
}

func (b *BookingRequestBuilder) WithStart(start time.Time) *BookingRequestBuilder {
	b.start = start
	return b
}

func (b *BookingRequestBuilder) WithDuration(minutes int) *BookingRequestBuilder {
	b.durationMin = minutes
	return b
}

func (b *BookingRequestBuilder) WithPartySize(size int) *BookingRequestBuilder {
	b.partySize = size
	return b
}

func (b *BookingRequestBuilder) WithServiceType(t booking.ServiceType) *BookingRequestBuilder {
	b.serviceType = t
	return b
}

func (b *BookingRequestBuilder) WithDriver(id *uuid.UUID) *BookingRequestBuilder {
	b.driverID = id
	return b
}

func (b *BookingRequestBuilder) WithVehicle(id *uuid.UUID) *BookingRequestBuilder {
	b.vehicleID = id
	return b
}

func (b *BookingRequestBuilder) WithAddOns(codes ...string) *BookingRequestBuilder {
	b.addOns = codes
	return b
}

func (b *BookingRequestBuilder) WithNow(now time.Time) *BookingRequestBuilder {
	b.now = now
	return b
}

func (b *BookingRequestBuilder) Build() (booking.Request, error) {
	return booking.NewRequest(
		b.start, b.durationMin, b.partySize, b.serviceType,
		b.driverID, b.vehicleID, b.addOns, b.now,
	)
}
