package queries

import (
	"time"

	"tourops-engine/internal/domain/pricing"

	"github.com/google/uuid"
)

type BookingView struct {
	ID                  uuid.UUID
	Status              string
	ServiceType         string
	StartAt             time.Time
	DurationMin         int
	PartySize           int
	DriverID            *uuid.UUID
	VehicleID           *uuid.UUID
	AddOns              []string
	CurrentQuoteVersion int32
	Quote               pricing.QuoteCents
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type QuoteVersionView struct {
	Version   int32
	Quote     pricing.QuoteCents
	Reason    string
	CreatedAt time.Time
}

type IntervalView struct {
	BookingID    uuid.UUID
	ResourceType string
	ResourceID   uuid.UUID
	StartAt      time.Time
	EndAt        time.Time
}

type ResourceAvailabilityView struct {
	ResourceType string
	ResourceID   uuid.UUID
	Available    bool
	Conflicts    []IntervalView
}

type AvailabilityView struct {
	Available bool
	Resources []ResourceAvailabilityView
}
