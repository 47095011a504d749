package response

import (
	"time"

	"tourops-engine/internal/domain/pricing"
	"tourops-engine/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingResponse struct {
	ID                  uuid.UUID          `json:"id"`
	Status              string             `json:"status"`
	ServiceType         string             `json:"serviceType"`
	StartAt             time.Time          `json:"startAt"`
	DurationMin         int                `json:"durationMin"`
	PartySize           int                `json:"partySize"`
	DriverID            *uuid.UUID         `json:"driverId,omitempty"`
	VehicleID           *uuid.UUID         `json:"vehicleId,omitempty"`
	AddOns              []string           `json:"addOns"`
	CurrentQuoteVersion int32              `json:"currentQuoteVersion"`
	Quote               pricing.QuoteCents `json:"quote"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func FromBookingView(rm *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:                  rm.ID,
		Status:              rm.Status,
		ServiceType:         rm.ServiceType,
		StartAt:             rm.StartAt,
		DurationMin:         rm.DurationMin,
		PartySize:           rm.PartySize,
		DriverID:            rm.DriverID,
		VehicleID:           rm.VehicleID,
		AddOns:              rm.AddOns,
		CurrentQuoteVersion: rm.CurrentQuoteVersion,
		Quote:               rm.Quote,
		CreatedAt:           rm.CreatedAt,
		UpdatedAt:           rm.UpdatedAt,
	}
}

type QuoteVersionResponse struct {
	Version   int32              `json:"version"`
	Quote     pricing.QuoteCents `json:"quote"`
	Reason    string             `json:"reason"`
	CreatedAt time.Time          `json:"createdAt"`
}

func FromQuoteVersionView(rm *queries.QuoteVersionView) *QuoteVersionResponse {
	return &QuoteVersionResponse{
		Version:   rm.Version,
		Quote:     rm.Quote,
		Reason:    rm.Reason,
		CreatedAt: rm.CreatedAt,
	}
}

type QuoteResponse struct {
	RateTableVersion int32              `json:"rateTableVersion"`
	Quote            pricing.QuoteCents `json:"quote"`
}

func FromQuote(q *pricing.Quote) *QuoteResponse {
	return &QuoteResponse{
		RateTableVersion: q.RateTableVersion,
		Quote:            q.ToCents(),
	}
}

type IntervalResponse struct {
	BookingID    uuid.UUID `json:"bookingId"`
	ResourceType string    `json:"resourceType"`
	ResourceID   uuid.UUID `json:"resourceId"`
	StartAt      time.Time `json:"startAt"`
	EndAt        time.Time `json:"endAt"`
}

type ResourceAvailabilityResponse struct {
	ResourceType string             `json:"resourceType"`
	ResourceID   uuid.UUID          `json:"resourceId"`
	Available    bool               `json:"available"`
	Conflicts    []IntervalResponse `json:"conflicts,omitempty"`
}

type AvailabilityResponse struct {
	Available bool                           `json:"available"`
	Resources []ResourceAvailabilityResponse `json:"resources"`
}

func FromAvailabilityView(rm *queries.AvailabilityView) *AvailabilityResponse {
	out := &AvailabilityResponse{Available: rm.Available}
	for _, r := range rm.Resources {
		out.Resources = append(out.Resources, toResourceAvailability(r))
	}
	return out
}

func toResourceAvailability(r queries.ResourceAvailabilityView) ResourceAvailabilityResponse {
	res := ResourceAvailabilityResponse{
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Available:    r.Available,
	}
	for _, iv := range r.Conflicts {
		res.Conflicts = append(res.Conflicts, IntervalResponse{
			BookingID:    iv.BookingID,
			ResourceType: iv.ResourceType,
			ResourceID:   iv.ResourceID,
			StartAt:      iv.StartAt,
			EndAt:        iv.EndAt,
		})
	}
	return res
}

// ConflictDetail is the 409 payload enumerating which resources collided.
func ConflictDetail(resources []queries.ResourceAvailabilityView) []ResourceAvailabilityResponse {
	out := make([]ResourceAvailabilityResponse, 0, len(resources))
	for _, r := range resources {
		out = append(out, toResourceAvailability(r))
	}
	return out
}
