package request

import (
	"time"

	"tourops-engine/internal/usecase/commands"
	"tourops-engine/internal/usecase/queries"

	"github.com/google/uuid"
)

type SubmitBookingRequest struct {
	Start       time.Time  `json:"start" binding:"required"`
	DurationMin int        `json:"duration_min" binding:"required,gt=0"`
	PartySize   int        `json:"party_size" binding:"required,gt=0"`
	ServiceType string     `json:"service_type" binding:"required"`
	DriverID    *uuid.UUID `json:"driver_id,omitempty"`
	VehicleID   *uuid.UUID `json:"vehicle_id,omitempty"`
	AddOns      []string   `json:"add_ons,omitempty"`
}

func (r SubmitBookingRequest) ToInput() commands.SubmitBookingInput {
	return commands.SubmitBookingInput{
		Start:       r.Start,
		DurationMin: r.DurationMin,
		PartySize:   r.PartySize,
		ServiceType: r.ServiceType,
		DriverID:    r.DriverID,
		VehicleID:   r.VehicleID,
		AddOns:      r.AddOns,
	}
}

type PricePreviewRequest struct {
	Start       time.Time `json:"start" binding:"required"`
	DurationMin int       `json:"duration_min" binding:"required,gt=0"`
	PartySize   int       `json:"party_size" binding:"required,gt=0"`
	AddOns      []string  `json:"add_ons,omitempty"`
}

func (r PricePreviewRequest) ToInput() queries.PricePreviewInput {
	return queries.PricePreviewInput{
		Start:       r.Start,
		DurationMin: r.DurationMin,
		PartySize:   r.PartySize,
		AddOns:      r.AddOns,
	}
}
