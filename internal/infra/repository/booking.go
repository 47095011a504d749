package repository

import (
	"context"
	"time"

	"tourops-engine/internal/domain/booking"
	"tourops-engine/internal/infra"
	"tourops-engine/internal/infra/db"

	"github.com/google/uuid"
)

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(dbtx db.DBTX) *BookingRepository {
	return &BookingRepository{db: dbtx}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	req := b.Request()
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (
			id, status, service_type, start_at, duration_min, party_size,
			driver_id, vehicle_id, add_ons, current_quote_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID(), b.Status().String(), req.ServiceType().String(), req.Start(), req.DurationMin(),
		req.PartySize(), req.DriverID(), req.VehicleID(), req.AddOns(), b.CurrentQuoteVersion(),
	)
	if err != nil {
		return MapPgErr("failed to create booking", err)
	}
	return nil
}

// FindByIDForUpdate loads the booking and locks its row until commit, which
// serializes quote version assignment for concurrent edits of one booking.
func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, status, service_type, start_at, duration_min, party_size,
		       driver_id, vehicle_id, add_ons, current_quote_version, created_at, updated_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE`,
		id,
	)

	var (
		bookingID    uuid.UUID
		status       string
		serviceType  string
		startAt      time.Time
		durationMin  int
		partySize    int
		driverID     uuid.NullUUID
		vehicleID    uuid.NullUUID
		addOns       []string
		currentQuote int32
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(
		&bookingID, &status, &serviceType, &startAt, &durationMin, &partySize,
		&driverID, &vehicleID, &addOns, &currentQuote, &createdAt, &updatedAt,
	); err != nil {
		return nil, MapPgErr("failed to find booking for update", err)
	}

	req := booking.ReconstructRequest(
		startAt, durationMin, partySize, booking.ServiceType(serviceType),
		nullableID(driverID), nullableID(vehicleID), addOns,
	)
	return booking.Reconstruct(bookingID, booking.Status(status), req, currentQuote, createdAt, updatedAt), nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	req := b.Request()
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, service_type = $3, start_at = $4, duration_min = $5,
		    party_size = $6, driver_id = $7, vehicle_id = $8, add_ons = $9,
		    current_quote_version = $10, updated_at = now()
		WHERE id = $1`,
		b.ID(), b.Status().String(), req.ServiceType().String(), req.Start(), req.DurationMin(),
		req.PartySize(), req.DriverID(), req.VehicleID(), req.AddOns(), b.CurrentQuoteVersion(),
	)
	if err != nil {
		return MapPgErr("failed to update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking not found on update", nil, infra.KindNotFound)
	}
	return nil
}

func nullableID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
