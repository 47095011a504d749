package readstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"tourops-engine/internal/domain/pricing"
	"tourops-engine/internal/domain/schedule"
	"tourops-engine/internal/infra"
	"tourops-engine/internal/infra/db"
	"tourops-engine/internal/infra/repository"
	"tourops-engine/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(dbtx db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: dbtx}
}

// FindByID returns the booking joined with its current quote, so a single
// read serves the detail endpoint.
func (r *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	row := r.db.QueryRow(ctx, `
		SELECT b.id, b.status, b.service_type, b.start_at, b.duration_min,
		       b.party_size, b.driver_id, b.vehicle_id, b.add_ons,
		       b.current_quote_version, qv.quote, b.created_at, b.updated_at
		FROM bookings b
		JOIN quote_versions qv
		  ON qv.booking_id = b.id AND qv.version = b.current_quote_version
		WHERE b.id = $1`,
		id,
	)

	var (
		view      queries.BookingView
		driverID  uuid.NullUUID
		vehicleID uuid.NullUUID
		quoteRaw  []byte
		startAt   time.Time
	)
	err := row.Scan(
		&view.ID, &view.Status, &view.ServiceType, &startAt, &view.DurationMin,
		&view.PartySize, &driverID, &vehicleID, &view.AddOns,
		&view.CurrentQuoteVersion, &quoteRaw, &view.CreatedAt, &view.UpdatedAt,
	)
	if err != nil {
		return nil, repository.MapPgErr("failed to find booking", err)
	}

	view.StartAt = startAt.UTC()
	if driverID.Valid {
		v := driverID.UUID
		view.DriverID = &v
	}
	if vehicleID.Valid {
		v := vehicleID.UUID
		view.VehicleID = &v
	}
	if err := json.Unmarshal(quoteRaw, &view.Quote); err != nil {
		return nil, infra.WrapRepoErr("stored quote is not valid JSON", err)
	}
	return &view, nil
}

// QuoteHistory returns every quote version of the booking, oldest first.
func (r *BookingReadStore) QuoteHistory(ctx context.Context, bookingID uuid.UUID) ([]*queries.QuoteVersionView, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, bookingID,
	).Scan(&exists); err != nil {
		return nil, repository.MapPgErr("failed to check booking existence", err)
	}
	if !exists {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}

	rows, err := r.db.Query(ctx, `
		SELECT version, quote, reason, created_at
		FROM quote_versions
		WHERE booking_id = $1
		ORDER BY version`,
		bookingID,
	)
	if err != nil {
		return nil, repository.MapPgErr("failed to load quote history", err)
	}
	defer rows.Close()

	var history []*queries.QuoteVersionView
	for rows.Next() {
		var (
			v        queries.QuoteVersionView
			quoteRaw []byte
		)
		if err := rows.Scan(&v.Version, &quoteRaw, &v.Reason, &v.CreatedAt); err != nil {
			return nil, repository.MapPgErr("failed to scan quote version", err)
		}
		var quote pricing.QuoteCents
		if err := json.Unmarshal(quoteRaw, &quote); err != nil {
			return nil, infra.WrapRepoErr("stored quote is not valid JSON", err)
		}
		v.Quote = quote
		history = append(history, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgErr("failed to iterate quote history", err)
	}
	return history, nil
}

// BookingSnapshotRow is the minimal projection command validation needs.
type BookingSnapshotRow struct {
	ID                  uuid.UUID
	Status              string
	ResourceKeys        []string
	CurrentQuoteVersion int32
}

func (r *BookingReadStore) Snapshot(ctx context.Context, id uuid.UUID) (*BookingSnapshotRow, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, status, driver_id, vehicle_id, current_quote_version
		FROM bookings
		WHERE id = $1`,
		id,
	)

	var (
		snap      BookingSnapshotRow
		driverID  uuid.NullUUID
		vehicleID uuid.NullUUID
	)
	if err := row.Scan(&snap.ID, &snap.Status, &driverID, &vehicleID, &snap.CurrentQuoteVersion); err != nil {
		return nil, repository.MapPgErr("failed to find booking snapshot", err)
	}

	if driverID.Valid {
		snap.ResourceKeys = append(snap.ResourceKeys,
			schedule.ResourceRef{Type: schedule.ResourceDriver, ID: driverID.UUID}.Key())
	}
	if vehicleID.Valid {
		snap.ResourceKeys = append(snap.ResourceKeys,
			schedule.ResourceRef{Type: schedule.ResourceVehicle, ID: vehicleID.UUID}.Key())
	}
	sort.Strings(snap.ResourceKeys)
	return &snap, nil
}
