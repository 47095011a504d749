package repository

import (
	"context"
	"time"

	"tourops-engine/internal/domain/schedule"
	"tourops-engine/internal/infra/db"

	"github.com/google/uuid"
)

type IntervalRepository struct {
	db db.DBTX
}

func NewIntervalRepository(dbtx db.DBTX) *IntervalRepository {
	return &IntervalRepository{db: dbtx}
}

func (r *IntervalRepository) LoadByResource(ctx context.Context, res schedule.ResourceRef) ([]schedule.Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, start_at, end_at
		FROM resource_intervals
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY start_at`,
		string(res.Type), res.ID,
	)
	if err != nil {
		return nil, MapPgErr("failed to load resource intervals", err)
	}
	defer rows.Close()

	var intervals []schedule.Interval
	for rows.Next() {
		var (
			id        uuid.UUID
			bookingID uuid.UUID
			startAt   time.Time
			endAt     time.Time
		)
		if err := rows.Scan(&id, &bookingID, &startAt, &endAt); err != nil {
			return nil, MapPgErr("failed to scan resource interval", err)
		}
		w, err := schedule.NewWindow(startAt, endAt)
		if err != nil {
			return nil, MapPgErr("stored interval has invalid window", err)
		}
		intervals = append(intervals, schedule.Interval{
			ID:        id,
			BookingID: bookingID,
			Resource:  res,
			Window:    w,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, MapPgErr("failed to iterate resource intervals", err)
	}
	return intervals, nil
}

// Insert persists holds with span = [start, end + buffer), so the exclusion
// constraint enforces the same buffer-inclusive rule the checker applies.
func (r *IntervalRepository) Insert(ctx context.Context, intervals []schedule.Interval, buffer time.Duration) error {
	for _, iv := range intervals {
		_, err := r.db.Exec(ctx, `
			INSERT INTO resource_intervals (
				id, booking_id, resource_type, resource_id, start_at, end_at, span
			) VALUES ($1, $2, $3, $4, $5, $6,
				tstzrange($5, $6 + make_interval(secs => $7), '[)'))`,
			iv.ID, iv.BookingID, string(iv.Resource.Type), iv.Resource.ID,
			iv.Window.Start(), iv.Window.End(), buffer.Seconds(),
		)
		if err != nil {
			return MapPgErr("failed to insert resource interval", err)
		}
	}
	return nil
}

func (r *IntervalRepository) DeleteByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM resource_intervals WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, MapPgErr("failed to release resource intervals", err)
	}
	return tag.RowsAffected(), nil
}
