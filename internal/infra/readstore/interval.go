package readstore

import (
	"context"
	"time"

	"tourops-engine/internal/domain/schedule"
	"tourops-engine/internal/infra/db"
	"tourops-engine/internal/infra/repository"

	"github.com/google/uuid"
)

type IntervalReadStore struct {
	db db.DBTX
}

func NewIntervalReadStore(dbtx db.DBTX) *IntervalReadStore {
	return &IntervalReadStore{db: dbtx}
}

// ListByResource returns service spans only; the checker re-applies the
// buffer on its side.
func (r *IntervalReadStore) ListByResource(ctx context.Context, res schedule.ResourceRef) ([]schedule.Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, start_at, end_at
		FROM resource_intervals
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY start_at`,
		string(res.Type), res.ID,
	)
	if err != nil {
		return nil, repository.MapPgErr("failed to list resource intervals", err)
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
			return nil, repository.MapPgErr("failed to scan resource interval", err)
		}
		w, err := schedule.NewWindow(startAt, endAt)
		if err != nil {
			return nil, repository.MapPgErr("stored interval has invalid window", err)
		}
		intervals = append(intervals, schedule.Interval{
			ID:        id,
			BookingID: bookingID,
			Resource:  res,
			Window:    w,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgErr("failed to iterate resource intervals", err)
	}
	return intervals, nil
}
