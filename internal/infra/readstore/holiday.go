package readstore

import (
	"context"
	"time"

	"tourops-engine/internal/infra/db"
	"tourops-engine/internal/infra/repository"
)

type HolidayReadStore struct {
	db db.DBTX
}

func NewHolidayReadStore(dbtx db.DBTX) *HolidayReadStore {
	return &HolidayReadStore{db: dbtx}
}

func (r *HolidayReadStore) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM holidays WHERE holiday_date = $1)`,
		date.Format("2006-01-02"),
	).Scan(&exists)
	if err != nil {
		return false, repository.MapPgErr("failed to look up holiday", err)
	}
	return exists, nil
}
