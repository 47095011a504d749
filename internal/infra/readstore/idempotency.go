package readstore

import (
	"context"
	"time"

	"tourops-engine/internal/infra/db"
	"tourops-engine/internal/infra/repository"

	"github.com/google/uuid"
)

type IdempotencyReadStore struct {
	db db.DBTX
}

func NewIdempotencyReadStore(dbtx db.DBTX) *IdempotencyReadStore {
	return &IdempotencyReadStore{db: dbtx}
}

type IdempotencyRow struct {
	Key             uuid.UUID
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
}

func (r *IdempotencyReadStore) Get(ctx context.Context, key uuid.UUID) (*IdempotencyRow, error) {
	row := r.db.QueryRow(ctx, `
		SELECT key, status, request_hash, result_booking_id, expires_at
		FROM idempotency_keys
		WHERE key = $1`,
		key,
	)

	var (
		rec      IdempotencyRow
		resultID uuid.NullUUID
	)
	if err := row.Scan(&rec.Key, &rec.Status, &rec.RequestHash, &resultID, &rec.ExpiresAt); err != nil {
		return nil, repository.MapPgErr("failed to find idempotency key", err)
	}
	if resultID.Valid {
		v := resultID.UUID
		rec.ResultBookingID = &v
	}
	return &rec, nil
}
