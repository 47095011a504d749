package repository

import (
	"context"
	"time"

	"tourops-engine/internal/infra/db"

	"github.com/google/uuid"
)

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(dbtx db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx}
}

// TryInsert claims the key if it is new; an existing key is left untouched
// and resolved by the caller through a follow-up read.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, key uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO idempotency_keys (key, endpoint, request_hash, status, expires_at)
		VALUES ($1, $2, $3, 'processing', $4)
		ON CONFLICT (key) DO NOTHING`,
		key, endpoint, requestHash, expiresAt,
	)
	if err != nil {
		return false, MapPgErr("failed to claim idempotency key", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, key uuid.UUID, resultBookingID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE idempotency_keys
		SET status = 'completed', result_booking_id = $2
		WHERE key = $1`,
		key, resultBookingID,
	)
	if err != nil {
		return MapPgErr("failed to complete idempotency key", err)
	}
	return nil
}
