package repository

import (
	"context"
	"encoding/json"

	"tourops-engine/internal/domain/booking"
	"tourops-engine/internal/infra/db"
)

// QuoteVersionRepository is write-only by design: the ledger is append-only
// and history is served by the read store.
type QuoteVersionRepository struct {
	db db.DBTX
}

func NewQuoteVersionRepository(dbtx db.DBTX) *QuoteVersionRepository {
	return &QuoteVersionRepository{db: dbtx}
}

func (r *QuoteVersionRepository) Append(ctx context.Context, qv booking.QuoteVersion) error {
	payload, err := json.Marshal(qv.Quote)
	if err != nil {
		return MapPgErr("failed to marshal quote snapshot", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO quote_versions (booking_id, version, quote, reason)
		VALUES ($1, $2, $3, $4)`,
		qv.BookingID, qv.Version, payload, qv.Reason,
	)
	if err != nil {
		return MapPgErr("failed to append quote version", err)
	}
	return nil
}
