package shared

import (
	"context"
	"time"

	"tourops-engine/internal/domain/booking"
	"tourops-engine/internal/domain/schedule"
	"tourops-engine/internal/infra/db"

	"github.com/google/uuid"
)

// UnitOfWork is the transactional boundary the coordinator runs against.
// Implementations must guarantee that everything inside fn commits
// atomically or not at all.
type UnitOfWork interface {
	// Within: full transaction for write operations with retry on
	// serialization/deadlock failures.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinResources: like Within, but first serializes on the given
	// resource keys (taken in the order given, which callers keep sorted)
	// so check-then-reserve is atomic per resource. A lock wait that
	// exceeds the deployment's lock timeout surfaces as a conflict.
	WithinResources(ctx context.Context, resourceKeys []string, fn func(ctx context.Context, tx Tx) error) error
	// CommandReads: direct access to command reads for validation outside
	// transactions.
	CommandReads() CommandReads
}

type Tx interface {
	Bookings() BookingRepository
	Intervals() IntervalRepository
	QuoteVersions() QuoteVersionRepository
	Idempotency() IdempotencyRepository
	Reads() CommandReads
	DB() db.DBTX
}

type CommandReads interface {
	BookingByID(ctx context.Context, id uuid.UUID) (*BookingSnapshot, error)
	IdempotencyByKey(ctx context.Context, key uuid.UUID) (*IdempotencyRecord, error)
}

// Minimal snapshot for command read operations
type BookingSnapshot struct {
	ID                  uuid.UUID
	Status              string
	ResourceKeys        []string
	CurrentQuoteVersion int32
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	// FindByIDForUpdate locks the booking row for the rest of the
	// transaction; quote version assignment relies on it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	Update(ctx context.Context, b *booking.Booking) error
}

type IntervalRepository interface {
	// LoadByResource returns the committed intervals of one resource,
	// service spans only (buffer is applied by the checker).
	LoadByResource(ctx context.Context, res schedule.ResourceRef) ([]schedule.Interval, error)
	// Insert persists holds with the turnaround buffer folded into the
	// stored span so the store-level exclusion constraint matches the
	// checker's buffer-inclusive rule.
	Insert(ctx context.Context, intervals []schedule.Interval, buffer time.Duration) error
	DeleteByBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
}

type QuoteVersionRepository interface {
	Append(ctx context.Context, qv booking.QuoteVersion) error
}

type IdempotencyRecord struct {
	Key             uuid.UUID
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
}

type IdempotencyRepository interface {
	// TryInsert claims the key; claimed is false when another submission
	// already holds it.
	TryInsert(ctx context.Context, key uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (claimed bool, err error)
	MarkCompleted(ctx context.Context, key uuid.UUID, resultBookingID uuid.UUID) error
}
