package booking

import (
	"errors"
	"time"

	"tourops-engine/internal/domain/pricing"
	"tourops-engine/internal/domain/schedule"

	"github.com/google/uuid"
)

var (
	ErrAlreadyCancelled = errors.New("booking is cancelled")
	ErrNotConfirmed     = errors.New("booking is not confirmed")
)

// Booking is the durable aggregate. It is the only entity mutated across
// time (status transitions, window changes), and every mutation that changes
// the price appends a quote version instead of discarding the prior one.
type Booking struct {
	id                  uuid.UUID
	status              Status
	request             Request
	currentQuoteVersion int32
	resources           []schedule.ResourceRef
	createdAt           time.Time
	updatedAt           time.Time
}

// NewConfirmedBooking creates the aggregate in its committed form; the
// coordinator only constructs it once availability has been re-checked
// inside the reservation transaction.
func NewConfirmedBooking(req Request) *Booking {
	return &Booking{
		id:                  uuid.New(),
		status:              StatusConfirmed,
		request:             req,
		currentQuoteVersion: 1,
		resources:           req.Resources(),
	}
}

func Reconstruct(
	id uuid.UUID,
	status Status,
	req Request,
	currentQuoteVersion int32,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:                  id,
		status:              status,
		request:             req,
		currentQuoteVersion: currentQuoteVersion,
		resources:           req.Resources(),
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

func (b *Booking) ID() uuid.UUID              { return b.id }
func (b *Booking) Status() Status             { return b.status }
func (b *Booking) Request() Request           { return b.request }
func (b *Booking) CurrentQuoteVersion() int32 { return b.currentQuoteVersion }
func (b *Booking) CreatedAt() time.Time       { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time       { return b.updatedAt }

func (b *Booking) Resources() []schedule.ResourceRef {
	out := make([]schedule.ResourceRef, len(b.resources))
	copy(out, b.resources)
	return out
}

func (b *Booking) IsActive() bool {
	return b.status == StatusConfirmed
}

func (b *Booking) IsCancelled() bool {
	return b.status == StatusCancelled
}

// Reschedule swaps in the new request and bumps the quote version. Only a
// confirmed booking can be edited.
func (b *Booking) Reschedule(req Request) (int32, error) {
	if b.status != StatusConfirmed {
		return 0, ErrNotConfirmed
	}
	b.request = req
	b.resources = req.Resources()
	b.currentQuoteVersion++
	return b.currentQuoteVersion, nil
}

// Cancel transitions to cancelled. Cancelling twice is a no-op: the second
// call reports no change and no error.
func (b *Booking) Cancel() (changed bool) {
	if b.status == StatusCancelled {
		return false
	}
	b.status = StatusCancelled
	return true
}

// QuoteVersion is one immutable entry of the append-only quote ledger.
// Versions are strictly increasing per booking and never deleted.
type QuoteVersion struct {
	BookingID uuid.UUID
	Version   int32
	Quote     pricing.QuoteCents
	Reason    string
	CreatedAt time.Time
}
