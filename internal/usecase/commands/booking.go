package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"tourops-engine/internal/domain/booking"
	"tourops-engine/internal/domain/pricing"
	"tourops-engine/internal/domain/schedule"
	"tourops-engine/internal/infra"
	"tourops-engine/internal/pkg/clock"
	"tourops-engine/internal/pkg/errs"
	"tourops-engine/internal/usecase/queries"
	"tourops-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrValidation              = errs.New("booking validation error")
	ErrBookingConflict         = errs.New("booking conflict")
	ErrBookingNotFound         = errs.New("booking not found")
	ErrBookingCancelled        = errs.New("booking is cancelled")
	ErrDuplicateSubmission     = errs.New("duplicate submission")
	ErrIdempotencyInProgress   = errs.New("submission in progress")
	ErrIdempotencyCheckFailed  = errs.New("idempotency check failed")
	ErrRateTableUnavailable    = errs.New("rate table unavailable")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

const (
	idempotencyTTL = 24 * time.Hour
	eventQueueSize = 64
)

// ConflictError carries per-resource diagnostics so the caller can offer
// substitutes. It unwraps to ErrBookingConflict.
type ConflictError struct {
	Resources []queries.ResourceAvailabilityView
}

func (e *ConflictError) Error() string {
	return "booking conflict"
}

func (e *ConflictError) Unwrap() error {
	return ErrBookingConflict
}

func newConflictError(result schedule.CheckResult) *ConflictError {
	ce := &ConflictError{}
	for _, v := range result.Resources {
		if v.Available {
			continue
		}
		view := queries.ResourceAvailabilityView{
			ResourceType: string(v.Resource.Type),
			ResourceID:   v.Resource.ID,
			Available:    false,
		}
		for _, iv := range v.Conflicts {
			view.Conflicts = append(view.Conflicts, queries.IntervalView{
				BookingID:    iv.BookingID,
				ResourceType: string(iv.Resource.Type),
				ResourceID:   iv.Resource.ID,
				StartAt:      iv.Window.Start(),
				EndAt:        iv.Window.End(),
			})
		}
		ce.Resources = append(ce.Resources, view)
	}
	return ce
}

// SubmitBookingInput is the transport-agnostic booking request.
type SubmitBookingInput struct {
	Start       time.Time  `json:"start"`
	DurationMin int        `json:"duration_min"`
	PartySize   int        `json:"party_size"`
	ServiceType string     `json:"service_type"`
	DriverID    *uuid.UUID `json:"driver_id"`
	VehicleID   *uuid.UUID `json:"vehicle_id"`
	AddOns      []string   `json:"add_ons"`
}

type SubmitBookingResult struct {
	Booking    *queries.BookingView
	IsReplayed bool
}

type BookingCommands interface {
	Submit(ctx context.Context, in SubmitBookingInput, idempotencyKey uuid.UUID) (*SubmitBookingResult, error)
	Edit(ctx context.Context, bookingID uuid.UUID, in SubmitBookingInput) (*queries.BookingView, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) (*queries.BookingView, error)
}

type bookingUseCaseImpl struct {
	uow            shared.UnitOfWork
	rates          shared.RateSource
	calendar       shared.HolidayCalendar
	publisher      shared.EventPublisher
	bookingQueries queries.BookingQueries
	checker        schedule.Checker
	clock          clock.Clock
	loc            *time.Location
	events         chan eventJob
}

type eventJob struct {
	ctx context.Context
	evt shared.BookingEvent
}

func NewBookingUseCase(
	uow shared.UnitOfWork,
	rates shared.RateSource,
	calendar shared.HolidayCalendar,
	publisher shared.EventPublisher,
	bookingQueries queries.BookingQueries,
	buffer time.Duration,
	clk clock.Clock,
	loc *time.Location,
) BookingCommands {
	u := &bookingUseCaseImpl{
		uow:            uow,
		rates:          rates,
		calendar:       calendar,
		publisher:      publisher,
		bookingQueries: bookingQueries,
		checker:        schedule.NewChecker(buffer),
		clock:          clk,
		loc:            loc,
	}
	if publisher != nil {
		u.events = make(chan eventJob, eventQueueSize)
		go u.publishLoop()
	}
	return u
}

// Submit runs check-then-reserve-then-price as one atomic unit. The
// availability verdict from any earlier read is not trusted: the check is
// redone under the per-resource locks inside the reservation transaction.
func (u *bookingUseCaseImpl) Submit(ctx context.Context, in SubmitBookingInput, idempotencyKey uuid.UUID) (*SubmitBookingResult, error) {
	req, err := u.toDomainRequest(in)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	replayed, err := u.claimIdempotencyKey(ctx, idempotencyKey, in)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		return &SubmitBookingResult{Booking: replayed, IsReplayed: true}, nil
	}

	rt, facts, err := u.loadPricingContext(ctx, req)
	if err != nil {
		return nil, err
	}

	window, err := req.Window()
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	var created *booking.Booking
	err = u.uow.WithinResources(ctx, resourceKeys(req.Resources()), func(ctx context.Context, tx shared.Tx) error {
		result, err := u.checkAvailability(ctx, tx, req.Resources(), window, uuid.Nil)
		if err != nil {
			return err
		}
		if !result.Available {
			// cheap short-circuit: conflicts are reported without pricing
			return newConflictError(result)
		}

		quote, err := pricing.ComputeQuote(quoteInput(req), rt, facts)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}

		created = booking.NewConfirmedBooking(req)
		if err := tx.Bookings().Create(ctx, created); err != nil {
			return err
		}
		if err := tx.Intervals().Insert(ctx, buildIntervals(created), u.checker.Buffer); err != nil {
			return err
		}
		if err := tx.QuoteVersions().Append(ctx, booking.QuoteVersion{
			BookingID: created.ID(),
			Version:   1,
			Quote:     quote.ToCents(),
			Reason:    "initial quote",
		}); err != nil {
			return err
		}
		return tx.Idempotency().MarkCompleted(ctx, idempotencyKey, created.ID())
	})
	if err != nil {
		return nil, u.mapTxError(err)
	}

	view, err := u.bookingQueries.GetByID(ctx, created.ID())
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	u.dispatchEvent(ctx, created.ID(), booking.EventSubmitted, &view.Quote)
	return &SubmitBookingResult{Booking: view}, nil
}

// Edit re-runs check+price+reserve against the new window, releasing the old
// intervals inside the same transaction so the booking never conflicts with
// its own prior hold.
func (u *bookingUseCaseImpl) Edit(ctx context.Context, bookingID uuid.UUID, in SubmitBookingInput) (*queries.BookingView, error) {
	req, err := u.toDomainRequest(in)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	snap, err := u.uow.CommandReads().BookingByID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if snap.Status == booking.StatusCancelled.String() {
		return nil, ErrBookingCancelled
	}

	rt, facts, err := u.loadPricingContext(ctx, req)
	if err != nil {
		return nil, err
	}

	window, err := req.Window()
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	lockKeys := mergeKeys(snap.ResourceKeys, resourceKeys(req.Resources()))

	err = u.uow.WithinResources(ctx, lockKeys, func(ctx context.Context, tx shared.Tx) error {
		bk, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if bk.IsCancelled() {
			return ErrBookingCancelled
		}
		// A concurrent edit may have moved the booking onto resources we did
		// not lock; surface it as a retryable conflict rather than proceeding
		// with a hole in the locking.
		if !keysCovered(resourceKeys(bk.Resources()), lockKeys) {
			return ErrBookingConflict
		}

		if _, err := tx.Intervals().DeleteByBooking(ctx, bookingID); err != nil {
			return err
		}

		result, err := u.checkAvailability(ctx, tx, req.Resources(), window, bookingID)
		if err != nil {
			return err
		}
		if !result.Available {
			return newConflictError(result)
		}

		quote, err := pricing.ComputeQuote(quoteInput(req), rt, facts)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}

		version, err := bk.Reschedule(req)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}
		if err := tx.Bookings().Update(ctx, bk); err != nil {
			return err
		}
		if err := tx.Intervals().Insert(ctx, buildIntervals(bk), u.checker.Buffer); err != nil {
			return err
		}
		return tx.QuoteVersions().Append(ctx, booking.QuoteVersion{
			BookingID: bookingID,
			Version:   version,
			Quote:     quote.ToCents(),
			Reason:    "booking edited",
		})
	})
	if err != nil {
		return nil, u.mapTxError(err)
	}

	view, err := u.bookingQueries.GetByID(ctx, bookingID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	u.dispatchEvent(ctx, bookingID, booking.EventEdited, &view.Quote)
	return view, nil
}

// Cancel releases the booking's intervals and marks it cancelled. The record
// and the full quote ledger survive; cancelling twice is a clean no-op.
func (u *bookingUseCaseImpl) Cancel(ctx context.Context, bookingID uuid.UUID) (*queries.BookingView, error) {
	var cancelled bool
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		bk, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if !bk.Cancel() {
			return nil // already cancelled; idempotent
		}
		cancelled = true

		if _, err := tx.Intervals().DeleteByBooking(ctx, bookingID); err != nil {
			return err
		}
		return tx.Bookings().Update(ctx, bk)
	})
	if err != nil {
		return nil, u.mapTxError(err)
	}

	view, err := u.bookingQueries.GetByID(ctx, bookingID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if cancelled {
		u.dispatchEvent(ctx, bookingID, booking.EventCancelled, nil)
	}
	return view, nil
}

func (u *bookingUseCaseImpl) toDomainRequest(in SubmitBookingInput) (booking.Request, error) {
	return booking.NewRequest(
		in.Start,
		in.DurationMin,
		in.PartySize,
		booking.ServiceType(in.ServiceType),
		in.DriverID,
		in.VehicleID,
		in.AddOns,
		u.clock.Now(),
	)
}

// claimIdempotencyKey returns the stored view when the key was already
// completed; nil means the key is ours and the submission should proceed.
func (u *bookingUseCaseImpl) claimIdempotencyKey(ctx context.Context, key uuid.UUID, in SubmitBookingInput) (*queries.BookingView, error) {
	requestHash := calculateRequestHash(in)
	expiresAt := u.clock.Now().Add(idempotencyTTL)

	var claimed bool
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		claimed, err = tx.Idempotency().TryInsert(ctx, key, "POST /bookings", requestHash, expiresAt)
		return err
	})
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}
	if claimed {
		return nil, nil
	}

	existing, err := u.uow.CommandReads().IdempotencyByKey(ctx, key)
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}

	switch existing.Status {
	case "completed":
		if existing.ResultBookingID == nil {
			return nil, errs.New("completed idempotency key missing result booking ID")
		}
		return u.bookingQueries.GetByID(ctx, *existing.ResultBookingID)
	case "processing":
		if existing.RequestHash != requestHash {
			return nil, ErrDuplicateSubmission
		}
		return nil, ErrIdempotencyInProgress
	default:
		return nil, errs.Mark(errs.New("invalid idempotency key status"), ErrIdempotencyCheckFailed)
	}
}

func (u *bookingUseCaseImpl) loadPricingContext(ctx context.Context, req booking.Request) (pricing.RateTable, pricing.CalendarFacts, error) {
	rt, err := u.rates.ActiveRateTable(ctx)
	if err != nil {
		return pricing.RateTable{}, pricing.CalendarFacts{}, errs.Mark(err, ErrRateTableUnavailable)
	}

	isHoliday, err := u.calendar.IsHoliday(ctx, req.DateIn(u.loc))
	if err != nil {
		return pricing.RateTable{}, pricing.CalendarFacts{}, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return rt, pricing.CalendarFacts{
		IsWeekend: req.IsWeekend(u.loc),
		IsHoliday: isHoliday,
	}, nil
}

func (u *bookingUseCaseImpl) checkAvailability(
	ctx context.Context,
	tx shared.Tx,
	resources []schedule.ResourceRef,
	window schedule.Window,
	excludeBooking uuid.UUID,
) (schedule.CheckResult, error) {
	verdicts := make([]schedule.ResourceAvailability, 0, len(resources))
	for _, res := range resources {
		existing, err := tx.Intervals().LoadByResource(ctx, res)
		if err != nil {
			return schedule.CheckResult{}, err
		}
		verdicts = append(verdicts, u.checker.Check(res, existing, window, excludeBooking))
	}
	return u.checker.CheckAll(verdicts...), nil
}

// mapTxError folds store-level conflict signals (exclusion violation from a
// racing writer, lock wait timeout) into the conflict taxonomy; everything
// else unexpected becomes a persistence failure.
func (u *bookingUseCaseImpl) mapTxError(err error) error {
	switch {
	case err == nil:
		return nil
	case errs.IsAny(err, ErrBookingConflict, ErrBookingNotFound, ErrBookingCancelled, ErrValidation,
		ErrDuplicateSubmission, ErrIdempotencyInProgress, ErrRateTableUnavailable):
		return err
	case infra.IsKind(err, infra.KindConflict), infra.IsKind(err, infra.KindLockTimeout):
		return errs.Mark(err, ErrBookingConflict)
	default:
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
}

// dispatchEvent is fire-and-forget: the job is queued for the publish worker
// and delivery failures are logged, never propagated. A single worker drains
// the queue, so events reach the broker in the order their transactions
// committed.
func (u *bookingUseCaseImpl) dispatchEvent(ctx context.Context, bookingID uuid.UUID, eventType booking.EventType, quote *pricing.QuoteCents) {
	if u.events == nil {
		return
	}
	job := eventJob{
		ctx: context.WithoutCancel(ctx),
		evt: shared.BookingEvent{BookingID: bookingID, EventType: eventType, Quote: quote},
	}
	select {
	case u.events <- job:
	default:
		slog.Warn("booking event queue full, dropping event",
			"booking_id", bookingID.String(),
			"event_type", string(eventType))
	}
}

func (u *bookingUseCaseImpl) publishLoop() {
	for job := range u.events {
		if err := u.publisher.PublishBookingEvent(job.ctx, job.evt); err != nil {
			slog.Warn("failed to publish booking event",
				"booking_id", job.evt.BookingID.String(),
				"event_type", string(job.evt.EventType),
				"error", err.Error())
		}
	}
}

func quoteInput(req booking.Request) pricing.QuoteInput {
	return pricing.QuoteInput{
		DurationMin:    req.DurationMin(),
		PartySize:      req.PartySize(),
		SelectedAddOns: req.AddOns(),
	}
}

func buildIntervals(bk *booking.Booking) []schedule.Interval {
	window, err := bk.Request().Window()
	if err != nil {
		// Request was validated on construction; an invalid window here is a bug.
		panic(err)
	}
	resources := bk.Resources()
	intervals := make([]schedule.Interval, 0, len(resources))
	for _, res := range resources {
		intervals = append(intervals, schedule.Interval{
			ID:        uuid.New(),
			BookingID: bk.ID(),
			Resource:  res,
			Window:    window,
		})
	}
	return intervals
}

func resourceKeys(resources []schedule.ResourceRef) []string {
	keys := make([]string, 0, len(resources))
	for _, res := range resources {
		keys = append(keys, res.Key())
	}
	sort.Strings(keys)
	return keys
}

func mergeKeys(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, k := range append(append([]string{}, a...), b...) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func keysCovered(needed, held []string) bool {
	heldSet := make(map[string]struct{}, len(held))
	for _, k := range held {
		heldSet[k] = struct{}{}
	}
	for _, k := range needed {
		if _, ok := heldSet[k]; !ok {
			return false
		}
	}
	return true
}

func calculateRequestHash(in SubmitBookingInput) string {
	data, _ := json.Marshal(in)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
