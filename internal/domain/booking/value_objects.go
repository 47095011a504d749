package booking

import (
	"errors"
	"sort"
	"time"

	"tourops-engine/internal/domain/schedule"

	"github.com/google/uuid"
)

var (
	ErrInvalidServiceType   = errors.New("invalid service type")
	ErrInvalidPartySize     = errors.New("party size must be positive")
	ErrDurationNotQuantized = errors.New("duration must be a multiple of 15 minutes")
	ErrInvalidDuration      = errors.New("duration must be positive")
	ErrNoResourceRequested  = errors.New("at least one resource must be requested")
	ErrStartInPast          = errors.New("start time cannot be in the past")
)

// durations are quantized to quarter hours
const durationQuantumMin = 15

// Request is the immutable input of one booking submission: the proposed
// window, party and requested resources. Construct via NewRequest; a changed
// request is a new value.
type Request struct {
	start       time.Time
	durationMin int
	partySize   int
	serviceType ServiceType
	driverID    *uuid.UUID
	vehicleID   *uuid.UUID
	addOns      []string
}

func NewRequest(
	start time.Time,
	durationMin int,
	partySize int,
	serviceType ServiceType,
	driverID, vehicleID *uuid.UUID,
	addOns []string,
	now time.Time,
) (Request, error) {
	switch {
	case !serviceType.IsValid():
		return Request{}, ErrInvalidServiceType
	case partySize <= 0:
		return Request{}, ErrInvalidPartySize
	case durationMin <= 0:
		return Request{}, ErrInvalidDuration
	case durationMin%durationQuantumMin != 0:
		return Request{}, ErrDurationNotQuantized
	case driverID == nil && vehicleID == nil:
		return Request{}, ErrNoResourceRequested
	case start.Before(now):
		return Request{}, ErrStartInPast
	}

	sortedAddOns := make([]string, len(addOns))
	copy(sortedAddOns, addOns)
	sort.Strings(sortedAddOns)

	return Request{
		start:       start.UTC(),
		durationMin: durationMin,
		partySize:   partySize,
		serviceType: serviceType,
		driverID:    cloneID(driverID),
		vehicleID:   cloneID(vehicleID),
		addOns:      sortedAddOns,
	}, nil
}

// ReconstructRequest rebuilds a stored request without re-running the
// submission-time checks (a persisted start may now be in the past).
func ReconstructRequest(
	start time.Time,
	durationMin int,
	partySize int,
	serviceType ServiceType,
	driverID, vehicleID *uuid.UUID,
	addOns []string,
) Request {
	return Request{
		start:       start.UTC(),
		durationMin: durationMin,
		partySize:   partySize,
		serviceType: serviceType,
		driverID:    cloneID(driverID),
		vehicleID:   cloneID(vehicleID),
		addOns:      addOns,
	}
}

func (r Request) Start() time.Time         { return r.start }
func (r Request) DurationMin() int         { return r.durationMin }
func (r Request) PartySize() int           { return r.partySize }
func (r Request) ServiceType() ServiceType { return r.serviceType }
func (r Request) DriverID() *uuid.UUID     { return cloneID(r.driverID) }
func (r Request) VehicleID() *uuid.UUID    { return cloneID(r.vehicleID) }

func (r Request) AddOns() []string {
	out := make([]string, len(r.addOns))
	copy(out, r.addOns)
	return out
}

// Window is the service span [start, start+duration); the turnaround buffer
// is applied by the availability checker, not baked in here.
func (r Request) Window() (schedule.Window, error) {
	return schedule.NewWindow(r.start, r.start.Add(time.Duration(r.durationMin)*time.Minute))
}

// Resources lists the requested resources in ascending key order, which is
// also the lock acquisition order.
func (r Request) Resources() []schedule.ResourceRef {
	var refs []schedule.ResourceRef
	if r.driverID != nil {
		refs = append(refs, schedule.ResourceRef{Type: schedule.ResourceDriver, ID: *r.driverID})
	}
	if r.vehicleID != nil {
		refs = append(refs, schedule.ResourceRef{Type: schedule.ResourceVehicle, ID: *r.vehicleID})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key() < refs[j].Key() })
	return refs
}

// IsWeekend reports whether the tour date falls on Saturday or Sunday in
// the operator's timezone.
func (r Request) IsWeekend(loc *time.Location) bool {
	wd := r.start.In(loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DateIn is the calendar date of the tour in the operator's timezone,
// truncated to midnight; the holiday calendar is keyed on it.
func (r Request) DateIn(loc *time.Location) time.Time {
	local := r.start.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
