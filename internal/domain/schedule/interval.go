package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidWindow       = errors.New("window start must be before end")
	ErrUnknownResourceType = errors.New("unknown resource type")
)

type ResourceType string

const (
	ResourceDriver  ResourceType = "driver"
	ResourceVehicle ResourceType = "vehicle"
)

func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceDriver, ResourceVehicle:
		return true
	default:
		return false
	}
}

func NewResourceType(s string) (ResourceType, error) {
	t := ResourceType(s)
	if !t.IsValid() {
		return "", ErrUnknownResourceType
	}
	return t, nil
}

// ResourceRef identifies one independently schedulable resource.
type ResourceRef struct {
	Type ResourceType
	ID   uuid.UUID
}

// Key is the stable lock/sort key for a resource. Locks are always taken in
// ascending Key order so a driver+vehicle submission cannot deadlock with
// another one requesting the same pair.
func (r ResourceRef) Key() string {
	return string(r.Type) + ":" + r.ID.String()
}

func (r ResourceRef) String() string {
	return r.Key()
}

// Window is a half-open service span [Start, End).
type Window struct {
	start time.Time
	end   time.Time
}

func NewWindow(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, ErrInvalidWindow
	}
	return Window{start: start.UTC(), end: end.UTC()}, nil
}

func (w Window) Start() time.Time { return w.start }
func (w Window) End() time.Time   { return w.end }

func (w Window) Duration() time.Duration {
	return w.end.Sub(w.start)
}

// Overlaps reports buffer-inclusive overlap with another window:
// s < e' + buffer && s' < e + buffer. Exact abutment with a zero buffer is
// not an overlap; touching is allowed, overlapping is not.
func (w Window) Overlaps(other Window, buffer time.Duration) bool {
	return w.start.Before(other.end.Add(buffer)) && other.start.Before(w.end.Add(buffer))
}

func (w Window) ToTstzrange() string {
	return fmt.Sprintf("[%s,%s)", w.start.Format(time.RFC3339), w.end.Format(time.RFC3339))
}

// Interval is a committed hold of one resource for a booking's window.
// Once confirmed it is only ever removed by cancellation, never reshaped.
type Interval struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Resource  ResourceRef
	Window    Window
}
