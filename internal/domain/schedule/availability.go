package schedule

import (
	"time"

	"github.com/google/uuid"
)

// ResourceAvailability is the per-resource verdict with the conflicting
// intervals enumerated so the caller can offer substitutes.
type ResourceAvailability struct {
	Resource  ResourceRef
	Available bool
	Conflicts []Interval
}

// CheckResult aggregates the verdicts of every requested resource. The
// window is serviceable only if each resource independently reports clear.
type CheckResult struct {
	Available bool
	Resources []ResourceAvailability
}

func (r CheckResult) ConflictsFor(res ResourceRef) []Interval {
	for _, ra := range r.Resources {
		if ra.Resource == res {
			return ra.Conflicts
		}
	}
	return nil
}

// Checker classifies proposed windows against existing intervals with the
// mandatory turnaround buffer applied.
type Checker struct {
	Buffer time.Duration
}

func NewChecker(buffer time.Duration) Checker {
	if buffer < 0 {
		buffer = 0
	}
	return Checker{Buffer: buffer}
}

// Check evaluates one resource. Intervals belonging to excludeBooking are
// ignored so an edit never conflicts with the hold it is about to release.
func (c Checker) Check(res ResourceRef, existing []Interval, w Window, excludeBooking uuid.UUID) ResourceAvailability {
	relevant := existing[:0:0]
	for _, iv := range existing {
		if excludeBooking != uuid.Nil && iv.BookingID == excludeBooking {
			continue
		}
		relevant = append(relevant, iv)
	}

	conflicts := NewIndex(relevant).Conflicts(w, c.Buffer)
	return ResourceAvailability{
		Resource:  res,
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}
}

// CheckAll combines per-resource verdicts; every resource is evaluated even
// after the first conflict so diagnostics stay complete.
func (c Checker) CheckAll(verdicts ...ResourceAvailability) CheckResult {
	result := CheckResult{Available: true, Resources: verdicts}
	for _, v := range verdicts {
		if !v.Available {
			result.Available = false
		}
	}
	return result
}
