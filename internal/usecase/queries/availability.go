package queries

import (
	"context"
	"time"

	"tourops-engine/internal/domain/schedule"
	"tourops-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrInvalidWindow = errs.New("invalid availability window")

type IntervalReadStore interface {
	ListByResource(ctx context.Context, res schedule.ResourceRef) ([]schedule.Interval, error)
}

type AvailabilityInput struct {
	ResourceType string
	ResourceID   uuid.UUID
	Start        time.Time
	End          time.Time
}

// AvailabilityQueries is the diagnostic read path. A clear verdict here is
// advisory only: the coordinator re-checks inside its transaction before
// reserving anything.
type AvailabilityQueries interface {
	Check(ctx context.Context, in AvailabilityInput) (*AvailabilityView, error)
}

type availabilityQueriesImpl struct {
	intervals IntervalReadStore
	checker   schedule.Checker
}

func NewAvailabilityQueries(intervals IntervalReadStore, buffer time.Duration) AvailabilityQueries {
	return &availabilityQueriesImpl{
		intervals: intervals,
		checker:   schedule.NewChecker(buffer),
	}
}

func (q *availabilityQueriesImpl) Check(ctx context.Context, in AvailabilityInput) (*AvailabilityView, error) {
	resType, err := schedule.NewResourceType(in.ResourceType)
	if err != nil {
		return nil, err
	}
	res := schedule.ResourceRef{Type: resType, ID: in.ResourceID}

	window, err := schedule.NewWindow(in.Start, in.End)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidWindow)
	}

	existing, err := q.intervals.ListByResource(ctx, res)
	if err != nil {
		return nil, errs.Mark(err, ErrQueryFailed)
	}

	verdict := q.checker.Check(res, existing, window, uuid.Nil)
	return &AvailabilityView{
		Available: verdict.Available,
		Resources: []ResourceAvailabilityView{toResourceAvailabilityView(verdict)},
	}, nil
}

func toResourceAvailabilityView(v schedule.ResourceAvailability) ResourceAvailabilityView {
	out := ResourceAvailabilityView{
		ResourceType: string(v.Resource.Type),
		ResourceID:   v.Resource.ID,
		Available:    v.Available,
	}
	for _, iv := range v.Conflicts {
		out.Conflicts = append(out.Conflicts, IntervalView{
			BookingID:    iv.BookingID,
			ResourceType: string(iv.Resource.Type),
			ResourceID:   iv.Resource.ID,
			StartAt:      iv.Window.Start(),
			EndAt:        iv.Window.End(),
		})
	}
	return out
}
