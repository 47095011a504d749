package booking

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

type ServiceType string

const (
	ServiceTour     ServiceType = "tour"
	ServiceTransfer ServiceType = "transfer"
	ServiceWaitTime ServiceType = "wait_time"
	ServiceCustom   ServiceType = "custom"
)

func (t ServiceType) String() string {
	return string(t)
}

func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTour, ServiceTransfer, ServiceWaitTime, ServiceCustom:
		return true
	default:
		return false
	}
}

// EventType labels the domain events emitted after a committed mutation.
type EventType string

const (
	EventSubmitted EventType = "booking_submitted"
	EventEdited    EventType = "booking_edited"
	EventCancelled EventType = "booking_cancelled"
)
