package event

import (
	"time"

	"github.com/google/uuid"
)

type Event interface {
	ID() uuid.UUID
	Type() string
}

// Base carries the identity shared by every event, embed it into concrete events.
type Base struct {
	EventID    uuid.UUID
	OccurredAt time.Time
}

func NewBase(occurredAt time.Time) Base {
	return Base{
		EventID:    uuid.New(),
		OccurredAt: occurredAt,
	}
}

func (b Base) ID() uuid.UUID {
	return b.EventID
}
