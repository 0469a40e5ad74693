package events

import "time"

// Kind names an event as "<namespace>.<name>".
type Kind string

// Event is implemented by every type in this package through an embedded
// Base.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields every event shares. Timestamps are UTC.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now().UTC()}
}

func (b Base) Kind() Kind { return b.kind }

func (b Base) Timestamp() time.Time { return b.timestamp }
