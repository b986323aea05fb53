package events

import "time"

// Kind names an event as namespace.name, for example session.error.
type Kind string

// Event is anything a session can send to its client.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base is embedded by every concrete event.
type Base struct {
	kind Kind
	at   time.Time
}

// NewBase stamps kind with the current UTC time.
func NewBase(kind Kind) Base {
	return Base{kind: kind, at: time.Now().UTC()}
}

func (b Base) Kind() Kind           { return b.kind }
func (b Base) Timestamp() time.Time { return b.at }
