// Package command defines the typed Command unit of work and the pure
// classifier that turns raw input text into one.
package command

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind is the routable command category.
type Kind string

const (
	KindChat          Kind = "chat"
	KindSystem        Kind = "system"
	KindSearch        Kind = "search"
	KindMediaGenerate Kind = "media-generate"
)

// Origin records who produced a Command.
type Origin string

const (
	OriginUser       Origin = "user"
	OriginAutonomous Origin = "autonomous"
)

// Command is an immutable, classified unit of work. ID is the idempotency
// key for dispatch; SequenceHint records submission order.
type Command struct {
	ID           string
	Kind         Kind
	Source       string
	Payload      string
	Attachment   string // opaque media ref, empty when none
	Origin       Origin
	SequenceHint uint64
}

var sequence atomic.Uint64

// New builds a Command with a fresh identity and the next sequence hint.
func New(kind Kind, source, payload string, origin Origin) Command {
	return Command{
		ID:           uuid.New().String(),
		Kind:         kind,
		Source:       source,
		Payload:      payload,
		Origin:       origin,
		SequenceHint: sequence.Add(1),
	}
}

// WithAttachment returns a copy carrying the given media ref.
func (c Command) WithAttachment(ref string) Command {
	c.Attachment = ref
	return c
}
