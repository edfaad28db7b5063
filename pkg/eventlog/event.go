// Package eventlog holds the append-only, monotonically indexed sequence
// of events produced by dispatch outcomes, and its durable archive.
package eventlog

import "time"

// EventKind identifies what a log entry carries.
type EventKind string

const (
	KindAssistantText EventKind = "assistant-text"
	KindStatus        EventKind = "status"
	KindError         EventKind = "error"
)

// Event is an immutable, indexed record of a dispatch outcome. Indices are
// monotonic and gap-free within the log. Reason is set only on error
// events and carries the stable machine-readable code.
type Event struct {
	Index     uint64    `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	Body      string    `json:"body"`
	CommandID string    `json:"command_id"`
	Reason    string    `json:"reason,omitempty"`
}

// Draft is an event before the log assigns its index and timestamp.
// Handlers emit Drafts; only the log owns indices.
type Draft struct {
	Kind   EventKind
	Body   string
	Reason string
}

// Text builds an assistant-text draft.
func Text(body string) Draft {
	return Draft{Kind: KindAssistantText, Body: body}
}

// Status builds a status draft.
func Status(body string) Draft {
	return Draft{Kind: KindStatus, Body: body}
}

// Error builds an error draft with a stable reason code and a
// user-presentable explanation.
func Error(reason, body string) Draft {
	return Draft{Kind: KindError, Body: body, Reason: reason}
}
