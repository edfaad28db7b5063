package eventlog

import (
	"fmt"
	"sync"
	"time"
)

// Archiver receives every appended event for durable storage. Archive
// failure is the one unrecoverable condition in the system: once events
// can be lost, delivery correctness is gone.
type Archiver interface {
	Archive(events []Event) error
}

// Log is the bounded in-memory event sequence. Appends from concurrent
// dispatches never interleave: each batch lands contiguously with
// strictly increasing indices. Eviction past the ring capacity advances
// the floor watermark; the archive keeps full history.
type Log struct {
	mu       sync.RWMutex
	events   []Event
	next     uint64 // index assigned to the next appended event
	floor    uint64 // lowest index still held in memory
	capacity int
	archiver Archiver
	notify   notifier
}

// FetchResult is the polling response: events after the requested index,
// the new high watermark, and whether the ring had already evicted part
// of the requested range.
type FetchResult struct {
	Events    []Event `json:"events"`
	Watermark uint64  `json:"watermark"`
	Truncated bool    `json:"truncated"`
}

// NewLog creates a Log holding at most capacity events in memory.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Log{
		next:     1,
		floor:    1,
		capacity: capacity,
	}
}

// SetArchiver attaches the durable store. Must be called before traffic.
func (l *Log) SetArchiver(a Archiver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.archiver = a
}

// Resume restores the index sequence after a restart so archived history
// and new events never collide.
func (l *Log) Resume(highWatermark uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if highWatermark >= l.next {
		l.next = highWatermark + 1
		l.floor = l.next
	}
}

// Append stamps and stores drafts as one atomic batch correlated to the
// originating command. Returns the first and last assigned index.
// An archive write failure is returned to the caller and must be treated
// as fatal.
func (l *Log) Append(commandID string, drafts []Draft) (first, last uint64, err error) {
	if len(drafts) == 0 {
		return 0, 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	batch := make([]Event, 0, len(drafts))
	for _, d := range drafts {
		batch = append(batch, Event{
			Index:     l.next,
			Timestamp: now,
			Kind:      d.Kind,
			Body:      d.Body,
			CommandID: commandID,
			Reason:    d.Reason,
		})
		l.next++
	}

	if l.archiver != nil {
		if err := l.archiver.Archive(batch); err != nil {
			// Roll the index back: nothing was delivered.
			l.next = batch[0].Index
			return 0, 0, fmt.Errorf("event archive write failed: %w", err)
		}
	}

	l.events = append(l.events, batch...)
	if over := len(l.events) - l.capacity; over > 0 {
		l.events = l.events[over:]
		l.floor = l.events[0].Index
	}

	l.notify.notify()
	return batch[0].Index, batch[len(batch)-1].Index, nil
}

// Subscribe returns a channel that signals after every append, and a
// cancel function. Signals are coalesced; subscribers catch up with
// FetchSince.
func (l *Log) Subscribe() (<-chan struct{}, func()) {
	return l.notify.subscribe()
}

// FetchSince returns all events with index > since. Safe under repeated
// polling: no side effects, byte-identical results for unchanged state.
// An empty result with the current watermark means the caller is caught
// up. since below the floor marks the result truncated and resumes at
// the floor.
func (l *Log) FetchSince(since uint64) FetchResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := FetchResult{
		Events:    []Event{},
		Watermark: l.next - 1,
	}

	// The floor governs truncation even when the ring is empty: after a
	// restart the archive holds everything below it.
	if since+1 < l.floor {
		res.Truncated = true
		since = l.floor - 1
	}

	if len(l.events) == 0 {
		return res
	}

	for _, ev := range l.events {
		if ev.Index > since {
			res.Events = append(res.Events, ev)
		}
	}
	return res
}

// Floor returns the lowest index still held in memory.
func (l *Log) Floor() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.floor
}

// Watermark returns the highest index appended so far, 0 when empty.
func (l *Log) Watermark() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.next - 1
}
