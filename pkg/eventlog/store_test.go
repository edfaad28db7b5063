package eventlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testEvents(start uint64, commandID string, bodies ...string) []Event {
	events := make([]Event, 0, len(bodies))
	for i, body := range bodies {
		events = append(events, Event{
			Index:     start + uint64(i),
			Timestamp: time.Now().UTC(),
			Kind:      KindAssistantText,
			Body:      body,
			CommandID: commandID,
		})
	}
	return events
}

func TestStoreArchiveAndFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Archive(testEvents(1, "cmd-1", "a", "b")))
	require.NoError(t, store.Archive(testEvents(3, "cmd-2", "c")))

	wm, err := store.HighWatermark()
	require.NoError(t, err)
	require.Equal(t, uint64(3), wm)

	events, err := store.FetchSince(1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint64(2), events[0].Index)
	require.Equal(t, "b", events[0].Body)
	require.Equal(t, "cmd-2", events[1].CommandID)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Archive(testEvents(1, "cmd-1", "a", "b", "c")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	wm, err := reopened.HighWatermark()
	require.NoError(t, err)
	require.Equal(t, uint64(3), wm)

	// The log resumes past archived history after a restart.
	log := NewLog(64)
	log.Resume(wm)
	first, _, err := log.Append("cmd-2", []Draft{Text("d")})
	require.NoError(t, err)
	require.Equal(t, uint64(4), first)
}

func TestStoreEmptyWatermark(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer store.Close()

	wm, err := store.HighWatermark()
	require.NoError(t, err)
	require.Equal(t, uint64(0), wm)
}
