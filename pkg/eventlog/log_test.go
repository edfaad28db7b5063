package eventlog

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestAppendAssignsContiguousIndices(t *testing.T) {
	log := NewLog(64)

	first, last, err := log.Append("cmd-1", []Draft{Text("a"), Status("b"), Text("c")})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first != 1 || last != 3 {
		t.Errorf("batch range = [%d,%d], want [1,3]", first, last)
	}

	first, last, err = log.Append("cmd-2", []Draft{Text("d")})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first != 4 || last != 4 {
		t.Errorf("second batch range = [%d,%d], want [4,4]", first, last)
	}

	events := log.FetchSince(0).Events
	for i, ev := range events {
		if ev.Index != uint64(i+1) {
			t.Errorf("event %d has index %d, want %d", i, ev.Index, i+1)
		}
	}
}

func TestAppendEmptyBatch(t *testing.T) {
	log := NewLog(64)
	first, last, err := log.Append("cmd", nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first != 0 || last != 0 {
		t.Errorf("empty batch returned [%d,%d]", first, last)
	}
	if log.Watermark() != 0 {
		t.Errorf("watermark = %d, want 0", log.Watermark())
	}
}

func TestConcurrentAppendsNeverInterleave(t *testing.T) {
	log := NewLog(4096)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("cmd-%d", n)
			log.Append(id, []Draft{Text("one"), Text("two"), Text("three")})
		}(i)
	}
	wg.Wait()

	events := log.FetchSince(0).Events
	if len(events) != 60 {
		t.Fatalf("got %d events, want 60", len(events))
	}

	// Each command's three events must be contiguous.
	for i := 0; i < len(events); i += 3 {
		id := events[i].CommandID
		for j := 1; j < 3; j++ {
			if events[i+j].CommandID != id {
				t.Fatalf("batch for %s interleaved at index %d", id, events[i+j].Index)
			}
		}
	}
}

func TestFetchSinceIsIdempotent(t *testing.T) {
	log := NewLog(64)
	log.Append("cmd", []Draft{Text("a"), Text("b")})

	first := log.FetchSince(0)
	second := log.FetchSince(0)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated FetchSince returned different results")
	}

	caughtUp := log.FetchSince(first.Watermark)
	if len(caughtUp.Events) != 0 {
		t.Errorf("caught-up fetch returned %d events", len(caughtUp.Events))
	}
	if caughtUp.Watermark != first.Watermark {
		t.Errorf("watermark moved: %d -> %d", first.Watermark, caughtUp.Watermark)
	}
}

func TestFetchSincePartial(t *testing.T) {
	log := NewLog(64)
	log.Append("cmd", []Draft{Text("a"), Text("b"), Text("c")})

	res := log.FetchSince(1)
	if len(res.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(res.Events))
	}
	if res.Events[0].Index != 2 {
		t.Errorf("first returned index = %d, want 2", res.Events[0].Index)
	}
	if res.Truncated {
		t.Error("in-range fetch marked truncated")
	}
}

func TestRingEvictionAdvancesFloor(t *testing.T) {
	log := NewLog(4)
	for i := 0; i < 6; i++ {
		log.Append(fmt.Sprintf("cmd-%d", i), []Draft{Text("x")})
	}

	if log.Floor() != 3 {
		t.Errorf("floor = %d, want 3", log.Floor())
	}

	res := log.FetchSince(0)
	if !res.Truncated {
		t.Error("fetch below floor not marked truncated")
	}
	if len(res.Events) != 4 {
		t.Errorf("got %d events, want 4 retained", len(res.Events))
	}
	if res.Events[0].Index != 3 {
		t.Errorf("resumed at index %d, want floor 3", res.Events[0].Index)
	}
	if res.Watermark != 6 {
		t.Errorf("watermark = %d, want 6", res.Watermark)
	}
}

func TestFetchSinceAfterResumeMarksTruncation(t *testing.T) {
	log := NewLog(64)
	log.Resume(41)

	// History below the floor lives only in the archive; an empty ring
	// must still tell the poller it skipped something.
	res := log.FetchSince(0)
	if !res.Truncated {
		t.Error("fetch below post-resume floor not marked truncated")
	}
	if len(res.Events) != 0 {
		t.Errorf("got %d events from empty ring", len(res.Events))
	}
	if res.Watermark != 41 {
		t.Errorf("watermark = %d, want 41", res.Watermark)
	}

	// A caught-up poller is not told it missed anything.
	if caught := log.FetchSince(41); caught.Truncated {
		t.Error("caught-up fetch marked truncated")
	}
}

func TestResumeContinuesSequence(t *testing.T) {
	log := NewLog(64)
	log.Resume(41)

	first, last, err := log.Append("cmd", []Draft{Text("a")})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first != 42 || last != 42 {
		t.Errorf("post-resume range = [%d,%d], want [42,42]", first, last)
	}
}

type recordingArchiver struct {
	mu      sync.Mutex
	batches [][]Event
	fail    bool
}

func (a *recordingArchiver) Archive(events []Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return fmt.Errorf("archive down")
	}
	batch := make([]Event, len(events))
	copy(batch, events)
	a.batches = append(a.batches, batch)
	return nil
}

func TestArchiveFailureRollsBackIndices(t *testing.T) {
	log := NewLog(64)
	arch := &recordingArchiver{}
	log.SetArchiver(arch)

	log.Append("cmd-1", []Draft{Text("a")})

	arch.fail = true
	if _, _, err := log.Append("cmd-2", []Draft{Text("b")}); err == nil {
		t.Fatal("Append succeeded despite archive failure")
	}

	// The failed batch must not leave a gap.
	arch.fail = false
	first, _, err := log.Append("cmd-3", []Draft{Text("c")})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first != 2 {
		t.Errorf("index after rollback = %d, want 2", first)
	}

	events := log.FetchSince(0).Events
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestSubscribeSignalsOnAppend(t *testing.T) {
	log := NewLog(64)
	ch, cancel := log.Subscribe()
	defer cancel()

	log.Append("cmd", []Draft{Text("a")})

	select {
	case <-ch:
	default:
		t.Fatal("no signal after append")
	}

	// Signals coalesce; a second append while unread must not block.
	log.Append("cmd-2", []Draft{Text("b")})
	log.Append("cmd-3", []Draft{Text("c")})
}
