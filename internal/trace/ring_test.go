package trace

import (
	"sync"
	"testing"
)

func TestRecordAndLast(t *testing.T) {
	r := NewRing(4)
	for i := 1; i <= 3; i++ {
		r.Record(Event{Kind: KindRequest, Gen: uint64(i)})
	}

	got := r.Last(2)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Gen != 2 || got[1].Gen != 3 {
		t.Errorf("expected gens [2 3], got [%d %d]", got[0].Gen, got[1].Gen)
	}
	if got[0].Time.IsZero() {
		t.Error("Record should stamp Time")
	}
}

func TestWrapAroundKeepsNewest(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Record(Event{Kind: KindApplied, Gen: uint64(i)})
	}

	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
	got := r.Last(10)
	want := []uint64{3, 4, 5}
	for i, e := range got {
		if e.Gen != want[i] {
			t.Errorf("Last[%d].Gen = %d, want %d", i, e.Gen, want[i])
		}
	}
}

func TestStatsCountEvicted(t *testing.T) {
	r := NewRing(2)
	r.Record(Event{Kind: KindStale})
	r.Record(Event{Kind: KindStale})
	r.Record(Event{Kind: KindStale})
	r.Record(Event{Kind: KindFailed})

	stats := r.Stats()
	if stats[KindStale] != 3 {
		t.Errorf("stale = %d, want 3", stats[KindStale])
	}
	if stats[KindFailed] != 1 {
		t.Errorf("failed = %d, want 1", stats[KindFailed])
	}
}

func TestNilRingIsInert(t *testing.T) {
	var r *Ring
	r.Record(Event{Kind: KindRequest})
	if r.Last(5) != nil || r.Len() != 0 || r.Cap() != 0 || r.Stats() != nil {
		t.Error("nil ring should report nothing")
	}
}

func TestDefaultSize(t *testing.T) {
	if NewRing(0).Cap() != DefaultRingSize {
		t.Errorf("expected default capacity %d", DefaultRingSize)
	}
}

func TestConcurrentRecord(t *testing.T) {
	r := NewRing(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record(Event{Kind: KindPrefs})
			}
		}()
	}
	wg.Wait()

	if got := r.Stats()[KindPrefs]; got != 800 {
		t.Errorf("expected 800 prefs events, got %d", got)
	}
}
