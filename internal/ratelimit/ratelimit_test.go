package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock lets tests step time manually.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeStore() (*MemoryStore, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clk.now
	return s, clk
}

func TestMemoryStore_AllowsUpToCeiling(t *testing.T) {
	s, _ := newFakeStore()
	pol := Policy{Name: "test", Window: time.Minute, MaxRequests: 5}

	for i := 0; i < 5; i++ {
		res := s.Check("k", pol)
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if want := 5 - (i + 1); res.Remaining != want {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, res.Remaining, want)
		}
	}

	res := s.Check("k", pol)
	if res.Allowed {
		t.Fatal("6th request inside window should be denied")
	}
	if res.ResetIn <= 0 || res.ResetIn > time.Minute {
		t.Fatalf("ResetIn = %v, want (0, 1m]", res.ResetIn)
	}
}

func TestMemoryStore_DeniedRequestsDoNotStarve(t *testing.T) {
	s, clk := newFakeStore()
	pol := Policy{Name: "test", Window: time.Minute, MaxRequests: 1}

	s.Check("k", pol)
	// Hammer the denied path; the stored count must not grow.
	for i := 0; i < 100; i++ {
		if res := s.Check("k", pol); res.Allowed {
			t.Fatal("should be denied inside window")
		}
	}

	clk.advance(time.Minute)
	res := s.Check("k", pol)
	if !res.Allowed {
		t.Fatal("request after window rollover should be allowed")
	}
	if res.Remaining != 0 {
		t.Fatalf("fresh window should start at count 1, remaining = %d", res.Remaining)
	}
}

func TestMemoryStore_WindowResetsFully(t *testing.T) {
	s, clk := newFakeStore()
	pol := PolicyWrite // 30/60s

	for i := 0; i < pol.MaxRequests; i++ {
		s.Check("k", pol)
	}
	if res := s.Check("k", pol); res.Allowed {
		t.Fatal("ceiling reached, should deny")
	}

	clk.advance(61 * time.Second)
	res := s.Check("k", pol)
	if !res.Allowed || res.Remaining != pol.MaxRequests-1 {
		t.Fatalf("expected full reset, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	s, _ := newFakeStore()
	pol := Policy{Name: "test", Window: time.Minute, MaxRequests: 1}

	if res := s.Check("a", pol); !res.Allowed {
		t.Fatal("first request for key a should pass")
	}
	if res := s.Check("a", pol); res.Allowed {
		t.Fatal("second request for key a should be denied")
	}
	if res := s.Check("b", pol); !res.Allowed {
		t.Fatal("key b must not be affected by key a's bucket")
	}
}

func TestMemoryStore_SweepEvictsExpired(t *testing.T) {
	s, clk := newFakeStore()
	pol := Policy{Name: "test", Window: time.Minute, MaxRequests: 10}

	for i := 0; i <= sweepThreshold; i++ {
		s.Check(fmt.Sprintf("k%d", i), pol)
	}
	if s.Len() <= sweepThreshold {
		t.Fatalf("precondition: table should exceed threshold, len = %d", s.Len())
	}

	// All buckets expire; the next write past the threshold sweeps them.
	clk.advance(2 * time.Minute)
	s.Check("fresh", pol)
	if got := s.Len(); got != 1 {
		t.Fatalf("sweep should leave only the fresh bucket, len = %d", got)
	}
}

func TestNamedPolicies(t *testing.T) {
	if PolicyAI.MaxRequests != 10 || PolicyAI.Window != time.Minute {
		t.Errorf("ai policy drifted: %+v", PolicyAI)
	}
	if PolicyStandard.MaxRequests != 60 || PolicyStandard.Window != time.Minute {
		t.Errorf("standard policy drifted: %+v", PolicyStandard)
	}
	if PolicyWrite.MaxRequests != 30 || PolicyWrite.Window != time.Minute {
		t.Errorf("write policy drifted: %+v", PolicyWrite)
	}
}
