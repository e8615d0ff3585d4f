package control

import "testing"

func TestBackoff_DoublesUntilCap(t *testing.T) {
	bo := NewBackoff(100, 500) // unitless for arithmetic clarity
	want := []int64{100, 200, 400, 500, 500}
	for i, w := range want {
		if got := int64(bo.Next()); got != w {
			t.Fatalf("Next() #%d = %d, want %d", i, got, w)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	bo := NewBackoff(100, 500)
	bo.Next()
	bo.Next()
	bo.Reset()
	if bo.Attempt() != 0 {
		t.Fatalf("Attempt() after Reset = %d, want 0", bo.Attempt())
	}
	if got := int64(bo.Next()); got != 100 {
		t.Fatalf("Next() after Reset = %d, want 100", got)
	}
}

// TestBackoffBound_TenCyclesAtFiveSecondCapWithin50Seconds is spec.md I8:
// total reconnect wait before giving up is <= 10*5s = 50s.
func TestBackoffBound_TenCyclesAtFiveSecondCapWithin50Seconds(t *testing.T) {
	bo := NewBackoff(DefaultBackoffBase, DefaultBackoffMax)
	var total int64
	for i := 0; i < MaxDialCycles; i++ {
		total += bo.Next().Nanoseconds()
	}
	if total > DefaultBackoffMax.Nanoseconds()*MaxDialCycles {
		t.Fatalf("total backoff %dns exceeds bound %dns", total, DefaultBackoffMax.Nanoseconds()*MaxDialCycles)
	}
}
