package clientsync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/sharedgrid"
)

var loopTestCounter atomic.Int64

func newTestRegion(t *testing.T, cols, rows int) *sharedgrid.Region {
	t.Helper()
	name := "/scarab-clientsync-test-" + time.Now().Format("150405") + "-" +
		itoa(loopTestCounter.Add(1))
	r, err := sharedgrid.Create(name, cols, rows)
	if err != nil {
		t.Fatalf("sharedgrid.Create: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestLoop_FirstPoll_AlwaysReportsUpdate(t *testing.T) {
	r := newTestRegion(t, 10, 5)
	l := New(r)

	_, changed := l.Poll()
	if !changed {
		t.Fatal("expected first Poll to report a change")
	}
}

func TestLoop_NoChange_SkipsUpdate(t *testing.T) {
	r := newTestRegion(t, 10, 5)
	l := New(r)

	l.Poll()
	_, changed := l.Poll()
	if changed {
		t.Fatal("expected second Poll with no writes to report no change")
	}
}

func TestLoop_SequenceBump_ReportsDirtySpan(t *testing.T) {
	r := newTestRegion(t, 10, 5)
	l := New(r)
	l.Poll()

	r.WriteCell(0, 2, protocol.Cell{Char: 'x'})
	r.Publish(protocol.Header{Cols: 10, Rows: 5}, 2, 2)

	update, changed := l.Poll()
	if !changed {
		t.Fatal("expected change after Publish")
	}
	if update.MinRow != 2 || update.MaxRow != 2 {
		t.Fatalf("unexpected dirty span: min=%d max=%d", update.MinRow, update.MaxRow)
	}
	if update.Full {
		t.Fatal("expected a non-full update for a single-attempt clean read")
	}
}

func TestLoop_Run_StopsOnStopChannel(t *testing.T) {
	r := newTestRegion(t, 10, 5)
	l := New(r)
	stop := make(chan struct{})

	done := make(chan struct{})
	var updates atomic.Int64
	go func() {
		l.Run(2*time.Millisecond, stop, func(Update) { updates.Add(1) })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after stop was closed")
	}
	if updates.Load() == 0 {
		t.Fatal("expected at least one update before stop")
	}
}
