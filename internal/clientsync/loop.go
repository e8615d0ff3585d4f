// Package clientsync implements the Client Sync Loop (spec.md §4.7): a
// per-frame poll of the shared grid's sequence number, dirty-region
// reads validated by the seqlock, and a bounded-retry-then-full-read
// fallback. The run-loop's stop-channel shape follows the teacher's
// message.RunDelivery (select on a ticker or a Stop channel, cooperative
// cancellation rather than a hard context cancel).
package clientsync

import (
	"time"

	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/sharedgrid"
)

// Update is one frame's worth of grid change, handed to mesh generation.
type Update struct {
	Header protocol.Header
	Cells  []protocol.Cell
	MinRow uint16
	MaxRow uint16
	// Full is true when the dirty-span read had to fall back to a full
	// grid read after exhausting its seqlock retries.
	Full bool
}

// MaxSnapshotRetries bounds the seqlock retry loop per frame before
// falling back to a full-grid read (spec.md §4.7: "bounded to three
// attempts per frame").
const MaxSnapshotRetries = 3

// Loop polls one grid region once per frame.
type Loop struct {
	region  *sharedgrid.Region
	lastSeq uint64
	seen    bool
}

// New creates a Loop over region. The first Poll always reports an
// update (there being no prior observed sequence to compare against).
func New(region *sharedgrid.Region) *Loop {
	return &Loop{region: region}
}

// Poll performs one frame's worth of work: if the sequence is unchanged
// since the last Poll, it returns (Update{}, false). Otherwise it reads
// the dirty span (or falls back to a full read) and returns the update.
func (l *Loop) Poll() (Update, bool) {
	seq := l.region.LoadSequence()
	if l.seen && seq == l.lastSeq {
		return Update{}, false
	}

	hdr, cells, minRow, maxRow, ok := l.region.Snapshot(MaxSnapshotRetries)
	full := false
	if !ok {
		hdr, cells = l.region.FullSnapshot()
		_, rows := l.region.Capacity()
		minRow, maxRow = 0, uint16(rows-1)
		full = true
	}

	l.lastSeq = hdr.Sequence
	l.seen = true
	return Update{Header: hdr, Cells: cells, MinRow: minRow, MaxRow: maxRow, Full: full}, true
}

// Run drives Poll once per tick until stop is closed, invoking onUpdate
// for every frame that produced a change. Cancellation is cooperative:
// Run returns promptly after stop closes, never mid-Poll.
func (l *Loop) Run(tick time.Duration, stop <-chan struct{}, onUpdate func(Update)) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if update, changed := l.Poll(); changed {
				onUpdate(update)
			}
		}
	}
}
