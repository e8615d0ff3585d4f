package sharedgrid

import (
	"sync/atomic"
	"unsafe"

	"github.com/scarab-term/scarab/internal/protocol"
)

// This file implements the seqlock pattern of spec.md §3 (I1-I3) and §9:
// the writer mutates cells, then publishes dirty_min_row/dirty_max_row,
// then bumps Sequence — all three with atomic release-ordered stores, so
// readers that load Sequence with an atomic acquire and recheck it after
// reading cells observe a torn-free snapshot or know to retry.
//
// Go's sync/atomic does not expose separate acquire/release-only fences;
// atomic.LoadUint64/StoreUint64 (and the generic atomic.Uint64 wrappers
// used here) are sequentially consistent, which is a strictly stronger
// guarantee than the seqlock needs but satisfies it.

func (r *Region) seqPtr() *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&r.data[protocol.OffSequence]))
}

func (r *Region) dirtyPtr() *atomic.Uint32 {
	// DirtyMinRow and DirtyMaxRow are adjacent u16 fields; treat them as
	// one atomic u32 so they publish together with a single store,
	// satisfying "dirty_* + sequence publish with release-ordering" as
	// one indivisible step from a reader's point of view.
	return (*atomic.Uint32)(unsafe.Pointer(&r.data[protocol.OffDirtyMinRow]))
}

// LoadSequence performs the acquire-ordered load a reader uses to begin a
// snapshot (spec.md I2 step a).
func (r *Region) LoadSequence() uint64 {
	return r.seqPtr().Load()
}

// DirtySpan returns the currently published dirty row span.
func (r *Region) DirtySpan() (minRow, maxRow uint16) {
	packed := r.dirtyPtr().Load()
	minRow = uint16(packed)
	maxRow = uint16(packed >> 16)
	return
}

func packDirty(minRow, maxRow uint16) uint32 {
	return uint32(minRow) | uint32(maxRow)<<16
}

// Publish is called by the single writer after mutating cells: it writes
// the dirty span and then bumps Sequence, both atomically, completing one
// flush (spec.md §4.3 "flush"). header carries the non-atomic header
// fields (cols/rows/cursor/mode) that changed in this flush; they are
// written before the dirty/sequence publish so that by the time a reader
// observes the new sequence, cursor and mode are already consistent (the
// parser "must never publish an intermediate cursor position").
func (r *Region) Publish(nonAtomic protocol.Header, minRow, maxRow uint16) {
	r.writeNonAtomicHeaderFields(nonAtomic)
	r.dirtyPtr().Store(packDirty(minRow, maxRow))
	r.seqPtr().Add(1)
}

// PublishFull is Publish with the dirty span covering the whole grid,
// used after reflow/resize and full-screen erase (spec.md §4.4, §8 S3).
func (r *Region) PublishFull(nonAtomic protocol.Header) {
	_, rows := r.Capacity()
	r.Publish(nonAtomic, 0, uint16(rows-1))
}

func (r *Region) writeNonAtomicHeaderFields(h protocol.Header) {
	buf := r.data[:protocol.HeaderSize]
	put16 := func(off int, v uint16) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
	}
	put16(protocol.OffCols, h.Cols)
	put16(protocol.OffRows, h.Rows)
	put16(protocol.OffCursorCol, h.CursorCol)
	put16(protocol.OffCursorRow, h.CursorRow)
	put16(protocol.OffModeFlags, uint16(h.ModeFlags))
	put16(protocol.OffPendingCols, h.PendingCols)
	put16(protocol.OffPendingRows, h.PendingRows)
}

// readHeaderUnsynchronized decodes the full header without atomic loads.
// Safe only when the caller knows there is no concurrent writer (region
// open-time validation) or already holds a valid seqlock snapshot.
func (r *Region) readHeaderUnsynchronized() protocol.Header {
	return protocol.DecodeHeader(r.data[:protocol.HeaderSize])
}

// Snapshot reads a consistent Header + dirty-span Cells using the seqlock
// retry protocol of spec.md I2, bounded to maxAttempts retries before the
// caller should fall back to a full-grid read (spec.md §4.7).
func (r *Region) Snapshot(maxAttempts int) (hdr protocol.Header, cells []protocol.Cell, minRow, maxRow uint16, ok bool) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		s1 := r.LoadSequence()
		hdr = r.readHeaderUnsynchronized()
		hdr.Sequence = s1
		minRow, maxRow = r.DirtySpan()
		hdr.DirtyMinRow, hdr.DirtyMaxRow = minRow, maxRow

		cells = r.readCellRange(int(minRow), int(maxRow))
		s2 := r.LoadSequence()
		if s1 == s2 {
			return hdr, cells, minRow, maxRow, true
		}
	}
	return protocol.Header{}, nil, 0, 0, false
}

// FullSnapshot reads every cell in the grid's current logical extent,
// used as the fallback after Snapshot exhausts its retries.
func (r *Region) FullSnapshot() (hdr protocol.Header, cells []protocol.Cell) {
	s1 := r.LoadSequence()
	hdr = r.readHeaderUnsynchronized()
	hdr.Sequence = s1
	cells = r.readCellRange(0, int(hdr.Rows)-1)
	return hdr, cells
}
