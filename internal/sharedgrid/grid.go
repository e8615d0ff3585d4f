package sharedgrid

import "github.com/scarab-term/scarab/internal/protocol"

func (r *Region) cellOffset(col, row int) int {
	return protocol.HeaderSize + (row*r.capCols+col)*protocol.CellSize
}

// WriteCell is called only by the owning writer (the VTE parser task); it
// does not itself publish — callers batch writes across a flush and then
// call Publish once, per spec.md I1.
func (r *Region) WriteCell(col, row int, c protocol.Cell) {
	off := r.cellOffset(col, row)
	protocol.EncodeCell(r.data[off:off+protocol.CellSize], c)
}

// ReadCell reads one cell without any seqlock validation; callers that
// need a consistent multi-cell view should use Snapshot/FullSnapshot
// instead.
func (r *Region) ReadCell(col, row int) protocol.Cell {
	off := r.cellOffset(col, row)
	return protocol.DecodeCell(r.data[off : off+protocol.CellSize])
}

// readCellRange returns a flat, row-major copy of cells in [minRow,maxRow]
// across the full logical column width, honoring the current Cols value
// rather than capCols so resized-down grids don't leak stale columns.
func (r *Region) readCellRange(minRow, maxRow int) []protocol.Cell {
	if minRow > maxRow {
		return nil
	}
	cols := int(r.currentCols())
	out := make([]protocol.Cell, 0, (maxRow-minRow+1)*cols)
	for row := minRow; row <= maxRow; row++ {
		for col := 0; col < cols; col++ {
			out = append(out, r.ReadCell(col, row))
		}
	}
	return out
}

func (r *Region) currentCols() uint16 {
	lo := r.data[protocol.OffCols]
	hi := r.data[protocol.OffCols+1]
	return uint16(lo) | uint16(hi)<<8
}

// ClearRow resets every cell in row (within the current logical column
// extent) to the empty Cell, used by erase-in-display/erase-in-line.
func (r *Region) ClearRow(row int, cols int) {
	empty := protocol.Cell{}
	for col := 0; col < cols; col++ {
		r.WriteCell(col, row, empty)
	}
}

// RequestResize writes pending_cols/pending_rows, observed by the VTE
// parser at its next flush boundary (spec.md §4.4). This is the one
// header mutation a non-owning client is allowed to make directly; it
// does not bump Sequence, since it isn't a grid-content change.
func (r *Region) RequestResize(cols, rows uint16) {
	put16 := func(off int, v uint16) {
		r.data[off] = byte(v)
		r.data[off+1] = byte(v >> 8)
	}
	put16(protocol.OffPendingCols, cols)
	put16(protocol.OffPendingRows, rows)
}

// PendingResize reads the last requested resize, zero values meaning none
// pending.
func (r *Region) PendingResize() (cols, rows uint16) {
	get16 := func(off int) uint16 {
		return uint16(r.data[off]) | uint16(r.data[off+1])<<8
	}
	return get16(protocol.OffPendingCols), get16(protocol.OffPendingRows)
}
