package protocol

import "encoding/binary"

// Byte offsets of each Header field within its HeaderSize-byte encoding.
// Sequence is placed at an 8-byte-aligned offset so sharedgrid can target
// it with atomic.Uint64 operations directly against the mapped bytes;
// the other fields keep natural 2/4-byte alignment for the same reason.
const (
	OffMagic       = 0
	OffVersion     = 4
	OffSequence    = 8
	OffDirtyMinRow = 16
	OffDirtyMaxRow = 18
	OffCols        = 20
	OffRows        = 22
	OffCursorCol   = 24
	OffCursorRow   = 26
	OffModeFlags   = 28
	OffPendingCols = 30
	OffPendingRows = 32
)

// EncodeCell writes c's wire representation into buf[:CellSize].
func EncodeCell(buf []byte, c Cell) {
	_ = buf[CellSize-1]
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.Char))
	binary.LittleEndian.PutUint32(buf[4:8], c.FG)
	binary.LittleEndian.PutUint32(buf[8:12], c.BG)
	buf[12] = byte(c.Attrs)
	buf[13], buf[14], buf[15] = 0, 0, 0 // reserved padding, must be zero
}

// DecodeCell reads a Cell from buf[:CellSize].
func DecodeCell(buf []byte) Cell {
	_ = buf[CellSize-1]
	return Cell{
		Char:  rune(binary.LittleEndian.Uint32(buf[0:4])),
		FG:    binary.LittleEndian.Uint32(buf[4:8]),
		BG:    binary.LittleEndian.Uint32(buf[8:12]),
		Attrs: Attrs(buf[12]),
	}
}

// EncodeHeader writes h's wire representation into buf[:HeaderSize].
// Every field is a plain byte store; callers needing release-ordered
// publication should use sharedgrid's atomic accessors instead of this
// function for the Sequence/DirtyMinRow/DirtyMaxRow fields, which must be
// published with atomic store semantics, not a plain byte copy.
func EncodeHeader(buf []byte, h Header) {
	_ = buf[HeaderSize-1]
	copy(buf[OffMagic:OffMagic+4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[OffVersion:OffVersion+4], h.Version)
	binary.LittleEndian.PutUint64(buf[OffSequence:OffSequence+8], h.Sequence)
	binary.LittleEndian.PutUint16(buf[OffDirtyMinRow:OffDirtyMinRow+2], h.DirtyMinRow)
	binary.LittleEndian.PutUint16(buf[OffDirtyMaxRow:OffDirtyMaxRow+2], h.DirtyMaxRow)
	binary.LittleEndian.PutUint16(buf[OffCols:OffCols+2], h.Cols)
	binary.LittleEndian.PutUint16(buf[OffRows:OffRows+2], h.Rows)
	binary.LittleEndian.PutUint16(buf[OffCursorCol:OffCursorCol+2], h.CursorCol)
	binary.LittleEndian.PutUint16(buf[OffCursorRow:OffCursorRow+2], h.CursorRow)
	binary.LittleEndian.PutUint16(buf[OffModeFlags:OffModeFlags+2], uint16(h.ModeFlags))
	binary.LittleEndian.PutUint16(buf[OffPendingCols:OffPendingCols+2], h.PendingCols)
	binary.LittleEndian.PutUint16(buf[OffPendingRows:OffPendingRows+2], h.PendingRows)
	for i := OffPendingRows + 2; i < HeaderSize; i++ {
		buf[i] = 0
	}
}

// DecodeHeader reads a Header from buf[:HeaderSize].
func DecodeHeader(buf []byte) Header {
	_ = buf[HeaderSize-1]
	var h Header
	copy(h.Magic[:], buf[OffMagic:OffMagic+4])
	h.Version = binary.LittleEndian.Uint32(buf[OffVersion : OffVersion+4])
	h.Sequence = binary.LittleEndian.Uint64(buf[OffSequence : OffSequence+8])
	h.DirtyMinRow = binary.LittleEndian.Uint16(buf[OffDirtyMinRow : OffDirtyMinRow+2])
	h.DirtyMaxRow = binary.LittleEndian.Uint16(buf[OffDirtyMaxRow : OffDirtyMaxRow+2])
	h.Cols = binary.LittleEndian.Uint16(buf[OffCols : OffCols+2])
	h.Rows = binary.LittleEndian.Uint16(buf[OffRows : OffRows+2])
	h.CursorCol = binary.LittleEndian.Uint16(buf[OffCursorCol : OffCursorCol+2])
	h.CursorRow = binary.LittleEndian.Uint16(buf[OffCursorRow : OffCursorRow+2])
	h.ModeFlags = ModeFlags(binary.LittleEndian.Uint16(buf[OffModeFlags : OffModeFlags+2]))
	h.PendingCols = binary.LittleEndian.Uint16(buf[OffPendingCols : OffPendingCols+2])
	h.PendingRows = binary.LittleEndian.Uint16(buf[OffPendingRows : OffPendingRows+2])
	return h
}

// ValidateHeader checks magic and version on attach.
func ValidateHeader(h Header) error {
	if h.Magic != Magic {
		return ErrBadMagic
	}
	if h.Version != Version {
		return ErrVersionMismatch
	}
	return nil
}
