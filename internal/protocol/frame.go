package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxFrameSize is the largest control-channel payload accepted; larger
// frames are a protocol violation (spec.md §4.1).
const MaxFrameSize = 8 * 1024

// ErrFrameTooLarge is returned by ReadFrame when the declared length
// exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

// Tag identifies the variant of a control message. Values are stable
// across protocol v1 (spec.md §6).
type Tag uint16

const (
	TagAttach Tag = iota + 1
	TagAttached
	TagDetach
	TagInput
	TagResize
	TagSessionCreate
	TagSessionCreated
	TagSessionList
	TagSessionListReply
	TagSessionDelete
	TagSessionRename
	TagPing
	TagPong
	TagError
)

// WriteFrame writes a length-prefixed, tagged frame: a 4-byte big-endian
// length (covering the tag + payload) followed by a 2-byte tag and the
// payload bytes.
func WriteFrame(w io.Writer, tag Tag, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+2+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(2+len(payload)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(tag))
	copy(buf[6:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed, tagged frame from r.
func ReadFrame(r io.Reader) (Tag, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n < 2 || int(n) > MaxFrameSize+2 {
		return 0, nil, ErrFrameTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	tag := Tag(binary.BigEndian.Uint16(body[0:2]))
	return tag, body[2:], nil
}
