package protocol

import (
	"bytes"
	"testing"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload, err := Encode(&Resize{Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := WriteFrame(&buf, TagResize, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	tag, body, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if tag != TagResize {
		t.Fatalf("want tag %d got %d", TagResize, tag)
	}
	var r Resize
	if err := Decode(body, &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Cols != 80 || r.Rows != 24 {
		t.Fatalf("unexpected payload: %+v", r)
	}
}

func TestWriteFrame_RejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	payload := make([]byte, MaxFrameSize+1)
	if err := WriteFrame(&buf, TagInput, payload); err != ErrFrameTooLarge {
		t.Fatalf("want ErrFrameTooLarge, got %v", err)
	}
}

func TestReadFrame_RejectsOversizedDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	// Hand-craft a frame header declaring a length beyond the max.
	big := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(big)
	if _, _, err := ReadFrame(&buf); err != ErrFrameTooLarge {
		t.Fatalf("want ErrFrameTooLarge, got %v", err)
	}
}

func TestReadFrame_EOFOnEmptyStream(t *testing.T) {
	var buf bytes.Buffer
	if _, _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected error reading from empty stream")
	}
}

func TestMultipleFramesOnSameStream(t *testing.T) {
	var buf bytes.Buffer
	pingPayload, _ := Encode(&Ping{T: 1})
	pongPayload, _ := Encode(&Pong{T: 2})
	if err := WriteFrame(&buf, TagPing, pingPayload); err != nil {
		t.Fatal(err)
	}
	if err := WriteFrame(&buf, TagPong, pongPayload); err != nil {
		t.Fatal(err)
	}

	tag1, body1, err := ReadFrame(&buf)
	if err != nil || tag1 != TagPing {
		t.Fatalf("first frame: tag=%v err=%v", tag1, err)
	}
	var ping Ping
	Decode(body1, &ping)
	if ping.T != 1 {
		t.Fatalf("want T=1 got %d", ping.T)
	}

	tag2, body2, err := ReadFrame(&buf)
	if err != nil || tag2 != TagPong {
		t.Fatalf("second frame: tag=%v err=%v", tag2, err)
	}
	var pong Pong
	Decode(body2, &pong)
	if pong.T != 2 {
		t.Fatalf("want T=2 got %d", pong.T)
	}
}

func TestNewForTag_UnknownTagErrors(t *testing.T) {
	if _, err := NewForTag(Tag(9999)); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}
