package control

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scarab-term/scarab/internal/protocol"
)

type fakeHandler struct {
	detached atomic.Int64
	inputs   atomic.Int64
}

func (h *fakeHandler) Attach(client protocol.ClientID, req protocol.Attach) (protocol.Attached, error) {
	if req.SessionID == "missing" {
		return protocol.Attached{}, notFoundErr{}
	}
	return protocol.Attached{ClientID: client, RegionName: "/scarab-shm-test", Cols: 80, Rows: 24}, nil
}

func (h *fakeHandler) Detach(client protocol.ClientID) { h.detached.Add(1) }

func (h *fakeHandler) Input(client protocol.ClientID, req protocol.Input) error {
	h.inputs.Add(1)
	return nil
}

func (h *fakeHandler) Resize(client protocol.ClientID, req protocol.Resize) error { return nil }

func (h *fakeHandler) SessionCreate(req protocol.SessionCreate) (protocol.SessionCreated, error) {
	return protocol.SessionCreated{ID: protocol.SessionID("sess-1")}, nil
}

func (h *fakeHandler) SessionList() (protocol.SessionListReply, error) {
	return protocol.SessionListReply{Sessions: []protocol.SessionInfo{{ID: "sess-1", Name: "dev"}}}, nil
}

func (h *fakeHandler) SessionDelete(req protocol.SessionDelete) error { return nil }
func (h *fakeHandler) SessionRename(req protocol.SessionRename) error { return nil }

type notFoundErr struct{}

func (notFoundErr) Error() string                { return "not found" }
func (notFoundErr) Code() protocol.ErrorCode      { return protocol.ErrCodeNotFound }

func newTestServer(t *testing.T) (*Server, *fakeHandler, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, fmt.Sprintf("scarab-test-%d.sock", os.Getpid()))
	h := &fakeHandler{}
	srv, err := Listen(path, h, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, h, path
}

func TestServer_Attach_RoundTrip(t *testing.T) {
	_, _, path := newTestServer(t)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload, _ := protocol.Encode(protocol.Attach{SessionID: "sess-1", Cols: 80, Rows: 24})
	if err := protocol.WriteFrame(conn, protocol.TagAttach, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	tag, body, err := protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if tag != protocol.TagAttached {
		t.Fatalf("tag = %d, want TagAttached", tag)
	}
	var attached protocol.Attached
	if err := protocol.Decode(body, &attached); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if attached.RegionName != "/scarab-shm-test" || attached.Cols != 80 {
		t.Fatalf("unexpected Attached: %+v", attached)
	}
}

func TestServer_UnknownSession_RepliesErrorNotFound(t *testing.T) {
	_, _, path := newTestServer(t)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload, _ := protocol.Encode(protocol.Attach{SessionID: "missing"})
	protocol.WriteFrame(conn, protocol.TagAttach, payload)

	tag, body, err := protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if tag != protocol.TagError {
		t.Fatalf("tag = %d, want TagError", tag)
	}
	var e protocol.Error
	protocol.Decode(body, &e)
	if e.Code != protocol.ErrCodeNotFound {
		t.Fatalf("code = %q, want NotFound", e.Code)
	}
}

func TestServer_UnknownTag_ClosesConnection(t *testing.T) {
	_, _, path := newTestServer(t)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	protocol.WriteFrame(conn, protocol.Tag(999), nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	tag, _, err := protocol.ReadFrame(conn)
	if err != nil || tag != protocol.TagError {
		t.Fatalf("expected an Error reply before the close, got tag=%d err=%v", tag, err)
	}
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	if err == nil {
		t.Fatal("expected connection to be closed after an unknown tag")
	}
}

func TestServer_Detach_IncrementsHandlerCounter(t *testing.T) {
	_, h, path := newTestServer(t)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	protocol.WriteFrame(conn, protocol.TagDetach, nil)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.detached.Load() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("handler.Detach was never called")
}
