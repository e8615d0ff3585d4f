package control

import (
	"fmt"
	"net"

	"github.com/scarab-term/scarab/internal/protocol"
)

// Client is a thin synchronous request/reply wrapper over one control-
// channel connection. The CLI commands use Call for every request; the
// GPU render client uses it for its Attach handshake and final Detach,
// and writes Input/Resize frames directly, since those get no reply.
type Client struct {
	conn net.Conn
}

// NewClient wraps an already-dialed connection (see Dial in dialer.go).
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Conn exposes the underlying connection for callers (the sync loop,
// input forwarding) that need to read/write frames directly after an
// initial Attach handshake.
func (c *Client) Conn() net.Conn { return c.conn }

// Call sends one tagged request and returns the decoded reply, or an
// error built from an Error frame / protocol violation.
func (c *Client) Call(tag protocol.Tag, req any, reply any) error {
	payload, err := protocol.Encode(req)
	if err != nil {
		return fmt.Errorf("control: encode request: %w", err)
	}
	if err := protocol.WriteFrame(c.conn, tag, payload); err != nil {
		return fmt.Errorf("control: write request: %w", err)
	}

	respTag, respPayload, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return fmt.Errorf("control: read reply: %w", err)
	}
	if respTag == protocol.TagError {
		var e protocol.Error
		if err := protocol.Decode(respPayload, &e); err != nil {
			return fmt.Errorf("control: decode error reply: %w", err)
		}
		return &RemoteError{Code: e.Code, Message: e.Message}
	}
	if reply != nil {
		if err := protocol.Decode(respPayload, reply); err != nil {
			return fmt.Errorf("control: decode reply: %w", err)
		}
	}
	return nil
}

// RemoteError wraps an Error frame's code/message as a Go error, letting
// CLI callers branch on Code without string matching.
type RemoteError struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
