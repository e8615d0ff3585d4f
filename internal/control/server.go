// Package control implements the Unix-socket control channel (spec.md
// §4.5): accepting client connections, assigning client ids, and
// dispatching the fourteen length-framed message tags to a Handler.
//
// The accept-loop/per-connection-goroutine shape follows the teacher's
// internal/daemon.Daemon.acceptLoop and internal/session/attach.go's
// per-connection frame reader, generalized from one attach-only
// connection to many concurrent session-scoped connections.
package control

import (
	"errors"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/scarab-term/scarab/internal/protocol"
)

// Handler receives decoded control messages dispatched by Server. Each
// method runs on the connection's own goroutine; implementations (the
// session manager) are responsible for their own internal synchronization.
type Handler interface {
	Attach(client protocol.ClientID, req protocol.Attach) (protocol.Attached, error)
	Detach(client protocol.ClientID)
	Input(client protocol.ClientID, req protocol.Input) error
	Resize(client protocol.ClientID, req protocol.Resize) error
	SessionCreate(req protocol.SessionCreate) (protocol.SessionCreated, error)
	SessionList() (protocol.SessionListReply, error)
	SessionDelete(req protocol.SessionDelete) error
	SessionRename(req protocol.SessionRename) error
}

// Server listens on a single Unix domain socket and dispatches frames from
// every accepted connection to a Handler (spec.md §4.5: "on accept, each
// client is assigned a client_id").
type Server struct {
	ln      net.Listener
	handler Handler
	logger  *log.Logger

	nextClientID atomic.Uint64

	mu    sync.Mutex
	conns map[protocol.ClientID]net.Conn
}

// Listen binds a Unix socket at path with mode 0700 (spec.md §6). Any
// stale socket file is removed first, matching the teacher's
// stale-socket-detection pattern in internal/daemon.Daemon.Run (a
// connect-then-remove check is the caller's responsibility before
// calling Listen, since only the caller knows whether another daemon is
// actually alive).
func Listen(path string, handler Handler, logger *log.Logger) (*Server, error) {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o700); err != nil {
		ln.Close()
		return nil, err
	}
	return &Server{
		ln:      ln,
		handler: handler,
		logger:  logger,
		conns:   make(map[protocol.ClientID]net.Conn),
	}, nil
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve runs the accept loop until the listener is closed. It always
// returns a non-nil error (net.ErrClosed on clean shutdown).
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		clientID := protocol.ClientID(s.nextClientID.Add(1))
		s.mu.Lock()
		s.conns[clientID] = conn
		s.mu.Unlock()
		go s.handleConn(clientID, conn)
	}
}

// Close stops accepting new connections and closes all live ones, then
// removes the socket file (spec.md §5: "daemon shutdown ... unlinks the
// control socket").
func (s *Server) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for id, conn := range s.conns {
		conn.Close()
		delete(s.conns, id)
	}
	s.mu.Unlock()
	return err
}

func (s *Server) handleConn(clientID protocol.ClientID, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("client %d: panic recovered: %v", clientID, r)
		}
		s.handler.Detach(clientID)
		conn.Close()
		s.mu.Lock()
		delete(s.conns, clientID)
		s.mu.Unlock()
	}()

	for {
		tag, payload, err := protocol.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Printf("client %d: read frame: %v", clientID, err)
			}
			return
		}
		if !s.dispatch(clientID, conn, tag, payload) {
			return
		}
	}
}

// dispatch handles one frame, returning false if the connection should be
// closed (protocol violation per spec.md §7, or a clean Detach).
func (s *Server) dispatch(clientID protocol.ClientID, conn net.Conn, tag protocol.Tag, payload []byte) bool {
	msg, err := protocol.NewForTag(tag)
	if err != nil {
		s.sendError(conn, protocol.ErrCodeUnknownTag, err.Error())
		return false
	}
	if err := protocol.Decode(payload, msg); err != nil {
		s.sendError(conn, protocol.ErrCodeBadFrame, err.Error())
		return false
	}

	switch tag {
	case protocol.TagAttach:
		reply, err := s.handler.Attach(clientID, *msg.(*protocol.Attach))
		return s.reply(conn, protocol.TagAttached, reply, err)
	case protocol.TagDetach:
		s.handler.Detach(clientID)
		return false
	case protocol.TagInput:
		err := s.handler.Input(clientID, *msg.(*protocol.Input))
		if err != nil {
			s.sendError(conn, protocol.ErrCodeInternal, err.Error())
			return false
		}
		return true
	case protocol.TagResize:
		err := s.handler.Resize(clientID, *msg.(*protocol.Resize))
		if err != nil {
			s.sendError(conn, protocol.ErrCodeInternal, err.Error())
			return false
		}
		return true
	case protocol.TagSessionCreate:
		reply, err := s.handler.SessionCreate(*msg.(*protocol.SessionCreate))
		return s.reply(conn, protocol.TagSessionCreated, reply, err)
	case protocol.TagSessionList:
		reply, err := s.handler.SessionList()
		return s.reply(conn, protocol.TagSessionListReply, reply, err)
	case protocol.TagSessionDelete:
		err := s.handler.SessionDelete(*msg.(*protocol.SessionDelete))
		if err != nil {
			s.sendError(conn, classifyErr(err), err.Error())
			return true
		}
		return s.reply(conn, protocol.TagSessionDelete, struct{}{}, nil)
	case protocol.TagSessionRename:
		err := s.handler.SessionRename(*msg.(*protocol.SessionRename))
		if err != nil {
			s.sendError(conn, classifyErr(err), err.Error())
			return true
		}
		return s.reply(conn, protocol.TagSessionRename, struct{}{}, nil)
	case protocol.TagPing:
		ping := *msg.(*protocol.Ping)
		return s.reply(conn, protocol.TagPong, protocol.Pong{T: ping.T}, nil)
	default:
		s.sendError(conn, protocol.ErrCodeUnknownTag, "unsupported inbound tag")
		return false
	}
}

func (s *Server) reply(conn net.Conn, tag protocol.Tag, v any, err error) bool {
	if err != nil {
		s.sendError(conn, classifyErr(err), err.Error())
		return true
	}
	payload, encErr := protocol.Encode(v)
	if encErr != nil {
		s.logger.Printf("encode reply for tag %d: %v", tag, encErr)
		return false
	}
	if writeErr := protocol.WriteFrame(conn, tag, payload); writeErr != nil {
		s.logger.Printf("write frame for tag %d: %v", tag, writeErr)
		return false
	}
	return true
}

func (s *Server) sendError(conn net.Conn, code protocol.ErrorCode, message string) {
	payload, err := protocol.Encode(protocol.Error{Code: code, Message: message})
	if err != nil {
		return
	}
	protocol.WriteFrame(conn, protocol.TagError, payload)
}

// classifyErr maps a Handler error to a stable ErrorCode. Handlers that
// care about a specific code should return an error that implements
// Code() protocol.ErrorCode (found via errors.As); anything else
// defaults to Internal.
func classifyErr(err error) protocol.ErrorCode {
	var coded interface{ Code() protocol.ErrorCode }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return protocol.ErrCodeInternal
}
