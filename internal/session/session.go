// Package session implements the Session Manager (spec.md §4.6): the
// SessionId -> Session map, SQLite-backed persistence, lazy PTY/grid
// resurrection, and the attach/delete mutual-exclusion rule. Manager
// implements control.Handler.
//
// Grounded on the teacher's internal/session/daemon.go and
// internal/session/attach.go for the per-session lifecycle shape, and on
// ehrlich-b-wingthing's use of modernc.org/sqlite for the persistence
// layer this teacher never needed (it has no durable store of its own).
package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/ptyhost"
	"github.com/scarab-term/scarab/internal/sharedgrid"
	"github.com/scarab-term/scarab/internal/vte"
)

// Session is one PTY + grid + client-set tuple (spec.md §3).
type Session struct {
	ID           protocol.SessionID
	Name         string
	Created      time.Time
	LastAttached time.Time
	Tags         []string
	Metadata     []byte

	mu      sync.Mutex
	pty     *ptyhost.PTY
	parser  *vte.Parser
	region  *sharedgrid.Region
	exited  bool
	clients map[protocol.ClientID]struct{}
}

func newSession(id protocol.SessionID, name string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Name:         name,
		Created:      now,
		LastAttached: now,
		clients:      make(map[protocol.ClientID]struct{}),
	}
}

func (s *Session) attachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Session) info() protocol.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.SessionInfo{
		ID:           s.ID,
		Name:         s.Name,
		Created:      s.Created,
		LastAttached: s.LastAttached,
		Tags:         s.Tags,
		Attached:     len(s.clients),
		Exited:       s.exited,
	}
}

// codedError pairs an error message with a stable protocol.ErrorCode, so
// control.Server's classifyErr can reply with the right variant without
// the control package importing session.
type codedError struct {
	code protocol.ErrorCode
	msg  string
}

func (e codedError) Error() string             { return e.msg }
func (e codedError) Code() protocol.ErrorCode  { return e.code }

var (
	errSessionBusy = codedError{protocol.ErrCodeSessionBusy, "session has attached clients"}
	errNotFound    = codedError{protocol.ErrCodeNotFound, "session not found"}
	errNameTaken   = codedError{protocol.ErrCodeNameTaken, "session name already in use"}
)

// newSessionID generates a fresh session identifier (spec.md §3: "an
// identifier (UUID)"), using the teacher's google/uuid dependency.
func newSessionID() protocol.SessionID {
	return protocol.SessionID(uuid.NewString())
}

// shortID returns the first 12 characters of id (for a UUID string: eight
// hex digits, a hyphen and three more hex digits) for use in the
// shared-memory region name (spec.md §6: "/scarab-shm-<session-id-short>").
func shortID(id protocol.SessionID) string {
	s := string(id)
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
