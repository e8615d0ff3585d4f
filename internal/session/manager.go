package session

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/scarab-term/scarab/internal/config"
	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/ptyhost"
	"github.com/scarab-term/scarab/internal/sharedgrid"
	"github.com/scarab-term/scarab/internal/vte"
	"github.com/scarab-term/scarab/internal/xdg"
)

// Manager owns the SessionId -> Session map plus its SQLite-backed
// persistence, implementing control.Handler. Operations are guarded by a
// reader-writer lock allowing concurrent list/attach with exclusive
// create/delete/rename, per spec.md §4.6.
type Manager struct {
	mu       sync.RWMutex
	sessions map[protocol.SessionID]*Session

	// clientSessions tracks which session a client_id is currently
	// attached to, since Detach/Input/Resize arrive keyed only by
	// client_id (spec.md §4.5).
	clientMu       sync.Mutex
	clientSessions map[protocol.ClientID]protocol.SessionID

	store    *store
	dbLock   *flock.Flock
	cfg      config.Config
	logger   *log.Logger
	shell    string
	gcStop   chan struct{}
	gcDone   chan struct{}
}

// NewManager opens (creating if absent) the sessions database at dbPath,
// loads persisted sessions without spawning their PTYs, and starts the
// periodic GC sweep.
func NewManager(dbPath string, cfg config.Config, logger *log.Logger) (*Manager, error) {
	if err := os.MkdirAll(parentDir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("session: create data dir: %w", err)
	}
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	persisted, err := st.loadAll()
	if err != nil {
		st.close()
		return nil, err
	}

	m := &Manager{
		sessions:       make(map[protocol.SessionID]*Session),
		clientSessions: make(map[protocol.ClientID]protocol.SessionID),
		store:          st,
		dbLock:         flock.New(dbPath + ".lock"),
		cfg:            cfg,
		logger:         logger,
		shell:          loginShell(),
		gcStop:         make(chan struct{}),
		gcDone:         make(chan struct{}),
	}
	for _, s := range persisted {
		m.sessions[s.ID] = s
	}

	go m.gcLoop()
	return m, nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func loginShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// Close stops the GC loop, tears down every live session's PTY and
// shared-grid region (see teardownLive), and then closes the database.
func (m *Manager) Close() error {
	close(m.gcStop)
	<-m.gcDone

	m.mu.Lock()
	for _, s := range m.sessions {
		m.teardownLive(s)
	}
	m.mu.Unlock()

	return m.store.close()
}

// teardownLive closes a session's PTY and its shared-grid region;
// Region.Close unmaps the region and, since this daemon created it, also
// unlinks it. The caller holds m.mu.
func (m *Manager) teardownLive(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pty != nil {
		s.pty.Close()
	}
	if s.region != nil {
		s.region.Close()
	}
}

// --- control.Handler ---

// Attach implements control.Handler. It lazily spawns the session's PTY
// and shared-grid region on first attach, whether the session is brand
// new or resurrected from persistence (spec.md §4.6).
func (m *Manager) Attach(client protocol.ClientID, req protocol.Attach) (protocol.Attached, error) {
	// m.mu stays read-locked until the client is recorded, so a
	// SessionDelete (which takes m.mu exclusively) cannot run in between.
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[req.SessionID]
	if !ok {
		return protocol.Attached{}, errNotFound
	}

	s.mu.Lock()
	if s.pty == nil && !s.exited {
		if err := m.spawnLocked(s, req.Cols, req.Rows); err != nil {
			s.mu.Unlock()
			return protocol.Attached{}, fmt.Errorf("session: spawn: %w", err)
		}
	}
	s.clients[client] = struct{}{}
	s.LastAttached = time.Now()
	cols, rows := s.cols(), s.rows()
	regionName := ""
	if s.region != nil {
		regionName = s.region.Name()
	}
	s.mu.Unlock()

	m.store.updateLastAttached(s.ID, time.Now())

	m.clientMu.Lock()
	m.clientSessions[client] = s.ID
	m.clientMu.Unlock()

	return protocol.Attached{ClientID: client, RegionName: regionName, Cols: cols, Rows: rows}, nil
}

// spawnLocked allocates the grid region, VTE parser, and PTY for s. The
// caller must hold s.mu.
func (m *Manager) spawnLocked(s *Session, cols, rows uint16) error {
	if cols == 0 {
		cols = uint16(m.cfg.Grid.Cols)
	}
	if rows == 0 {
		rows = uint16(m.cfg.Grid.Rows)
	}
	region, err := sharedgrid.Create(xdg.RegionName(shortID(s.ID)), int(cols), int(rows))
	if err != nil {
		return fmt.Errorf("create grid region: %w", err)
	}

	parser := vte.New(region, vte.Config{
		ScrollbackDepth:        m.cfg.Scrollback.Depth,
		IncludeAltInScrollback: m.cfg.Scrollback.IncludeAltScreen,
	})

	pty, err := ptyhost.Spawn(m.shell, nil, map[string]string{"TERM": "xterm-256color"}, "", int(cols), int(rows), parser)
	if err != nil {
		region.Close()
		return fmt.Errorf("spawn pty: %w", err)
	}

	sessionID := s.ID
	pty.OnExit(func(error) {
		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()
		logf(m.logger, "session %s: pty exited", sessionID)
	})

	s.region = region
	s.parser = parser
	s.pty = pty
	return nil
}

func (s *Session) cols() uint16 {
	if s.region == nil {
		return 0
	}
	c, _ := s.region.Capacity()
	return uint16(c)
}

func (s *Session) rows() uint16 {
	if s.region == nil {
		return 0
	}
	_, r := s.region.Capacity()
	return uint16(r)
}

// Detach implements control.Handler.
func (m *Manager) Detach(client protocol.ClientID) {
	m.clientMu.Lock()
	sid, ok := m.clientSessions[client]
	delete(m.clientSessions, client)
	m.clientMu.Unlock()
	if !ok {
		return
	}

	m.mu.RLock()
	s, ok := m.sessions[sid]
	m.mu.RUnlock()
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
}

// Input implements control.Handler.
func (m *Manager) Input(client protocol.ClientID, req protocol.Input) error {
	s, err := m.sessionForClient(client)
	if err != nil {
		return err
	}
	s.mu.Lock()
	pty := s.pty
	s.mu.Unlock()
	if pty == nil {
		return nil // session exited or never attached; drop silently
	}
	pty.WriteInput(req.Bytes)
	return nil
}

// Resize implements control.Handler.
func (m *Manager) Resize(client protocol.ClientID, req protocol.Resize) error {
	s, err := m.sessionForClient(client)
	if err != nil {
		return err
	}
	s.mu.Lock()
	region := s.region
	s.mu.Unlock()
	if region == nil {
		return nil
	}
	region.RequestResize(req.Cols, req.Rows)
	return nil
}

func (m *Manager) sessionForClient(client protocol.ClientID) (*Session, error) {
	m.clientMu.Lock()
	sid, ok := m.clientSessions[client]
	m.clientMu.Unlock()
	if !ok {
		return nil, errNotFound
	}
	m.mu.RLock()
	s, ok := m.sessions[sid]
	m.mu.RUnlock()
	if !ok {
		return nil, errNotFound
	}
	return s, nil
}

// SessionCreate implements control.Handler.
func (m *Manager) SessionCreate(req protocol.SessionCreate) (protocol.SessionCreated, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Name == req.Name {
			return protocol.SessionCreated{}, errNameTaken
		}
	}

	s := newSession(newSessionID(), req.Name)
	if err := m.store.insert(s); err != nil {
		return protocol.SessionCreated{}, err
	}
	m.sessions[s.ID] = s
	return protocol.SessionCreated{ID: s.ID}, nil
}

// SessionList implements control.Handler.
func (m *Manager) SessionList() (protocol.SessionListReply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]protocol.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.info())
	}
	return protocol.SessionListReply{Sessions: infos}, nil
}

// SessionDelete implements control.Handler. Deletion is refused while any
// client is attached (spec.md I6).
func (m *Manager) SessionDelete(req protocol.SessionDelete) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[req.ID]
	if !ok {
		return errNotFound
	}
	if s.attachedCount() > 0 {
		return errSessionBusy
	}

	m.destroyLocked(s)
	return nil
}

// destroyLocked terminates the PTY, unlinks the grid region, and removes
// the persisted row. The caller holds m.mu and has already verified the
// session has no attached clients.
func (m *Manager) destroyLocked(s *Session) {
	s.mu.Lock()
	if s.pty != nil {
		s.pty.Terminate(time.Second)
	}
	if s.region != nil {
		name := s.region.Name()
		s.region.Close()
		sharedgrid.Unlink(name)
	}
	s.mu.Unlock()

	if err := m.store.delete(s.ID); err != nil {
		logf(m.logger, "session %s: delete row: %v", s.ID, err)
	}
	delete(m.sessions, s.ID)
}

// SessionRename implements control.Handler.
func (m *Manager) SessionRename(req protocol.SessionRename) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[req.ID]
	if !ok {
		return errNotFound
	}
	for id, other := range m.sessions {
		if id != req.ID && other.Name == req.Name {
			return errNameTaken
		}
	}
	s.mu.Lock()
	s.Name = req.Name
	s.mu.Unlock()
	return m.store.rename(req.ID, req.Name)
}

// gcLoop periodically deletes sessions with zero attachments older than
// the configured TTL (spec.md §4.6). It guards the sweep with an
// advisory file lock so two daemon instances racing past a stale-PID
// check cannot corrupt sessions.db concurrently.
func (m *Manager) gcLoop() {
	defer close(m.gcDone)
	ttl := m.cfg.Session.GCTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	ticker := time.NewTicker(ttl / 30)
	if ttl < 30*time.Minute {
		ticker = time.NewTicker(time.Minute)
	}
	defer ticker.Stop()

	for {
		select {
		case <-m.gcStop:
			return
		case <-ticker.C:
			m.sweep(ttl)
		}
	}
}

func (m *Manager) sweep(ttl time.Duration) {
	locked, err := m.dbLock.TryLock()
	if err != nil || !locked {
		return
	}
	defer m.dbLock.Unlock()

	cutoff := time.Now().Add(-ttl)
	ids, err := m.store.staleBefore(cutoff)
	if err != nil {
		logf(m.logger, "gc: query stale sessions: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		s, ok := m.sessions[id]
		if !ok || s.attachedCount() > 0 {
			continue
		}
		logf(m.logger, "gc: deleting session %s (%s), idle past ttl", id, s.Name)
		m.destroyLocked(s)
	}
}
