package session

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scarab-term/scarab/internal/config"
	"github.com/scarab-term/scarab/internal/protocol"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sessions.db")
	cfg := config.Default()
	cfg.Grid = config.GridConfig{Cols: 20, Rows: 10}
	os.Setenv("SHELL", "/bin/sh")
	m, err := NewManager(dbPath, cfg, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func waitForCond(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSessionCreate_DuplicateName_Rejected(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.SessionCreate(protocol.SessionCreate{Name: "dev"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := m.SessionCreate(protocol.SessionCreate{Name: "dev"}); err != errNameTaken {
		t.Fatalf("want errNameTaken, got %v", err)
	}
}

func TestAttach_LazilySpawnsPTYAndGrid(t *testing.T) {
	m := newTestManager(t)
	created, err := m.SessionCreate(protocol.SessionCreate{Name: "dev"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	attached, err := m.Attach(1, protocol.Attach{SessionID: created.ID, Cols: 20, Rows: 10})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if attached.RegionName == "" {
		t.Fatal("expected a region name after lazy spawn")
	}
	if attached.Cols != 20 || attached.Rows != 10 {
		t.Fatalf("unexpected dims: %+v", attached)
	}
}

func TestAttach_UnknownSession_NotFound(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Attach(1, protocol.Attach{SessionID: "nope"}); err != errNotFound {
		t.Fatalf("want errNotFound, got %v", err)
	}
}

func TestDelete_RefusedWhileAttached(t *testing.T) {
	m := newTestManager(t)
	created, _ := m.SessionCreate(protocol.SessionCreate{Name: "dev"})
	if _, err := m.Attach(1, protocol.Attach{SessionID: created.ID, Cols: 20, Rows: 10}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := m.SessionDelete(protocol.SessionDelete{ID: created.ID}); err != errSessionBusy {
		t.Fatalf("want errSessionBusy, got %v", err)
	}

	m.Detach(1)
	if err := m.SessionDelete(protocol.SessionDelete{ID: created.ID}); err != nil {
		t.Fatalf("delete after detach: %v", err)
	}

	list, _ := m.SessionList()
	for _, s := range list.Sessions {
		if s.ID == created.ID {
			t.Fatal("deleted session still listed")
		}
	}
}

func TestInput_DeliversBytesToChildPTY(t *testing.T) {
	m := newTestManager(t)
	created, _ := m.SessionCreate(protocol.SessionCreate{Name: "echoer"})
	if _, err := m.Attach(1, protocol.Attach{SessionID: created.ID, Cols: 40, Rows: 10}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := m.Input(1, protocol.Input{Bytes: []byte("echo scarab-marker\n")}); err != nil {
		t.Fatalf("input: %v", err)
	}

	m.mu.RLock()
	s := m.sessions[created.ID]
	m.mu.RUnlock()

	waitForCond(t, 3*time.Second, func() bool {
		s.mu.Lock()
		region := s.region
		s.mu.Unlock()
		if region == nil {
			return false
		}
		for row := 0; row < 10; row++ {
			line := ""
			for col := 0; col < 40; col++ {
				c := region.ReadCell(col, row)
				if c.Char != 0 {
					line += string(c.Char)
				}
			}
			if strings.Contains(line, "scarab-marker") {
				return true
			}
		}
		return false
	})
}

func TestResurrection_ListedAcrossManagerRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sessions.db")
	cfg := config.Default()

	m1, err := NewManager(dbPath, cfg, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	created, err := m1.SessionCreate(protocol.SessionCreate{Name: "dev"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m1.Close()

	m2, err := NewManager(dbPath, cfg, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewManager (restart): %v", err)
	}
	defer m2.Close()

	list, err := m2.SessionList()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, s := range list.Sessions {
		if s.ID == created.ID && s.Name == "dev" {
			found = true
		}
	}
	if !found {
		t.Fatal("resurrected session not found in list after restart")
	}
}
