package session

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scarab-term/scarab/internal/protocol"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	name          TEXT UNIQUE NOT NULL,
	created       INTEGER NOT NULL,
	last_attached INTEGER NOT NULL,
	tags          TEXT,
	metadata      BLOB
);
`

// store wraps the sqlite-backed persistence described in spec.md §4.6.
// Metadata is kept as an opaque blob per the spec's Open Question (a): no
// schema is imposed beyond "bytes in, bytes out".
type store struct {
	db *sql.DB
}

func openStore(path string) (*store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sessions db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create schema: %w", err)
	}
	return &store{db: db}, nil
}

func (st *store) close() error { return st.db.Close() }

func (st *store) insert(s *Session) error {
	_, err := st.db.Exec(
		`INSERT INTO sessions (id, name, created, last_attached, tags, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		string(s.ID), s.Name, s.Created.Unix(), s.LastAttached.Unix(), strings.Join(s.Tags, ","), s.Metadata,
	)
	if err != nil {
		return fmt.Errorf("session: insert %s: %w", s.Name, err)
	}
	return nil
}

func (st *store) updateLastAttached(id protocol.SessionID, t time.Time) error {
	_, err := st.db.Exec(`UPDATE sessions SET last_attached = ? WHERE id = ?`, t.Unix(), string(id))
	return err
}

func (st *store) rename(id protocol.SessionID, name string) error {
	_, err := st.db.Exec(`UPDATE sessions SET name = ? WHERE id = ?`, name, string(id))
	return err
}

func (st *store) delete(id protocol.SessionID) error {
	_, err := st.db.Exec(`DELETE FROM sessions WHERE id = ?`, string(id))
	return err
}

// loadAll returns every persisted session row, used at startup for
// resurrection (spec.md §4.6: "load persisted rows; do not re-spawn PTYs
// eagerly").
func (st *store) loadAll() ([]*Session, error) {
	rows, err := st.db.Query(`SELECT id, name, created, last_attached, tags, metadata FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("session: load sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var id, name, tags string
		var created, lastAttached int64
		var metadata []byte
		if err := rows.Scan(&id, &name, &created, &lastAttached, &tags, &metadata); err != nil {
			return nil, fmt.Errorf("session: scan row: %w", err)
		}
		s := newSession(protocol.SessionID(id), name)
		s.Created = time.Unix(created, 0)
		s.LastAttached = time.Unix(lastAttached, 0)
		s.Metadata = metadata
		if tags != "" {
			s.Tags = strings.Split(tags, ",")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// staleBefore returns the ids of sessions whose persisted last_attached
// predates cutoff, for the GC sweep (spec.md §4.6). The query knows
// nothing of live attachments, so the caller re-checks the attached-client
// count before deleting.
func (st *store) staleBefore(cutoff time.Time) ([]protocol.SessionID, error) {
	rows, err := st.db.Query(`SELECT id FROM sessions WHERE last_attached < ?`, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []protocol.SessionID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, protocol.SessionID(id))
	}
	return ids, rows.Err()
}
