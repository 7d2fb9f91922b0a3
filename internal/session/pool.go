// Package session manages the fixed-capacity pool of borrowed MySQL
// connections dump and load workers use, and the session-init sequence the
// loader runs on each one.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

// Session wraps a borrowed *sql.Conn. Once Pin is called the session is
// never returned to the free list; Pool.Close still closes it along with
// everything else.
type Session struct {
	Conn *sql.Conn

	mu     sync.Mutex
	pinned bool
}

// Pin marks the session as snapshot-bound. Called once the consistency
// protocol has started a transaction on this connection.
func (s *Session) Pin() {
	s.mu.Lock()
	s.pinned = true
	s.mu.Unlock()
}

func (s *Session) isPinned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned
}

// Pool hands out up to capacity *sql.Conn-backed sessions from a shared
// *sql.DB. Dump sizes it threads+1 (one extra for the consistency
// coordinator's FLUSH/LOCK session); load sizes it
// threads+backgroundThreads.
type Pool struct {
	db       *sql.DB
	capacity int

	mu       sync.Mutex
	sessions []*Session
	free     []*Session
}

// New opens capacity connections against db (already sized via
// mysql.OpenPooled with a matching maxConns) and wraps each one.
func New(ctx context.Context, db *sql.DB, capacity int) (*Pool, error) {
	if capacity < 1 {
		return nil, shellerr.New(shellerr.ArgumentError, "session pool capacity must be >= 1")
	}

	p := &Pool{db: db, capacity: capacity}
	for i := 0; i < capacity; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			p.Close()
			return nil, shellerr.Wrap(shellerr.PreconditionError, "opening session", err)
		}
		s := &Session{Conn: conn}
		p.sessions = append(p.sessions, s)
		p.free = append(p.free, s)
	}
	return p, nil
}

// Borrow takes the next free, unpinned session. Returns an error if the
// pool is exhausted; callers size the pool so this should not happen under
// normal scheduling.
func (p *Pool) Borrow() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return nil, shellerr.New(shellerr.PreconditionError, "session pool exhausted")
	}
	s := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return s, nil
}

// Release returns s to the free list, unless it has been pinned.
func (p *Pool) Release(s *Session) {
	if s.isPinned() {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, s)
	p.mu.Unlock()
}

// All returns every session the pool manages, pinned or not. Used by the
// consistency coordinator to fan a statement out to every worker session.
func (p *Pool) All() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Close closes every session this pool owns and then the backing *sql.DB.
func (p *Pool) Close() error {
	p.mu.Lock()
	sessions := p.sessions
	p.sessions, p.free = nil, nil
	p.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing session: %w", err)
		}
	}
	if err := p.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing pool: %w", err)
	}
	return firstErr
}
