// Package consistency implements the dump snapshot protocol: acquiring an
// instance-wide read lock (or a LOCK TABLES fallback), releasing it only
// after every worker session has entered its own consistent-snapshot
// transaction, and optionally cross-checking that every session observed
// the same GTID/binlog position.
package consistency

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-sql-driver/mysql"

	internalmysql "github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/session"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

// Coordinator runs the consistent-snapshot handshake across a session
// pool's worker sessions, using a dedicated lock session.
type Coordinator struct {
	LockSession *session.Session
	Tables      []string // "schema.table", used only by the LOCK TABLES fallback

	// SkipFTWRL, when set, skips the FLUSH TABLES WITH READ LOCK attempt
	// entirely and goes straight to the LOCK TABLES fallback. A Galera or
	// Group Replication node rejects FTWRL (or stalls the whole cluster
	// under it), so probing it first only wastes a round trip.
	SkipFTWRL bool
}

// New returns a Coordinator that will lock using lockSession and, if
// privilege-denied, fall back to LOCK TABLES over tables.
func New(lockSession *session.Session, tables []string) *Coordinator {
	return &Coordinator{LockSession: lockSession, Tables: tables}
}

// Acquire runs FLUSH TABLES WITH READ LOCK, falling back to LOCK TABLES on
// privilege denial (or immediately, if SkipFTWRL is set). Returns a release
// func the caller must invoke after every worker session has begun its
// snapshot.
func (c *Coordinator) Acquire(ctx context.Context) (release func(context.Context) error, err error) {
	conn := c.LockSession.Conn

	if !c.SkipFTWRL {
		_, ftwrlErr := conn.ExecContext(ctx, "FLUSH TABLES WITH READ LOCK")
		if ftwrlErr == nil {
			return func(ctx context.Context) error {
				_, err := conn.ExecContext(ctx, "UNLOCK TABLES")
				return err
			}, nil
		}

		var merr *mysql.MySQLError
		if !isAccessDenied(ftwrlErr, &merr) {
			return nil, shellerr.Wrap(shellerr.ServerError, "FLUSH TABLES WITH READ LOCK failed", ftwrlErr)
		}
	}

	if len(c.Tables) == 0 {
		return nil, shellerr.New(shellerr.PreconditionError, "LOCK TABLES fallback requires a non-empty table list")
	}
	stmt := "LOCK TABLES " + lockTableList(c.Tables)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return nil, shellerr.Wrap(shellerr.ServerError, "LOCK TABLES fallback failed", err)
	}
	return func(ctx context.Context) error {
		_, err := conn.ExecContext(ctx, "UNLOCK TABLES")
		return err
	}, nil
}

func isAccessDenied(err error, target **mysql.MySQLError) bool {
	me, ok := err.(*mysql.MySQLError)
	if !ok {
		return false
	}
	*target = me
	return me.Number == 1045 || me.Number == 1142 || me.Number == 1227
}

func lockTableList(tables []string) string {
	out := ""
	for i, t := range tables {
		if i > 0 {
			out += ", "
		}
		out += t + " READ"
	}
	return out
}

// Barrier starts a consistent-snapshot transaction on every session in
// sessions, releasing the held lock (via release) only after the last one
// has entered its transaction, so no session can observe writes that
// happened between the lock and another session's snapshot start.
func Barrier(ctx context.Context, sessions []*session.Session, release func(context.Context) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(sessions))
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *session.Session) {
			defer wg.Done()
			errs[i] = session.BeginConsistentSnapshot(ctx, s)
			if errs[i] == nil {
				s.Pin()
			}
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			release(ctx)
			return shellerr.Wrap(shellerr.ConsistencyError, "starting consistent snapshot", err)
		}
	}
	return release(ctx)
}

// VerifyGTIDConsistency checks that every session in sessions observes the
// same gtid_executed value. A mismatch is fatal unless skipChecks is true.
func VerifyGTIDConsistency(ctx context.Context, sessions []*session.Session, skipChecks bool) error {
	if skipChecks || len(sessions) == 0 {
		return nil
	}

	first, err := internalmysql.GetGTIDExecuted(ctx, sessions[0].Conn)
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "reading gtid_executed", err)
	}

	for _, s := range sessions[1:] {
		v, err := internalmysql.GetGTIDExecuted(ctx, s.Conn)
		if err != nil {
			return shellerr.Wrap(shellerr.PersistentIO, "reading gtid_executed", err)
		}
		if v != first {
			return shellerr.New(shellerr.ConsistencyError, fmt.Sprintf("gtid_executed mismatch across snapshot sessions: %q vs %q", first, v))
		}
	}
	return nil
}
