package session

import (
	"context"
	"fmt"
)

// InitLoaderSession runs the fixed loader session-init sequence: relaxed
// SQL_MODE, disabled key/FK checks, READ UNCOMMITTED isolation, the
// requested character set, then any caller-supplied sessionInitSql
// statements in declared order.
func InitLoaderSession(ctx context.Context, s *Session, characterSet string, sessionInitSQL []string) error {
	stmts := []string{
		"SET SESSION sql_mode=''",
		"SET SESSION unique_checks=0",
		"SET SESSION foreign_key_checks=0",
		"SET SESSION TRANSACTION ISOLATION LEVEL READ UNCOMMITTED",
	}
	if characterSet != "" {
		stmts = append(stmts, fmt.Sprintf("SET NAMES %s", characterSet))
	}
	stmts = append(stmts, sessionInitSQL...)

	for _, stmt := range stmts {
		if _, err := s.Conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("session init %q: %w", stmt, err)
		}
	}
	return nil
}

// BeginConsistentSnapshot starts the dump worker's REPEATABLE READ,
// CONSISTENT SNAPSHOT transaction. Called after the consistency
// coordinator's lock step and before the session is pinned.
func BeginConsistentSnapshot(ctx context.Context, s *Session) error {
	if _, err := s.Conn.ExecContext(ctx, "SET SESSION TRANSACTION ISOLATION LEVEL REPEATABLE READ"); err != nil {
		return fmt.Errorf("setting isolation level: %w", err)
	}
	if _, err := s.Conn.ExecContext(ctx, "START TRANSACTION WITH CONSISTENT SNAPSHOT"); err != nil {
		return fmt.Errorf("starting consistent snapshot: %w", err)
	}
	return nil
}
