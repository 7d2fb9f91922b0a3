package consistency

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/DevSingh98/mysql-shell/internal/session"
)

func newLockSession(t *testing.T) (*session.Session, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("db.Conn() error = %v", err)
	}
	return &session.Session{Conn: conn}, mock, func() { db.Close() }
}

func TestCoordinator_Acquire_FTWRLSucceeds(t *testing.T) {
	s, mock, closeFn := newLockSession(t)
	defer closeFn()

	mock.ExpectExec("FLUSH TABLES WITH READ LOCK").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UNLOCK TABLES").WillReturnResult(sqlmock.NewResult(0, 0))

	c := New(s, nil)
	release, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release() error = %v", err)
	}
}

func TestCoordinator_Acquire_FallsBackToLockTables(t *testing.T) {
	s, mock, closeFn := newLockSession(t)
	defer closeFn()

	mock.ExpectExec("FLUSH TABLES WITH READ LOCK").
		WillReturnError(&mysqldriver.MySQLError{Number: 1045, Message: "access denied"})
	mock.ExpectExec("LOCK TABLES app.users READ").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UNLOCK TABLES").WillReturnResult(sqlmock.NewResult(0, 0))

	c := New(s, []string{"app.users"})
	release, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release() error = %v", err)
	}
}

func TestCoordinator_Acquire_FallbackRequiresTables(t *testing.T) {
	s, mock, closeFn := newLockSession(t)
	defer closeFn()

	mock.ExpectExec("FLUSH TABLES WITH READ LOCK").
		WillReturnError(&mysqldriver.MySQLError{Number: 1045, Message: "access denied"})

	c := New(s, nil)
	if _, err := c.Acquire(context.Background()); err == nil {
		t.Fatal("expected error when fallback has no tables")
	}
}

func TestCoordinator_Acquire_SkipFTWRLGoesStraightToLockTables(t *testing.T) {
	s, mock, closeFn := newLockSession(t)
	defer closeFn()

	mock.ExpectExec("LOCK TABLES app.users READ").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UNLOCK TABLES").WillReturnResult(sqlmock.NewResult(0, 0))

	c := New(s, []string{"app.users"})
	c.SkipFTWRL = true
	release, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBarrier_PinsEverySessionAndReleases(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	// Barrier starts every session's snapshot concurrently, so the
	// per-session statement pairs may interleave.
	mock.MatchExpectationsInOrder(false)

	var sessions []*session.Session
	for i := 0; i < 3; i++ {
		mock.ExpectExec("SET SESSION TRANSACTION ISOLATION LEVEL REPEATABLE READ").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("START TRANSACTION WITH CONSISTENT SNAPSHOT").WillReturnResult(sqlmock.NewResult(0, 0))
		conn, err := db.Conn(context.Background())
		if err != nil {
			t.Fatalf("db.Conn() error = %v", err)
		}
		sessions = append(sessions, &session.Session{Conn: conn})
	}

	released := false
	err = Barrier(context.Background(), sessions, func(context.Context) error {
		released = true
		return nil
	})
	if err != nil {
		t.Fatalf("Barrier() error = %v", err)
	}
	if !released {
		t.Error("expected release to be called")
	}
}

func TestVerifyGTIDConsistency_SkippedWhenRequested(t *testing.T) {
	if err := VerifyGTIDConsistency(context.Background(), nil, true); err != nil {
		t.Fatalf("VerifyGTIDConsistency() error = %v", err)
	}
}

func TestVerifyGTIDConsistency_Matches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT @@GLOBAL.gtid_executed").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("uuid:1-5"))
	mock.ExpectQuery("SELECT @@GLOBAL.gtid_executed").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("uuid:1-5"))

	var sessions []*session.Session
	for i := 0; i < 2; i++ {
		conn, err := db.Conn(context.Background())
		if err != nil {
			t.Fatalf("db.Conn() error = %v", err)
		}
		sessions = append(sessions, &session.Session{Conn: conn})
	}

	if err := VerifyGTIDConsistency(context.Background(), sessions, false); err != nil {
		t.Fatalf("VerifyGTIDConsistency() error = %v", err)
	}
}

func TestVerifyGTIDConsistency_Mismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT @@GLOBAL.gtid_executed").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("uuid:1-5"))
	mock.ExpectQuery("SELECT @@GLOBAL.gtid_executed").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("uuid:1-6"))

	var sessions []*session.Session
	for i := 0; i < 2; i++ {
		conn, err := db.Conn(context.Background())
		if err != nil {
			t.Fatalf("db.Conn() error = %v", err)
		}
		sessions = append(sessions, &session.Session{Conn: conn})
	}

	if err := VerifyGTIDConsistency(context.Background(), sessions, false); err == nil {
		t.Fatal("expected mismatch error")
	}
}
