package dumpsched

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/DevSingh98/mysql-shell/internal/chunker"
	"github.com/DevSingh98/mysql-shell/internal/session"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

func newSessions(t *testing.T, n int) ([]*session.Session, func()) {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	var sessions []*session.Session
	for i := 0; i < n; i++ {
		conn, err := db.Conn(context.Background())
		if err != nil {
			t.Fatalf("db.Conn() error = %v", err)
		}
		sessions = append(sessions, &session.Session{Conn: conn})
	}
	return sessions, func() { db.Close() }
}

type fakeProgress struct {
	mu        sync.Mutex
	done      int
	retriable int
}

func (f *fakeProgress) ChunkDone(ctx context.Context, schema, table string, chunkIndex int) error {
	f.mu.Lock()
	f.done++
	f.mu.Unlock()
	return nil
}

func (f *fakeProgress) ChunkRetriable(ctx context.Context, schema, table string, chunkIndex int, cause error) error {
	f.mu.Lock()
	f.retriable++
	f.mu.Unlock()
	return nil
}

func TestJobQueue_LongestJobFirstThenInsertionOrder(t *testing.T) {
	s := New(nil, 0)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "small1"}}, 100)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "big"}}, 1000)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "small2"}}, 100)

	first, _ := s.pop()
	if first.Chunk.Table != "big" {
		t.Errorf("first pop = %q, want big", first.Chunk.Table)
	}
	second, _ := s.pop()
	if second.Chunk.Table != "small1" {
		t.Errorf("second pop = %q, want small1 (insertion order tie-break)", second.Chunk.Table)
	}
	third, _ := s.pop()
	if third.Chunk.Table != "small2" {
		t.Errorf("third pop = %q, want small2", third.Chunk.Table)
	}
	if _, ok := s.pop(); ok {
		t.Error("expected queue empty")
	}
}

func TestRun_AllJobsSucceed(t *testing.T) {
	sessions, closeFn := newSessions(t, 2)
	defer closeFn()

	prog := &fakeProgress{}
	s := New(prog, 0)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "t1"}, {Table: "t2"}, {Table: "t3"}}, 10)

	var ran atomic.Int32
	err := s.Run(context.Background(), sessions, func(ctx context.Context, job Job, sess *session.Session, cancelled *atomic.Bool) error {
		ran.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ran.Load() != 3 {
		t.Errorf("ran %d jobs, want 3", ran.Load())
	}
	if prog.done != 3 {
		t.Errorf("progress recorded %d done, want 3", prog.done)
	}
}

func TestRun_RetriableRequeuesUntilSuccess(t *testing.T) {
	sessions, closeFn := newSessions(t, 1)
	defer closeFn()

	prog := &fakeProgress{}
	s := New(prog, 0)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "flaky"}}, 10)

	var attempts atomic.Int32
	err := s.Run(context.Background(), sessions, func(ctx context.Context, job Job, sess *session.Session, cancelled *atomic.Bool) error {
		if attempts.Add(1) < 3 {
			return shellerr.New(shellerr.TransientIO, "connection dropped")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
	if prog.retriable != 2 {
		t.Errorf("progress recorded %d retriable, want 2", prog.retriable)
	}
	if prog.done != 1 {
		t.Errorf("progress recorded %d done, want 1", prog.done)
	}
}

func TestRun_FatalErrorAbortsScheduler(t *testing.T) {
	sessions, closeFn := newSessions(t, 2)
	defer closeFn()

	s := New(nil, 0)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "bad"}, {Table: "ok"}}, 10)

	err := s.Run(context.Background(), sessions, func(ctx context.Context, job Job, sess *session.Session, cancelled *atomic.Bool) error {
		if job.Chunk.Table == "bad" {
			return shellerr.New(shellerr.ServerError, "syntax error")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected Run() to return the fatal error")
	}
}

func TestRun_RetriableExhaustsRetriesBecomesFatal(t *testing.T) {
	sessions, closeFn := newSessions(t, 1)
	defer closeFn()

	prog := &fakeProgress{}
	s := New(prog, 0)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "alwaysflaky"}}, 10)

	err := s.Run(context.Background(), sessions, func(ctx context.Context, job Job, sess *session.Session, cancelled *atomic.Bool) error {
		return shellerr.New(shellerr.TransientIO, "connection dropped")
	})
	if err == nil {
		t.Fatal("expected Run() to fail once retries are exhausted")
	}
	if prog.retriable != MaxRetries {
		t.Errorf("progress recorded %d retriable, want %d", prog.retriable, MaxRetries)
	}
}

func TestCancel_StopsWorkersBeforeDrainingQueue(t *testing.T) {
	sessions, closeFn := newSessions(t, 1)
	defer closeFn()

	s := New(nil, 0)
	s.Enqueue([]chunker.ChunkDescriptor{{Table: "t1"}, {Table: "t2"}}, 10)
	s.Cancel()

	var ran atomic.Int32
	err := s.Run(context.Background(), sessions, func(ctx context.Context, job Job, sess *session.Session, cancelled *atomic.Bool) error {
		ran.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ran.Load() != 0 {
		t.Errorf("ran %d jobs after cancel, want 0", ran.Load())
	}
}
