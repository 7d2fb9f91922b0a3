package session

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPool_BorrowRelease(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	p, err := New(context.Background(), db, 2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	s1, err := p.Borrow()
	if err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}
	s2, err := p.Borrow()
	if err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}

	if _, err := p.Borrow(); err == nil {
		t.Fatal("expected error borrowing from exhausted pool")
	}

	p.Release(s1)
	if _, err := p.Borrow(); err != nil {
		t.Fatalf("Borrow() after release error = %v", err)
	}

	s2.Pin()
	p.Release(s2)
	if _, err := p.Borrow(); err == nil {
		t.Fatal("pinned session should not return to the free list")
	}
}

func TestPool_All(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	p, err := New(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	if got := len(p.All()); got != 3 {
		t.Errorf("All() returned %d sessions, want 3", got)
	}
}

func TestNew_RejectsNonPositiveCapacity(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	if _, err := New(context.Background(), db, 0); err == nil {
		t.Fatal("expected error for capacity 0")
	}
}
