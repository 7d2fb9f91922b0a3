package chunker

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newPlanner(t *testing.T) (*Planner, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("db.Conn() error = %v", err)
	}
	return New(conn), mock, func() { db.Close() }
}

func TestPlan_UnchunkableTable(t *testing.T) {
	p, mock, closeFn := newPlanner(t)
	defer closeFn()

	mock.ExpectQuery("SELECT s.INDEX_NAME").
		WillReturnRows(sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME", "NON_UNIQUE", "IS_NULLABLE", "DATA_TYPE"}))

	plan, err := p.Plan(context.Background(), "app", "logs", 64*1024*1024, 128, 1000000, "", nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Chunkable {
		t.Error("expected unchunkable plan")
	}
	if len(plan.Chunks) != 1 || !plan.Chunks[0].Single {
		t.Fatalf("expected single whole-table chunk, got %+v", plan.Chunks)
	}
}

func TestPlan_ChunkableSmallTable(t *testing.T) {
	p, mock, closeFn := newPlanner(t)
	defer closeFn()

	mock.ExpectQuery("SELECT s.INDEX_NAME").
		WillReturnRows(sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME", "NON_UNIQUE", "IS_NULLABLE", "DATA_TYPE"}).
			AddRow("PRIMARY", "id", false, "NO", "bigint"))

	plan, err := p.Plan(context.Background(), "app", "users", 64*1024*1024, 128, 100, "", nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !plan.Chunkable {
		t.Error("expected chunkable plan")
	}
	if len(plan.Chunks) != 1 || !plan.Chunks[0].Single {
		t.Fatalf("small table should fit in one chunk, got %+v", plan.Chunks)
	}
}

func TestPlan_ChunkableLargeTable(t *testing.T) {
	p, mock, closeFn := newPlanner(t)
	defer closeFn()

	mock.ExpectQuery("SELECT s.INDEX_NAME").
		WillReturnRows(sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME", "NON_UNIQUE", "IS_NULLABLE", "DATA_TYPE"}).
			AddRow("PRIMARY", "id", false, "NO", "bigint"))

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3000000)))

	mock.ExpectQuery("SELECT `id` FROM").WithArgs(1000000).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("1000000"))
	mock.ExpectQuery("SELECT `id` FROM").WithArgs(2000000).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("2000000"))

	plan, err := p.Plan(context.Background(), "app", "events", 128000000, 128, 3000000, "", nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !plan.Chunkable {
		t.Fatal("expected chunkable plan")
	}
	if len(plan.Chunks) != 3 {
		t.Fatalf("Plan() produced %d chunks, want 3", len(plan.Chunks))
	}
	if plan.Chunks[len(plan.Chunks)-1].UpperBound != "" {
		t.Error("last chunk should be open-ended")
	}
}

func TestChunkDescriptor_FromClause(t *testing.T) {
	c := ChunkDescriptor{Schema: "app", Table: "users"}
	if got, want := c.FromClause(), "`app`.`users`"; got != want {
		t.Errorf("FromClause() = %q, want %q", got, want)
	}

	c.Partitions = []string{"p0", "p1"}
	if got, want := c.FromClause(), "`app`.`users` PARTITION (p0, p1)"; got != want {
		t.Errorf("FromClause() = %q, want %q", got, want)
	}
}

func TestNumChunks(t *testing.T) {
	if got := numChunks(0, 100); got != 1 {
		t.Errorf("numChunks(0, 100) = %d, want 1", got)
	}
	if got := numChunks(1000, 100); got != 10 {
		t.Errorf("numChunks(1000, 100) = %d, want 10", got)
	}
	if got := numChunks(1001, 100); got != 11 {
		t.Errorf("numChunks(1001, 100) = %d, want 11", got)
	}
}
