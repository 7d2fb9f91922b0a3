// Package chunker plans how each table's rows are split into
// ChunkDescriptors for parallel export: by a leftmost unique-index prefix
// when the table is chunkable, or as a single whole-table descriptor when
// it is not.
package chunker

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

// IndexColumn is one column of a candidate chunking index, in index order.
type IndexColumn struct {
	Name     string
	DataType string
}

// ChunkDescriptor describes one unit of work the dump scheduler hands to a
// worker: a predicate over the chunking index (or none, for an unchunked
// table) plus the user's where/partitions predicates AND-combined in.
type ChunkDescriptor struct {
	Schema      string
	Table       string
	IndexColumn string   // empty if Chunkable is false
	LowerBound  string   // exclusive; empty for the first chunk
	UpperBound  string   // inclusive; empty for the last (open-ended) chunk
	Partitions  []string // PARTITION (...) clause contents, for the FROM clause
	Predicate   string   // the fully AND-combined WHERE clause, ready to append to a SELECT
	Single      bool     // true if this is the table's only chunk (unchunkable or small)
}

// FromClause renders "schema.table" or "schema.table PARTITION (p1, p2)"
// for use after SELECT ... FROM.
func (c ChunkDescriptor) FromClause() string {
	qualified := escapeIdentifier(c.Schema) + "." + escapeIdentifier(c.Table)
	if len(c.Partitions) == 0 {
		return qualified
	}
	return qualified + " PARTITION (" + strings.Join(c.Partitions, ", ") + ")"
}

// Plan decides a table's chunking strategy and emits its ChunkDescriptors.
type Plan struct {
	Chunkable   bool
	IndexColumn IndexColumn
	Chunks      []ChunkDescriptor
}

// Planner queries information_schema and, optionally, runs direct range
// probes to size chunk boundaries.
type Planner struct {
	Conn *sql.Conn
}

// New returns a Planner reading through conn.
func New(conn *sql.Conn) *Planner {
	return &Planner{Conn: conn}
}

// candidateIndex picks the leftmost-prefix unique index (primary key
// preferred) with the fewest leading columns. Returns ok=false if the
// table has neither a primary key nor a non-nullable unique index.
func (p *Planner) candidateIndex(ctx context.Context, schema, table string) (IndexColumn, bool, error) {
	rows, err := p.Conn.QueryContext(ctx, `
		SELECT s.INDEX_NAME, s.COLUMN_NAME, s.NON_UNIQUE, c.IS_NULLABLE, c.DATA_TYPE
		FROM information_schema.STATISTICS s
		JOIN information_schema.COLUMNS c
		  ON c.TABLE_SCHEMA = s.TABLE_SCHEMA AND c.TABLE_NAME = s.TABLE_NAME AND c.COLUMN_NAME = s.COLUMN_NAME
		WHERE s.TABLE_SCHEMA = ? AND s.TABLE_NAME = ? AND s.SEQ_IN_INDEX = 1
		ORDER BY (s.INDEX_NAME = 'PRIMARY') DESC, s.NON_UNIQUE ASC,
		  (SELECT COUNT(*) FROM information_schema.STATISTICS s2
		   WHERE s2.TABLE_SCHEMA = s.TABLE_SCHEMA AND s2.TABLE_NAME = s.TABLE_NAME AND s2.INDEX_NAME = s.INDEX_NAME) ASC`, schema, table)
	if err != nil {
		return IndexColumn{}, false, shellerr.Wrap(shellerr.PersistentIO, "finding chunking index for "+schema+"."+table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var indexName, column, nullable, dataType string
		var nonUnique bool
		if err := rows.Scan(&indexName, &column, &nonUnique, &nullable, &dataType); err != nil {
			return IndexColumn{}, false, err
		}
		if nonUnique || nullable == "YES" {
			continue
		}
		return IndexColumn{Name: column, DataType: dataType}, true, nil
	}
	return IndexColumn{}, false, rows.Err()
}

// Plan builds a Plan for schema.table. bytesPerChunk is the byte budget
// per chunk (already floor-validated by internal/options); avgRowLength
// and estimatedRows come from the metadata scanner's information_schema
// snapshot. userPredicate and partitions are AND-combined verbatim into
// every chunk's Predicate.
func (p *Planner) Plan(ctx context.Context, schema, table string, bytesPerChunk, avgRowLength, estimatedRows int64, userPredicate string, partitions []string) (Plan, error) {
	idx, chunkable, err := p.candidateIndex(ctx, schema, table)
	if err != nil {
		return Plan{}, err
	}

	if !chunkable {
		return Plan{
			Chunkable: false,
			Chunks: []ChunkDescriptor{{
				Schema: schema, Table: table, Single: true,
				Partitions: partitions, Predicate: userPredicate,
			}},
		}, nil
	}

	rowsPerChunk := rowsPerChunk(bytesPerChunk, avgRowLength)
	numChunks := numChunks(estimatedRows, rowsPerChunk)
	if numChunks <= 1 {
		return Plan{
			Chunkable:   true,
			IndexColumn: idx,
			Chunks: []ChunkDescriptor{{
				Schema: schema, Table: table, IndexColumn: idx.Name, Single: true,
				Partitions: partitions, Predicate: userPredicate,
			}},
		}, nil
	}

	bounds, err := p.sampleBoundaries(ctx, schema, table, idx.Name, numChunks)
	if err != nil {
		return Plan{}, err
	}

	chunks := make([]ChunkDescriptor, 0, len(bounds)+1)
	var lower string
	for i, upper := range bounds {
		rangePred := rangePredicate(idx.Name, lower, upper, i == 0)
		chunks = append(chunks, ChunkDescriptor{
			Schema: schema, Table: table, IndexColumn: idx.Name,
			LowerBound: lower, UpperBound: upper, Partitions: partitions,
			Predicate: combinePredicates(userPredicate, rangePred),
		})
		lower = upper
	}
	chunks = append(chunks, ChunkDescriptor{
		Schema: schema, Table: table, IndexColumn: idx.Name,
		LowerBound: lower, Partitions: partitions,
		Predicate: combinePredicates(userPredicate, rangePredicate(idx.Name, lower, "", false)),
	})

	return Plan{Chunkable: true, IndexColumn: idx, Chunks: chunks}, nil
}

// sampleBoundaries counts the table's rows with SELECT COUNT(*) and probes
// the chunking index with a direct OFFSET query every total/numChunks rows,
// giving numChunks roughly equal-width chunks (one more, small chunk when
// the row count does not divide evenly).
func (p *Planner) sampleBoundaries(ctx context.Context, schema, table, indexColumn string, numChunks int64) ([]string, error) {
	qualified := escapeIdentifier(schema) + "." + escapeIdentifier(table)
	col := escapeIdentifier(indexColumn)

	var total int64
	if err := p.Conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", qualified)).Scan(&total); err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "counting rows for chunk sampling", err)
	}
	if total == 0 {
		return nil, nil
	}

	step := total / numChunks
	if step == 0 {
		return nil, nil
	}

	var bounds []string
	for offset := step; offset < total; offset += step {
		var bound string
		stmt := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT 1 OFFSET ?", col, qualified, col)
		if err := p.Conn.QueryRowContext(ctx, stmt, offset).Scan(&bound); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "sampling chunk boundary", err)
		}
		bounds = append(bounds, bound)
	}
	return bounds, nil
}

func rowsPerChunk(bytesPerChunk, avgRowLength int64) int64 {
	if avgRowLength <= 0 {
		avgRowLength = 1024
	}
	n := bytesPerChunk / avgRowLength
	if n < 1 {
		n = 1
	}
	return n
}

func numChunks(estimatedRows, rowsPerChunk int64) int64 {
	if estimatedRows <= 0 || rowsPerChunk <= 0 {
		return 1
	}
	n := (estimatedRows + rowsPerChunk - 1) / rowsPerChunk
	if n < 1 {
		return 1
	}
	return n
}

func rangePredicate(col, lower, upper string, isFirst bool) string {
	col = escapeIdentifier(col)
	var parts []string
	if !isFirst && lower != "" {
		parts = append(parts, fmt.Sprintf("%s > %s", col, quoteLiteral(lower)))
	}
	if upper != "" {
		parts = append(parts, fmt.Sprintf("%s <= %s", col, quoteLiteral(upper)))
	}
	return strings.Join(parts, " AND ")
}

func combinePredicates(preds ...string) string {
	var nonEmpty []string
	for _, p := range preds {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " AND ")
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func escapeIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}
