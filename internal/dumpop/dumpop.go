// Package dumpop wires components C1-C12 into the dump pipeline shared by
// dump_instance, dump_schemas, dump_tables, and export_table: open
// storage, size a session pool, run the consistency handshake, scan the
// requested schemas/tables, plan chunks, stream rows through the dump
// writer, and commit a manifest once every artifact has landed.
package dumpop

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DevSingh98/mysql-shell/internal/chunker"
	"github.com/DevSingh98/mysql-shell/internal/compression"
	"github.com/DevSingh98/mysql-shell/internal/consistency"
	"github.com/DevSingh98/mysql-shell/internal/ddlrewrite"
	"github.com/DevSingh98/mysql-shell/internal/dumpsched"
	"github.com/DevSingh98/mysql-shell/internal/dumpwriter"
	"github.com/DevSingh98/mysql-shell/internal/manifest"
	internalmysql "github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/output"
	"github.com/DevSingh98/mysql-shell/internal/progress"
	"github.com/DevSingh98/mysql-shell/internal/scanner"
	"github.com/DevSingh98/mysql-shell/internal/session"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
	"github.com/DevSingh98/mysql-shell/internal/topology"
)

// parCreator mirrors internal/manifest's unexported interface of the same
// name structurally, so a storage.Backend opened by URL can be offered to
// EnablePARMode without dumpop importing the concrete oci package.
type parCreator interface {
	CreatePAR(ctx context.Context, name string, expires time.Time) (string, error)
}

// tableCtx is everything the executor needs about one table beyond its
// chunk descriptor, captured once during the scan phase.
type tableCtx struct {
	columns    []internalmysql.ColumnInfo
	avgRowSize int64
}

// Run executes the shared dump pipeline against opts, already validated or
// about to be validated here. toolVersion is echoed into the manifest.
func Run(ctx context.Context, connCfg internalmysql.ConnectionConfig, toolVersion string, opts *options.DumpOptions) (*output.DumpSummary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	startedAt := time.Now()

	rawBackend, err := storage.Open(opts.OutputURL)
	if err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if emptyChecker, ok := rawBackend.(interface{ RequireEmpty() error }); ok {
			if err := emptyChecker.RequireEmpty(); err != nil {
				return nil, err
			}
		}
	}

	codec, err := compression.ByName(opts.Compression)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.ArgumentError, "resolving compression codec", err)
	}
	backend := storage.WithCompression(rawBackend, codec)

	var par parCreator
	if opts.OciParManifest {
		par, _ = rawBackend.(parCreator)
	}

	db, err := internalmysql.OpenPooled(connCfg, opts.Threads+1)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "connecting to source server", err)
	}
	defer db.Close()

	pool, err := session.New(ctx, db, opts.Threads+1)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	version, err := internalmysql.GetServerVersion(db)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "reading server version", err)
	}

	lockSession, err := pool.Borrow()
	if err != nil {
		return nil, err
	}
	workers := make([]*session.Session, 0, opts.Threads)
	for i := 0; i < opts.Threads; i++ {
		w, err := pool.Borrow()
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}

	schemaFilter := scanner.Filter{Include: opts.IncludeSchemas, Exclude: opts.ExcludeSchemas}
	tableFilter := scanner.Filter{Include: opts.IncludeTables, Exclude: opts.ExcludeTables}

	preScan := scanner.New(lockSession)
	schemas, err := preScan.Schemas(ctx, schemaFilter)
	if err != nil {
		return nil, err
	}
	var lockTables []string
	for _, sch := range schemas {
		tables, err := preScan.Tables(ctx, sch, tableFilter)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			lockTables = append(lockTables, qualifyTable(t.Schema, t.Name))
		}
	}
	if opts.Users {
		lockTables = append(lockTables, mysqlGrantTables...)
	}

	if opts.Consistent {
		coordinator := consistency.New(lockSession, lockTables)
		if topo, err := topology.Detect(db, false); err == nil {
			coordinator.SkipFTWRL = topo.Type == topology.Galera || topo.Type == topology.GroupRepl
		}
		release, err := coordinator.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if err := consistency.Barrier(ctx, workers, release); err != nil {
			return nil, err
		}
		if err := consistency.VerifyGTIDConsistency(ctx, workers, opts.SkipConsistencyChecks); err != nil {
			return nil, err
		}
	}

	sc := scanner.New(workers[0])
	if err := sc.CheckCharset(ctx); err != nil {
		return nil, err
	}

	maxAllowedPacket, err := internalmysql.GetVariableInt(db, "max_allowed_packet")
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "reading max_allowed_packet", err)
	}
	tzOffset, err := sessionTZOffset(ctx, workers[0])
	if err != nil {
		return nil, err
	}

	optionsEcho := map[string]any{
		"threads":       opts.Threads,
		"bytesPerChunk": opts.BytesPerChunk,
		"compression":   opts.Compression,
		"consistent":    opts.Consistent,
		"ocimds":        opts.Ocimds,
		"dialect":       opts.Dialect.Name,
	}
	builder := manifest.NewBuilder(backend, "@.json", toolVersion, version.String(), opts.Ocimds, opts.Compatibility, optionsEcho, startedAt)
	if par != nil {
		builder.EnablePARMode(par, opts.OciParExpireTime)
	}

	progLog, err := progress.Open(ctx, backend, opts.ProgressFile)
	if err != nil {
		return nil, err
	}
	scheduler := dumpsched.New(progLog, opts.MaxRateN())

	dialect := opts.Dialect
	if resolved, err := options.ResolveDialect(dialect.Name, false); err == nil {
		dialect = resolved.Override(dialect)
	}
	extension := extensionForDialect(dialect.Name)

	var (
		tablesByKey   = map[string]*tableCtx{}
		tablesInOrder []scanner.Table
		knownRoutines = map[string]bool{}
		warnings      []string
		totalChunks   int
	)
	dumpEndEstimate := time.Now().Add(6 * time.Hour)

	for _, sch := range schemas {
		if !opts.DataOnly {
			ddl, err := sc.SchemaDDL(ctx, sch)
			if err != nil {
				return nil, err
			}
			if err := writeArtifact(ctx, backend, builder, sch+".sql", manifest.RoleDDLSchema, opts.Compression, ddl, dumpEndEstimate); err != nil {
				return nil, err
			}
		}

		tables, err := sc.Tables(ctx, sch, tableFilter)
		if err != nil {
			return nil, err
		}
		views, err := sc.Views(ctx, sch, tableFilter)
		if err != nil {
			return nil, err
		}
		routines, err := sc.Routines(ctx, sch, tableFilter)
		if err != nil {
			return nil, err
		}
		for _, r := range routines {
			knownRoutines[strings.ToLower(r.Kind+" "+sch+"."+r.Name)] = true
		}
		triggers, err := sc.Triggers(ctx, sch, tables)
		if err != nil {
			return nil, err
		}
		events, err := sc.Events(ctx, sch, tableFilter)
		if err != nil {
			return nil, err
		}

		for _, t := range tables {
			if !opts.DataOnly {
				rewritten, err := ddlrewrite.RewriteCreateTable(t.CreateTable, opts.Compatibility, opts.Ocimds)
				if err != nil {
					return nil, err
				}
				if rewritten.IgnoreMissingPK {
					warnings = append(warnings, fmt.Sprintf("%s.%s has no primary key; ignore_missing_pks applied", sch, t.Name))
				}
				path := sch + "@" + t.Name + ".sql"
				if err := writeArtifact(ctx, backend, builder, path, manifest.RoleDDLTable, opts.Compression, rewritten.SQL, dumpEndEstimate); err != nil {
					return nil, err
				}
			}
			cols, err := tableColumns(db, sch, t.Name)
			if err != nil {
				return nil, err
			}
			avg := t.DataLength
			if t.RowCount > 0 {
				avg = t.DataLength / t.RowCount
			}
			tablesByKey[sch+"."+t.Name] = &tableCtx{columns: cols, avgRowSize: avg}
			tablesInOrder = append(tablesInOrder, t)
		}

		if !opts.DataOnly {
			for _, v := range views {
				r, err := ddlrewrite.RewriteDefinerBearing(v.CreateStatement, opts.Compatibility)
				if err != nil {
					return nil, err
				}
				if err := writeArtifact(ctx, backend, builder, sch+"@"+v.Name+".view.sql", manifest.RoleDDLView, opts.Compression, r.SQL, dumpEndEstimate); err != nil {
					return nil, err
				}
			}
			for _, r := range routines {
				rw, err := ddlrewrite.RewriteDefinerBearing(r.CreateStatement, opts.Compatibility)
				if err != nil {
					return nil, err
				}
				if err := writeArtifact(ctx, backend, builder, sch+"@"+r.Name+".routine.sql", manifest.RoleDDLRoutine, opts.Compression, rw.SQL, dumpEndEstimate); err != nil {
					return nil, err
				}
			}
			for _, tr := range triggers {
				rw, err := ddlrewrite.RewriteDefinerBearing(tr.CreateStatement, opts.Compatibility)
				if err != nil {
					return nil, err
				}
				if err := writeArtifact(ctx, backend, builder, sch+"@"+tr.Table+"@"+tr.Name+".trigger.sql", manifest.RoleDDLTrigger, opts.Compression, rw.SQL, dumpEndEstimate); err != nil {
					return nil, err
				}
			}
			for _, ev := range events {
				rw, err := ddlrewrite.RewriteDefinerBearing(ev.CreateStatement, opts.Compatibility)
				if err != nil {
					return nil, err
				}
				if err := writeArtifact(ctx, backend, builder, sch+"@"+ev.Name+".event.sql", manifest.RoleDDLEvent, opts.Compression, rw.SQL, dumpEndEstimate); err != nil {
					return nil, err
				}
			}
		}
	}

	if opts.Users && !opts.DataOnly {
		users, err := sc.Users(ctx, scanner.UserFilter{Include: opts.IncludeUsers, Exclude: opts.ExcludeUsers})
		if err != nil {
			return nil, err
		}
		var out []string
		for _, u := range users {
			for _, g := range u.Grants {
				if options.Has(opts.Compatibility, options.SkipInvalidAccounts) &&
					strings.HasPrefix(strings.ToUpper(strings.TrimSpace(g)), "CREATE USER") && !ddlrewrite.AccountHasPassword(g) {
					continue
				}
				rw, err := ddlrewrite.RewriteGrant(g, opts.Compatibility, knownRoutines)
				if err != nil {
					return nil, err
				}
				if rw.Dropped {
					continue
				}
				out = append(out, rw.SQL)
			}
		}
		if err := writeArtifact(ctx, backend, builder, "@.users.sql", manifest.RoleGrants, opts.Compression, strings.Join(out, ";\n")+";\n", dumpEndEstimate); err != nil {
			return nil, err
		}
	}

	chunkPlanner := chunker.New(workers[0].Conn)
	chunkRanges := map[string][]manifest.ChunkRange{}
	var chunkRangesMu sync.Mutex

	if !opts.DDLOnly {
		for _, t := range tablesInOrder {
			key := t.Schema + "." + t.Name
			tc := tablesByKey[key]
			where := ""
			if opts.Where != nil {
				where = opts.Where[key]
			}
			var partitions []string
			if opts.Partitions != nil {
				partitions = opts.Partitions[key]
			}
			plan, err := chunkPlanner.Plan(ctx, t.Schema, t.Name, opts.BytesPerChunkN(), tc.avgRowSize, t.RowCount, where, partitions)
			if err != nil {
				return nil, err
			}
			estimatedSize := t.DataLength
			if n := int64(len(plan.Chunks)); n > 1 {
				estimatedSize = t.DataLength / n
			}
			scheduler.Enqueue(plan.Chunks, estimatedSize)
			totalChunks += len(plan.Chunks)
		}

		exec := func(ctx context.Context, job dumpsched.Job, sess *session.Session, cancelled *atomic.Bool) error {
			key := job.Chunk.Schema + "." + job.Chunk.Table
			tc := tablesByKey[key]
			baseURL := fmt.Sprintf("%s@%s@%d", job.Chunk.Schema, job.Chunk.Table, job.ChunkIndex)

			w, err := dumpwriter.New(ctx, dumpwriter.Config{
				Dialect:          dialect,
				Columns:          tc.columns,
				TzUtc:            opts.TzUtc,
				SessionTZOffset:  tzOffset,
				MaxAllowedPacket: maxAllowedPacket,
				ChunkByteBudget:  opts.BytesPerChunkN(),
				Backend:          backend,
				BaseURL:          baseURL,
				Extension:        extension,
			})
			if err != nil {
				return err
			}

			query := "SELECT " + columnList(tc.columns) + " FROM " + job.Chunk.FromClause()
			if job.Chunk.Predicate != "" {
				query += " WHERE " + job.Chunk.Predicate
			}
			rows, err := sess.Conn.QueryContext(ctx, query)
			if err != nil {
				return shellerr.ClassifyServerError(err)
			}
			cols, _ := rows.Columns()
			dest := make([]any, len(cols))
			for i := range dest {
				dest[i] = new(any)
			}
			for rows.Next() {
				if cancelled.Load() {
					rows.Close()
					w.Close()
					return nil
				}
				if err := rows.Scan(dest...); err != nil {
					rows.Close()
					w.Close()
					return shellerr.Wrap(shellerr.PersistentIO, "scanning dump row", err)
				}
				values := make([]any, len(dest))
				for i, d := range dest {
					values[i] = *(d.(*any))
				}
				if err := scheduler.WaitForTokens(ctx, rowByteEstimate(values)); err != nil {
					rows.Close()
					w.Close()
					return err
				}
				if err := w.WriteRow(ctx, values); err != nil {
					rows.Close()
					w.Close()
					return err
				}
			}
			if err := rows.Err(); err != nil {
				w.Close()
				return shellerr.Wrap(shellerr.PersistentIO, "reading dump rows", err)
			}
			if err := w.Close(); err != nil {
				return err
			}

			chunkRangesMu.Lock()
			for _, path := range w.ProducedFiles() {
				size := int64(0)
				if info, err := backend.Stat(ctx, path); err == nil {
					size = info.Size
				}
				if err := builder.AddArtifact(ctx, manifest.Artifact{Path: path, Role: manifest.RoleDataChunk, Codec: opts.Compression, Size: size}, dumpEndEstimate); err != nil {
					chunkRangesMu.Unlock()
					return err
				}
				chunkRanges[key] = append(chunkRanges[key], manifest.ChunkRange{Schema: job.Chunk.Schema, Table: job.Chunk.Table, ChunkIndex: job.ChunkIndex, Path: path})
			}
			chunkRangesMu.Unlock()
			return nil
		}

		if err := scheduler.Run(ctx, workers, exec); err != nil {
			return nil, err
		}
	}

	for _, t := range tablesInOrder {
		key := t.Schema + "." + t.Name
		builder.AddTable(manifest.TableEntry{Schema: t.Schema, Table: t.Name, Chunks: chunkRanges[key]})
	}

	if err := builder.Finalize(ctx, time.Now()); err != nil {
		return nil, err
	}

	return &output.DumpSummary{
		OutputURL:          opts.OutputURL,
		ConsistentSnapshot: opts.Consistent,
		Tables:             len(tablesInOrder),
		Chunks:             totalChunks,
		Duration:           time.Since(startedAt),
		Warnings:           warnings,
		DumpComplete:       true,
	}, nil
}

// RunExportTable executes the single-table variant used by export_table:
// no manifest, no DDL, no progress log, just one table's chunked data
// files written straight to storage.
func RunExportTable(ctx context.Context, connCfg internalmysql.ConnectionConfig, opts *options.ExportTableOptions) (*output.DumpSummary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	startedAt := time.Now()

	rawBackend, err := storage.Open(opts.OutputURL)
	if err != nil {
		return nil, err
	}
	codec, err := compression.ByName(opts.Compression)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.ArgumentError, "resolving compression codec", err)
	}
	backend := storage.WithCompression(rawBackend, codec)

	db, err := internalmysql.OpenPooled(connCfg, opts.Threads)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "connecting to source server", err)
	}
	defer db.Close()

	pool, err := session.New(ctx, db, opts.Threads)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	workers := make([]*session.Session, 0, opts.Threads)
	for i := 0; i < opts.Threads; i++ {
		w, err := pool.Borrow()
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}

	cols, err := tableColumns(db, opts.Schema, opts.Table)
	if err != nil {
		return nil, err
	}
	rowCount, dataLength, err := tableSize(db, opts.Schema, opts.Table)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "reading table size", err)
	}
	avg := dataLength
	if rowCount > 0 {
		avg = dataLength / rowCount
	}
	maxAllowedPacket, err := internalmysql.GetVariableInt(db, "max_allowed_packet")
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "reading max_allowed_packet", err)
	}
	tzOffset, err := sessionTZOffset(ctx, workers[0])
	if err != nil {
		return nil, err
	}

	dialect := opts.Dialect
	if resolved, err := options.ResolveDialect(dialect.Name, false); err == nil {
		dialect = resolved.Override(dialect)
	}
	extension := extensionForDialect(dialect.Name)

	planner := chunker.New(workers[0].Conn)
	plan, err := planner.Plan(ctx, opts.Schema, opts.Table, opts.BytesPerChunkN(), avg, rowCount, opts.Where, opts.Partitions)
	if err != nil {
		return nil, err
	}
	estimatedSize := dataLength
	if n := int64(len(plan.Chunks)); n > 1 {
		estimatedSize = dataLength / n
	}

	scheduler := dumpsched.New(nil, 0)
	scheduler.Enqueue(plan.Chunks, estimatedSize)

	exec := func(ctx context.Context, job dumpsched.Job, sess *session.Session, cancelled *atomic.Bool) error {
		baseURL := fmt.Sprintf("%s@%s@%d", job.Chunk.Schema, job.Chunk.Table, job.ChunkIndex)
		w, err := dumpwriter.New(ctx, dumpwriter.Config{
			Dialect:          dialect,
			Columns:          cols,
			TzUtc:            opts.TzUtc,
			SessionTZOffset:  tzOffset,
			MaxAllowedPacket: maxAllowedPacket,
			ChunkByteBudget:  opts.BytesPerChunkN(),
			Backend:          backend,
			BaseURL:          baseURL,
			Extension:        extension,
		})
		if err != nil {
			return err
		}
		query := "SELECT " + columnList(cols) + " FROM " + job.Chunk.FromClause()
		if job.Chunk.Predicate != "" {
			query += " WHERE " + job.Chunk.Predicate
		}
		rows, err := sess.Conn.QueryContext(ctx, query)
		if err != nil {
			return shellerr.ClassifyServerError(err)
		}
		defer rows.Close()
		rcols, _ := rows.Columns()
		dest := make([]any, len(rcols))
		for i := range dest {
			dest[i] = new(any)
		}
		for rows.Next() {
			if cancelled.Load() {
				break
			}
			if err := rows.Scan(dest...); err != nil {
				w.Close()
				return shellerr.Wrap(shellerr.PersistentIO, "scanning export row", err)
			}
			values := make([]any, len(dest))
			for i, d := range dest {
				values[i] = *(d.(*any))
			}
			if err := w.WriteRow(ctx, values); err != nil {
				w.Close()
				return err
			}
		}
		if err := rows.Err(); err != nil {
			w.Close()
			return shellerr.Wrap(shellerr.PersistentIO, "reading export rows", err)
		}
		return w.Close()
	}

	if err := scheduler.Run(ctx, workers, exec); err != nil {
		return nil, err
	}

	return &output.DumpSummary{
		OutputURL: opts.OutputURL,
		Tables:    1,
		Chunks:    len(plan.Chunks),
		Duration:  time.Since(startedAt),
	}, nil
}

func writeArtifact(ctx context.Context, backend storage.Backend, builder *manifest.Builder, path string, role manifest.ArtifactRole, codec, content string, dumpEndEstimate time.Time) error {
	wc, err := backend.OpenWrite(ctx, path)
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "writing "+path, err)
	}
	if _, err := wc.Write([]byte(content)); err != nil {
		wc.Close()
		return shellerr.Wrap(shellerr.PersistentIO, "writing "+path, err)
	}
	if err := wc.Close(); err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "closing "+path, err)
	}
	return builder.AddArtifact(ctx, manifest.Artifact{Path: path, Role: role, Codec: codec, Size: int64(len(content))}, dumpEndEstimate)
}

// tableColumns queries DATA_TYPE (not COLUMN_TYPE) since
// dumpwriter.IsBinaryUnsafe matches against the bare type name; a
// COLUMN_TYPE-populated column list would break binary-unsafe detection for
// parameterized types like varbinary(255).
func tableColumns(db *sql.DB, schema, table string) ([]internalmysql.ColumnInfo, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, ORDINAL_POSITION
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schema, table)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "reading column types for "+schema+"."+table, err)
	}
	defer rows.Close()

	var out []internalmysql.ColumnInfo
	for rows.Next() {
		var c internalmysql.ColumnInfo
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &c.Position); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning column row", err)
		}
		c.Nullable = nullable == "YES"
		out = append(out, c)
	}
	return out, rows.Err()
}

// tableSize reads only the two information_schema.TABLES columns
// export_table's chunk planner needs, mirroring the cheap query
// scanner.Tables already runs for the dump_instance/dump_schemas path
// instead of pulling a table's full column/index/trigger metadata for it.
func tableSize(db *sql.DB, schema, table string) (rowCount, dataLength int64, err error) {
	err = db.QueryRow(`
		SELECT IFNULL(TABLE_ROWS, 0), IFNULL(DATA_LENGTH, 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, schema, table).Scan(&rowCount, &dataLength)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, shellerr.New(shellerr.ArgumentError, fmt.Sprintf("table %s.%s not found", schema, table))
		}
		return 0, 0, err
	}
	return rowCount, dataLength, nil
}

func qualifyTable(schema, table string) string {
	esc := func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }
	return esc(schema) + "." + esc(table)
}

// mysqlGrantTables are the DDL/GRANT system tables that must be held by the
// LOCK TABLES fallback whenever user accounts and privileges are part of the
// dump, so a concurrent GRANT/REVOKE/CREATE USER can't race the snapshot.
var mysqlGrantTables = []string{
	"`mysql`.`user`",
	"`mysql`.`db`",
	"`mysql`.`tables_priv`",
	"`mysql`.`columns_priv`",
	"`mysql`.`procs_priv`",
	"`mysql`.`proxies_priv`",
}

func columnList(cols []internalmysql.ColumnInfo) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = "`" + strings.ReplaceAll(c.Name, "`", "``") + "`"
	}
	return strings.Join(names, ", ")
}

// sessionTZOffset resolves the worker session's @@time_zone as an offset
// from UTC, used by dumpwriter's tzUtc shift without requiring dumpwriter
// to hold a live DB connection.
func sessionTZOffset(ctx context.Context, s *session.Session) (time.Duration, error) {
	var raw string
	if err := s.Conn.QueryRowContext(ctx, "SELECT TIMEDIFF(NOW(), UTC_TIMESTAMP())").Scan(&raw); err != nil {
		return 0, shellerr.Wrap(shellerr.PersistentIO, "reading session time zone offset", err)
	}
	return parseTimeOffset(raw)
}

func parseTimeOffset(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, nil
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(strings.Split(parts[2], ".")[0])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, nil
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	if neg {
		d = -d
	}
	return d, nil
}

func rowByteEstimate(values []any) int {
	n := 0
	for _, v := range values {
		switch x := v.(type) {
		case []byte:
			n += len(x)
		case string:
			n += len(x)
		default:
			n += 8
		}
	}
	return n
}

func extensionForDialect(name string) string {
	switch name {
	case "csv", "csv-unix":
		return ".csv"
	case "json":
		return ".json"
	default:
		return ".tsv"
	}
}
