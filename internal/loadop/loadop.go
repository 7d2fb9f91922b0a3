// Package loadop wires C1-C12 into the load pipeline shared by load_dump
// and import_table: read a manifest, reconstruct its DDL/data dependency
// graph, resume from a prior progress log when one exists, and drain DDL
// and chunk work through the Load Scheduler.
package loadop

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	godrivermysql "github.com/go-sql-driver/mysql"

	"github.com/DevSingh98/mysql-shell/internal/compression"
	"github.com/DevSingh98/mysql-shell/internal/ddlrewrite"
	"github.com/DevSingh98/mysql-shell/internal/loadsched"
	"github.com/DevSingh98/mysql-shell/internal/manifest"
	internalmysql "github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/output"
	"github.com/DevSingh98/mysql-shell/internal/progress"
	"github.com/DevSingh98/mysql-shell/internal/session"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

// Run executes load_dump against opts.
func Run(ctx context.Context, connCfg internalmysql.ConnectionConfig, opts *options.LoadOptions) (*output.LoadSummary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	startedAt := time.Now()

	rawBackend, err := storage.Open(opts.SourceURL)
	if err != nil {
		return nil, err
	}
	codec, err := compression.ByName("none")
	if err != nil {
		return nil, err
	}
	backend := storage.WithCompression(rawBackend, codec)

	if opts.WaitDumpTimeout > 0 {
		if err := loadsched.WaitDumpArtifacts(ctx, backend, manifest.DumpComplete(backend, "@.json"), opts.WaitDumpTimeout); err != nil {
			return nil, err
		}
	}

	doc, err := manifest.Load(ctx, backend, "@.json")
	if err != nil {
		return nil, err
	}
	if err := manifest.RequireOcimds(doc, opts.Ocimds); err != nil {
		return nil, err
	}
	if !doc.DumpComplete {
		return nil, shellerr.New(shellerr.PreconditionError, "dump manifest is not marked complete; refusing to load")
	}

	db, err := internalmysql.OpenPooled(connCfg, opts.Threads+opts.BackgroundThreads)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "connecting to target server", err)
	}
	defer db.Close()

	version, err := internalmysql.GetServerVersion(db)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "reading target server version", err)
	}

	pool, err := session.New(ctx, db, opts.Threads+opts.BackgroundThreads)
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
		if err := session.InitLoaderSession(ctx, w, opts.CharacterSet, opts.SessionInitSQL); err != nil {
			return nil, shellerr.Wrap(shellerr.PreconditionError, "initializing loader session", err)
		}
		workers = append(workers, w)
	}

	var resumeEntries []progress.Entry
	if !opts.ResetProgress {
		resumeEntries, _ = progress.Replay(ctx, backend, opts.ProgressFile)
	}
	resumed := len(resumeEntries) > 0

	var progLog *progress.Log
	if resumed {
		progLog = progress.Reopen(ctx, backend, opts.ProgressFile, resumeEntries)
	} else {
		progLog, err = progress.Open(ctx, backend, opts.ProgressFile)
		if err != nil {
			return nil, err
		}
	}

	plan := loadsched.NewPlan()
	knownRoutines := map[string]bool{}
	for _, a := range doc.Artifacts {
		if a.Role == manifest.RoleDDLRoutine {
			knownRoutines[routineKeyFromPath(a.Path)] = true
		}
	}

	if opts.LoadDDL {
		for _, a := range doc.Artifacts {
			step, err := buildDDLStep(ctx, backend, a, opts, version, knownRoutines)
			if err != nil {
				return nil, err
			}
			if step == nil {
				continue
			}
			plan.AddStep(step)
		}
	}

	if opts.LoadData {
		for _, t := range doc.Tables {
			key := t.Schema + "." + t.Table
			// TODO: read the chunked column's unique-key status from the
			// rewritten CREATE TABLE so multi-chunk tables with one can load
			// concurrently; until then every table serializes its chunks.
			chunkedWithUniqueKey := false
			refs := make([]loadsched.ChunkRef, len(t.Chunks))
			for i, c := range t.Chunks {
				refs[i] = loadsched.ChunkRef{Schema: c.Schema, Table: c.Table, ChunkIndex: c.ChunkIndex, SourceURL: c.Path}
			}
			plan.AddTable(t.Schema, t.Table, chunkedWithUniqueKey, refs)
			if opts.LoadDDL {
				plan.AddStep(&loadsched.Step{
					ID: "tabledata:" + key, Kind: loadsched.TableDDL, Schema: t.Schema, Name: t.Table,
					DependsOn: []string{"table:" + key},
				})
			}
		}
	}

	if resumed {
		hasUniqueKey := map[string]bool{}
		truncate := func(ctx context.Context, schema, table string) error {
			_, err := workers[0].Conn.ExecContext(ctx, "TRUNCATE TABLE "+qualify(schema, table))
			return err
		}
		state := resumeStateFromEntries(resumeEntries)
		if err := loadsched.ApplyResume(ctx, plan, state, hasUniqueKey, truncate); err != nil {
			return nil, err
		}
	}
	plan.Seed()

	ddlExec := func(ctx context.Context, step *loadsched.Step) error {
		if step.SQL == "" {
			return nil
		}
		sess := workers[0]
		_, err := sess.Conn.ExecContext(ctx, step.SQL)
		return err
	}

	rowsLoaded := int64(0)
	chunksLoaded := 0
	chunkExec := func(ctx context.Context, chunk loadsched.ChunkRef) error {
		sess := workers[chunk.ChunkIndex%len(workers)]
		n, err := loadChunk(ctx, sess, backend, chunk)
		if err != nil {
			return err
		}
		rowsLoaded += n
		chunksLoaded++
		return nil
	}

	dropAccount := func(ctx context.Context, step *loadsched.Step) error {
		acc := accountFromGrantStep(step)
		if acc == "" {
			return nil
		}
		_, err := workers[0].Conn.ExecContext(ctx, "DROP USER IF EXISTS "+acc)
		return err
	}

	if err := loadsched.Run(ctx, plan, opts.Threads, opts.HandleGrantErrors, progLog, ddlExec, chunkExec, dropAccount); err != nil {
		return nil, err
	}

	return &output.LoadSummary{
		SourceURL:    opts.SourceURL,
		Resumed:      resumed,
		TablesLoaded: len(doc.Tables),
		ChunksLoaded: chunksLoaded,
		RowsLoaded:   rowsLoaded,
		Duration:     time.Since(startedAt),
	}, nil
}

// RunImportTable executes import_table: a single table's data files loaded
// from sourceURL with no DDL and no manifest.
func RunImportTable(ctx context.Context, connCfg internalmysql.ConnectionConfig, opts *options.ImportTableOptions) (*output.LoadSummary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	startedAt := time.Now()

	rawBackend, err := storage.Open(opts.SourceURL)
	if err != nil {
		return nil, err
	}
	codec, err := compression.ByName("none")
	if err != nil {
		return nil, err
	}
	backend := storage.WithCompression(rawBackend, codec)

	db, err := internalmysql.OpenPooled(connCfg, opts.Threads)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "connecting to target server", err)
	}
	defer db.Close()

	pool, err := session.New(ctx, db, opts.Threads)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	objects, err := backend.List(ctx, opts.Schema+"@"+opts.Table+"@")
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing import source files", err)
	}

	rowsLoaded := int64(0)
	for i, obj := range objects {
		sess, err := pool.Borrow()
		if err != nil {
			return nil, err
		}
		chunk := loadsched.ChunkRef{Schema: opts.Schema, Table: opts.Table, ChunkIndex: i, SourceURL: obj.Name}
		n, err := loadChunkDialect(ctx, sess, backend, chunk, opts.Dialect, opts.ReplaceDuplicates)
		pool.Release(sess)
		if err != nil {
			return nil, err
		}
		rowsLoaded += n
	}

	return &output.LoadSummary{
		SourceURL:    opts.SourceURL,
		TablesLoaded: 1,
		ChunksLoaded: len(objects),
		RowsLoaded:   rowsLoaded,
		Duration:     time.Since(startedAt),
	}, nil
}

func buildDDLStep(ctx context.Context, backend storage.Backend, a manifest.Artifact, opts *options.LoadOptions, version internalmysql.ServerVersion, knownRoutines map[string]bool) (*loadsched.Step, error) {
	var kind loadsched.StepKind
	switch a.Role {
	case manifest.RoleDDLSchema:
		kind = loadsched.SchemaDDL
	case manifest.RoleDDLTable:
		kind = loadsched.TableDDL
	case manifest.RoleDDLView:
		kind = loadsched.ViewDDL
	case manifest.RoleDDLRoutine:
		kind = loadsched.RoutineDDL
	case manifest.RoleDDLTrigger:
		kind = loadsched.TriggerDDL
	case manifest.RoleDDLEvent:
		kind = loadsched.EventDDL
	case manifest.RoleGrants:
		kind = loadsched.UserGrant
	default:
		return nil, nil
	}
	if kind == loadsched.UserGrant && !opts.LoadUsers {
		return nil, nil
	}

	rc, err := backend.OpenRead(ctx, a.Path)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "reading DDL artifact "+a.Path, err)
	}
	defer rc.Close()
	raw, err := readAll(rc)
	if err != nil {
		return nil, err
	}
	sql := string(raw)

	schema, name := parseArtifactPath(a.Path, a.Role)
	step := &loadsched.Step{ID: a.Path, Kind: kind, Schema: schema, Name: name}

	switch kind {
	case loadsched.TableDDL:
		res, err := ddlrewrite.RewriteCreateTable(sql, nil, opts.Ocimds)
		if err != nil {
			return nil, err
		}
		step.SQL = res.SQL
		step.NeedsInvisiblePK = res.NeedsInvisiblePK
		step.DependsOn = []string{"schema:" + schema}
	case loadsched.ViewDDL, loadsched.RoutineDDL, loadsched.TriggerDDL, loadsched.EventDDL:
		res, err := ddlrewrite.RewriteDefinerBearing(sql, nil)
		if err != nil {
			return nil, err
		}
		step.SQL = res.SQL
		step.DependsOn = []string{"schema:" + schema}
	case loadsched.SchemaDDL:
		step.SQL = sql
	case loadsched.UserGrant:
		var rewritten []string
		for _, stmt := range splitStatements(sql) {
			res, err := ddlrewrite.RewriteGrant(stmt, nil, knownRoutines)
			if err != nil {
				return nil, err
			}
			if res.Dropped {
				continue
			}
			rewritten = append(rewritten, res.SQL)
		}
		step.SQL = strings.Join(rewritten, ";\n")
	}

	if kind == loadsched.TableDDL {
		step.ID = "table:" + schema + "." + name
	} else if kind == loadsched.SchemaDDL {
		step.ID = "schema:" + schema
	}

	return step, nil
}

// loadChunk streams one chunk file through go-sql-driver/mysql's
// LOAD DATA LOCAL INFILE reader-handler hook rather than buffering it in
// Go, matching the driver's own bulk-load mechanism instead of issuing a
// batch of individual INSERTs.
func loadChunk(ctx context.Context, sess *session.Session, backend storage.Backend, chunk loadsched.ChunkRef) (int64, error) {
	return loadChunkDialect(ctx, sess, backend, chunk, options.Dialect{}, false)
}

func loadChunkDialect(ctx context.Context, sess *session.Session, backend storage.Backend, chunk loadsched.ChunkRef, dialect options.Dialect, replace bool) (int64, error) {
	handlerName := fmt.Sprintf("loadop-%s-%s-%d", chunk.Schema, chunk.Table, chunk.ChunkIndex)
	godrivermysql.RegisterReaderHandler(handlerName, func() io.Reader {
		rc, err := backend.OpenRead(ctx, chunk.SourceURL)
		if err != nil {
			return errReader{err}
		}
		return rc
	})
	defer godrivermysql.DeregisterReaderHandler(handlerName)

	d := dialect
	if d.Name == "" {
		resolved, err := options.ResolveDialect("default", true)
		if err == nil {
			d = resolved
		}
	}

	verb := "LOAD DATA LOCAL INFILE"
	replaceClause := ""
	if replace {
		replaceClause = "REPLACE"
	}
	stmt := fmt.Sprintf("%s 'Reader::%s' %s INTO TABLE %s FIELDS TERMINATED BY %s",
		verb, handlerName, replaceClause, qualify(chunk.Schema, chunk.Table), quoteSQL(d.FieldsTerminatedBy))
	if d.FieldsEnclosedBy != "" {
		stmt += fmt.Sprintf(" OPTIONALLY ENCLOSED BY %s", quoteSQL(d.FieldsEnclosedBy))
	}
	if d.FieldsEscapedBy != "" {
		stmt += fmt.Sprintf(" ESCAPED BY %s", quoteSQL(d.FieldsEscapedBy))
	}
	stmt += fmt.Sprintf(" LINES TERMINATED BY %s", quoteSQL(d.LinesTerminatedBy))

	res, err := sess.Conn.ExecContext(ctx, stmt)
	if err != nil {
		return 0, shellerr.ClassifyServerError(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func resumeStateFromEntries(entries []progress.Entry) loadsched.ResumeState {
	var state loadsched.ResumeState
	started := map[string]bool{}
	done := map[string]bool{}
	for _, e := range entries {
		switch e.Kind {
		case progress.StepDDL:
			if e.Outcome == progress.OutcomeOK {
				state.CompletedSteps = append(state.CompletedSteps, e.StepKey)
			}
		case progress.StepChunkStart:
			started[e.StepKey] = true
		case progress.StepChunkDone:
			done[e.StepKey] = true
		}
	}
	for key := range started {
		if !done[key] {
			state.InProgressChunks = append(state.InProgressChunks, chunkRefFromKey(key))
		}
	}
	return state
}

func chunkRefFromKey(key string) loadsched.ChunkRef {
	parts := strings.SplitN(key, "#", 2)
	if len(parts) != 2 {
		return loadsched.ChunkRef{}
	}
	sp := strings.SplitN(parts[0], ".", 2)
	if len(sp) != 2 {
		return loadsched.ChunkRef{}
	}
	return loadsched.ChunkRef{Schema: sp[0], Table: sp[1]}
}

func accountFromGrantStep(step *loadsched.Step) string {
	stmt, ok := ddlrewrite.ParseGrant(step.SQL)
	if !ok {
		return ""
	}
	return stmt.Account
}

func routineKeyFromPath(path string) string {
	base := strings.TrimSuffix(path, ".routine.sql")
	return strings.ReplaceAll(base, "@", ".")
}

func parseArtifactPath(path string, role manifest.ArtifactRole) (schema, name string) {
	base := path
	for _, suffix := range []string{".view.sql", ".routine.sql", ".trigger.sql", ".event.sql", ".sql"} {
		base = strings.TrimSuffix(base, suffix)
	}
	parts := strings.SplitN(base, "@", 2)
	schema = parts[0]
	if len(parts) > 1 {
		name = parts[1]
	}
	return schema, name
}

func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func qualify(schema, table string) string {
	esc := func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }
	return esc(schema) + "." + esc(table)
}

func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// errReader lets the reader-handler callback report a backend.OpenRead
// failure to the driver instead of handing it a nil io.Reader.
type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
