// Package scanner enumerates the schemas, tables, views, routines,
// triggers, events, and users a dump or load operation scopes itself to,
// applying the include/exclude filters and always-excluded system objects.
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/DevSingh98/mysql-shell/internal/session"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

// acceptedCharsets are the only session character sets DDL text may be
// read under; anything else risks silently mangling object names.
var acceptedCharsets = map[string]bool{
	"latin1": true,
	"utf8":   true,
	"utf8mb3": true,
	"utf8mb4": true,
}

// Table describes one table selected for dump, along with its CREATE
// statement and the metadata the chunk planner needs.
type Table struct {
	Schema      string
	Name        string
	CreateTable string
	Engine      string
	RowCount    int64
	DataLength  int64
}

// View, Routine, Trigger, and Event carry just enough to re-emit DDL; the
// DDL Rewriter (C7) operates on the CreateStatement field of each.
type View struct {
	Schema          string
	Name            string
	CreateStatement string
}

type Routine struct {
	Schema          string
	Name            string
	Kind            string // "PROCEDURE" or "FUNCTION"
	CreateStatement string
}

type Trigger struct {
	Schema          string
	Table           string
	Name            string
	CreateStatement string
}

type Event struct {
	Schema          string
	Name            string
	CreateStatement string
}

// User identifies one mysql.user account plus its SHOW GRANTS text.
type User struct {
	User   string
	Host   string
	Grants []string
}

// Scanner enumerates objects over a single snapshot-bound session.
type Scanner struct {
	Session *session.Session
}

// New returns a Scanner reading through s. s should already be
// snapshot-bound (consistency.Coordinator pins it before the scan runs).
func New(s *session.Session) *Scanner {
	return &Scanner{Session: s}
}

func (sc *Scanner) conn() *sql.Conn { return sc.Session.Conn }

// CheckCharset fails fatally if the session's object-name character set is
// outside latin1/utf8/utf8mb3/utf8mb4.
func (sc *Scanner) CheckCharset(ctx context.Context) error {
	var charset string
	err := sc.conn().QueryRowContext(ctx, "SELECT @@SESSION.character_set_results").Scan(&charset)
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "reading character_set_results", err)
	}
	if !acceptedCharsets[charset] {
		return shellerr.New(shellerr.ConsistencyError, fmt.Sprintf("session character set %q is not latin1/utf8; object names may be corrupted", charset))
	}
	return nil
}

// Schemas returns every schema name in the instance that passes filter and
// is not one of the always-excluded system schemas.
func (sc *Scanner) Schemas(ctx context.Context, filter Filter) ([]string, error) {
	rows, err := sc.conn().QueryContext(ctx, "SELECT SCHEMA_NAME FROM information_schema.SCHEMATA ORDER BY SCHEMA_NAME")
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing schemas", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning schema row", err)
		}
		if filter.MatchesSchema(name) {
			out = append(out, name)
		}
	}
	return out, rows.Err()
}

// SchemaDDL returns schema's CREATE DATABASE statement.
func (sc *Scanner) SchemaDDL(ctx context.Context, schema string) (string, error) {
	stmt := "SHOW CREATE DATABASE " + escapeIdentifier(schema)
	rows, err := sc.conn().QueryContext(ctx, stmt)
	if err != nil {
		return "", shellerr.Wrap(shellerr.PersistentIO, stmt, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", shellerr.New(shellerr.PersistentIO, stmt+": no rows returned")
	}
	var name, ddl string
	if err := rows.Scan(&name, &ddl); err != nil {
		return "", shellerr.Wrap(shellerr.PersistentIO, stmt, err)
	}
	return ddl, rows.Err()
}

// Tables returns every base table in schema that passes filter, with
// CREATE TABLE text and size metadata.
func (sc *Scanner) Tables(ctx context.Context, schema string, filter Filter) ([]Table, error) {
	rows, err := sc.conn().QueryContext(ctx, `
		SELECT TABLE_NAME, ENGINE, IFNULL(TABLE_ROWS, 0), IFNULL(DATA_LENGTH, 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, schema)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing tables in "+schema, err)
	}
	defer rows.Close()

	var names []Table
	for rows.Next() {
		var t Table
		var engine sql.NullString
		if err := rows.Scan(&t.Name, &engine, &t.RowCount, &t.DataLength); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning table row", err)
		}
		if !filter.MatchesTable(schema, t.Name) {
			continue
		}
		t.Schema = schema
		t.Engine = engine.String
		names = append(names, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range names {
		ddl, err := sc.showCreate(ctx, "TABLE", names[i].Schema, names[i].Name, 1)
		if err != nil {
			return nil, err
		}
		names[i].CreateTable = ddl
	}
	return names, nil
}

// Views returns every view in schema, scanned after Tables so their
// definitions may reference already-discovered tables.
func (sc *Scanner) Views(ctx context.Context, schema string, filter Filter) ([]View, error) {
	rows, err := sc.conn().QueryContext(ctx, `
		SELECT TABLE_NAME FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME`, schema)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing views in "+schema, err)
	}
	defer rows.Close()

	var out []View
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning view row", err)
		}
		if !filter.MatchesTable(schema, name) {
			continue
		}
		out = append(out, View{Schema: schema, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		ddl, err := sc.showCreate(ctx, "VIEW", out[i].Schema, out[i].Name, 1)
		if err != nil {
			return nil, err
		}
		out[i].CreateStatement = ddl
	}
	return out, nil
}

// Routines returns every stored procedure and function in schema.
func (sc *Scanner) Routines(ctx context.Context, schema string, filter Filter) ([]Routine, error) {
	rows, err := sc.conn().QueryContext(ctx, `
		SELECT ROUTINE_NAME, ROUTINE_TYPE FROM information_schema.ROUTINES
		WHERE ROUTINE_SCHEMA = ? ORDER BY ROUTINE_NAME`, schema)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing routines in "+schema, err)
	}
	defer rows.Close()

	var out []Routine
	for rows.Next() {
		var r Routine
		if err := rows.Scan(&r.Name, &r.Kind); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning routine row", err)
		}
		if !filter.MatchesTable(schema, r.Name) {
			continue
		}
		r.Schema = schema
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		ddl, err := sc.showCreate(ctx, out[i].Kind, out[i].Schema, out[i].Name, 1)
		if err != nil {
			return nil, err
		}
		out[i].CreateStatement = ddl
	}
	return out, nil
}

// Triggers returns every trigger on a table in schema that passed filter.
func (sc *Scanner) Triggers(ctx context.Context, schema string, tables []Table) ([]Trigger, error) {
	rows, err := sc.conn().QueryContext(ctx, `
		SELECT TRIGGER_NAME, EVENT_OBJECT_TABLE FROM information_schema.TRIGGERS
		WHERE TRIGGER_SCHEMA = ? ORDER BY TRIGGER_NAME`, schema)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing triggers in "+schema, err)
	}
	defer rows.Close()

	included := make(map[string]bool, len(tables))
	for _, t := range tables {
		included[t.Name] = true
	}

	var out []Trigger
	for rows.Next() {
		var name, table string
		if err := rows.Scan(&name, &table); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning trigger row", err)
		}
		if !included[table] {
			continue
		}
		out = append(out, Trigger{Schema: schema, Table: table, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		ddl, err := sc.showCreate(ctx, "TRIGGER", out[i].Schema, out[i].Name, 1)
		if err != nil {
			return nil, err
		}
		out[i].CreateStatement = ddl
	}
	return out, nil
}

// Events returns every scheduled event in schema.
func (sc *Scanner) Events(ctx context.Context, schema string, filter Filter) ([]Event, error) {
	rows, err := sc.conn().QueryContext(ctx, `
		SELECT EVENT_NAME FROM information_schema.EVENTS
		WHERE EVENT_SCHEMA = ? ORDER BY EVENT_NAME`, schema)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing events in "+schema, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning event row", err)
		}
		if !filter.MatchesTable(schema, name) {
			continue
		}
		out = append(out, Event{Schema: schema, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		ddl, err := sc.showCreate(ctx, "EVENT", out[i].Schema, out[i].Name, 1)
		if err != nil {
			return nil, err
		}
		out[i].CreateStatement = ddl
	}
	return out, nil
}

// Users returns every mysql.user account passing filter, with its grants.
func (sc *Scanner) Users(ctx context.Context, filter UserFilter) ([]User, error) {
	rows, err := sc.conn().QueryContext(ctx, "SELECT User, Host FROM mysql.user ORDER BY User, Host")
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "listing users", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.User, &u.Host); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, "scanning user row", err)
		}
		if !filter.Matches(u.User, u.Host) {
			continue
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		grants, err := sc.showGrants(ctx, out[i].User, out[i].Host)
		if err != nil {
			return nil, err
		}
		out[i].Grants = grants
	}
	return out, nil
}

// showCreate handles the varying column shapes of SHOW CREATE {TABLE,VIEW,
// TRIGGER,EVENT,PROCEDURE,FUNCTION}: the DDL text always lands in
// ddlColumn, a zero-based index into the result row.
func (sc *Scanner) showCreate(ctx context.Context, kind, schema, name string, ddlColumn int) (string, error) {
	qualified := escapeIdentifier(schema) + "." + escapeIdentifier(name)
	stmt := fmt.Sprintf("SHOW CREATE %s %s", kind, qualified)

	rows, err := sc.conn().QueryContext(ctx, stmt)
	if err != nil {
		return "", shellerr.Wrap(shellerr.PersistentIO, stmt, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	if !rows.Next() {
		return "", shellerr.New(shellerr.PersistentIO, stmt+": no rows returned")
	}
	values := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return "", shellerr.Wrap(shellerr.PersistentIO, stmt, err)
	}
	if ddlColumn >= len(values) {
		return "", shellerr.New(shellerr.PersistentIO, stmt+": unexpected column count")
	}
	return values[ddlColumn].String, nil
}

func (sc *Scanner) showGrants(ctx context.Context, user, host string) ([]string, error) {
	stmt := fmt.Sprintf("SHOW GRANTS FOR '%s'@'%s'", escapeLiteral(user), escapeLiteral(host))
	rows, err := sc.conn().QueryContext(ctx, stmt)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, stmt, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var grant string
		if err := rows.Scan(&grant); err != nil {
			return nil, shellerr.Wrap(shellerr.PersistentIO, stmt, err)
		}
		out = append(out, grant)
	}
	return out, rows.Err()
}

func escapeIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
