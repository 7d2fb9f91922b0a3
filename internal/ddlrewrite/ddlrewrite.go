// Package ddlrewrite applies the compatibility transforms of spec.md §4.7
// to CREATE TABLE statements (via vitess's sqlparser AST and its own
// formatter) and to CREATE VIEW/TRIGGER/EVENT/PROCEDURE/FUNCTION and GRANT
// statements (via regex passes, the same fallback the teacher's own parser
// uses for statements vitess does not expose as structured DDL/DCL nodes).
package ddlrewrite

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

var (
	parserOnce      sync.Once
	globalParser    *sqlparser.Parser
	globalParserErr error
)

func getParser() (*sqlparser.Parser, error) {
	parserOnce.Do(func() {
		globalParser, globalParserErr = sqlparser.New(sqlparser.Options{})
	})
	return globalParser, globalParserErr
}

// Pre-pass regexes for DEFINER/SQL SECURITY and GRANT statements. Vitess's
// sqlparser targets query routing, not DCL or routine/view internals, so it
// exposes no AST for these; rewriting them by pattern is the same approach
// the teacher takes for OPTIMIZE TABLE and ALTER TABLESPACE.
var (
	reDefiner     = regexp.MustCompile("(?i)DEFINER\\s*=\\s*(?:`[^`]*`|[^\\s@]+)@(?:`[^`]*`|[^\\s(]+)\\s*")
	reSQLSecurity = regexp.MustCompile(`(?i)SQL SECURITY (DEFINER|INVOKER)`)
	reGrant       = regexp.MustCompile(`(?i)^GRANT\s+(.+?)\s+ON\s+((?:PROCEDURE\s+|FUNCTION\s+)?\S+)\s+TO\s+(.+?)(\s+IDENTIFIED\s+BY\s+.+)?$`)
)

// restrictedPrivileges are privileges a managed-service target refuses to
// grant; strip_restricted_grants drops them from the GRANT's privilege list.
var restrictedPrivileges = map[string]bool{
	"SUPER":                true,
	"FILE":                 true,
	"SHUTDOWN":             true,
	"RELOAD":               true,
	"CREATE TABLESPACE":    true,
	"REPLICATION SLAVE":    true,
	"REPLICATION CLIENT":   true,
	"BINLOG ADMIN":         true,
	"SET USER":             true,
}

// Result carries the rewritten statement plus any metadata the loader
// needs in order to replay it correctly.
type Result struct {
	SQL              string
	NeedsInvisiblePK bool // create_invisible_pks: table had no PK, loader must synthesize one
	IgnoreMissingPK  bool // ignore_missing_pks: table had no PK, loader must not fail on it
	Dropped          bool // statement must not be written at all
}

// RewriteCreateTable parses a CREATE TABLE statement and applies
// force_innodb, strip_tablespaces, and (when ocimds is set) unconditional
// stripping of DATA DIRECTORY/INDEX DIRECTORY/ENCRYPTION, plus PK-less table
// handling for create_invisible_pks/ignore_missing_pks.
func RewriteCreateTable(sql string, flags []options.CompatibilityFlag, ocimds bool) (Result, error) {
	p, err := getParser()
	if err != nil {
		return Result{}, shellerr.Wrap(shellerr.CompatibilityError, "creating sql parser", err)
	}

	stmt, err := p.Parse(sql)
	if err != nil {
		return Result{}, shellerr.Wrap(shellerr.CompatibilityError, "parsing CREATE TABLE", err)
	}
	ct, ok := stmt.(*sqlparser.CreateTable)
	if !ok {
		return Result{}, shellerr.New(shellerr.CompatibilityError, "statement is not a CREATE TABLE")
	}

	if options.Has(flags, options.ForceInnodb) {
		forceInnodb(&ct.TableSpec.Options)
	}
	if options.Has(flags, options.StripTablespaces) {
		stripTableOption(&ct.TableSpec.Options, "TABLESPACE")
	}
	if ocimds {
		stripTableOption(&ct.TableSpec.Options, "DATA DIRECTORY")
		stripTableOption(&ct.TableSpec.Options, "INDEX DIRECTORY")
		stripTableOption(&ct.TableSpec.Options, "ENCRYPTION")
	}

	res := Result{SQL: sqlparser.String(stmt)}

	if !hasPrimaryKey(ct.TableSpec) {
		switch {
		case options.Has(flags, options.CreateInvisiblePKs):
			res.NeedsInvisiblePK = true
		case options.Has(flags, options.IgnoreMissingPKs):
			res.IgnoreMissingPK = true
		}
	}

	return res, nil
}

func forceInnodb(opts *sqlparser.TableOptions) {
	out := make(sqlparser.TableOptions, 0, len(*opts))
	found := false
	for _, o := range *opts {
		name := strings.ToUpper(o.Name)
		if name == "ENGINE" {
			o.String = "InnoDB"
			found = true
			out = append(out, o)
			continue
		}
		if name == "ROW_FORMAT" && strings.EqualFold(o.String, "FIXED") {
			continue
		}
		out = append(out, o)
	}
	if !found {
		out = append(out, sqlparser.TableOption{Name: "ENGINE", String: "InnoDB"})
	}
	*opts = out
}

func stripTableOption(opts *sqlparser.TableOptions, name string) {
	out := make(sqlparser.TableOptions, 0, len(*opts))
	for _, o := range *opts {
		if strings.EqualFold(o.Name, name) {
			continue
		}
		out = append(out, o)
	}
	*opts = out
}

func hasPrimaryKey(spec *sqlparser.TableSpec) bool {
	for _, idx := range spec.Indexes {
		if idx.Info.Type == sqlparser.IndexTypePrimary {
			return true
		}
	}
	for _, col := range spec.Columns {
		if col.Type.Options != nil && col.Type.Options.KeyOpt == sqlparser.ColKeyPrimary {
			return true
		}
	}
	return false
}

// RewriteDefinerBearing strips or rewrites DEFINER=.../SQL SECURITY on a
// CREATE VIEW/TRIGGER/EVENT/PROCEDURE/FUNCTION statement when
// strip_definers is set: the DEFINER clause is removed, SQL SECURITY
// DEFINER becomes SQL SECURITY INVOKER, and SQL SECURITY INVOKER is
// inserted immediately before the object keyword if absent entirely.
func RewriteDefinerBearing(sql string, flags []options.CompatibilityFlag) (Result, error) {
	if !options.Has(flags, options.StripDefiners) {
		return Result{SQL: sql}, nil
	}

	out := reDefiner.ReplaceAllString(sql, "")
	if reSQLSecurity.MatchString(out) {
		out = reSQLSecurity.ReplaceAllString(out, "SQL SECURITY INVOKER")
	} else {
		out = insertSQLSecurityInvoker(out)
	}
	return Result{SQL: out}, nil
}

var reCreateObjectKeyword = regexp.MustCompile(`(?i)^(CREATE\s+)((?:ALGORITHM\s*=\s*\S+\s+)?)(VIEW|TRIGGER|EVENT|PROCEDURE|FUNCTION)\b`)

func insertSQLSecurityInvoker(sql string) string {
	loc := reCreateObjectKeyword.FindStringSubmatchIndex(sql)
	if loc == nil {
		return sql
	}
	insertAt := loc[6]
	return sql[:insertAt] + "SQL SECURITY INVOKER " + sql[insertAt:]
}

// GrantStatement is the decomposed form of a parsed GRANT, extracted by
// regex since vitess's sqlparser has no DCL node for it.
type GrantStatement struct {
	Privileges []string
	Target     string // "schema.table", "schema.*", "PROCEDURE schema.name" etc.
	Account    string // any trailing clause other than IDENTIFIED BY (e.g. WITH GRANT OPTION) stays here
	Rest       string // trailing IDENTIFIED BY clause, left untouched
}

// ParseGrant decomposes a GRANT statement. ok is false if sql does not
// match the expected GRANT ... ON ... TO ... shape.
func ParseGrant(sql string) (GrantStatement, bool) {
	m := reGrant.FindStringSubmatch(strings.TrimSpace(sql))
	if m == nil {
		return GrantStatement{}, false
	}
	privs := strings.Split(m[1], ",")
	for i := range privs {
		privs[i] = strings.TrimSpace(privs[i])
	}
	return GrantStatement{
		Privileges: privs,
		Target:     strings.TrimSpace(m[2]),
		Account:    strings.TrimSpace(m[3]),
		Rest:       strings.TrimSpace(m[4]),
	}, true
}

// String re-serializes a GrantStatement.
func (g GrantStatement) String() string {
	s := fmt.Sprintf("GRANT %s ON %s TO %s", strings.Join(g.Privileges, ", "), g.Target, g.Account)
	if g.Rest != "" {
		s += " " + g.Rest
	}
	return s
}

// RewriteGrant applies strip_restricted_grants and ignore_wildcard_grants.
// knownRoutines, when non-nil, is consulted by strip_invalid_grants to drop
// GRANTs referencing a routine that does not exist in the dump; pass nil to
// skip that check entirely (e.g. for table/schema-level grants).
func RewriteGrant(sql string, flags []options.CompatibilityFlag, knownRoutines map[string]bool) (Result, error) {
	g, ok := ParseGrant(sql)
	if !ok {
		return Result{SQL: sql}, nil
	}

	if options.Has(flags, options.StripInvalidGrants) && knownRoutines != nil {
		if isRoutineTarget(g.Target) && !knownRoutines[strings.ToLower(strings.ReplaceAll(g.Target, "`", ""))] {
			return Result{Dropped: true}, nil
		}
	}

	if !options.Has(flags, options.IgnoreWildcardGrants) && strings.Contains(g.Target, "*") {
		return Result{}, shellerr.New(shellerr.CompatibilityError, "wildcard grant target "+g.Target+" requires ignore_wildcard_grants")
	}

	if options.Has(flags, options.StripRestrictedGrants) {
		filtered := g.Privileges[:0:0]
		for _, p := range g.Privileges {
			if !restrictedPrivileges[strings.ToUpper(p)] {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			return Result{Dropped: true}, nil
		}
		g.Privileges = filtered
	}

	return Result{SQL: g.String()}, nil
}

func isRoutineTarget(target string) bool {
	return strings.Contains(strings.ToUpper(target), "PROCEDURE") || strings.Contains(strings.ToUpper(target), "FUNCTION")
}

// AccountHasPassword reports whether a CREATE USER/account-bearing GRANT
// statement carries an IDENTIFIED BY/WITH clause; used by
// skip_invalid_accounts to omit accounts with neither a password nor a
// supported auth plugin.
func AccountHasPassword(sql string) bool {
	return regexp.MustCompile(`(?i)IDENTIFIED\s+(BY|WITH)`).MatchString(sql)
}
