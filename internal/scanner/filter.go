package scanner

import "strings"

// alwaysExcludedSchemas are never scanned regardless of include/exclude
// options.
var alwaysExcludedSchemas = map[string]bool{
	"information_schema": true,
	"mysql":               true,
	"ndbinfo":             true,
	"performance_schema":  true,
	"sys":                 true,
}

// alwaysExcludedTables are never scanned regardless of include/exclude
// options, keyed "schema.table".
var alwaysExcludedTables = map[string]bool{
	"mysql.apply_status": true,
	"mysql.general_log":  true,
	"mysql.schema":       true,
	"mysql.slow_log":     true,
}

// Filter implements the includeX/excludeX dotted-identifier matching rule:
// exclude wins when both name the same object. Empty Include means
// "everything not excluded".
type Filter struct {
	Include []string
	Exclude []string
}

func normalize(name string) string {
	return strings.Trim(name, "`")
}

// MatchesSchema reports whether schema passes this filter, after the
// always-excluded schema list.
func (f Filter) MatchesSchema(schema string) bool {
	if alwaysExcludedSchemas[schema] {
		return false
	}
	return f.matches(schema)
}

// MatchesTable reports whether schema.table passes this filter, after the
// always-excluded table list and the schema-level filter.
func (f Filter) MatchesTable(schema, table string) bool {
	qualified := schema + "." + table
	if alwaysExcludedTables[qualified] {
		return false
	}
	return f.matches(qualified)
}

func (f Filter) matches(qualified string) bool {
	qualified = normalize(qualified)
	for _, e := range f.Exclude {
		if matchesPattern(normalize(e), qualified) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, i := range f.Include {
		if matchesPattern(normalize(i), qualified) {
			return true
		}
	}
	return false
}

// matchesPattern matches either a bare schema name against a
// "schema" or "schema.table" pattern's schema component, or an exact
// "schema.table" identifier.
func matchesPattern(pattern, qualified string) bool {
	if pattern == qualified {
		return true
	}
	// A bare schema pattern ("db1") matches every table under it
	// ("db1.t1") as well as the schema name itself.
	if !strings.Contains(pattern, ".") {
		schema := qualified
		if idx := strings.Index(qualified, "."); idx >= 0 {
			schema = qualified[:idx]
		}
		return pattern == schema
	}
	return false
}

// UserFilter matches mysql.user accounts in 'user' or 'user'@'host' form;
// an omitted host matches every host for that user.
type UserFilter struct {
	Include []string
	Exclude []string
}

func (f UserFilter) Matches(user, host string) bool {
	for _, e := range f.Exclude {
		if matchesUserPattern(e, user, host) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, i := range f.Include {
		if matchesUserPattern(i, user, host) {
			return true
		}
	}
	return false
}

func matchesUserPattern(pattern, user, host string) bool {
	pattern = strings.Trim(pattern, "'")
	if idx := strings.Index(pattern, "@"); idx >= 0 {
		patUser := strings.Trim(pattern[:idx], "'")
		patHost := strings.Trim(pattern[idx+1:], "'")
		return patUser == user && patHost == host
	}
	return pattern == user
}
