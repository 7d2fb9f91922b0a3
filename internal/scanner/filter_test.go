package scanner

import "testing"

func TestFilter_MatchesSchema_AlwaysExcluded(t *testing.T) {
	f := Filter{}
	for _, schema := range []string{"mysql", "sys", "information_schema", "performance_schema", "ndbinfo"} {
		if f.MatchesSchema(schema) {
			t.Errorf("MatchesSchema(%q) = true, want false (always excluded)", schema)
		}
	}
}

func TestFilter_MatchesTable_AlwaysExcluded(t *testing.T) {
	f := Filter{}
	if f.MatchesTable("mysql", "general_log") {
		t.Error("mysql.general_log should always be excluded")
	}
	if !f.MatchesTable("app", "general_log") {
		t.Error("app.general_log should not inherit mysql's exclusion")
	}
}

func TestFilter_ExcludeWinsOverInclude(t *testing.T) {
	f := Filter{Include: []string{"app"}, Exclude: []string{"app.secrets"}}
	if !f.MatchesTable("app", "users") {
		t.Error("app.users should be included")
	}
	if f.MatchesTable("app", "secrets") {
		t.Error("app.secrets should be excluded despite schema-level include")
	}
}

func TestFilter_SchemaLevelIncludeCoversAllTables(t *testing.T) {
	f := Filter{Include: []string{"app"}}
	if !f.MatchesTable("app", "anything") {
		t.Error("bare schema include should cover every table in it")
	}
	if f.MatchesTable("other", "anything") {
		t.Error("other schema should not be included")
	}
}

func TestFilter_EmptyIncludeMeansEverything(t *testing.T) {
	f := Filter{}
	if !f.MatchesSchema("app") {
		t.Error("empty include filter should pass non-excluded schemas")
	}
}

func TestFilter_ExactTableInclude(t *testing.T) {
	f := Filter{Include: []string{"app.users"}}
	if !f.MatchesTable("app", "users") {
		t.Error("app.users should match exact include")
	}
	if f.MatchesTable("app", "orders") {
		t.Error("app.orders should not match app.users include")
	}
}

func TestUserFilter_HostOmittedMatchesAllHosts(t *testing.T) {
	f := UserFilter{Include: []string{"app_user"}}
	if !f.Matches("app_user", "%") {
		t.Error("bare user pattern should match any host")
	}
	if !f.Matches("app_user", "10.0.0.1") {
		t.Error("bare user pattern should match any host")
	}
}

func TestUserFilter_UserAtHost(t *testing.T) {
	f := UserFilter{Include: []string{"'app_user'@'10.0.0.1'"}}
	if !f.Matches("app_user", "10.0.0.1") {
		t.Error("exact user@host should match")
	}
	if f.Matches("app_user", "10.0.0.2") {
		t.Error("different host should not match")
	}
}

func TestUserFilter_ExcludeWins(t *testing.T) {
	f := UserFilter{Exclude: []string{"root"}}
	if f.Matches("root", "localhost") {
		t.Error("root should be excluded")
	}
	if !f.Matches("app_user", "%") {
		t.Error("app_user should pass")
	}
}
