package loadop

import (
	"context"
	"testing"

	"github.com/DevSingh98/mysql-shell/internal/loadsched"
	"github.com/DevSingh98/mysql-shell/internal/manifest"
	internalmysql "github.com/DevSingh98/mysql-shell/internal/mysql"
	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/progress"
)

func TestQualify_EscapesBackticks(t *testing.T) {
	got := qualify("ap`p", "us`ers")
	want := "`ap``p`.`us``ers`"
	if got != want {
		t.Errorf("qualify() = %q, want %q", got, want)
	}
}

func TestQuoteSQL_EscapesSingleQuotes(t *testing.T) {
	got := quoteSQL(`it's`)
	want := `'it''s'`
	if got != want {
		t.Errorf("quoteSQL() = %q, want %q", got, want)
	}
}

func TestParseArtifactPath(t *testing.T) {
	cases := []struct {
		path       string
		role       manifest.ArtifactRole
		wantSchema string
		wantName   string
	}{
		{"app.sql", manifest.RoleDDLSchema, "app", ""},
		{"app@users.sql", manifest.RoleDDLTable, "app", "users"},
		{"app@active_users.view.sql", manifest.RoleDDLView, "app", "active_users"},
		{"app@nightly.event.sql", manifest.RoleDDLEvent, "app", "nightly"},
	}
	for _, c := range cases {
		schema, name := parseArtifactPath(c.path, c.role)
		if schema != c.wantSchema || name != c.wantName {
			t.Errorf("parseArtifactPath(%q) = (%q, %q), want (%q, %q)", c.path, schema, name, c.wantSchema, c.wantName)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	sql := "GRANT SELECT ON app.* TO 'u'@'%';\n\nGRANT INSERT ON app.* TO 'u'@'%';\n"
	got := splitStatements(sql)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(got), got)
	}
}

func TestRoutineKeyFromPath(t *testing.T) {
	got := routineKeyFromPath("app@compute_total.routine.sql")
	want := "app.compute_total"
	if got != want {
		t.Errorf("routineKeyFromPath() = %q, want %q", got, want)
	}
}

func TestResumeStateFromEntries_TracksInFlightChunks(t *testing.T) {
	entries := []progress.Entry{
		{Kind: progress.StepDDL, StepKey: "schema:app", Outcome: progress.OutcomeOK},
		{Kind: progress.StepChunkStart, StepKey: "app.users#0"},
		{Kind: progress.StepChunkDone, StepKey: "app.users#0"},
		{Kind: progress.StepChunkStart, StepKey: "app.orders#0"},
	}
	state := resumeStateFromEntries(entries)
	if len(state.CompletedSteps) != 1 || state.CompletedSteps[0] != "schema:app" {
		t.Errorf("expected schema:app completed, got %#v", state.CompletedSteps)
	}
	if len(state.InProgressChunks) != 1 || state.InProgressChunks[0].Schema != "app" || state.InProgressChunks[0].Table != "orders" {
		t.Errorf("expected app.orders in-progress chunk, got %#v", state.InProgressChunks)
	}
}

func TestAccountFromGrantStep_NonGrantReturnsEmpty(t *testing.T) {
	step := &loadsched.Step{Kind: loadsched.UserGrant, SQL: "CREATE USER 'u'@'%' IDENTIFIED BY 'x'"}
	if got := accountFromGrantStep(step); got != "" {
		t.Errorf("accountFromGrantStep() on a non-GRANT statement = %q, want empty", got)
	}
}

func TestAccountFromGrantStep_ExtractsAccount(t *testing.T) {
	step := &loadsched.Step{Kind: loadsched.UserGrant, SQL: "GRANT SELECT, INSERT ON app.* TO 'reporter'@'10.0.0.%'"}
	got := accountFromGrantStep(step)
	want := "'reporter'@'10.0.0.%'"
	if got != want {
		t.Errorf("accountFromGrantStep() = %q, want %q", got, want)
	}
}

func TestRun_RejectsInvalidOptionsBeforeAnyIO(t *testing.T) {
	_, err := Run(context.Background(), internalmysql.ConnectionConfig{}, &options.LoadOptions{})
	if err == nil {
		t.Fatal("expected Run() to reject a LoadOptions with no SourceURL before touching storage or the network")
	}
}

func TestRunImportTable_RejectsInvalidOptionsBeforeAnyIO(t *testing.T) {
	_, err := RunImportTable(context.Background(), internalmysql.ConnectionConfig{}, &options.ImportTableOptions{})
	if err == nil {
		t.Fatal("expected RunImportTable() to reject an ImportTableOptions with no schema/table before touching storage or the network")
	}
}
