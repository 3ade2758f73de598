package toolruntime

import (
	"testing"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

func TestDangerousSQLKeyword_MatchesMutatingStatements(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"DROP TABLE customers", "DROP"},
		{"  delete from orders where id = $1", "delete"},
		{"TRUNCATE logs", "TRUNCATE"},
		{"alter table widgets add column x int", "alter"},
		{"CREATE TABLE t (id int)", "CREATE"},
		{"insert into t (id) values ($1)", "insert"},
		{"UPDATE t SET x = 1", "UPDATE"},
	}
	for _, tc := range cases {
		if got := dangerousSQLKeyword.FindString(tc.query); got == "" {
			t.Errorf("expected %q to match a dangerous keyword", tc.query)
		}
	}
}

func TestDangerousSQLKeyword_DoesNotMatchSelect(t *testing.T) {
	if got := dangerousSQLKeyword.FindString("SELECT * FROM customers WHERE id = $1"); got != "" {
		t.Fatalf("expected a read-only query not to match, got %q", got)
	}
}

func TestExecuteSQL_NoConfiguredQuery(t *testing.T) {
	def := &store.ToolDefinition{Name: "lookup", ImplParams: map[string]any{}}
	result := executeSQL(nil, def, nil, nil)
	if !result.IsError {
		t.Fatal("expected an error result when no query is configured")
	}
}
