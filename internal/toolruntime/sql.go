package toolruntime

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// dangerousSQLKeyword matches statement-leading keywords that mutate or
// destroy schema/data (§4.7: logged, not blocked — the tool author is
// trusted to have scoped the configured query; the hub's job is an audit
// trail, not a firewall).
var dangerousSQLKeyword = regexp.MustCompile(`(?i)^\s*(DROP|DELETE|TRUNCATE|ALTER|CREATE|INSERT|UPDATE)\b`)

// SQLOpener opens a *sql.DB for a declarative SQL-kind tool's configured
// database.type. Only postgresql and mysql are wired with a driver from the
// pack (github.com/lib/pq, github.com/go-sql-driver/mysql, both imported for
// side effects by cmd/'s composition root); mssql
// (github.com/microsoft/go-mssqldb) and oracle (github.com/sijms/go-ora/v2)
// are named in SPEC_FULL.md §4.7 but have no driver import here since
// nothing in the pack exercises them with source.
type SQLOpener func(databaseType, dsn string) (*sql.DB, error)

// DefaultSQLOpener dispatches on databaseType using database/sql's
// registered drivers (sql.Open only validates arguments; the actual driver
// package must be blank-imported by the caller for its name to resolve).
func DefaultSQLOpener(databaseType, dsn string) (*sql.DB, error) {
	switch databaseType {
	case "postgresql", "postgres":
		return sql.Open("postgres", dsn)
	case "mysql":
		return sql.Open("mysql", dsn)
	default:
		return nil, fmt.Errorf("sql tool: unsupported database type %q", databaseType)
	}
}

// executeSQL runs the declarative query from def.ImplParams, substituting
// args as positional query parameters in the order def.ImplParams["params"]
// names them (§4.7 sql kind).
func executeSQL(ctx context.Context, def *store.ToolDefinition, open SQLOpener, args map[string]any) *Result {
	dbType, _ := def.ImplParams["databaseType"].(string)
	dsn, _ := def.ImplParams["dsn"].(string)
	query, _ := def.ImplParams["query"].(string)
	if query == "" {
		return ErrorResult("sql tool has no configured query")
	}

	if m := dangerousSQLKeyword.FindString(query); m != "" {
		slog.Warn("toolruntime.sql_dangerous_keyword", "tool", def.Name, "keyword", m)
	}

	db, err := open(dbType, dsn)
	if err != nil {
		return ErrorResult(fmt.Sprintf("sql tool: %v", err)).WithError(err)
	}
	defer db.Close()

	var params []any
	if names, ok := def.ImplParams["params"].([]any); ok {
		for _, n := range names {
			name, _ := n.(string)
			params = append(params, args[name])
		}
	}

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return ErrorResult(fmt.Sprintf("sql query failed: %v", err)).WithError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return ErrorResult(fmt.Sprintf("sql tool: %v", err)).WithError(err)
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return ErrorResult(fmt.Sprintf("sql scan failed: %v", err)).WithError(err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return ErrorResult(fmt.Sprintf("sql tool: %v", err)).WithError(err)
	}
	return NewResult(string(encoded))
}
