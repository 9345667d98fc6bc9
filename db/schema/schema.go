// Package schema embeds the DDL for the documents table, one file per dialect.
package schema

import (
	"embed"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

//go:embed *.sql
var files embed.FS

// Statements returns the DDL statements for the given ent dialect name.
func Statements(d string) ([]string, error) {
	var name string
	switch d {
	case dialect.SQLite:
		name = "sqlite.sql"
	case dialect.Postgres:
		name = "postgres.sql"
	default:
		return nil, fmt.Errorf("no schema for dialect %q", d)
	}
	b, err := files.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, s := range strings.Split(string(b), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts, nil
}
