// Package sqlbundle exposes the relational schema DDL for the SQL-backed stores.
package sqlbundle

import (
	"bufio"
	_ "embed"
	"strings"
)

//go:embed sqlite.sql
var sqliteDDL string

//go:embed postgres.sql
var postgresDDL string

// SQLite returns the SQLite DDL bundle.
func SQLite() string {
	return sqliteDDL
}

// Postgres returns the Postgres DDL bundle.
func Postgres() string {
	return postgresDDL
}

// Tables lists the entity tables in foreign-key dependency order.
func Tables() []string {
	return []string{"planets", "scientists", "missions"}
}

// SequencesTable records the last id handed out per entity table so ids
// survive deletes across reopen.
const SequencesTable = "id_sequences"

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}

	return stmts
}
