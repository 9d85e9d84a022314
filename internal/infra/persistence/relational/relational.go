// Package relational maps committed domain changes onto the planets,
// scientists and missions tables shared by the SQLite and Postgres stores.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"missioncore/internal/infra/persistence/memory"
	"missioncore/internal/infra/persistence/sqlbundle"
	"missioncore/pkg/domain"
)

// Dialect captures the placeholder style of a SQL backend.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
}

var (
	// SQLite uses positional question-mark placeholders.
	SQLite = Dialect{Name: "sqlite", Placeholder: func(int) string { return "?" }}
	// Postgres uses numbered dollar placeholders.
	Postgres = Dialect{Name: "postgres", Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}
)

// Execer is the subset of *sql.DB and *sql.Tx used to run statements.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer is the subset of *sql.DB used to read tables.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type table struct {
	name    string
	columns []string
}

var (
	planetsTable    = table{name: "planets", columns: []string{"id", "name", "distance_from_earth", "nearest_star"}}
	scientistsTable = table{name: "scientists", columns: []string{"id", "name", "field_of_study"}}
	missionsTable   = table{name: "missions", columns: []string{"id", "name", "scientist_id", "planet_id"}}
	sequencesTable  = table{name: sqlbundle.SequencesTable, columns: []string{"entity", "last_id"}}
)

func (t table) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(t.columns, ", "), t.name, t.columns[0])
}

func (t table) upsertSQL(d Dialect) string {
	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = d.Placeholder(i + 1)
	}
	updates := make([]string, 0, len(t.columns)-1)
	for _, col := range t.columns[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}

// raiseSequenceSQL upserts a sequence row, never lowering the stored value.
func raiseSequenceSQL(d Dialect) string {
	t := sequencesTable
	return fmt.Sprintf("INSERT INTO %s (entity, last_id) VALUES (%s, %s) ON CONFLICT (entity) DO UPDATE SET last_id = CASE WHEN excluded.last_id > %s.last_id THEN excluded.last_id ELSE %s.last_id END",
		t.name, d.Placeholder(1), d.Placeholder(2), t.name, t.name)
}

func (t table) deleteSQL(d Dialect) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", t.name, d.Placeholder(1))
}

// ApplyDDL executes each statement of the bundle in order.
func ApplyDDL(ctx context.Context, exec Execer, ddl string) error {
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// LoadSnapshot reads every table into a snapshot ordered by id.
func LoadSnapshot(ctx context.Context, db Queryer) (memory.Snapshot, error) {
	var snapshot memory.Snapshot
	err := scanTable(ctx, db, planetsTable, func(rows *sql.Rows) error {
		var p domain.Planet
		if err := rows.Scan(&p.ID, &p.Name, &p.DistanceFromEarth, &p.NearestStar); err != nil {
			return err
		}
		snapshot.Planets = append(snapshot.Planets, p)
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}
	err = scanTable(ctx, db, scientistsTable, func(rows *sql.Rows) error {
		var s domain.Scientist
		if err := rows.Scan(&s.ID, &s.Name, &s.FieldOfStudy); err != nil {
			return err
		}
		snapshot.Scientists = append(snapshot.Scientists, s)
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}
	err = scanTable(ctx, db, missionsTable, func(rows *sql.Rows) error {
		var m domain.Mission
		if err := rows.Scan(&m.ID, &m.Name, &m.ScientistID, &m.PlanetID); err != nil {
			return err
		}
		snapshot.Missions = append(snapshot.Missions, m)
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}
	err = scanTable(ctx, db, sequencesTable, func(rows *sql.Rows) error {
		var (
			entity string
			lastID int64
		)
		if err := rows.Scan(&entity, &lastID); err != nil {
			return err
		}
		switch entity {
		case planetsTable.name:
			snapshot.Sequences.Planet = lastID
		case scientistsTable.name:
			snapshot.Sequences.Scientist = lastID
		case missionsTable.name:
			snapshot.Sequences.Mission = lastID
		}
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}
	return snapshot, nil
}

func scanTable(ctx context.Context, db Queryer, t table, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, t.selectSQL())
	if err != nil {
		return fmt.Errorf("select %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", t.name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return nil
}

// ApplyChanges writes the changes in recorded order inside a single database
// transaction, then raises the id sequence of every table that gained rows.
// Nothing is written when any statement fails.
func ApplyChanges(ctx context.Context, db *sql.DB, d Dialect, changes []domain.Change) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, change := range changes {
		query, args, err := Statement(d, change)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s %s: %w", change.Action, change.Entity, err)
		}
	}
	for _, seq := range SequenceUpdates(changes) {
		if _, err := tx.ExecContext(ctx, raiseSequenceSQL(d), seq.Table, seq.LastID); err != nil {
			return fmt.Errorf("raise %s sequence: %w", seq.Table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Statement renders the SQL for a single change. Creates and updates are
// written as upserts keyed on id.
func Statement(d Dialect, change domain.Change) (string, []any, error) {
	if change.Action == domain.ActionDelete {
		t, id, err := identify(change.Before)
		if err != nil {
			return "", nil, err
		}
		return t.deleteSQL(d), []any{id}, nil
	}
	switch v := change.After.(type) {
	case domain.Planet:
		return planetsTable.upsertSQL(d), []any{v.ID, v.Name, v.DistanceFromEarth, v.NearestStar}, nil
	case domain.Scientist:
		return scientistsTable.upsertSQL(d), []any{v.ID, v.Name, v.FieldOfStudy}, nil
	case domain.Mission:
		return missionsTable.upsertSQL(d), []any{v.ID, v.Name, v.ScientistID, v.PlanetID}, nil
	default:
		return "", nil, fmt.Errorf("unsupported change payload %T", change.After)
	}
}

// SequenceUpdate is the highest id created in a table by a change set.
type SequenceUpdate struct {
	Table  string
	LastID int64
}

// SequenceUpdates returns one update per table with created rows, in
// dependency order.
func SequenceUpdates(changes []domain.Change) []SequenceUpdate {
	highest := make(map[string]int64, 3)
	for _, change := range changes {
		if change.Action != domain.ActionCreate {
			continue
		}
		t, id, err := identify(change.After)
		if err != nil {
			continue
		}
		highest[t.name] = max(highest[t.name], id)
	}
	var out []SequenceUpdate
	for _, name := range sqlbundle.Tables() {
		if id, ok := highest[name]; ok {
			out = append(out, SequenceUpdate{Table: name, LastID: id})
		}
	}
	return out
}

func identify(payload any) (table, int64, error) {
	switch v := payload.(type) {
	case domain.Planet:
		return planetsTable, v.ID, nil
	case domain.Scientist:
		return scientistsTable, v.ID, nil
	case domain.Mission:
		return missionsTable, v.ID, nil
	default:
		return table{}, 0, fmt.Errorf("unsupported change payload %T", payload)
	}
}
