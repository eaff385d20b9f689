// Package sqlite persists imported type-approval records in a local SQLite
// database.
//
// The schema is rebuilt from the file header on every import: a main
// Emissionen table keyed by TG_Code, plus id+name side tables for the
// low-cardinality columns (record.NormalizedColumns). Lookups join the side
// tables back so callers always see plain column→value records. The database
// is built into a temporary file and renamed over the old one, so a failed
// import never leaves a half-replaced store visible.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/sentinel"
)

const mainTable = "Emissionen"

// Store is a SQLite-backed record store.
type Store struct {
	path string

	mu         sync.RWMutex
	db         *sql.DB
	sideTables map[string]bool
}

// New creates a store for the database file at path. The file is opened
// lazily; reads fail with sentinel.ErrStoreMissing until an import has
// created it.
func New(path string) *Store {
	return &Store{path: path}
}

// ReplaceAll rebuilds the database from the snapshot in a temporary file and
// atomically renames it over the previous one.
func (s *Store) ReplaceAll(ctx context.Context, snap *record.Snapshot) error {
	tmp := s.path + ".tmp"
	_ = os.Remove(tmp)

	if err := buildDatabase(ctx, tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace record store: %w", err)
	}
	return nil
}

func buildDatabase(ctx context.Context, path string, snap *record.Snapshot) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open new record store: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback()

	plan := newTablePlan(snap.Columns)
	for _, stmt := range plan.schema() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, plan.insertSQL())
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	// Side-table ids resolved once per distinct value.
	ids := make(map[string]int64)
	for _, r := range snap.Records {
		args, err := plan.insertArgs(ctx, tx, r, ids)
		if err != nil {
			return fmt.Errorf("record %s: %w", r.Code, err)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert record %s: %w", r.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// tablePlan maps snapshot columns onto the SQLite schema.
type tablePlan struct {
	columns []string // cleaned snapshot columns, file order
}

func newTablePlan(columns []string) *tablePlan {
	return &tablePlan{columns: columns}
}

func quote(ident string) string {
	return `"` + ident + `"`
}

// schema returns the CREATE TABLE statements: one per normalized side table
// present in the file, then the main table.
func (p *tablePlan) schema() []string {
	var stmts []string
	var defs []string
	var fks []string

	for _, col := range p.columns {
		switch {
		case col == record.ColumnCode:
			defs = append(defs, fmt.Sprintf("%s TEXT PRIMARY KEY NOT NULL", quote(col)))
		case record.IsNormalized(col):
			side := record.SideTableName(col)
			stmts = append(stmts, fmt.Sprintf(
				"CREATE TABLE %s (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE NOT NULL)",
				quote(side)))
			defs = append(defs, fmt.Sprintf("%s INTEGER", quote(col+"_id")))
			fks = append(fks, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(id)", quote(col+"_id"), quote(side)))
		default:
			defs = append(defs, fmt.Sprintf("%s TEXT", quote(col)))
		}
	}

	defs = append(defs, fks...)
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (\n%s\n)", mainTable, strings.Join(defs, ",\n")))
	return stmts
}

func (p *tablePlan) insertColumns() []string {
	cols := make([]string, 0, len(p.columns))
	for _, col := range p.columns {
		if record.IsNormalized(col) {
			cols = append(cols, col+"_id")
		} else {
			cols = append(cols, col)
		}
	}
	return cols
}

func (p *tablePlan) insertSQL() string {
	cols := p.insertColumns()
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		mainTable, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// insertArgs resolves one record into insert values, creating side-table
// rows as needed. ids caches "table\x00value" → id across the import.
func (p *tablePlan) insertArgs(ctx context.Context, tx *sql.Tx, r record.Record, ids map[string]int64) ([]any, error) {
	args := make([]any, 0, len(p.columns))
	for _, col := range p.columns {
		value := r.Get(col)
		if !record.IsNormalized(col) {
			args = append(args, value)
			continue
		}
		if value == "" {
			value = record.EmptyPlaceholder
		}
		side := record.SideTableName(col)
		id, err := sideTableID(ctx, tx, side, value, ids)
		if err != nil {
			return nil, err
		}
		args = append(args, id)
	}
	return args, nil
}

func sideTableID(ctx context.Context, tx *sql.Tx, table, value string, ids map[string]int64) (int64, error) {
	key := table + "\x00" + value
	if id, ok := ids[key]; ok {
		return id, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE name = ?", quote(table)), value).Scan(&id)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", quote(table)), value)
		if err != nil {
			return 0, fmt.Errorf("insert %s value: %w", table, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("side table id: %w", err)
		}
	default:
		return 0, fmt.Errorf("lookup %s value: %w", table, err)
	}

	ids[key] = id
	return id, nil
}

// FindByCode retrieves a record by its exact TG-Code, joining the side
// tables back into plain columns.
func (s *Store) FindByCode(ctx context.Context, code string) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}

	query := s.selectSQL() + fmt.Sprintf(" WHERE e.%s = ?", quote(record.ColumnCode))
	rows, err := s.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("find record by code: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &records[0], nil
}

// SearchByPrefix returns records whose TG-Code starts with prefix, in import
// order (rowid order matches file order).
func (s *Store) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}

	query := s.selectSQL() + fmt.Sprintf(
		" WHERE e.%s LIKE ? ESCAPE '\\' ORDER BY e.rowid", quote(record.ColumnCode))
	args := []any{escapeLike(prefix) + "%"}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search records by prefix: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows, 0)
}

// escapeLike escapes the LIKE wildcards in a user-supplied prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// selectSQL builds the join query for whichever side tables exist in this
// database revision.
func (s *Store) selectSQL() string {
	selects := []string{"e.*"}
	var joins []string
	i := 0
	for _, col := range record.NormalizedColumns {
		side := record.SideTableName(col)
		if !s.sideTables[side] {
			continue
		}
		alias := fmt.Sprintf("t%d", i)
		i++
		selects = append(selects, fmt.Sprintf("%s.name AS %s", alias, quote(col)))
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON e.%s = %s.id",
			quote(side), alias, quote(col+"_id"), alias))
	}
	query := fmt.Sprintf("SELECT %s FROM %s e", strings.Join(selects, ", "), mainTable)
	if len(joins) > 0 {
		query += " " + strings.Join(joins, " ")
	}
	return query
}

// scanRecords turns joined rows into records, dropping the internal *_id
// columns. max <= 0 scans all rows.
func scanRecords(rows *sql.Rows, max int) ([]record.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns: %w", err)
	}

	var out []record.Record
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		fields := make(map[string]string, len(cols))
		for i, col := range cols {
			if base, ok := strings.CutSuffix(col, "_id"); ok && record.IsNormalized(base) {
				continue
			}
			if values[i].Valid {
				fields[col] = values[i].String
			}
		}
		out = append(out, record.Record{Code: fields[record.ColumnCode], Fields: fields})

		if max > 0 && len(out) == max {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Count returns the number of records in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+mainTable).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// LastUpdated returns the modification time of the database file.
func (s *Store) LastUpdated(_ context.Context) (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, sentinel.ErrStoreMissing
		}
		return time.Time{}, fmt.Errorf("stat record store: %w", err)
	}
	return info.ModTime(), nil
}

// Ping reports whether the database exists and is readable.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ensureOpen opens the database file and discovers which side tables this
// revision carries. Callers must hold at least the read lock; the method
// upgrades to the write lock internally when it has to open.
func (s *Store) ensureOpen(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	// Upgrade to the write lock for the open itself.
	s.mu.RUnlock()
	s.mu.Lock()
	err := s.openLocked(ctx)
	s.mu.Unlock()
	s.mu.RLock()
	if err != nil {
		return err
	}
	if s.db == nil {
		// Lost a race with Close; treat like a missing store.
		return sentinel.ErrStoreMissing
	}
	return nil
}

func (s *Store) openLocked(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return sentinel.ErrStoreMissing
		}
		return fmt.Errorf("stat record store: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}

	sideTables := make(map[string]bool)
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name != ?", mainTable)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("inspect record store: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = db.Close()
			return fmt.Errorf("inspect record store: %w", err)
		}
		sideTables[name] = true
	}
	if err := rows.Err(); err != nil {
		_ = db.Close()
		return fmt.Errorf("inspect record store: %w", err)
	}

	s.db = db
	s.sideTables = sideTables
	return nil
}
