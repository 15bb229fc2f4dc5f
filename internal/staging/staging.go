// Package staging implements the uniform tabular staging store every
// ingestion reader fills and every materializer worker reads back from. It
// is the concrete "embedded SQL engine" the spec treats as an abstract
// contract, backed by the pure-Go modernc.org/sqlite driver — the direct
// analogue of the original Rust implementation's rusqlite::Connection.
package staging

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// WorkDir is the relative working directory used for a disk-backed store,
// per the spec's external interfaces section.
const WorkDir = "rossete-tmp"

// Store is a uniform tabular staging store: one table per (source,
// formulation, iterator) tuple, a synthetic monotonic row_ord per row, and
// TEXT columns for every field a mapping references. A single *sql.DB
// connection serializes every statement (CreateTable/Insert/Dedup/Scan/
// Lookup alike), satisfying the "safe under concurrent readers" contract
// with a connection-per-store mutex-equivalent rather than per-thread
// connections.
type Store struct {
	db *sql.DB
}

// OpenInMemory returns a transient store living entirely in memory, chosen
// when the summed input file sizes fall below the configured memory
// threshold.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", "file:rossete?mode=memory&cache=shared")
	if err != nil {
		return nil, errors.Wrap(err, "staging: open in-memory store")
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// OpenDisk creates (destroying any prior contents) WorkDir under baseDir
// and returns a store backed by a single "data_tmp.sqlite" file in it, for
// corpora whose combined size exceeds the memory threshold.
func OpenDisk(baseDir string) (*Store, error) {
	dir := filepath.Join(baseDir, WorkDir)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("staging: clear previous working directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create working directory: %w", err)
	}
	path := filepath.Join(dir, "data_tmp.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "staging: open disk store")
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// RemoveWorkDir deletes WorkDir under baseDir, used by --clear on a clean
// shutdown.
func RemoveWorkDir(baseDir string) error {
	return os.RemoveAll(filepath.Join(baseDir, WorkDir))
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CreateTable idempotently creates name with a synthetic row_ord primary
// key plus one TEXT column per entry in columns.
func (s *Store) CreateTable(name string, columns []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (row_ord INTEGER PRIMARY KEY AUTOINCREMENT", quoteIdent(name))
	for _, c := range columns {
		fmt.Fprintf(&b, ", %s TEXT", quoteIdent(c))
	}
	b.WriteString(")")
	if _, err := s.db.Exec(b.String()); err != nil {
		return fmt.Errorf("staging: create table %s: %w", name, err)
	}
	return nil
}

// batchSize is how many inserts accumulate per transaction, per the
// ingestion contract's "groups of N (reference ~= 24 inserts per commit)".
const batchSize = 24

// Batch buffers inserts into name and commits every batchSize rows (or on
// Close), amortizing transaction overhead across many rows from one
// source file.
type Batch struct {
	store   *Store
	table   string
	columns []string
	tx      *sql.Tx
	stmt    *sql.Stmt
	pending int
}

// NewBatch opens a batched insert session against table, whose columns
// must already exist (via CreateTable).
func (s *Store) NewBatch(table string, columns []string) (*Batch, error) {
	b := &Batch{store: s, table: table, columns: columns}
	if err := b.open(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Batch) open() error {
	tx, err := b.store.db.Begin()
	if err != nil {
		return fmt.Errorf("staging: begin transaction: %w", err)
	}
	placeholders := strings.Repeat("?,", len(b.columns))
	placeholders = strings.TrimSuffix(placeholders, ",")
	cols := make([]string, len(b.columns))
	for i, c := range b.columns {
		cols[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(b.table), strings.Join(cols, ","), placeholders)
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("staging: prepare insert: %w", err)
	}
	b.tx = tx
	b.stmt = stmt
	return nil
}

// Insert assigns the row the next row_ord and returns it.
func (b *Batch) Insert(values []string) (int64, error) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	res, err := b.stmt.Exec(args...)
	if err != nil {
		return 0, fmt.Errorf("staging: insert into %s: %w", b.table, err)
	}
	rowOrd, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("staging: read row_ord: %w", err)
	}
	b.pending++
	if b.pending >= batchSize {
		if err := b.commitAndReopen(); err != nil {
			return 0, err
		}
	}
	return rowOrd, nil
}

func (b *Batch) commitAndReopen() error {
	b.stmt.Close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("staging: commit batch: %w", err)
	}
	b.pending = 0
	return b.open()
}

// Close commits any pending rows and finalizes the session.
func (b *Batch) Close() error {
	b.stmt.Close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("staging: commit final batch: %w", err)
	}
	return nil
}

// Dedup deletes every row whose (columns...) tuple duplicates another row
// with a smaller row_ord, keeping the earliest insertion.
func (s *Store) Dedup(table string, columns []string) error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	group := strings.Join(quoted, ",")
	query := fmt.Sprintf(
		`DELETE FROM %[1]s WHERE row_ord NOT IN (SELECT MIN(row_ord) FROM %[1]s GROUP BY %[2]s)`,
		quoteIdent(table), group,
	)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("staging: dedup %s: %w", table, err)
	}
	return nil
}

// Row is one staged record: its ordinal plus the requested column values,
// in request order.
type Row struct {
	RowOrd int64
	Values []string
}

// RowIter is a forward-only cursor over a Scan result.
type RowIter struct {
	rows *sql.Rows
	n    int
}

// Next advances the cursor. ok is false once exhausted.
func (it *RowIter) Next() (Row, bool, error) {
	if !it.rows.Next() {
		return Row{}, false, it.rows.Err()
	}
	dest := make([]any, it.n+1)
	var rowOrd int64
	dest[0] = &rowOrd
	vals := make([]sql.NullString, it.n)
	for i := range vals {
		dest[i+1] = &vals[i]
	}
	if err := it.rows.Scan(dest...); err != nil {
		return Row{}, false, fmt.Errorf("staging: scan row: %w", err)
	}
	values := make([]string, it.n)
	for i, v := range vals {
		values[i] = v.String
	}
	return Row{RowOrd: rowOrd, Values: values}, true, nil
}

// Close releases the cursor.
func (it *RowIter) Close() error { return it.rows.Close() }

// Scan returns every row of table, ascending by row_ord, projected onto
// columns.
func (s *Store) Scan(table string, columns []string) (*RowIter, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT row_ord, %s FROM %s ORDER BY row_ord ASC", strings.Join(quoted, ","), quoteIdent(table))
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("staging: scan %s: %w", table, err)
	}
	return &RowIter{rows: rows, n: len(columns)}, nil
}

// Lookup returns the first row of table whose whereCols match whereVals
// positionally, projected onto selectCols. found is false when no row
// matches.
func (s *Store) Lookup(table string, whereCols, whereVals, selectCols []string) (map[string]string, bool, error) {
	if len(whereCols) != len(whereVals) {
		return nil, false, fmt.Errorf("staging: lookup: mismatched where columns/values")
	}
	selQuoted := make([]string, len(selectCols))
	for i, c := range selectCols {
		selQuoted[i] = quoteIdent(c)
	}
	conds := make([]string, len(whereCols))
	args := make([]any, len(whereVals))
	for i, c := range whereCols {
		conds[i] = quoteIdent(c) + " = ?"
		args[i] = whereVals[i]
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1",
		strings.Join(selQuoted, ","), quoteIdent(table), strings.Join(conds, " AND "))
	row := s.db.QueryRow(query, args...)
	vals := make([]sql.NullString, len(selectCols))
	dest := make([]any, len(selectCols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("staging: lookup %s: %w", table, err)
	}
	out := make(map[string]string, len(selectCols))
	for i, c := range selectCols {
		out[c] = vals[i].String
	}
	return out, true, nil
}

// LookupByRowOrd is the self-join fast path ("if both maps share a table,
// use row_ord equality as the self-join predicate").
func (s *Store) LookupByRowOrd(table string, rowOrd int64, selectCols []string) (map[string]string, bool, error) {
	selQuoted := make([]string, len(selectCols))
	for i, c := range selectCols {
		selQuoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE row_ord = ? LIMIT 1", strings.Join(selQuoted, ","), quoteIdent(table))
	row := s.db.QueryRow(query, rowOrd)
	vals := make([]sql.NullString, len(selectCols))
	dest := make([]any, len(selectCols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("staging: lookup by row_ord %s: %w", table, err)
	}
	out := make(map[string]string, len(selectCols))
	for i, c := range selectCols {
		out[c] = vals[i].String
	}
	return out, true, nil
}
