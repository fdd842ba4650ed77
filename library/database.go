package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
)

// dialect builds every query the store runs.
var dialect = goqu.Dialect("sqlite3")

const (
	tableBooks   = "books"
	tableMembers = "members"
	tableLoans   = "loans"
)

// constraint is the kind of SQLite constraint a driver error reports.
type constraint int

const (
	constraintNone constraint = iota
	constraintUnique
	constraintForeignKey
	constraintCheck
	constraintOther
)

// Database provides high-level helpers around a SQLite connection. Rows are
// mapped into Book, Member and Loan records here and nowhere else.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies the
// schema.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sqlx.Open(driverName, driverDSN(dbPath))
	if err != nil {
		return nil, storeError("open sqlite", err)
	}
	// Single user, single writer.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error {
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// Use WAL for better concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return storeError("enable WAL", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return storeError("create meta table", err)
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return storeError("begin migration", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT UNIQUE,
            copies_total INTEGER NOT NULL CHECK (copies_total >= 1),
            copies_available INTEGER NOT NULL
                CHECK (copies_available >= 0 AND copies_available <= copies_total),
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT UNIQUE,
            phone TEXT,
            joined_at TEXT NOT NULL
        );`,
		// Deletes are guarded against unreturned loans before they run, so
		// the cascade only ever removes returned-loan history.
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
            member_id INTEGER NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            loan_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            return_date TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_member ON loans(member_id);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_due ON loans(due_date);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return storeError("apply migration", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return storeError("record schema version", err)
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit migration", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// withTx runs fn inside one transaction. Any error from fn rolls back every
// write fn made.
func (d *Database) withTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return storeError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeError("commit transaction", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

func build(step string, b sqlBuilder) (string, []interface{}, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return "", nil, storeError(step+": build query", err)
	}
	return query, args, nil
}

// get scans a single row into dest. It reports found=false instead of an
// error when the query matches nothing.
func get(q sqlx.Queryer, step string, dest interface{}, ds *goqu.SelectDataset) (bool, error) {
	query, args, err := build(step, ds.Prepared(true))
	if err != nil {
		return false, err
	}
	if err := sqlx.Get(q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, storeError(step, err)
	}
	return true, nil
}

func selectAll(q sqlx.Queryer, step string, dest interface{}, ds *goqu.SelectDataset) error {
	query, args, err := build(step, ds.Prepared(true))
	if err != nil {
		return err
	}
	if err := sqlx.Select(q, dest, query, args...); err != nil {
		return storeError(step, err)
	}
	return nil
}

// exec runs a write. Errors come back unwrapped so callers can classify
// constraint failures before wrapping them with their own step.
func exec(e sqlx.Execer, b sqlBuilder) (sql.Result, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return e.Exec(query, args...)
}

func count(q sqlx.Queryer, step string, ds *goqu.SelectDataset) (int, error) {
	var n int
	if _, err := get(q, step, &n, ds.Select(goqu.COUNT(goqu.Star()))); err != nil {
		return 0, err
	}
	return n, nil
}

// containsFold matches kw (already lower-cased) as a substring of col.
func containsFold(col string, kw string) goqu.Expression {
	return goqu.L("instr(lower(ifnull(?, '')), ?) > 0", goqu.C(col), kw)
}
