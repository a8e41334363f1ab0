package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database persists library snapshots in SQLite, one table per logical
// resource.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and
// applies schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

func newDatabaseFromDB(db *sql.DB) *Database {
	return &Database{db: sqlx.NewDb(db, "sqlite3")}
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            category TEXT NOT NULL,
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            name TEXT NOT NULL,
            credential_hash TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS user_borrowed (
            user_id TEXT NOT NULL REFERENCES users(id),
            book_id TEXT NOT NULL,
            position INTEGER NOT NULL,
            PRIMARY KEY (user_id, book_id)
        );`,
		`CREATE TABLE IF NOT EXISTS ledger (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            user_id TEXT NOT NULL,
            book_id TEXT NOT NULL,
            borrowed_at DATETIME NOT NULL,
            due_at DATETIME,
            returned_at DATETIME
        );`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_open ON ledger(book_id) WHERE returned_at IS NULL;`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Snapshot load/save
// ---------------------------------------------------------------------------

type userRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	CredentialHash string `db:"credential_hash"`
}

type borrowedRow struct {
	UserID string `db:"user_id"`
	BookID string `db:"book_id"`
}

type ledgerRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	BookID     string       `db:"book_id"`
	BorrowedAt time.Time    `db:"borrowed_at"`
	DueAt      sql.NullTime `db:"due_at"`
	ReturnedAt sql.NullTime `db:"returned_at"`
}

// Load reads all three tables in insertion order.
func (d *Database) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := d.db.SelectContext(ctx, &snap.Books,
		`SELECT id,title,author,category,available FROM books ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	var users []userRow
	if err := d.db.SelectContext(ctx, &users,
		`SELECT id,name,credential_hash FROM users ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var borrowed []borrowedRow
	if err := d.db.SelectContext(ctx, &borrowed,
		`SELECT user_id,book_id FROM user_borrowed ORDER BY user_id, position`); err != nil {
		return nil, fmt.Errorf("load borrowed sets: %w", err)
	}
	held := make(map[string][]string)
	for _, b := range borrowed {
		held[b.UserID] = append(held[b.UserID], b.BookID)
	}
	for _, u := range users {
		set := held[u.ID]
		if set == nil {
			set = []string{}
		}
		snap.Users = append(snap.Users, User{
			ID:             u.ID,
			Name:           u.Name,
			CredentialHash: u.CredentialHash,
			BorrowedBooks:  set,
		})
	}

	var ledger []ledgerRow
	if err := d.db.SelectContext(ctx, &ledger,
		`SELECT id,user_id,book_id,borrowed_at,due_at,returned_at FROM ledger ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	for _, r := range ledger {
		snap.Ledger = append(snap.Ledger, BorrowRecord{
			ID:         r.ID,
			UserID:     r.UserID,
			BookID:     r.BookID,
			BorrowedAt: r.BorrowedAt.UTC(),
			DueAt:      fromNullTime(r.DueAt),
			ReturnedAt: fromNullTime(r.ReturnedAt),
		})
	}
	return snap, nil
}

// Save replaces every table with the content of snap in one transaction.
func (d *Database) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"user_borrowed", "ledger", "users", "books"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, b := range snap.Books {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO books(id,position,title,author,category,available) VALUES(?,?,?,?,?,?)`,
			b.ID, i, b.Title, b.Author, b.Category, b.Available); err != nil {
			return fmt.Errorf("save book %q: %w", b.ID, err)
		}
	}
	for i, u := range snap.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users(id,position,name,credential_hash) VALUES(?,?,?,?)`,
			u.ID, i, u.Name, u.CredentialHash); err != nil {
			return fmt.Errorf("save user %q: %w", u.ID, err)
		}
		for j, bookID := range u.BorrowedBooks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_borrowed(user_id,book_id,position) VALUES(?,?,?)`,
				u.ID, bookID, j); err != nil {
				return fmt.Errorf("save borrowed set of %q: %w", u.ID, err)
			}
		}
	}
	for i, r := range snap.Ledger {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger(id,position,user_id,book_id,borrowed_at,due_at,returned_at) VALUES(?,?,?,?,?,?,?)`,
			r.ID, i, r.UserID, r.BookID, r.BorrowedAt, toNullTime(r.DueAt), toNullTime(r.ReturnedAt)); err != nil {
			return fmt.Errorf("save ledger record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
