// Package sqlite keeps the ledger in a SQLite database. Rows carry a
// surrogate autoincrement id that fixes append order; it is never exposed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*Repository)(nil)

const (
	insertTransaction = `INSERT INTO transactions (date, amount, category, description) VALUES (?, ?, ?, ?)`
	selectAll         = `SELECT date, amount, category, description FROM transactions ORDER BY id`
	deleteAll         = `DELETE FROM transactions`
)

type Repository struct {
	db     *sql.DB
	dbPath string
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db, dbPath: dbPath}, nil
}

// Initialize applies migrations; running it again is a no-op.
func (r *Repository) Initialize(ctx context.Context) error {
	if err := RunMigrations(r.dbPath); err != nil {
		return err
	}
	slog.InfoContext(ctx, "SQLite ledger ready", "path", r.dbPath)
	return nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Append(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, insertTransaction, t.Date, core.FormatAmount(t.Amount), t.Category, t.Description)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, _ := res.LastInsertId()
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", id, "date", t.Date, "amount", t.Amount.String())
	return nil
}

func (r *Repository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		var amount string
		if err := rows.Scan(&t.Date, &amount, &t.Category, &t.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = core.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("stored amount: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// ListByDateRange scans in Go: dates are stored as DD-MM-YYYY text, which
// does not sort chronologically in SQL.
func (r *Repository) ListByDateRange(ctx context.Context, start, end string) ([]core.Transaction, error) {
	rng, err := core.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	items, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterByDateRange(items, rng)
}

func (r *Repository) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteAll); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	slog.InfoContext(ctx, "SQLite ledger cleared")
	return nil
}
