// Package csvfile stores the ledger as a flat comma separated file with a
// fixed header line.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store owns a single ledger file. Every operation holds mu for its whole
// duration, so readers never observe a half written row.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Initialize creates a header-only file if none exists. An existing file is
// left untouched and not validated.
func (s *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat ledger file: %w", err)
	}
	if err := s.writeHeaderOnly(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Ledger file created", "path", s.path)
	return nil
}

// Append writes one row at the end of the file. A missing file is recreated
// with its header first.
func (s *Store) Append(ctx context.Context, t core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(core.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(toRecord(t)); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// ListAll returns every row in file order. A missing file is ErrNotFound.
func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *Store) ListByDateRange(ctx context.Context, start, end string) ([]core.Transaction, error) {
	r, err := core.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	items, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterByDateRange(items, r)
}

// ClearAll replaces the file with a header-only one.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeHeaderOnly()
}

func (s *Store) Close() error {
	return nil
}

// writeHeaderOnly writes a temp file and renames it over the ledger so the
// replacement happens in one step.
func (s *Store) writeHeaderOnly() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(core.Header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush header: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

func (s *Store) readAll() ([]core.Transaction, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ledger file %s: %w", s.path, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a ledger stream. The first line is treated as the header
// and skipped; blank lines are ignored. Inside quoted fields encoding/csv
// reads a CRLF line break back as a bare LF, so "a\r\nb" is returned as
// "a\nb". Lone CR and LF come back unchanged.
func Decode(r io.Reader) ([]core.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(core.Header)

	out := []core.Transaction{}
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		line++
		if line == 1 {
			continue
		}
		t, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", line, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func toRecord(t core.Transaction) []string {
	return []string{t.Date, core.FormatAmount(t.Amount), t.Category, t.Description}
}

func fromRecord(rec []string) (core.Transaction, error) {
	amount, err := core.ParseAmount(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        rec[0],
		Amount:      amount,
		Category:    rec[2],
		Description: rec[3],
	}, nil
}
