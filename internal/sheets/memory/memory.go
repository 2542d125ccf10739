package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

// Mirror is an in-memory sheet. Rows exclude the header.
type Mirror struct {
	mu   sync.Mutex
	rows [][]string
}

func New() *Mirror { return &Mirror{} }

func (m *Mirror) AppendRow(_ context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, sheets.Row(t))
	return nil
}

func (m *Mirror) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = nil
	return nil
}

func (m *Mirror) ReplaceAll(_ context.Context, items []core.Transaction) error {
	rows := make([][]string, 0, len(items))
	for _, t := range items {
		rows = append(rows, sheets.Row(t))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
	return nil
}

// Rows returns a copy of the current data rows.
func (m *Mirror) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	copy(out, m.rows)
	return out
}
