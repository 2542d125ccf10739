package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "db", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	items := []core.Transaction{
		{Date: "01-03-2024", Amount: decimal.RequireFromString("42.50"), Category: "food", Description: "lunch"},
		{Date: "05-03-2024", Amount: decimal.RequireFromString("-1200"), Category: "rent", Description: "march, flat"},
		{Date: "01-03-2024", Amount: decimal.RequireFromString("42.50"), Category: "food", Description: "lunch"},
	}
	for _, it := range items {
		require.NoError(t, repo.Append(ctx, it))
	}

	got, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range items {
		assert.True(t, items[i].Equal(got[i]), "record %d", i)
	}

	ranged, err := repo.ListByDateRange(ctx, "02-03-2024", "31-03-2024")
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "rent", ranged[0].Category)
}

func TestRepositoryInitializeTwice(t *testing.T) {
	repo := newRepo(t)
	assert.NoError(t, repo.Initialize(context.Background()))
}

func TestRepositoryClearAll(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Append(ctx, core.Transaction{Date: "01-01-2024", Amount: decimal.NewFromInt(3)}))

	require.NoError(t, repo.ClearAll(ctx))
	got, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, repo.ClearAll(ctx))
}

func TestRepositoryBadRange(t *testing.T) {
	_, err := newRepo(t).ListByDateRange(context.Background(), "1/1/2024", "01-02-2024")
	assert.ErrorIs(t, err, core.ErrBadInput)
}
