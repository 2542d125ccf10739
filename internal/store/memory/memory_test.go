package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAppendListClear(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Initialize(ctx))

	lunch := core.Transaction{Date: "01-03-2024", Amount: decimal.RequireFromString("42.50"), Category: "food", Description: "lunch"}
	require.NoError(t, s.Append(ctx, lunch))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Equal(lunch))

	ranged, err := s.ListByDateRange(ctx, "01-03-2024", "01-03-2024")
	require.NoError(t, err)
	require.Len(t, ranged, 1)

	require.NoError(t, s.ClearAll(ctx))
	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New(core.Transaction{Date: "01-01-2024", Amount: decimal.NewFromInt(1)})
	all, _ := s.ListAll(ctx)
	all[0].Category = "mutated"

	again, _ := s.ListAll(ctx)
	assert.Equal(t, "", again[0].Category)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreBadRange(t *testing.T) {
	_, err := New().ListByDateRange(context.Background(), "2024-01-01", "01-02-2024")
	assert.ErrorIs(t, err, core.ErrBadInput)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	s := New(core.Transaction{Date: "01-03-2024", Amount: decimal.NewFromInt(1)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListByDateRange(ctx, "01-01-2024", "31-12-2024")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.ListAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Append(ctx, core.Transaction{Date: "02-03-2024"}), context.Canceled)
	assert.ErrorIs(t, s.ClearAll(ctx), context.Canceled)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreKeepsEmptyDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Append(ctx, core.Transaction{Amount: decimal.NewFromInt(1)}))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "", all[0].Date)

	_, err = s.ListByDateRange(ctx, "01-01-2024", "31-12-2024")
	assert.ErrorIs(t, err, core.ErrBadInput)

	assert.ErrorIs(t, s.Append(ctx, core.Transaction{Amount: decimal.New(1, 500)}), core.ErrBadInput)
}
