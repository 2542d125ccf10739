package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(date, amount, cat, desc string) Transaction {
	return Transaction{Date: date, Amount: decimal.RequireFromString(amount), Category: cat, Description: desc}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"01-03-2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"1-3-2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"31-12-1999", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-01", time.Time{}, false},
		{"32-01-2024", time.Time{}, false},
		{"29-02-2023", time.Time{}, false},
		{"", time.Time{}, false},
		{"abc", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrBadInput, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, tc.want.Equal(got), "%q: got %v", tc.in, got)
	}
}

func TestDateRangeInclusive(t *testing.T) {
	r, err := NewDateRange("01-03-2024", "31-03-2024")
	require.NoError(t, err)

	assert.True(t, r.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNewDateRangeBadBounds(t *testing.T) {
	_, err := NewDateRange("2024-03-01", "31-03-2024")
	assert.ErrorIs(t, err, ErrBadInput)
	_, err = NewDateRange("01-03-2024", "tomorrow")
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestFilterByDateRange(t *testing.T) {
	items := []Transaction{
		tx("28-02-2024", "1", "a", "before"),
		tx("01-03-2024", "2", "b", "start"),
		tx("15-03-2024", "3", "c", "middle"),
		tx("31-03-2024", "4", "d", "end"),
		tx("01-04-2024", "5", "e", "after"),
	}

	t.Run("inclusive and ordered", func(t *testing.T) {
		r, err := NewDateRange("01-03-2024", "31-03-2024")
		require.NoError(t, err)
		got, err := FilterByDateRange(items, r)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "start", got[0].Description)
		assert.Equal(t, "middle", got[1].Description)
		assert.Equal(t, "end", got[2].Description)
	})

	t.Run("start after end matches nothing", func(t *testing.T) {
		r, err := NewDateRange("31-03-2024", "01-03-2024")
		require.NoError(t, err)
		got, err := FilterByDateRange(items, r)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty stored date fails only when filtering", func(t *testing.T) {
		r, err := NewDateRange("01-01-2024", "31-12-2024")
		require.NoError(t, err)
		_, err = FilterByDateRange([]Transaction{tx("", "1", "x", "y")}, r)
		assert.True(t, errors.Is(err, ErrBadInput))
	})

	t.Run("malformed stored date fails", func(t *testing.T) {
		r, err := NewDateRange("01-01-2024", "31-12-2024")
		require.NoError(t, err)
		bad := append([]Transaction{tx("2024/03/01", "1", "x", "y")}, items...)
		_, err = FilterByDateRange(bad, r)
		assert.True(t, errors.Is(err, ErrBadInput))
	})
}

func TestTransactionValidateAndEqual(t *testing.T) {
	assert.NoError(t, Transaction{}.Validate())
	assert.NoError(t, tx("", "1", "", "").Validate())
	assert.NoError(t, tx("   ", "1", "", "").Validate())
	assert.NoError(t, tx("not-a-date", "1", "", "").Validate())
	assert.ErrorIs(t, tx("01-03-2024", "1e400", "", "").Validate(), ErrBadInput)

	a := tx("01-03-2024", "42.50", "food", "lunch")
	b := tx("01-03-2024", "42.5", "food", "lunch")
	assert.True(t, a.Equal(b))
	b.Category = "drinks"
	assert.False(t, a.Equal(b))
}
