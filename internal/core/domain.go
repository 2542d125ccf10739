package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the textual DD-MM-YYYY form used on the wire and on disk.
// Single-digit day and month are accepted when parsing.
const DateLayout = "2-1-2006"

// Header is the fixed column order of the ledger file.
var Header = []string{"date", "amount", "category", "description"}

type (
	// Transaction is one stored financial entry. Date is kept as the caller
	// sent it and only parsed on range queries.
	Transaction struct {
		Date        string
		Amount      decimal.Decimal
		Category    string
		Description string
	}

	// DateRange is an inclusive [Start, End] calendar interval.
	DateRange struct {
		Start time.Time
		End   time.Time
	}
)

var (
	ErrNotFound = errors.New("not found")
	ErrBadInput = errors.New("bad input")
)

// Validate bounds the amount. Date, category and description are opaque
// text and are stored as given, empty included.
func (t Transaction) Validate() error {
	return CheckAmount(t.Amount)
}

// Equal compares all four fields, amounts by value.
func (t Transaction) Equal(o Transaction) bool {
	return t.Date == o.Date &&
		t.Amount.Equal(o.Amount) &&
		t.Category == o.Category &&
		t.Description == o.Description
}

// ParseDate parses a DD-MM-YYYY string.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q does not match DD-MM-YYYY", ErrBadInput, s)
	}
	return d, nil
}

// NewDateRange parses both bounds. start > end is allowed and matches nothing.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end: %w", err)
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// FilterByDateRange keeps the transactions dated inside r, preserving order.
// Every date is parsed, so one malformed row fails the whole query.
func FilterByDateRange(items []Transaction, r DateRange) ([]Transaction, error) {
	out := make([]Transaction, 0, len(items))
	for i, t := range items {
		d, err := ParseDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if r.Contains(d) {
			out = append(out, t)
		}
	}
	return out, nil
}
