package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes caps a single transaction payload.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// transactionRequest is the POST body. Pointers and raw amount let us tell a
// missing field from a zero value.
type transactionRequest struct {
	Date        *string         `json:"date"`
	Amount      json.RawMessage `json:"amount"`
	Category    *string         `json:"category"`
	Description *string         `json:"description"`
}

// ValidationError lists the fields a request body got wrong.
type ValidationError struct {
	Missing []string
	Invalid map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "field required: "+strings.Join(e.Missing, ", "))
	}
	for _, f := range []string{"date", "amount", "category", "description"} {
		if msg, ok := e.Invalid[f]; ok {
			parts = append(parts, f+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return core.ErrBadInput }

func (e *ValidationError) empty() bool { return len(e.Missing) == 0 && len(e.Invalid) == 0 }

func (e *ValidationError) invalid(field, msg string) {
	if e.Invalid == nil {
		e.Invalid = map[string]string{}
	}
	e.Invalid[field] = msg
}

// decodeTransaction reads and validates a transaction body. Unknown fields
// are ignored. The amount may be a JSON number or a numeric string.
func decodeTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, error) {
	var req transactionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			return core.Transaction{}, errBodyTooLarge
		case errors.As(err, &typeErr):
			ve := &ValidationError{}
			ve.invalid(typeErr.Field, fmt.Sprintf("expected %s", typeErr.Type))
			return core.Transaction{}, ve
		case errors.Is(err, io.EOF):
			return core.Transaction{}, fmt.Errorf("%w: empty request body", core.ErrBadInput)
		default:
			return core.Transaction{}, fmt.Errorf("%w: malformed JSON: %v", core.ErrBadInput, err)
		}
	}

	ve := &ValidationError{}
	if req.Date == nil {
		ve.Missing = append(ve.Missing, "date")
	}
	raw := bytes.TrimSpace(req.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		ve.Missing = append(ve.Missing, "amount")
	}
	if req.Category == nil {
		ve.Missing = append(ve.Missing, "category")
	}
	if req.Description == nil {
		ve.Missing = append(ve.Missing, "description")
	}
	if !ve.empty() {
		return core.Transaction{}, ve
	}

	amount, err := core.ParseAmount(amountText(raw))
	switch {
	case errors.Is(err, core.ErrAmountRange):
		ve.invalid("amount", "value is out of range")
		return core.Transaction{}, ve
	case err != nil:
		ve.invalid("amount", "value is not a valid number")
		return core.Transaction{}, ve
	}

	// Date, category and description are opaque; an empty date is stored
	// and only fails later range queries.
	return core.Transaction{
		Date:        *req.Date,
		Amount:      amount,
		Category:    *req.Category,
		Description: *req.Description,
	}, nil
}

// amountText unwraps a quoted amount. Anything that is neither a string nor
// a number is returned as-is and fails amount parsing.
func amountText(raw json.RawMessage) string {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
