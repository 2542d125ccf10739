package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// transactionResponse renders the amount as a JSON number without going
// through float64.
type transactionResponse struct {
	Date        string      `json:"date"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
}

func toResponse(items []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, transactionResponse{
			Date:        t.Date,
			Amount:      json.Number(core.FormatAmount(t.Amount)),
			Category:    t.Category,
			Description: t.Description,
		})
	}
	return out
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a {"detail": ...} error body.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
