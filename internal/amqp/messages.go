package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// EventType names a change to the ledger.
type EventType string

const (
	EventTransactionAppended EventType = "transaction.appended"
	EventTransactionsCleared EventType = "transactions.cleared"
)

// TransactionPayload is the wire form of a ledger record. The amount travels
// as decimal text so consumers never see float rounding.
type TransactionPayload struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TransactionEvent is published after every successful ledger write.
// Transaction is nil for clear events.
type TransactionEvent struct {
	Type        EventType           `json:"type"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewAppendedEvent builds the event for a single appended record
func NewAppendedEvent(t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type: EventTransactionAppended,
		Transaction: &TransactionPayload{
			Date:        t.Date,
			Amount:      core.FormatAmount(t.Amount),
			Category:    t.Category,
			Description: t.Description,
		},
		Timestamp: time.Now(),
	}
}

// NewClearedEvent builds the event for a clear-all
func NewClearedEvent() *TransactionEvent {
	return &TransactionEvent{
		Type:      EventTransactionsCleared,
		Timestamp: time.Now(),
	}
}

// ToTransaction converts the payload back into a domain record
func (e *TransactionEvent) ToTransaction() (core.Transaction, error) {
	if e.Transaction == nil {
		return core.Transaction{}, fmt.Errorf("event %s carries no transaction", e.Type)
	}
	amount, err := core.ParseAmount(e.Transaction.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        e.Transaction.Date,
		Amount:      amount,
		Category:    e.Transaction.Category,
		Description: e.Transaction.Description,
	}, nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event and rejects unknown types
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventTransactionAppended:
		if ev.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction", ev.Type)
		}
	case EventTransactionsCleared:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
