// Package events defines the ledger change notifications published after a
// write commits.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

type Type string

const (
	TransactionCreated   Type = "transaction.created"
	TransactionDeleted   Type = "transaction.deleted"
	TransactionsImported Type = "transactions.imported"
	RecurringCreated     Type = "recurring.created"
	RecurringUpdated     Type = "recurring.updated"
	RecurringDeleted     Type = "recurring.deleted"
)

// Event is the JSON payload sent to the broker.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	EntityID   int64           `json:"entity_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category,omitempty"`
	Count      int             `json:"count,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New builds an event stamped with a fresh id and the current time.
func New(t Type, entityID int64, amount core.Money, category string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		EntityID:   entityID,
		Amount:     amount.Decimal(),
		Category:   category,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
