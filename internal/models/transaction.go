package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType tells the two kinds of ledger records apart
type TransactionType string

const (
	TypeAward    TransactionType = "award"
	TypeTransfer TransactionType = "transfer"
)

// Transaction is one committed ledger record. An award mints exactly one coin
// to Student; a transfer moves Amount coins from From to To.
// ID and CreatedAt are absent on records written before they were tracked.
type Transaction struct {
	Type      TransactionType `json:"type"`
	Student   string          `json:"student,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Amount    int64           `json:"amount,omitempty"`
	ID        string          `json:"id,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitzero"`
}

// NewAward builds an award record for one coin
func NewAward(student string, at time.Time) Transaction {
	return Transaction{
		Type:      TypeAward,
		Student:   student,
		ID:        uuid.New().String(),
		CreatedAt: at.UTC(),
	}
}

// NewTransfer builds a transfer record
func NewTransfer(from, to string, amount int64, at time.Time) Transaction {
	return Transaction{
		Type:      TypeTransfer,
		From:      from,
		To:        to,
		Amount:    amount,
		ID:        uuid.New().String(),
		CreatedAt: at.UTC(),
	}
}

// String renders the record the way it is shown in the history view.
func (t Transaction) String() string {
	switch t.Type {
	case TypeAward:
		return fmt.Sprintf("Awarded 1 coin to %s", t.Student)
	case TypeTransfer:
		return fmt.Sprintf("%d coin(s) transferred from %s to %s", t.Amount, t.From, t.To)
	default:
		return fmt.Sprintf("unknown transaction %q", string(t.Type))
	}
}
