package events

import "time"

// CoinsAwarded is emitted once per mint, however many coins it created.
type CoinsAwarded struct {
	TransactionIDs []string  `json:"transaction_ids"`
	Student        string    `json:"student"`
	Amount         int64     `json:"amount"`
	OccurredAt     time.Time `json:"occurred_at"`
}
