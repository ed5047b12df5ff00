package kafka

import (
	"fmt"

	"github.com/sheikh-saqib/educoin-ledger/internal/models/events"
)

func eventType(event any) string {
	switch event.(type) {
	case events.CoinsAwarded, *events.CoinsAwarded:
		return "coins_awarded"
	case events.TransactionCompleted, *events.TransactionCompleted:
		return "transaction_completed"
	default:
		return fmt.Sprintf("%T", event)
	}
}
