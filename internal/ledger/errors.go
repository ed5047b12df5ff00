package ledger

import (
	"errors"

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"
)

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrInvalidAmount  = errors.New("amount must be a positive whole number")
	ErrSelfTransfer   = errors.New("sender and receiver must be different accounts")
	ErrInvalidRoster  = errors.New("invalid roster")

	ErrStorageCorruption      = models.ErrStorageCorruption
	ErrConcurrentModification = interfaces.ErrConcurrentModification
)
