package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/educoin-ledger/internal/models"
)

var (
	// ErrLedgerNotFound is returned by Load when nothing has been persisted yet.
	ErrLedgerNotFound = errors.New("ledger not found")
	// ErrConcurrentModification is returned by Save when the stored document
	// changed after it was loaded. The whole cycle can be retried.
	ErrConcurrentModification = errors.New("ledger was modified concurrently")
)

// Version is an opaque token identifying one persisted revision of the ledger.
// The empty Version means "nothing persisted".
type Version string

// LedgerStore persists the whole ledger document as one unit.
type LedgerStore interface {
	// Load returns the current document and its version, or ErrLedgerNotFound.
	Load(ctx context.Context) (models.Ledger, Version, error)
	// Save replaces the document if the stored version still equals expected
	// and returns the new version. Saving with an empty expected version
	// creates the document and fails if one already exists.
	Save(ctx context.Context, ledger models.Ledger, expected Version) (Version, error)
}
