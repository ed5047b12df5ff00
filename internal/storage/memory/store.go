package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"strconv"
	"sync" // standard Go package for concurrency primitives like Mutex

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/educoin-ledger/internal/models"                // domain models: Ledger
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// It keeps a single ledger document and is safe for concurrent use.
type MemoryLedgerStore struct {
	mu       sync.Mutex    // mutex to protect the document from concurrent access
	ledger   models.Ledger // the stored document
	version  uint64        // bumped on every successful Save
	hasValue bool          // false until the first Save
}

// NewMemoryLedgerStore creates and returns an empty MemoryLedgerStore
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{}
}

// Load returns a copy of the stored ledger and its version.
// Implements the LedgerStore interface.
func (m *MemoryLedgerStore) Load(ctx context.Context) (models.Ledger, interfaces.Version, error) {

	m.mu.Lock()         // lock to prevent concurrent modification while reading
	defer m.mu.Unlock() // unlock automatically at the end

	if !m.hasValue {
		return models.Ledger{}, "", interfaces.ErrLedgerNotFound
	}
	// return a copy so external code can't modify internal state
	return m.ledger.Clone(), m.versionLocked(), nil
}

// Save replaces the stored ledger if nobody saved since expected was loaded.
func (m *MemoryLedgerStore) Save(ctx context.Context, ledger models.Ledger, expected interfaces.Version) (interfaces.Version, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ledger.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()         // lock the mutex to prevent concurrent writes
	defer m.mu.Unlock() // unlock automatically when function exits (even if error occurs)

	current := interfaces.Version("")
	if m.hasValue {
		current = m.versionLocked()
	}
	if current != expected {
		return "", interfaces.ErrConcurrentModification
	}

	m.ledger = ledger.Clone()
	m.version++
	m.hasValue = true
	return m.versionLocked(), nil
}

func (m *MemoryLedgerStore) versionLocked() interfaces.Version {
	return interfaces.Version(strconv.FormatUint(m.version, 10))
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
