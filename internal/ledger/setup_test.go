package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"
	"github.com/sheikh-saqib/educoin-ledger/internal/storage/memory"
)

var fixedNow = time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return p.err
}

// countingStore wraps a store and counts saves
type countingStore struct {
	interfaces.LedgerStore
	saves int
}

func (c *countingStore) Save(ctx context.Context, l models.Ledger, expected interfaces.Version) (interfaces.Version, error) {
	c.saves++
	return c.LedgerStore.Save(ctx, l, expected)
}

// setupTest returns a ledger over an in-memory store with the default roster
// already bootstrapped.
func setupTest(t *testing.T, opts ...Option) (*Ledger, *countingStore) {
	t.Helper()
	store := &countingStore{LedgerStore: memory.NewMemoryLedgerStore()}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	l := NewLedger(store, nil, opts...)
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return l, store
}

// blockingPublisher holds every Publish call until release is closed.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{started: make(chan struct{}), release: make(chan struct{})}
}

func (p *blockingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return nil
}
