package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"
	"github.com/sheikh-saqib/educoin-ledger/internal/models/events"
)

// MaxMint is the largest amount one Mint call accepts.
const MaxMint = 10_000

// Ledger is the coin ledger service. Every public operation is one
// load -> validate -> mutate -> persist cycle against the store, serialised by
// a single mutex inside the process. Writers in other processes are detected
// through the store's version check.
type Ledger struct {
	store     interfaces.LedgerStore    // persists the whole document, any storage implementation
	publisher interfaces.EventPublisher // optional, receives events after a commit
	logger    *slog.Logger
	roster    []string // roster used when nothing is persisted yet
	now       func() time.Time
	mu        sync.Mutex // guards every load-mutate-persist cycle
}

type Option func(*Ledger)

func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the clock used to timestamp transactions.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger over store. defaultRoster is bootstrapped on the
// first load when the store is empty; nil means models.DefaultRoster.
func NewLedger(store interfaces.LedgerStore, defaultRoster []string, opts ...Option) *Ledger {
	if defaultRoster == nil {
		defaultRoster = models.DefaultRoster
	}
	l := &Ledger{
		store:  store,
		roster: append([]string(nil), defaultRoster...),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize creates a ledger for roster with every balance at zero and
// persists it. If a ledger is already persisted it is returned untouched.
func (l *Ledger) Initialize(ctx context.Context, roster []string) (models.Ledger, error) {
	if err := validateRoster(roster); err != nil {
		return models.Ledger{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, _, err := l.initializeLocked(ctx, roster)
	if err != nil {
		return models.Ledger{}, err
	}
	return state.Clone(), nil
}

// Load returns the persisted ledger, bootstrapping the default roster when
// nothing has been persisted yet.
func (l *Ledger) Load(ctx context.Context) (models.Ledger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, _, err := l.loadLocked(ctx)
	return state, err
}

// Mint credits amount new coins to student and records one award per coin.
// The event is published after the lock is released.
func (l *Ledger) Mint(ctx context.Context, student string, amount int64) (models.Ledger, error) {
	if amount <= 0 || amount > MaxMint {
		return models.Ledger{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	state, event, err := l.mintLocked(ctx, student, amount)
	l.mu.Unlock()
	if err != nil {
		return models.Ledger{}, err
	}

	l.publish(ctx, student, event)
	return state, nil
}

func (l *Ledger) mintLocked(ctx context.Context, student string, amount int64) (models.Ledger, events.CoinsAwarded, error) {
	state, version, err := l.loadLocked(ctx)
	if err != nil {
		return models.Ledger{}, events.CoinsAwarded{}, err
	}
	if !state.HasAccount(student) {
		return models.Ledger{}, events.CoinsAwarded{}, fmt.Errorf("%w: %q", ErrUnknownAccount, student)
	}
	if state.TotalSupply() > math.MaxInt64-amount {
		return models.Ledger{}, events.CoinsAwarded{}, fmt.Errorf("%w: %d would overflow the total supply", ErrInvalidAmount, amount)
	}

	at := l.now()
	ids := make([]string, 0, amount)
	state.Students[student] += amount
	for i := int64(0); i < amount; i++ {
		award := models.NewAward(student, at)
		ids = append(ids, award.ID)
		state.Transactions = append(state.Transactions, award)
	}

	if _, err := l.store.Save(ctx, state, version); err != nil {
		return models.Ledger{}, events.CoinsAwarded{}, fmt.Errorf("save ledger: %w", err)
	}
	l.logger.Debug("coins minted", "student", student, "amount", amount, "balance", state.Students[student])

	return state.Clone(), events.CoinsAwarded{
		TransactionIDs: ids,
		Student:        student,
		Amount:         amount,
		OccurredAt:     at.UTC(),
	}, nil
}

// Award mints a single coin.
func (l *Ledger) Award(ctx context.Context, student string) (models.Ledger, error) {
	return l.Mint(ctx, student, 1)
}

// Transfer moves amount coins from one account to another. Insufficient
// balance is a normal outcome: it returns false and changes nothing.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount int64) (models.Ledger, bool, error) {
	if amount <= 0 {
		return models.Ledger{}, false, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	state, event, ok, err := l.transferLocked(ctx, from, to, amount)
	l.mu.Unlock()
	if err != nil || !ok {
		return state, ok, err
	}

	l.publish(ctx, from, event)
	return state, true, nil
}

func (l *Ledger) transferLocked(ctx context.Context, from, to string, amount int64) (models.Ledger, events.TransactionCompleted, bool, error) {
	state, version, err := l.loadLocked(ctx)
	if err != nil {
		return models.Ledger{}, events.TransactionCompleted{}, false, err
	}
	for _, name := range []string{from, to} {
		if !state.HasAccount(name) {
			return models.Ledger{}, events.TransactionCompleted{}, false, fmt.Errorf("%w: %q", ErrUnknownAccount, name)
		}
	}
	if from == to {
		return models.Ledger{}, events.TransactionCompleted{}, false, fmt.Errorf("%w: %q", ErrSelfTransfer, from)
	}

	if state.Students[from] < amount {
		l.logger.Debug("transfer rejected", "from", from, "to", to, "amount", amount, "balance", state.Students[from])
		return state, events.TransactionCompleted{}, false, nil
	}

	tx := models.NewTransfer(from, to, amount, l.now())
	state.Students[from] -= amount
	state.Students[to] += amount
	state.Transactions = append(state.Transactions, tx)

	if _, err := l.store.Save(ctx, state, version); err != nil {
		return models.Ledger{}, events.TransactionCompleted{}, false, fmt.Errorf("save ledger: %w", err)
	}
	l.logger.Debug("coins transferred", "from", from, "to", to, "amount", amount)

	return state.Clone(), events.TransactionCompleted{
		TransactionID: tx.ID,
		FromAccount:   from,
		ToAccount:     to,
		Amount:        amount,
		OccurredAt:    tx.CreatedAt,
	}, true, nil
}

// Roster returns the account names in ascending order.
func (l *Ledger) Roster(ctx context.Context) ([]string, error) {
	state, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Roster(), nil
}

// Balances returns a snapshot of every account balance.
func (l *Ledger) Balances(ctx context.Context) (map[string]int64, error) {
	state, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Students, nil
}

func (l *Ledger) Leaderboard(ctx context.Context) ([]models.Standing, error) {
	state, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Leaderboard(), nil
}

// TransactionHistory returns the full log in the order it was written.
func (l *Ledger) TransactionHistory(ctx context.Context) ([]models.Transaction, error) {
	state, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Transactions, nil
}

func (l *Ledger) loadLocked(ctx context.Context) (models.Ledger, interfaces.Version, error) {
	state, version, err := l.store.Load(ctx)
	if errors.Is(err, interfaces.ErrLedgerNotFound) {
		return l.initializeLocked(ctx, l.roster)
	}
	if err != nil {
		return models.Ledger{}, "", fmt.Errorf("load ledger: %w", err)
	}
	return state, version, nil
}

func (l *Ledger) initializeLocked(ctx context.Context, roster []string) (models.Ledger, interfaces.Version, error) {
	state, version, err := l.store.Load(ctx)
	if err == nil {
		return state, version, nil
	}
	if !errors.Is(err, interfaces.ErrLedgerNotFound) {
		return models.Ledger{}, "", fmt.Errorf("load ledger: %w", err)
	}
	if err := validateRoster(roster); err != nil {
		return models.Ledger{}, "", err
	}

	state = models.NewLedger(roster)
	version, err = l.store.Save(ctx, state, "")
	if errors.Is(err, interfaces.ErrConcurrentModification) {
		// another writer bootstrapped first
		state, version, err = l.store.Load(ctx)
		if err != nil {
			return models.Ledger{}, "", fmt.Errorf("load ledger: %w", err)
		}
		return state, version, nil
	}
	if err != nil {
		return models.Ledger{}, "", fmt.Errorf("save ledger: %w", err)
	}
	l.logger.Info("ledger initialized", "roster", strings.Join(roster, ","))
	return state, version, nil
}

func (l *Ledger) publish(ctx context.Context, key string, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, key, event); err != nil {
		l.logger.Warn("publish event failed", "key", key, "error", err)
	}
}

func validateRoster(roster []string) error {
	if len(roster) == 0 {
		return fmt.Errorf("%w: no accounts", ErrInvalidRoster)
	}
	seen := make(map[string]struct{}, len(roster))
	for _, name := range roster {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: blank account name", ErrInvalidRoster)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate account %q", ErrInvalidRoster, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
