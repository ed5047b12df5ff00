package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewFileLedgerStore(filepath.Join(t.TempDir(), "ledger.json"))

	if _, _, err := store.Load(context.Background()); !errors.Is(err, interfaces.ErrLedgerNotFound) {
		t.Fatalf("Load error = %v, want ErrLedgerNotFound", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")
	store := NewFileLedgerStore(path)

	l := models.NewLedger(models.DefaultRoster)
	v1, err := store.Save(ctx, l, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	l.Students["Bob"] = 1
	l.Transactions = append(l.Transactions, models.Transaction{Type: models.TypeAward, Student: "Bob"})
	v2, err := store.Save(ctx, l, v1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v1 == v2 {
		t.Fatalf("version did not change after update")
	}

	got, version, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if version != v2 {
		t.Fatalf("Load version = %q, want %q", version, v2)
	}
	if got.Students["Bob"] != 1 || len(got.Transactions) != 1 {
		t.Fatalf("unexpected ledger %+v", got)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		t.Fatalf("file is not JSON: %v", err)
	}
	if _, ok := top["students"]; !ok || len(top) != 2 {
		t.Fatalf("unexpected top-level fields in %s", raw)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestSaveDetectsConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	a := NewFileLedgerStore(path)
	b := NewFileLedgerStore(path)

	base := models.NewLedger(models.DefaultRoster)
	if _, err := a.Save(ctx, base, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.Save(ctx, base, ""); !errors.Is(err, interfaces.ErrConcurrentModification) {
		t.Fatalf("second create error = %v, want ErrConcurrentModification", err)
	}

	la, va, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load a: %v", err)
	}
	lb, vb, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load b: %v", err)
	}

	la.Students["Alice"] = 1
	la.Transactions = append(la.Transactions, models.Transaction{Type: models.TypeAward, Student: "Alice"})
	if _, err := a.Save(ctx, la, va); err != nil {
		t.Fatalf("Save a: %v", err)
	}

	lb.Students["Bob"] = 1
	lb.Transactions = append(lb.Transactions, models.Transaction{Type: models.TypeAward, Student: "Bob"})
	if _, err := b.Save(ctx, lb, vb); !errors.Is(err, interfaces.ErrConcurrentModification) {
		t.Fatalf("stale Save error = %v, want ErrConcurrentModification", err)
	}

	got, _, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Students["Alice"] != 1 || got.Students["Bob"] != 0 {
		t.Fatalf("stale write leaked: %v", got.Students)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(`{"students": {"Alice": -4}, "transactions": []}`), 0o600); err != nil {
		t.Fatalf("write corrupt ledger: %v", err)
	}

	_, _, err := NewFileLedgerStore(path).Load(context.Background())
	if !errors.Is(err, models.ErrStorageCorruption) {
		t.Fatalf("Load error = %v, want ErrStorageCorruption", err)
	}

	// corrupt files are left alone, never repaired
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "-4") {
		t.Fatalf("corrupt file was rewritten")
	}
}

func TestSaveWaitsForLockHeldElsewhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewFileLedgerStore(path)

	base := models.NewLedger(models.DefaultRoster)
	v1, err := store.Save(context.Background(), base, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// another writer holds the lock for its compare-and-replace
	other := flock.New(path + lockSuffix)
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v, %v", locked, err)
	}
	defer other.Unlock()

	next := base.Clone()
	next.Students["Alice"] = 1
	next.Transactions = append(next.Transactions, models.Transaction{Type: models.TypeAward, Student: "Alice"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := store.Save(ctx, next, v1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Save under foreign lock error = %v, want deadline exceeded", err)
	}

	got, _, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Students["Alice"] != 0 {
		t.Fatalf("file was replaced while another writer held the lock")
	}
}

func TestRacingWritersCommitOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	base := models.NewLedger(models.DefaultRoster)
	v1, err := NewFileLedgerStore(path).Save(ctx, base, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// a separate store per writer, as separate processes would have
			store := NewFileLedgerStore(path)
			next := base.Clone()
			next.Students["Bob"] = 1
			next.Transactions = append(next.Transactions, models.Transaction{Type: models.TypeAward, Student: "Bob"})

			_, err := store.Save(ctx, next, v1)
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case !errors.Is(err, interfaces.ErrConcurrentModification):
				t.Errorf("Save: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d writers committed against the same version, want 1", succeeded)
	}
}
