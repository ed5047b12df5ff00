package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sheikh-saqib/educoin-ledger/internal/ledger"
	"github.com/sheikh-saqib/educoin-ledger/internal/storage/memory"
)

// setupTest creates a service over a fresh in-memory ledger with the default roster.
func setupTest(t *testing.T) (*Service, *ledger.Ledger) {
	t.Helper()
	l := ledger.NewLedger(memory.NewMemoryLedgerStore(), nil)
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("bootstrap ledger: %v", err)
	}
	return NewService(l, nil), l
}

// newTestServer serves every route of svc.
func newTestServer(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	svc.Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
