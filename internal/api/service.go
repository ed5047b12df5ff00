// Package api exposes the ledger to presentation layers over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sheikh-saqib/educoin-ledger/internal/ledger"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"
)

// Service handles API requests
type Service struct {
	ledger *ledger.Ledger
	hub    *Hub
	logger *slog.Logger
}

// NewService creates a new API service
func NewService(l *ledger.Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		ledger: l,
		hub:    NewHub(),
		logger: logger,
	}
}

// Routes registers every endpoint on mux.
func (s *Service) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/students", s.HandleStudents)
	mux.HandleFunc("/award", s.HandleAward)
	mux.HandleFunc("/transfer", s.HandleTransfer)
	mux.HandleFunc("/leaderboard", s.HandleLeaderboard)
	mux.HandleFunc("/transactions", s.HandleTransactions)
	mux.HandleFunc("/ws", s.HandleWS)
}

// Snapshot is the balance view returned after reads and mutations. Sequence
// is the log length, which grows with every committed mutation.
type Snapshot struct {
	Sequence    int               `json:"sequence"`
	Students    map[string]int64  `json:"students"`
	Leaderboard []models.Standing `json:"leaderboard"`
	TotalSupply int64             `json:"total_supply"`
}

func newSnapshot(state models.Ledger) Snapshot {
	return Snapshot{
		Sequence:    len(state.Transactions),
		Students:    state.Students,
		Leaderboard: state.Leaderboard(),
		TotalSupply: state.TotalSupply(),
	}
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}

// writeError writes a JSON error response
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeLedgerError maps ledger errors onto HTTP statuses.
func (s *Service) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownAccount):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrSelfTransfer):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrConcurrentModification):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("ledger operation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
