package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/educoin-ledger/internal/ledger"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// parseAmount turns a decoded amount into a whole number of coins. A missing
// amount falls back to def; def <= 0 makes the amount mandatory.
func parseAmount(amount *decimal.Decimal, def int64) (int64, error) {
	if amount == nil {
		if def <= 0 {
			return 0, fmt.Errorf("%w: amount is required", ledger.ErrInvalidAmount)
		}
		return def, nil
	}
	if !amount.IsInteger() || amount.Sign() <= 0 || amount.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s", ledger.ErrInvalidAmount, amount.String())
	}
	return amount.IntPart(), nil
}

func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleStudents returns the roster with current balances.
func (s *Service) HandleStudents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	state, err := s.ledger.Load(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, struct {
		Roster []string `json:"roster"`
		Snapshot
	}{
		Roster:   state.Roster(),
		Snapshot: newSnapshot(state),
	})
}

func (s *Service) HandleAward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Student string           `json:"student"`
		Amount  *decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount, 1)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	state, err := s.ledger.Mint(r.Context(), req.Student, amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	snapshot := newSnapshot(state)
	s.hub.Broadcast(snapshot)
	s.logger.Info("coins awarded", "student", req.Student, "amount", amount)
	s.writeJSON(w, http.StatusCreated, snapshot)
}

// transferResponse carries the outcome together with the resulting balances.
type transferResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Snapshot
}

func (s *Service) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		From   string           `json:"from"`
		To     string           `json:"to"`
		Amount *decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount, 0)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	state, ok, err := s.ledger.Transfer(r.Context(), req.From, req.To, amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	snapshot := newSnapshot(state)
	if !ok {
		s.writeJSON(w, http.StatusConflict, transferResponse{
			Success:  false,
			Message:  fmt.Sprintf("%s does not have enough coins!", req.From),
			Snapshot: snapshot,
		})
		return
	}

	s.hub.Broadcast(snapshot)
	s.logger.Info("coins transferred", "from", req.From, "to", req.To, "amount", amount)
	s.writeJSON(w, http.StatusCreated, transferResponse{
		Success:  true,
		Message:  fmt.Sprintf("%d coin(s) transferred from %s to %s", amount, req.From, req.To),
		Snapshot: snapshot,
	})
}

func (s *Service) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	standings, err := s.ledger.Leaderboard(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, standings)
}

// historyEntry pairs a record with its display text.
type historyEntry struct {
	models.Transaction
	Description string `json:"description"`
}

func (s *Service) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	history, err := s.ledger.TransactionHistory(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	entries := make([]historyEntry, 0, len(history))
	for _, tx := range history {
		entries = append(entries, historyEntry{Transaction: tx, Description: tx.String()})
	}
	s.writeJSON(w, http.StatusOK, entries)
}
