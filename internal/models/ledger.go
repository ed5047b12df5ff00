package models

import "sort"

// DefaultRoster is used when no ledger has been persisted yet
var DefaultRoster = []string{"Alice", "Bob", "Charlie"}

// Ledger is the persisted aggregate: every balance plus the append-only log.
type Ledger struct {
	Students     map[string]int64 `json:"students"`
	Transactions []Transaction    `json:"transactions"`
}

// Standing is one row of the leaderboard
type Standing struct {
	Student string `json:"student"`
	Balance int64  `json:"balance"`
}

// NewLedger returns a ledger with every roster account at zero and an empty log.
func NewLedger(roster []string) Ledger {
	students := make(map[string]int64, len(roster))
	for _, name := range roster {
		students[name] = 0
	}
	return Ledger{
		Students:     students,
		Transactions: make([]Transaction, 0),
	}
}

// Clone returns a deep copy so callers can't modify the original's state
func (l Ledger) Clone() Ledger {
	students := make(map[string]int64, len(l.Students))
	for name, balance := range l.Students {
		students[name] = balance
	}
	transactions := make([]Transaction, len(l.Transactions))
	copy(transactions, l.Transactions)
	return Ledger{Students: students, Transactions: transactions}
}

func (l Ledger) HasAccount(name string) bool {
	_, ok := l.Students[name]
	return ok
}

// Roster returns the account names in ascending order.
func (l Ledger) Roster() []string {
	names := make([]string, 0, len(l.Students))
	for name := range l.Students {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalSupply is the sum of all balances.
func (l Ledger) TotalSupply() int64 {
	var total int64
	for _, balance := range l.Students {
		total += balance
	}
	return total
}

// Leaderboard orders accounts by balance, highest first. Equal balances are
// ordered by name ascending.
func (l Ledger) Leaderboard() []Standing {
	standings := make([]Standing, 0, len(l.Students))
	for _, name := range l.Roster() {
		standings = append(standings, Standing{Student: name, Balance: l.Students[name]})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Balance > standings[j].Balance
	})
	return standings
}
