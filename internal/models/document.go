package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ErrStorageCorruption reports a persisted document that does not follow the
// ledger schema. It is never repaired automatically.
var ErrStorageCorruption = errors.New("ledger storage is corrupt")

// Encode renders the ledger document with the same indentation existing
// ledger.json files use.
func Encode(l Ledger) ([]byte, error) {
	if l.Transactions == nil {
		l.Transactions = make([]Transaction, 0)
	}
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a persisted document. Every failure wraps
// ErrStorageCorruption.
func Decode(data []byte) (Ledger, error) {
	var doc struct {
		Students     map[string]int64 `json:"students"`
		Transactions []Transaction    `json:"transactions"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Ledger{}, fmt.Errorf("%w: %v", ErrStorageCorruption, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Ledger{}, fmt.Errorf("%w: trailing data after document", ErrStorageCorruption)
	}
	if doc.Students == nil {
		return Ledger{}, fmt.Errorf("%w: missing students", ErrStorageCorruption)
	}
	if doc.Transactions == nil {
		return Ledger{}, fmt.Errorf("%w: missing transactions", ErrStorageCorruption)
	}
	if err := rejectDuplicateKeys(data); err != nil {
		return Ledger{}, err
	}

	l := Ledger{Students: doc.Students, Transactions: doc.Transactions}
	if err := l.Validate(); err != nil {
		return Ledger{}, err
	}
	return l, nil
}

// Validate checks the structural invariants of a ledger: a non-empty roster,
// non-negative balances, well-formed records that only reference roster
// accounts, and a total supply equal to the number of awards.
func (l Ledger) Validate() error {
	if len(l.Students) == 0 {
		return fmt.Errorf("%w: empty roster", ErrStorageCorruption)
	}
	var supply int64
	for name, balance := range l.Students {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: blank account name", ErrStorageCorruption)
		}
		if balance < 0 {
			return fmt.Errorf("%w: account %q has negative balance %d", ErrStorageCorruption, name, balance)
		}
		if supply > math.MaxInt64-balance {
			return fmt.Errorf("%w: total supply overflows", ErrStorageCorruption)
		}
		supply += balance
	}

	var awards int64
	for i, tx := range l.Transactions {
		switch tx.Type {
		case TypeAward:
			if tx.From != "" || tx.To != "" || tx.Amount != 0 {
				return fmt.Errorf("%w: transaction %d: award carries transfer fields", ErrStorageCorruption, i)
			}
			if !l.HasAccount(tx.Student) {
				return fmt.Errorf("%w: transaction %d references unknown account %q", ErrStorageCorruption, i, tx.Student)
			}
			awards++
		case TypeTransfer:
			if tx.Student != "" {
				return fmt.Errorf("%w: transaction %d: transfer carries student field", ErrStorageCorruption, i)
			}
			for _, name := range []string{tx.From, tx.To} {
				if !l.HasAccount(name) {
					return fmt.Errorf("%w: transaction %d references unknown account %q", ErrStorageCorruption, i, name)
				}
			}
			if tx.Amount <= 0 {
				return fmt.Errorf("%w: transaction %d has non-positive amount %d", ErrStorageCorruption, i, tx.Amount)
			}
		default:
			return fmt.Errorf("%w: transaction %d has unknown type %q", ErrStorageCorruption, i, string(tx.Type))
		}
	}

	if supply != awards {
		return fmt.Errorf("%w: total supply %d does not match %d awards", ErrStorageCorruption, supply, awards)
	}
	return nil
}

// rejectDuplicateKeys fails when the top-level object or the students object
// repeats a key; encoding/json would otherwise keep only the last value.
func rejectDuplicateKeys(data []byte) error {
	if err := uniqueObjectKeys(data); err != nil {
		return err
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageCorruption, err)
	}
	return uniqueObjectKeys(top["students"])
}

func uniqueObjectKeys(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageCorruption, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected an object", ErrStorageCorruption)
	}

	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageCorruption, err)
		}
		key, _ := tok.(string)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrStorageCorruption, key)
		}
		seen[key] = struct{}{}

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageCorruption, err)
		}
	}
	return nil
}
