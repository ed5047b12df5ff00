package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// legacyDocument has records without ids or timestamps.
const legacyDocument = `{
    "students": {
        "Alice": 0,
        "Bob": 2,
        "Charlie": 0
    },
    "transactions": [
        {"type": "award", "student": "Alice"},
        {"type": "award", "student": "Alice"},
        {"type": "transfer", "from": "Alice", "to": "Bob", "amount": 2}
    ]
}`

func TestDecodeLegacyDocument(t *testing.T) {
	l, err := Decode([]byte(legacyDocument))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if l.Students["Bob"] != 2 || len(l.Transactions) != 3 {
		t.Fatalf("unexpected ledger %+v", l)
	}
	if l.Transactions[2].Amount != 2 || l.Transactions[2].From != "Alice" {
		t.Fatalf("unexpected transfer %+v", l.Transactions[2])
	}
}

func TestDecodeRejectsCorruptDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"students":`,
		"missing students":  `{"transactions": []}`,
		"missing log":       `{"students": {"Alice": 0}}`,
		"empty roster":      `{"students": {}, "transactions": []}`,
		"extra top level":   `{"students": {"Alice": 0}, "transactions": [], "owner": "x"}`,
		"fractional":        `{"students": {"Alice": 1.5}, "transactions": []}`,
		"string balance":    `{"students": {"Alice": "1"}, "transactions": []}`,
		"negative":          `{"students": {"Alice": -1, "Bob": 1}, "transactions": [{"type": "award", "student": "Bob"}, {"type": "award", "student": "Bob"}]}`,
		"unknown student":   `{"students": {"Alice": 1}, "transactions": [{"type": "award", "student": "Zed"}]}`,
		"unknown receiver":  `{"students": {"Alice": 1}, "transactions": [{"type": "award", "student": "Alice"}, {"type": "transfer", "from": "Alice", "to": "Zed", "amount": 1}]}`,
		"zero amount":       `{"students": {"Alice": 0, "Bob": 0}, "transactions": [{"type": "transfer", "from": "Alice", "to": "Bob", "amount": 0}]}`,
		"unknown type":      `{"students": {"Alice": 0}, "transactions": [{"type": "burn", "student": "Alice"}]}`,
		"supply mismatch":   `{"students": {"Alice": 5}, "transactions": [{"type": "award", "student": "Alice"}]}`,
		"trailing data":     `{"students": {"Alice": 0}, "transactions": []} {}`,
		"award with amount": `{"students": {"Alice": 3}, "transactions": [{"type": "award", "student": "Alice", "amount": 3}]}`,
		"supply overflow":   `{"students": {"Alice": 9223372036854775807, "Bob": 9223372036854775807, "Charlie": 2}, "transactions": []}`,
		"duplicate student": `{"students": {"Alice": 1, "Alice": 0}, "transactions": []}`,
		"duplicate field":   `{"students": {"Alice": 0}, "transactions": [], "transactions": []}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			if !errors.Is(err, ErrStorageCorruption) {
				t.Fatalf("Decode error = %v, want ErrStorageCorruption", err)
			}
		})
	}
}

func TestEncodeKeepsSchema(t *testing.T) {
	l := NewLedger(DefaultRoster)
	l.Students["Alice"] = 1
	l.Transactions = append(l.Transactions, NewAward("Alice", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	data, err := Encode(l)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "\n    \"students\"") {
		t.Fatalf("expected four-space indentation, got:\n%s", data)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected exactly two top-level fields, got %d", len(top))
	}

	var records []map[string]any
	if err := json.Unmarshal(top["transactions"], &records); err != nil {
		t.Fatalf("Unmarshal transactions: %v", err)
	}
	if _, ok := records[0]["amount"]; ok {
		t.Fatalf("award records must not carry an amount: %v", records[0])
	}
	if records[0]["type"] != "award" || records[0]["student"] != "Alice" {
		t.Fatalf("unexpected award record %v", records[0])
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(back, l) {
		t.Fatalf("decoded ledger differs:\n got %+v\nwant %+v", back, l)
	}
}

func TestEncodeEmptyLogAsArray(t *testing.T) {
	data, err := Encode(Ledger{Students: map[string]int64{"Alice": 0}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"transactions": []`) {
		t.Fatalf("expected empty array, got:\n%s", data)
	}
}
