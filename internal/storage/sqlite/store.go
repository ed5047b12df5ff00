// Package sqlite keeps the ledger document in a single-row SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"

	_ "modernc.org/sqlite"
)

const (
	DefaultFile      = "ledger.db"
	maxBusyTimeoutMs = 5000
)

type SQLiteLedgerStore struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*SQLiteLedgerStore, error) {
	if path == "" {
		path = DefaultFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(path)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection serialises writers inside this process
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := NewSQLiteLedgerStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteLedgerStore(db *sql.DB) *SQLiteLedgerStore {
	return &SQLiteLedgerStore{db: db}
}

func (s *SQLiteLedgerStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ledger_document (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL,
		document TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create ledger_document table: %w", err)
	}
	return nil
}

func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedgerStore) Load(ctx context.Context) (models.Ledger, interfaces.Version, error) {
	const query = `SELECT version, document FROM ledger_document WHERE id = 1`

	var (
		version  int64
		document string
	)
	err := s.db.QueryRowContext(ctx, query).Scan(&version, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ledger{}, "", interfaces.ErrLedgerNotFound
	}
	if err != nil {
		return models.Ledger{}, "", fmt.Errorf("query ledger: %w", err)
	}

	ledger, err := models.Decode([]byte(document))
	if err != nil {
		return models.Ledger{}, "", err
	}
	return ledger, interfaces.Version(strconv.FormatInt(version, 10)), nil
}

func (s *SQLiteLedgerStore) Save(ctx context.Context, ledger models.Ledger, expected interfaces.Version) (interfaces.Version, error) {
	if err := ledger.Validate(); err != nil {
		return "", err
	}
	data, err := models.Encode(ledger)
	if err != nil {
		return "", err
	}

	if expected == "" {
		const insert = `INSERT INTO ledger_document (id, version, document) VALUES (1, 1, ?)
		ON CONFLICT(id) DO NOTHING`
		res, err := s.db.ExecContext(ctx, insert, string(data))
		if err != nil {
			return "", fmt.Errorf("insert ledger: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return "", err
		}
		return "1", nil
	}

	prev, err := strconv.ParseInt(string(expected), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad version %q", interfaces.ErrConcurrentModification, expected)
	}
	const update = `UPDATE ledger_document SET version = version + 1, document = ?
	WHERE id = 1 AND version = ?`
	res, err := s.db.ExecContext(ctx, update, string(data), prev)
	if err != nil {
		return "", fmt.Errorf("update ledger: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return "", err
	}
	return interfaces.Version(strconv.FormatInt(prev+1, 10)), nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return interfaces.ErrConcurrentModification
	}
	return nil
}

var _ interfaces.LedgerStore = (*SQLiteLedgerStore)(nil)
