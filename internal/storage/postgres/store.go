package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/educoin-ledger/internal/models"

	_ "github.com/lib/pq"
)

type PostgresLedgerStore struct {
	db *sql.DB
}

// Open connects to databaseURL and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*PostgresLedgerStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := NewPostgresLedgerStore(db)
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

func (p *PostgresLedgerStore) EnsureSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS ledger_document (
		id SMALLINT PRIMARY KEY CHECK (id = 1),
		version BIGINT NOT NULL,
		document JSONB NOT NULL
	)`

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create ledger_document table: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) Close() error {
	return p.db.Close()
}

func (p *PostgresLedgerStore) Load(ctx context.Context) (models.Ledger, interfaces.Version, error) {
	const query = `SELECT version, document::text FROM ledger_document WHERE id = 1`

	var version int64
	var document string
	err := p.db.QueryRowContext(ctx, query).Scan(&version, &document)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Ledger{}, "", interfaces.ErrLedgerNotFound
	}
	if err != nil {
		return models.Ledger{}, "", err
	}

	ledger, err := models.Decode([]byte(document))
	if err != nil {
		return models.Ledger{}, "", err
	}
	return ledger, interfaces.Version(strconv.FormatInt(version, 10)), nil
}

// Save runs inside a transaction so the version check and the write are atomic.
func (p *PostgresLedgerStore) Save(ctx context.Context, ledger models.Ledger, expected interfaces.Version) (interfaces.Version, error) {
	if err := ledger.Validate(); err != nil {
		return "", err
	}
	data, err := models.Encode(ledger)
	if err != nil {
		return "", err
	}

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	var next int64
	next, err = p.saveDocument(ctx, dbTx, data, expected)
	if err != nil {
		return "", err
	}

	if err = dbTx.Commit(); err != nil {
		return "", err
	}
	return interfaces.Version(strconv.FormatInt(next, 10)), nil
}

func (p *PostgresLedgerStore) saveDocument(ctx context.Context, dbTx *sql.Tx, data []byte, expected interfaces.Version) (int64, error) {
	if expected == "" {
		const insert = `INSERT INTO ledger_document (id, version, document)
		VALUES (1, 1, $1::jsonb) ON CONFLICT (id) DO NOTHING`

		res, err := dbTx.ExecContext(ctx, insert, string(data))
		if err != nil {
			return 0, err
		}
		return 1, checkAffected(res)
	}

	prev, err := strconv.ParseInt(string(expected), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad version %q", interfaces.ErrConcurrentModification, expected)
	}

	const update = `UPDATE ledger_document SET version = version + 1, document = $1::jsonb
	WHERE id = 1 AND version = $2`

	res, err := dbTx.ExecContext(ctx, update, string(data), prev)
	if err != nil {
		return 0, err
	}
	return prev + 1, checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrConcurrentModification
	}
	return nil
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
