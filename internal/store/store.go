package store

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres implementation of every collaborator the demand
// engine consumes: product catalog, company/account store, ledger, and wave
// state.
type Store struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func New(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}
}

// EnsureTreasury resolves the always-solvent treasury account, creating it on
// first run. The treasury is the counterparty of every simulated-demand
// transaction.
func (s *Store) EnsureTreasury(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		SELECT id
		FROM market.accounts
		WHERE kind = 'treasury'
		ORDER BY id
		LIMIT 1
	`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, err
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO market.accounts (kind, balance_micros)
		VALUES ('treasury', 0)
		RETURNING id
	`).Scan(&id)
	if err != nil {
		return 0, err
	}
	s.log.Info("treasury account created", "account_id", id)
	return id, nil
}
