package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"demandwave/internal/market"
)

// GetCompanies batch-fetches company snapshots for a deduplicated id set.
func (s *Store) GetCompanies(ctx context.Context, ids []int64) (map[int64]market.CompanyInfo, error) {
	out := make(map[int64]market.CompanyInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, account_id, created_at, total_shares, share_price_micros
		FROM market.companies
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("batch fetch companies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c market.CompanyInfo
		if err := rows.Scan(&c.ID, &c.Name, &c.AccountID, &c.CreatedAt, &c.TotalShares, &c.SharePriceMicros); err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (s *Store) GetCompany(ctx context.Context, id int64) (market.CompanyInfo, error) {
	var c market.CompanyInfo
	err := s.db.QueryRow(ctx, `
		SELECT id, name, account_id, created_at, total_shares, share_price_micros
		FROM market.companies
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.AccountID, &c.CreatedAt, &c.TotalShares, &c.SharePriceMicros)
	if err == pgx.ErrNoRows {
		return c, fmt.Errorf("company %d: %w", id, market.ErrCompanyNotFound)
	}
	return c, err
}

func (s *Store) GetAccount(ctx context.Context, id int64) (market.Account, error) {
	var a market.Account
	err := s.db.QueryRow(ctx, `
		SELECT id, balance_micros
		FROM market.accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.BalanceMicros)
	if err == pgx.ErrNoRows {
		return a, fmt.Errorf("account %d: %w", id, market.ErrAccountNotFound)
	}
	return a, err
}
