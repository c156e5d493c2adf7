package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"demandwave/internal/market"
)

// ListActiveProducts returns up to limit active, positively priced products,
// most recent first.
func (s *Store) ListActiveProducts(ctx context.Context, limit int) ([]market.ProductCandidate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), price_micros, quality,
		       total_sales, company_id, created_at, active, COALESCE(tags, '{}')
		FROM market.products
		WHERE active = true AND price_micros > 0
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	var out []market.ProductCandidate
	for rows.Next() {
		var p market.ProductCandidate
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceMicros, &p.Quality,
			&p.TotalSales, &p.CompanyID, &p.CreatedAt, &p.Active, &p.Tags); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id int64) (market.ProductCandidate, error) {
	var p market.ProductCandidate
	err := s.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), price_micros, quality,
		       total_sales, company_id, created_at, active, COALESCE(tags, '{}')
		FROM market.products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.PriceMicros, &p.Quality,
		&p.TotalSales, &p.CompanyID, &p.CreatedAt, &p.Active, &p.Tags)
	if err == pgx.ErrNoRows {
		return p, fmt.Errorf("product %d: %w", id, market.ErrProductInactive)
	}
	return p, err
}
