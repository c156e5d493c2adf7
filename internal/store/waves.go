package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"demandwave/internal/market"
)

// LastWaveAt reads the singleton last-completed timestamp used by the
// next-wave scheduling query. The second return is false before any wave has
// completed.
func (s *Store) LastWaveAt(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	err := s.db.QueryRow(ctx, `
		SELECT last_wave_at
		FROM market.wave_state
		WHERE id = 1
	`).Scan(&t)
	if err == pgx.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (s *Store) SetLastWaveAt(ctx context.Context, t time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO market.wave_state (id, last_wave_at)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_wave_at = $1
	`, t)
	return err
}

func (s *Store) SaveWave(ctx context.Context, m market.WaveMetrics) error {
	errList, err := json.Marshal(m.Errors)
	if err != nil {
		return fmt.Errorf("marshal wave errors: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO market.waves
		    (wave_id, started_at, completed_at, spent_micros, items_purchased,
		     distinct_products, distinct_companies, candidates_evaluated,
		     candidates_filtered, planned_purchases, successful_purchases,
		     failed_purchases, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb)
	`, m.WaveID, m.StartedAt, m.CompletedAt, m.TotalSpentMicros, m.ItemsPurchased,
		m.DistinctProducts, m.DistinctCompanies, m.CandidatesEvaluated,
		m.CandidatesFiltered, m.PlannedPurchases, m.SuccessfulPurchases,
		m.FailedPurchases, string(errList))
	return err
}

func (s *Store) RecentWaves(ctx context.Context, limit int) ([]market.WaveMetrics, error) {
	rows, err := s.db.Query(ctx, `
		SELECT wave_id, started_at, completed_at, spent_micros, items_purchased,
		       distinct_products, distinct_companies, candidates_evaluated,
		       candidates_filtered, planned_purchases, successful_purchases,
		       failed_purchases, errors
		FROM market.waves
		ORDER BY completed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent waves: %w", err)
	}
	defer rows.Close()

	var out []market.WaveMetrics
	for rows.Next() {
		var m market.WaveMetrics
		var errList []byte
		if err := rows.Scan(&m.WaveID, &m.StartedAt, &m.CompletedAt, &m.TotalSpentMicros,
			&m.ItemsPurchased, &m.DistinctProducts, &m.DistinctCompanies,
			&m.CandidatesEvaluated, &m.CandidatesFiltered, &m.PlannedPurchases,
			&m.SuccessfulPurchases, &m.FailedPurchases, &errList); err != nil {
			return nil, err
		}
		if len(errList) > 0 {
			if err := json.Unmarshal(errList, &m.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal wave errors: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
