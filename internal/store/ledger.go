package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"demandwave/internal/market"
)

// ApplyPurchase performs the entire funded write for one purchase in a
// single transaction: the company balance credit, the two double-entry
// ledger rows sharing one tx group, and the product's sale-stat increments.
// Either all of it lands or none of it does.
func (s *Store) ApplyPurchase(ctx context.Context, app market.PurchaseApplication) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE market.accounts
		SET balance_micros = balance_micros + $1, updated_at = now()
		WHERE id = $2
	`, app.RevenueMicros, app.CompanyAccountID)
	if err != nil {
		return fmt.Errorf("credit account %d: %w", app.CompanyAccountID, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", app.CompanyAccountID, market.ErrAccountNotFound)
	}

	txGroup := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO market.ledger_entries
		    (tx_group_id, from_account_id, to_account_id, amount_micros, entry_type, description, product_id, quantity, wave_id)
		VALUES
		    ($1, $2, $3, $4, 'market_sale_revenue', $6, $7, $8, $9),
		    ($1, $3, $2, $5, 'market_sale_cost', $6, $7, $8, $9)
	`, txGroup, app.TreasuryAccountID, app.CompanyAccountID,
		app.RevenueMicros, app.CostMicros, app.Description,
		app.ProductID, app.Quantity, app.WaveID); err != nil {
		return fmt.Errorf("append ledger entries: %w", err)
	}

	cmd, err = tx.Exec(ctx, `
		UPDATE market.products
		SET total_sales = total_sales + $1,
		    total_revenue_micros = total_revenue_micros + $2,
		    total_cost_micros = total_cost_micros + $3,
		    updated_at = now()
		WHERE id = $4
	`, app.Quantity, app.TotalMicros, app.CostMicros, app.ProductID)
	if err != nil {
		return fmt.Errorf("apply product sale stats: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", app.ProductID, market.ErrProductInactive)
	}

	return tx.Commit(ctx)
}
