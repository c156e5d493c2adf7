package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// Executor applies planned purchases as funded double-entry transactions
// against company accounts. Failures are per-purchase: a purchase that cannot
// be applied is recorded and skipped, never aborting the rest of the wave.
type Executor struct {
	catalog           Catalog
	companies         Companies
	ledger            Ledger
	treasuryAccountID int64
	cfg               Config
	log               *slog.Logger
}

func NewExecutor(catalog Catalog, companies Companies, ledger Ledger, treasuryAccountID int64, cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		catalog:           catalog,
		companies:         companies,
		ledger:            ledger,
		treasuryAccountID: treasuryAccountID,
		cfg:               cfg,
		log:               logger,
	}
}

// Execute applies the plan strictly one purchase at a time in the order
// given. Company and account lookups are cached for the duration of one call.
func (e *Executor) Execute(ctx context.Context, waveID string, plan []PlannedPurchase) []PurchaseResult {
	companyCache := make(map[int64]CompanyInfo)
	accountCache := make(map[int64]Account)

	results := make([]PurchaseResult, 0, len(plan))
	for _, purchase := range plan {
		res := e.executeOne(ctx, waveID, purchase, companyCache, accountCache)
		if !res.Applied {
			e.log.Warn("purchase failed",
				"wave_id", waveID,
				"product_id", purchase.ProductID,
				"company_id", purchase.CompanyID,
				"err", res.Err)
		}
		results = append(results, res)
	}
	return results
}

// executeOne wraps the whole validate+apply sequence in a bounded immediate
// retry. Retries never duplicate applied writes: the ledger apply is a single
// atomic operation, so a failed attempt left nothing behind.
func (e *Executor) executeOne(ctx context.Context, waveID string, p PlannedPurchase, companyCache map[int64]CompanyInfo, accountCache map[int64]Account) PurchaseResult {
	res := PurchaseResult{ProductID: p.ProductID}
	if p.Quantity <= 0 || p.TotalCostMicros <= 0 {
		res.Err = ErrNonPositiveAmounts.Error()
		return res
	}

	var lastErr error
	for attempt := 0; attempt < e.cfg.ExecutorRetries; attempt++ {
		err := e.applyOnce(ctx, waveID, p, companyCache, accountCache)
		if err == nil {
			res.Applied = true
			res.QuantityApplied = p.Quantity
			res.SpentMicros = p.TotalCostMicros
			return res
		}
		lastErr = err
		// Data errors are deterministic; retrying cannot recover them.
		if errors.Is(err, ErrProductInactive) || errors.Is(err, ErrCompanyNotFound) || errors.Is(err, ErrAccountNotFound) {
			break
		}
	}
	res.Err = lastErr.Error()
	return res
}

func (e *Executor) applyOnce(ctx context.Context, waveID string, p PlannedPurchase, companyCache map[int64]CompanyInfo, accountCache map[int64]Account) error {
	// Re-validate: the product may have been deactivated since planning.
	product, err := e.catalog.GetProduct(ctx, p.ProductID)
	if err != nil {
		return fmt.Errorf("revalidate product %d: %w", p.ProductID, err)
	}
	if !product.Active {
		return fmt.Errorf("product %d: %w", p.ProductID, ErrProductInactive)
	}

	company, ok := companyCache[p.CompanyID]
	if !ok {
		company, err = e.companies.GetCompany(ctx, p.CompanyID)
		if err != nil {
			return fmt.Errorf("resolve company %d: %w", p.CompanyID, err)
		}
		companyCache[p.CompanyID] = company
	}
	account, ok := accountCache[company.AccountID]
	if !ok {
		account, err = e.companies.GetAccount(ctx, company.AccountID)
		if err != nil {
			return fmt.Errorf("resolve account %d: %w", company.AccountID, err)
		}
		accountCache[company.AccountID] = account
	}

	cost := int64(math.Round(float64(p.TotalCostMicros) * e.cfg.CostOfGoodsRatio))
	revenue := p.TotalCostMicros - cost

	return e.ledger.ApplyPurchase(ctx, PurchaseApplication{
		WaveID:            waveID,
		ProductID:         p.ProductID,
		CompanyAccountID:  account.ID,
		TreasuryAccountID: e.treasuryAccountID,
		Quantity:          p.Quantity,
		TotalMicros:       p.TotalCostMicros,
		RevenueMicros:     revenue,
		CostMicros:        cost,
		Description:       fmt.Sprintf("market demand: %d x %s", p.Quantity, product.Name),
	})
}
