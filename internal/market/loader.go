package market

import (
	"context"
	"fmt"
	"log/slog"
)

// Loader fetches the wave's catalog snapshot: eligible products joined with
// their owning companies.
type Loader struct {
	catalog   Catalog
	companies Companies
	limit     int
	log       *slog.Logger
}

func NewLoader(catalog Catalog, companies Companies, limit int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{catalog: catalog, companies: companies, limit: limit, log: logger}
}

// Load returns the filtered candidate list and a lookup map of company
// snapshots keyed by company id. Products that are inactive, priced at or
// below zero, or whose company no longer resolves are dropped; the second
// return counts how many were read before filtering.
func (l *Loader) Load(ctx context.Context) ([]ProductCandidate, map[int64]CompanyInfo, int, error) {
	products, err := l.catalog.ListActiveProducts(ctx, l.limit)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("list active products: %w", err)
	}
	read := len(products)

	eligible := make([]ProductCandidate, 0, len(products))
	companyIDs := make([]int64, 0, len(products))
	seen := make(map[int64]struct{})
	for _, p := range products {
		if !p.Active || p.PriceMicros <= 0 {
			continue
		}
		eligible = append(eligible, p)
		if _, ok := seen[p.CompanyID]; !ok {
			seen[p.CompanyID] = struct{}{}
			companyIDs = append(companyIDs, p.CompanyID)
		}
	}
	if len(eligible) == 0 {
		return nil, map[int64]CompanyInfo{}, read, nil
	}

	companies, err := l.companies.GetCompanies(ctx, companyIDs)
	if err != nil {
		return nil, nil, read, fmt.Errorf("batch fetch companies: %w", err)
	}

	// Drop products whose company record vanished between reads.
	resolved := eligible[:0]
	for _, p := range eligible {
		if _, ok := companies[p.CompanyID]; !ok {
			l.log.Warn("dropping product with unresolved company",
				"product_id", p.ID, "company_id", p.CompanyID)
			continue
		}
		resolved = append(resolved, p)
	}

	return resolved, companies, read, nil
}
