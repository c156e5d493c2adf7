package market

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// fakeStore is an in-memory implementation of every engine collaborator,
// shared by the executor and orchestrator tests.
type fakeStore struct {
	products  map[int64]ProductCandidate
	companies map[int64]CompanyInfo
	accounts  map[int64]*Account

	applications []PurchaseApplication
	entries      []fakeLedgerEntry

	lastWaveAt time.Time
	hasLast    bool
	savedWaves []WaveMetrics

	failApplies int // fail this many ApplyPurchase calls before succeeding
	applyCalls  int

	companyReads int
	accountReads int
}

type fakeLedgerEntry struct {
	fromAccountID int64
	toAccountID   int64
	amountMicros  int64
	entryType     string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  make(map[int64]ProductCandidate),
		companies: make(map[int64]CompanyInfo),
		accounts:  make(map[int64]*Account),
	}
}

func (f *fakeStore) addCompany(id, accountID int64, createdAt time.Time) {
	f.companies[id] = CompanyInfo{
		ID:               id,
		Name:             fmt.Sprintf("company-%d", id),
		AccountID:        accountID,
		CreatedAt:        createdAt,
		TotalShares:      1000,
		SharePriceMicros: 10 * MicrosPerCredit,
	}
	f.accounts[accountID] = &Account{ID: accountID}
}

func (f *fakeStore) addProduct(p ProductCandidate) {
	f.products[p.ID] = p
}

func (f *fakeStore) ListActiveProducts(_ context.Context, limit int) ([]ProductCandidate, error) {
	out := make([]ProductCandidate, 0, len(f.products))
	for _, p := range f.products {
		if len(out) >= limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) GetProduct(_ context.Context, id int64) (ProductCandidate, error) {
	p, ok := f.products[id]
	if !ok {
		return ProductCandidate{}, fmt.Errorf("product %d: %w", id, ErrProductInactive)
	}
	return p, nil
}

func (f *fakeStore) GetCompanies(_ context.Context, ids []int64) (map[int64]CompanyInfo, error) {
	out := make(map[int64]CompanyInfo, len(ids))
	for _, id := range ids {
		if c, ok := f.companies[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeStore) GetCompany(_ context.Context, id int64) (CompanyInfo, error) {
	f.companyReads++
	c, ok := f.companies[id]
	if !ok {
		return CompanyInfo{}, fmt.Errorf("company %d: %w", id, ErrCompanyNotFound)
	}
	return c, nil
}

func (f *fakeStore) GetAccount(_ context.Context, id int64) (Account, error) {
	f.accountReads++
	a, ok := f.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return *a, nil
}

func (f *fakeStore) ApplyPurchase(_ context.Context, app PurchaseApplication) error {
	f.applyCalls++
	if f.applyCalls <= f.failApplies {
		return errors.New("store write race")
	}
	account, ok := f.accounts[app.CompanyAccountID]
	if !ok {
		return fmt.Errorf("account %d: %w", app.CompanyAccountID, ErrAccountNotFound)
	}
	account.BalanceMicros += app.RevenueMicros
	f.entries = append(f.entries,
		fakeLedgerEntry{app.TreasuryAccountID, app.CompanyAccountID, app.RevenueMicros, "market_sale_revenue"},
		fakeLedgerEntry{app.CompanyAccountID, app.TreasuryAccountID, app.CostMicros, "market_sale_cost"},
	)
	p := f.products[app.ProductID]
	p.TotalSales += app.Quantity
	f.products[app.ProductID] = p
	f.applications = append(f.applications, app)
	return nil
}

func (f *fakeStore) LastWaveAt(_ context.Context) (time.Time, bool, error) {
	return f.lastWaveAt, f.hasLast, nil
}

func (f *fakeStore) SetLastWaveAt(_ context.Context, t time.Time) error {
	f.lastWaveAt = t
	f.hasLast = true
	return nil
}

func (f *fakeStore) SaveWave(_ context.Context, m WaveMetrics) error {
	f.savedWaves = append(f.savedWaves, m)
	return nil
}

func (f *fakeStore) RecentWaves(_ context.Context, limit int) ([]WaveMetrics, error) {
	if len(f.savedWaves) < limit {
		limit = len(f.savedWaves)
	}
	out := make([]WaveMetrics, limit)
	for i := 0; i < limit; i++ {
		out[i] = f.savedWaves[len(f.savedWaves)-1-i]
	}
	return out, nil
}
