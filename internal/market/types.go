package market

import (
	"context"
	"time"
)

// ProductCandidate is an immutable snapshot of one sellable item for a wave.
type ProductCandidate struct {
	ID          int64
	Name        string
	Description string
	PriceMicros int64
	Quality     int32 // 0..100
	TotalSales  int64
	CompanyID   int64
	CreatedAt   time.Time
	Active      bool
	Tags        []string
}

// CompanyInfo is a read-only snapshot of a product's owning company.
type CompanyInfo struct {
	ID               int64
	Name             string
	AccountID        int64
	CreatedAt        time.Time
	TotalShares      int64
	SharePriceMicros int64
}

// Account is a funding account balance snapshot.
type Account struct {
	ID            int64
	BalanceMicros int64
}

// NormalizedFeatures holds the five per-product scores, each in [0,1].
type NormalizedFeatures struct {
	Quality float64
	Price   float64
	Demand  float64
	Recency float64
	Company float64
}

// AntiExploitPenalties holds the independent risk penalties and their
// multiplicative combination, each in [0,1].
type AntiExploitPenalties struct {
	PriceOutlier   float64
	LowQualitySpam float64
	RapidCreation  float64
	Combined       float64
}

// ScoredProduct exists only for the duration of one wave.
type ScoredProduct struct {
	Product             ProductCandidate
	Company             CompanyInfo
	Features            NormalizedFeatures
	Penalties           AntiExploitPenalties
	FinalScore          float64
	PurchaseProbability float64
}

// PlannedPurchase is a committed decision: either fully executed or fully
// discarded, never partially applied.
type PlannedPurchase struct {
	ProductID       int64
	CompanyID       int64
	Quantity        int64
	UnitPriceMicros int64
	TotalCostMicros int64
	Score           float64
}

// PurchaseResult is the outcome of executing one PlannedPurchase.
type PurchaseResult struct {
	ProductID       int64
	Applied         bool
	QuantityApplied int64
	SpentMicros     int64
	Err             string
}

// WaveMetrics is the full audit record of one wave.
type WaveMetrics struct {
	WaveID              string
	StartedAt           time.Time
	CompletedAt         time.Time
	TotalSpentMicros    int64
	ItemsPurchased      int64
	DistinctProducts    int
	DistinctCompanies   int
	CandidatesEvaluated int
	CandidatesFiltered  int
	PlannedPurchases    int
	SuccessfulPurchases int
	FailedPurchases     int
	Errors              []string
}

// PurchaseApplication is the single funded write for one executed purchase:
// the company balance credit, the two double-entry ledger rows, and the
// product sale-stat increments are applied together or not at all.
type PurchaseApplication struct {
	WaveID            string
	ProductID         int64
	CompanyAccountID  int64
	TreasuryAccountID int64
	Quantity          int64
	TotalMicros       int64
	RevenueMicros     int64 // net revenue credited to the company
	CostMicros        int64 // cost of goods returned to the treasury
	Description       string
}

// Catalog is the product catalog provider.
type Catalog interface {
	ListActiveProducts(ctx context.Context, limit int) ([]ProductCandidate, error)
	GetProduct(ctx context.Context, id int64) (ProductCandidate, error)
}

// Companies is the company/account store.
type Companies interface {
	GetCompanies(ctx context.Context, ids []int64) (map[int64]CompanyInfo, error)
	GetCompany(ctx context.Context, id int64) (CompanyInfo, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
}

// Ledger applies funded purchases against the append-only ledger.
type Ledger interface {
	ApplyPurchase(ctx context.Context, app PurchaseApplication) error
}

// WaveState persists wave completion times and metrics for the external
// scheduling read path.
type WaveState interface {
	LastWaveAt(ctx context.Context) (time.Time, bool, error)
	SetLastWaveAt(ctx context.Context, t time.Time) error
	SaveWave(ctx context.Context, m WaveMetrics) error
	RecentWaves(ctx context.Context, limit int) ([]WaveMetrics, error)
}
