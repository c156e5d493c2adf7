package market

import (
	"fmt"
	"log/slog"
	"math"
	mathrand "math/rand"
	"sort"
	"time"
)

// Planner turns a scored product list into a concrete, budget-respecting
// purchase plan. Both strategies enforce the same hard caps: per-order
// quantity bounds, the absolute per-order cost ceiling, the per-company
// spend fraction, and the global budget.
type Planner interface {
	Plan(products []ScoredProduct) ([]PlannedPurchase, PlanReport)
}

// PlanReport records how much of the budget was actually committed versus
// the target, for logging and testability.
type PlanReport struct {
	TargetSpendMicros    int64
	CommittedSpendMicros int64
	Passes               int
	Considered           int
	Dropped              int
}

// NewPlanner selects the configured allocation strategy.
func NewPlanner(cfg Config, logger *slog.Logger) (Planner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.PlannerStrategy {
	case StrategyTargetFill:
		return &targetFillPlanner{cfg: cfg, log: logger}, nil
	case StrategyStochastic:
		seed := cfg.NoiseSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return &stochasticPlanner{
			cfg:  cfg,
			log:  logger,
			rand: mathrand.New(mathrand.NewSource(seed)),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.PlannerStrategy)
	}
}

// budgetTracker enforces the shared spend invariants while a plan is built.
type budgetTracker struct {
	cfg             Config
	remainingMicros int64
	companyMicros   map[int64]int64
}

func newBudgetTracker(cfg Config) *budgetTracker {
	return &budgetTracker{
		cfg:             cfg,
		remainingMicros: cfg.MaxSpendMicros(),
		companyMicros:   make(map[int64]int64),
	}
}

func (t *budgetTracker) committed() int64 {
	return t.cfg.MaxSpendMicros() - t.remainingMicros
}

// fit shrinks the requested quantity to whatever headroom survives the
// per-order ceiling, the company cap, and the global budget. A purchase that
// cannot keep at least the minimum order size is dropped.
func (t *budgetTracker) fit(p ScoredProduct, wantQty int64) (PlannedPurchase, bool) {
	price := p.Product.PriceMicros
	if price <= 0 || price > t.cfg.MaxPurchasePerOrderMicros {
		return PlannedPurchase{}, false
	}

	qty := wantQty
	if qty < t.cfg.MinOrderSize {
		qty = t.cfg.MinOrderSize
	}
	if qty > t.cfg.MaxOrderSizeAbsolute {
		qty = t.cfg.MaxOrderSizeAbsolute
	}
	if maxByOrder := t.cfg.MaxPurchasePerOrderMicros / price; qty > maxByOrder {
		qty = maxByOrder
	}

	companyHeadroom := t.cfg.CompanyBudgetMicros() - t.companyMicros[p.Company.ID]
	if maxByCompany := companyHeadroom / price; qty > maxByCompany {
		qty = maxByCompany
	}
	if maxByBudget := t.remainingMicros / price; qty > maxByBudget {
		qty = maxByBudget
	}
	if qty < t.cfg.MinOrderSize {
		return PlannedPurchase{}, false
	}

	cost := qty * price
	t.remainingMicros -= cost
	t.companyMicros[p.Company.ID] += cost
	return PlannedPurchase{
		ProductID:       p.Product.ID,
		CompanyID:       p.Company.ID,
		Quantity:        qty,
		UnitPriceMicros: price,
		TotalCostMicros: cost,
		Score:           p.FinalScore,
	}, true
}

func sortByScoreDesc(products []ScoredProduct) []ScoredProduct {
	out := make([]ScoredProduct, len(products))
	copy(out, products)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return out[i].Product.ID < out[j].Product.ID
	})
	return out
}

func sortPlanByScoreDesc(plan []PlannedPurchase) {
	sort.SliceStable(plan, func(i, j int) bool {
		if plan[i].Score != plan[j].Score {
			return plan[i].Score > plan[j].Score
		}
		return plan[i].ProductID < plan[j].ProductID
	})
}

// targetFillPlanner deterministically sweeps the score-sorted candidate list
// in repeated passes until the minimum-spend target is reached, the pass
// budget stops moving, or the pass bound is exhausted.
type targetFillPlanner struct {
	cfg Config
	log *slog.Logger
}

const targetFillQuantityScale = 100

func (pl *targetFillPlanner) Plan(products []ScoredProduct) ([]PlannedPurchase, PlanReport) {
	report := PlanReport{TargetSpendMicros: pl.cfg.MinSpendMicros()}
	tracker := newBudgetTracker(pl.cfg)

	// Affordability filter: a product whose single unit already breaches the
	// per-order ceiling can never be planned.
	candidates := make([]ScoredProduct, 0, len(products))
	for _, p := range sortByScoreDesc(products) {
		if p.Product.PriceMicros > pl.cfg.MaxPurchasePerOrderMicros {
			report.Dropped++
			continue
		}
		candidates = append(candidates, p)
	}
	report.Considered = len(candidates)

	var plan []PlannedPurchase
	for pass := 0; pass < pl.cfg.TargetFillMaxPasses; pass++ {
		report.Passes = pass + 1
		passSpend := int64(0)
		for _, p := range candidates {
			if tracker.committed() >= report.TargetSpendMicros {
				break
			}
			wantQty := int64(math.Ceil(p.FinalScore * targetFillQuantityScale))
			if wantQty < pl.cfg.MinOrderSize {
				continue
			}
			purchase, ok := tracker.fit(p, wantQty)
			if !ok {
				continue
			}
			plan = append(plan, purchase)
			passSpend += purchase.TotalCostMicros
		}
		if tracker.committed() >= report.TargetSpendMicros || passSpend == 0 {
			break
		}
	}

	report.CommittedSpendMicros = tracker.committed()
	sortPlanByScoreDesc(plan)
	pl.log.Info("target-fill plan built",
		"target_micros", report.TargetSpendMicros,
		"committed_micros", report.CommittedSpendMicros,
		"passes", report.Passes,
		"purchases", len(plan))
	return plan, report
}

// stochasticPlanner flips a weighted coin per product and samples order
// quantities from a Poisson distribution parameterized by the product's
// expected spend share.
type stochasticPlanner struct {
	cfg  Config
	log  *slog.Logger
	rand *mathrand.Rand
}

func (pl *stochasticPlanner) Plan(products []ScoredProduct) ([]PlannedPurchase, PlanReport) {
	report := PlanReport{TargetSpendMicros: pl.cfg.MinSpendMicros()}
	tracker := newBudgetTracker(pl.cfg)

	sorted := sortByScoreDesc(products)
	report.Considered = len(sorted)

	totalScore := 0.0
	for _, p := range sorted {
		totalScore += p.FinalScore
	}
	if totalScore <= 0 {
		return nil, report
	}
	budgetPerScore := float64(pl.cfg.GlobalBudgetMicros) / totalScore

	var plan []PlannedPurchase
	report.Passes = 1
	for _, p := range sorted {
		if pl.rand.Float64() > p.PurchaseProbability {
			continue
		}
		expectedSpend := p.FinalScore * budgetPerScore
		lambda := expectedSpend / float64(p.Product.PriceMicros)
		qty := pl.samplePoisson(lambda)
		if qty < pl.cfg.MinOrderSize {
			qty = pl.cfg.MinOrderSize
		}
		purchase, ok := tracker.fit(p, qty)
		if !ok {
			report.Dropped++
			continue
		}
		plan = append(plan, purchase)
	}

	report.CommittedSpendMicros = tracker.committed()
	sortPlanByScoreDesc(plan)
	pl.log.Info("stochastic plan built",
		"target_micros", report.TargetSpendMicros,
		"committed_micros", report.CommittedSpendMicros,
		"purchases", len(plan))
	return plan, report
}

// samplePoisson uses Knuth's method for small rates and a normal
// approximation once the exponential term would underflow.
func (pl *stochasticPlanner) samplePoisson(lambda float64) int64 {
	if lambda <= 0 {
		return 0
	}
	if lambda > 30 {
		v := math.Round(lambda + math.Sqrt(lambda)*pl.rand.NormFloat64())
		if v < 0 {
			return 0
		}
		return int64(v)
	}
	l := math.Exp(-lambda)
	k := int64(0)
	p := 1.0
	for {
		k++
		p *= pl.rand.Float64()
		if p <= l {
			return k - 1
		}
	}
}
