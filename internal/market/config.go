package market

import (
	"fmt"
	"math"
	"time"
)

// Planner strategy names accepted by Config.PlannerStrategy.
const (
	StrategyTargetFill = "targetfill"
	StrategyStochastic = "stochastic"
)

// Weights blends the five normalized features into the composite score.
// The five weights must sum to exactly 1.0.
type Weights struct {
	Quality float64 `yaml:"quality"`
	Price   float64 `yaml:"price"`
	Demand  float64 `yaml:"demand"`
	Company float64 `yaml:"company"`
	Recency float64 `yaml:"recency"`
}

func (w Weights) Sum() float64 {
	return w.Quality + w.Price + w.Demand + w.Company + w.Recency
}

// Config is the single tuning surface for the demand engine. Every constant
// the pipeline consumes lives here; nothing downstream reads scattered
// literals.
type Config struct {
	GlobalBudgetMicros int64   `yaml:"global_budget_micros"`
	MinSpendFraction   float64 `yaml:"min_spend_fraction"`
	MaxSpendFraction   float64 `yaml:"max_spend_fraction"`

	Weights Weights `yaml:"weights"`

	PriceOutlierMultiplier float64       `yaml:"price_outlier_multiplier"`
	NewListingHoldWindow   time.Duration `yaml:"new_listing_hold_window"`
	QualityFloor           int32         `yaml:"quality_floor"`

	MinOrderSize              int64 `yaml:"min_order_size"`
	MaxOrderSizeAbsolute      int64 `yaml:"max_order_size_absolute"`
	MaxPurchasePerOrderMicros int64 `yaml:"max_purchase_per_order_micros"`

	CompanyBudgetFraction  float64 `yaml:"company_budget_fraction"`
	MinPurchaseProbability float64 `yaml:"min_purchase_probability"`
	ScoreSharpness         float64 `yaml:"score_sharpness"`

	ExecutorRetries int     `yaml:"executor_retries"`
	NoiseMagnitude  float64 `yaml:"noise_magnitude"`
	NoiseSeed       int64   `yaml:"noise_seed"`

	DemandNormalization float64 `yaml:"demand_normalization"`
	RecencyDecayDays    float64 `yaml:"recency_decay_days"`

	CatalogReadLimit    int    `yaml:"catalog_read_limit"`
	PlannerStrategy     string `yaml:"planner_strategy"`
	TargetFillMaxPasses int    `yaml:"target_fill_max_passes"`

	CostOfGoodsRatio float64 `yaml:"cost_of_goods_ratio"`
}

func DefaultConfig() Config {
	return Config{
		GlobalBudgetMicros: 100_000 * MicrosPerCredit,
		MinSpendFraction:   0.60,
		MaxSpendFraction:   1.00,

		Weights: Weights{
			Quality: 0.40,
			Price:   0.25,
			Demand:  0.20,
			Company: 0.10,
			Recency: 0.05,
		},

		PriceOutlierMultiplier: 50,
		NewListingHoldWindow:   60 * time.Minute,
		QualityFloor:           30,

		MinOrderSize:              1,
		MaxOrderSizeAbsolute:      500,
		MaxPurchasePerOrderMicros: 50_000 * MicrosPerCredit,

		CompanyBudgetFraction:  0.15,
		MinPurchaseProbability: 0.02,
		ScoreSharpness:         1.2,

		ExecutorRetries: 3,
		NoiseMagnitude:  0.05,
		NoiseSeed:       0,

		DemandNormalization: 5.0,
		RecencyDecayDays:    14,

		CatalogReadLimit:    5_000,
		PlannerStrategy:     StrategyTargetFill,
		TargetFillMaxPasses: 10,

		CostOfGoodsRatio: 0.30,
	}
}

const weightSumTolerance = 1e-9

// Validate fails fast on configuration bugs before any purchase executes.
func (c Config) Validate() error {
	if c.GlobalBudgetMicros <= 0 {
		return fmt.Errorf("%w: got %d micros", ErrNonPositiveBudget, c.GlobalBudgetMicros)
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: scoring weights sum to %.12f, want 1.0", ErrInvalidConfig, sum)
	}
	if c.Weights.Quality < 0 || c.Weights.Price < 0 || c.Weights.Demand < 0 ||
		c.Weights.Company < 0 || c.Weights.Recency < 0 {
		return fmt.Errorf("%w: scoring weights must be non-negative", ErrInvalidConfig)
	}
	if c.MinSpendFraction < 0 || c.MinSpendFraction > 1 {
		return fmt.Errorf("%w: min spend fraction %.3f outside [0,1]", ErrInvalidConfig, c.MinSpendFraction)
	}
	if c.MaxSpendFraction < c.MinSpendFraction || c.MaxSpendFraction > 1 {
		return fmt.Errorf("%w: max spend fraction %.3f outside [min,1]", ErrInvalidConfig, c.MaxSpendFraction)
	}
	if c.PriceOutlierMultiplier <= 1 {
		return fmt.Errorf("%w: price outlier multiplier %.2f must be > 1", ErrInvalidConfig, c.PriceOutlierMultiplier)
	}
	if c.NewListingHoldWindow <= 0 {
		return fmt.Errorf("%w: new listing hold window must be > 0", ErrInvalidConfig)
	}
	if c.QualityFloor < 0 || c.QualityFloor > 100 {
		return fmt.Errorf("%w: quality floor %d outside [0,100]", ErrInvalidConfig, c.QualityFloor)
	}
	if c.MinOrderSize < 1 {
		return fmt.Errorf("%w: min order size %d must be >= 1", ErrInvalidConfig, c.MinOrderSize)
	}
	if c.MaxOrderSizeAbsolute < c.MinOrderSize {
		return fmt.Errorf("%w: max order size %d below min %d", ErrInvalidConfig, c.MaxOrderSizeAbsolute, c.MinOrderSize)
	}
	if c.MaxPurchasePerOrderMicros <= 0 {
		return fmt.Errorf("%w: per-order cost ceiling must be > 0", ErrInvalidConfig)
	}
	if c.CompanyBudgetFraction <= 0 || c.CompanyBudgetFraction > 1 {
		return fmt.Errorf("%w: company budget fraction %.3f outside (0,1]", ErrInvalidConfig, c.CompanyBudgetFraction)
	}
	if c.MinPurchaseProbability <= 0 || c.MinPurchaseProbability > 1 {
		return fmt.Errorf("%w: min purchase probability %.4f outside (0,1]", ErrInvalidConfig, c.MinPurchaseProbability)
	}
	if c.ScoreSharpness <= 1 {
		return fmt.Errorf("%w: score sharpness %.3f must be > 1", ErrInvalidConfig, c.ScoreSharpness)
	}
	if c.ExecutorRetries < 1 {
		return fmt.Errorf("%w: executor retries %d must be >= 1", ErrInvalidConfig, c.ExecutorRetries)
	}
	if c.NoiseMagnitude < 0 || c.NoiseMagnitude >= 1 {
		return fmt.Errorf("%w: noise magnitude %.3f outside [0,1)", ErrInvalidConfig, c.NoiseMagnitude)
	}
	if c.DemandNormalization <= 0 {
		return fmt.Errorf("%w: demand normalization must be > 0", ErrInvalidConfig)
	}
	if c.RecencyDecayDays <= 0 {
		return fmt.Errorf("%w: recency decay window must be > 0", ErrInvalidConfig)
	}
	if c.CatalogReadLimit <= 0 {
		return fmt.Errorf("%w: catalog read limit must be > 0", ErrInvalidConfig)
	}
	switch c.PlannerStrategy {
	case StrategyTargetFill, StrategyStochastic:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.PlannerStrategy)
	}
	if c.TargetFillMaxPasses < 1 {
		return fmt.Errorf("%w: target fill max passes %d must be >= 1", ErrInvalidConfig, c.TargetFillMaxPasses)
	}
	if c.CostOfGoodsRatio < 0 || c.CostOfGoodsRatio >= 1 {
		return fmt.Errorf("%w: cost of goods ratio %.3f outside [0,1)", ErrInvalidConfig, c.CostOfGoodsRatio)
	}
	return nil
}

// CompanyBudgetMicros is the per-company spend cap for one wave.
func (c Config) CompanyBudgetMicros() int64 {
	return int64(math.Floor(float64(c.GlobalBudgetMicros) * c.CompanyBudgetFraction))
}

// MinSpendMicros is the planner's minimum-spend target for one wave.
func (c Config) MinSpendMicros() int64 {
	return int64(math.Floor(float64(c.GlobalBudgetMicros) * c.MinSpendFraction))
}

// MaxSpendMicros is the hard spend ceiling for one wave.
func (c Config) MaxSpendMicros() int64 {
	return int64(math.Floor(float64(c.GlobalBudgetMicros) * c.MaxSpendFraction))
}
