package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const maxWaveErrors = 20

// Engine drives one demand wave: load, normalize, penalize, score, plan,
// execute, persist. Each RunWave call is a fresh wave with a fresh id;
// consecutive sequential calls are independent.
type Engine struct {
	cfg        Config
	loader     *Loader
	normalizer *Normalizer
	penalizer  *Penalizer
	scorer     *Scorer
	planner    Planner
	executor   *Executor
	state      WaveState
	log        *slog.Logger
	now        func() time.Time
}

// NewEngine validates the configuration and wires the pipeline stages. The
// treasury account is resolved once and injected, never read from a global.
func NewEngine(cfg Config, catalog Catalog, companies Companies, ledger Ledger, state WaveState, treasuryAccountID int64, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	scorer, err := NewScorer(cfg)
	if err != nil {
		return nil, err
	}
	planner, err := NewPlanner(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		loader:     NewLoader(catalog, companies, cfg.CatalogReadLimit, logger),
		normalizer: NewNormalizer(cfg),
		penalizer:  NewPenalizer(cfg),
		scorer:     scorer,
		planner:    planner,
		executor:   NewExecutor(catalog, companies, ledger, treasuryAccountID, cfg, logger),
		state:      state,
		log:        logger,
		now:        time.Now,
	}, nil
}

// RunWave executes one complete wave and returns its audit record. Planning
// always completes before any purchase executes, so every purchase sees the
// same median-price and total-score snapshot.
func (e *Engine) RunWave(ctx context.Context) (WaveMetrics, error) {
	waveID := uuid.NewString()
	start := e.now()
	metrics := WaveMetrics{WaveID: waveID, StartedAt: start}
	log := e.log.With("wave_id", waveID)

	candidates, companies, read, err := e.loader.Load(ctx)
	if err != nil {
		return metrics, fmt.Errorf("wave %s: %w", waveID, err)
	}
	metrics.CandidatesEvaluated = len(candidates)
	metrics.CandidatesFiltered = read - len(candidates)
	log.Info("catalog loaded", "read", read, "eligible", len(candidates))

	if len(candidates) == 0 {
		metrics.Errors = append(metrics.Errors, ErrNoCandidates.Error())
		e.finish(ctx, &metrics, log)
		return metrics, nil
	}

	scored := e.scoreAll(candidates, companies, start)
	log.Info("candidates scored", "count", len(scored))

	plan, report := e.planner.Plan(scored)
	metrics.PlannedPurchases = len(plan)
	log.Info("plan built",
		"purchases", len(plan),
		"target_micros", report.TargetSpendMicros,
		"committed_micros", report.CommittedSpendMicros)

	results := e.executor.Execute(ctx, waveID, plan)
	e.aggregate(&metrics, plan, results)
	log.Info("plan executed",
		"succeeded", metrics.SuccessfulPurchases,
		"failed", metrics.FailedPurchases,
		"spent_micros", metrics.TotalSpentMicros)

	e.finish(ctx, &metrics, log)
	return metrics, nil
}

func (e *Engine) scoreAll(candidates []ProductCandidate, companies map[int64]CompanyInfo, now time.Time) []ScoredProduct {
	median := MedianPriceMicros(candidates)
	scored := make([]ScoredProduct, 0, len(candidates))
	for _, p := range candidates {
		company := companies[p.CompanyID]
		features := e.normalizer.Normalize(p, company, median, now)
		penalties := e.penalizer.Penalize(p, median, now)
		finalScore, probability := e.scorer.Score(features, penalties)
		scored = append(scored, ScoredProduct{
			Product:             p,
			Company:             company,
			Features:            features,
			Penalties:           penalties,
			FinalScore:          finalScore,
			PurchaseProbability: probability,
		})
	}
	return scored
}

func (e *Engine) aggregate(metrics *WaveMetrics, plan []PlannedPurchase, results []PurchaseResult) {
	productSet := make(map[int64]struct{})
	companySet := make(map[int64]struct{})
	for i, res := range results {
		if !res.Applied {
			metrics.FailedPurchases++
			if len(metrics.Errors) < maxWaveErrors {
				metrics.Errors = append(metrics.Errors, fmt.Sprintf("product %d: %s", res.ProductID, res.Err))
			}
			continue
		}
		metrics.SuccessfulPurchases++
		metrics.TotalSpentMicros += res.SpentMicros
		metrics.ItemsPurchased += res.QuantityApplied
		productSet[res.ProductID] = struct{}{}
		companySet[plan[i].CompanyID] = struct{}{}
	}
	metrics.DistinctProducts = len(productSet)
	metrics.DistinctCompanies = len(companySet)
}

// finish stamps completion, persists the wave for the scheduling read path,
// and publishes telemetry. Persistence failures are reported through the
// metrics error list; the wave's applied purchases stay applied.
func (e *Engine) finish(ctx context.Context, metrics *WaveMetrics, log *slog.Logger) {
	metrics.CompletedAt = e.now()

	if err := e.state.SetLastWaveAt(ctx, metrics.CompletedAt); err != nil {
		log.Error("persist wave completion time", "err", err)
		if len(metrics.Errors) < maxWaveErrors {
			metrics.Errors = append(metrics.Errors, fmt.Sprintf("persist completion time: %v", err))
		}
	}
	if err := e.state.SaveWave(ctx, *metrics); err != nil {
		log.Error("persist wave metrics", "err", err)
	}

	observeWave(*metrics)
	log.Info("wave complete",
		"spent_micros", metrics.TotalSpentMicros,
		"items", metrics.ItemsPurchased,
		"products", metrics.DistinctProducts,
		"companies", metrics.DistinctCompanies,
		"duration", metrics.CompletedAt.Sub(metrics.StartedAt).String())
}
