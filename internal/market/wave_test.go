package market

import (
	"context"
	"strings"
	"testing"
	"time"
)

func engineFixture(t *testing.T, fs *fakeStore, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := NewEngine(cfg, fs, fs, fs, fs, treasuryAccountID, plannerLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return engine
}

func seedMarket(fs *fakeStore, productCount int) {
	now := time.Now()
	for i := int64(1); i <= int64(productCount); i++ {
		companyID := (i % 3) + 1
		fs.addCompany(companyID, companyID+100, now.Add(-400*24*time.Hour))
		fs.addProduct(ProductCandidate{
			ID:          i,
			Name:        "widget",
			PriceMicros: (5 + i) * MicrosPerCredit,
			Quality:     60 + int32(i%40),
			TotalSales:  i * 3,
			CompanyID:   companyID,
			CreatedAt:   now.Add(-time.Duration(12+i) * time.Hour),
			Active:      true,
		})
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GlobalBudgetMicros = 0
	if _, err := NewEngine(cfg, newFakeStore(), newFakeStore(), newFakeStore(), newFakeStore(), treasuryAccountID, plannerLogger()); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestRunWaveEmptyCatalog(t *testing.T) {
	fs := newFakeStore()
	engine := engineFixture(t, fs, nil)

	metrics, err := engine.RunWave(context.Background())
	if err != nil {
		t.Fatalf("empty catalog is not a wave failure: %v", err)
	}
	if metrics.TotalSpentMicros != 0 || metrics.SuccessfulPurchases != 0 {
		t.Fatalf("empty wave must spend nothing: %+v", metrics)
	}
	if len(metrics.Errors) == 0 {
		t.Fatal("empty wave should report the no-candidate condition")
	}
	if !fs.hasLast {
		t.Fatal("wave completion time should persist even for empty waves")
	}
	if len(fs.savedWaves) != 1 {
		t.Fatalf("expected 1 saved wave, got %d", len(fs.savedWaves))
	}
}

func TestRunWaveHappyPath(t *testing.T) {
	fs := newFakeStore()
	seedMarket(fs, 12)
	engine := engineFixture(t, fs, nil)

	metrics, err := engine.RunWave(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.WaveID == "" {
		t.Fatal("wave needs an id")
	}
	if metrics.CandidatesEvaluated != 12 {
		t.Fatalf("expected 12 candidates, got %d", metrics.CandidatesEvaluated)
	}
	if metrics.SuccessfulPurchases == 0 {
		t.Fatal("healthy catalog should produce purchases")
	}
	if metrics.FailedPurchases != 0 {
		t.Fatalf("no purchase should fail, got %d: %v", metrics.FailedPurchases, metrics.Errors)
	}
	if metrics.TotalSpentMicros <= 0 || metrics.TotalSpentMicros > engineBudget(t) {
		t.Fatalf("spend %d outside (0, budget]", metrics.TotalSpentMicros)
	}
	if metrics.CompletedAt.Before(metrics.StartedAt) {
		t.Fatal("completion precedes start")
	}

	// The audit record must agree with what the ledger actually recorded.
	applied := int64(0)
	for _, app := range fs.applications {
		applied += app.TotalMicros
	}
	if applied != metrics.TotalSpentMicros {
		t.Fatalf("ledger total %d != metrics total %d", applied, metrics.TotalSpentMicros)
	}
	if len(fs.savedWaves) != 1 || fs.savedWaves[0].WaveID != metrics.WaveID {
		t.Fatalf("saved wave mismatch: %+v", fs.savedWaves)
	}
	if !fs.hasLast || !fs.lastWaveAt.Equal(metrics.CompletedAt) {
		t.Fatal("last wave time should match completion")
	}
}

func TestRunWaveCountsDistincts(t *testing.T) {
	fs := newFakeStore()
	seedMarket(fs, 6)
	engine := engineFixture(t, fs, nil)

	metrics, err := engine.RunWave(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	productSet := map[int64]struct{}{}
	companySet := map[int64]struct{}{}
	for _, app := range fs.applications {
		productSet[app.ProductID] = struct{}{}
		companySet[app.CompanyAccountID] = struct{}{}
	}
	if metrics.DistinctProducts != len(productSet) {
		t.Fatalf("distinct products %d, ledger saw %d", metrics.DistinctProducts, len(productSet))
	}
	if metrics.DistinctCompanies != len(companySet) {
		t.Fatalf("distinct companies %d, ledger saw %d", metrics.DistinctCompanies, len(companySet))
	}
}

func TestRunWaveRecordsPartialFailures(t *testing.T) {
	fs := newFakeStore()
	seedMarket(fs, 6)
	fs.failApplies = 1000
	engine := engineFixture(t, fs, func(cfg *Config) { cfg.ExecutorRetries = 1 })

	metrics, err := engine.RunWave(context.Background())
	if err != nil {
		t.Fatalf("purchase failures must not fail the wave: %v", err)
	}
	if metrics.SuccessfulPurchases != 0 {
		t.Fatalf("every purchase should fail, %d succeeded", metrics.SuccessfulPurchases)
	}
	if metrics.FailedPurchases == 0 || len(metrics.Errors) == 0 {
		t.Fatalf("failures should be recorded: %+v", metrics)
	}
	for _, msg := range metrics.Errors {
		if !strings.Contains(msg, "store write race") {
			t.Fatalf("error should carry the cause, got %q", msg)
		}
	}
	if metrics.TotalSpentMicros != 0 {
		t.Fatalf("failed wave spent %d", metrics.TotalSpentMicros)
	}
}

func TestRunWavesAccumulateHistory(t *testing.T) {
	fs := newFakeStore()
	seedMarket(fs, 4)
	engine := engineFixture(t, fs, nil)

	for i := 0; i < 3; i++ {
		if _, err := engine.RunWave(context.Background()); err != nil {
			t.Fatalf("wave %d: %v", i, err)
		}
	}
	waves, err := fs.RecentWaves(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(waves))
	}
	seen := map[string]struct{}{}
	for _, w := range waves {
		if _, dup := seen[w.WaveID]; dup {
			t.Fatalf("duplicate wave id %s", w.WaveID)
		}
		seen[w.WaveID] = struct{}{}
	}
}

func engineBudget(t *testing.T) int64 {
	t.Helper()
	return DefaultConfig().GlobalBudgetMicros
}
