package market

import (
	"math"
	"testing"
	"time"
)

func candidateAt(price int64, quality int32, createdAt time.Time) ProductCandidate {
	return ProductCandidate{
		ID:          1,
		Name:        "widget",
		PriceMicros: price,
		Quality:     quality,
		CompanyID:   1,
		CreatedAt:   createdAt,
		Active:      true,
	}
}

func TestMedianPriceMicros(t *testing.T) {
	mk := func(prices ...int64) []ProductCandidate {
		out := make([]ProductCandidate, len(prices))
		for i, p := range prices {
			out[i] = ProductCandidate{ID: int64(i + 1), PriceMicros: p}
		}
		return out
	}

	tests := []struct {
		name   string
		prices []int64
		want   int64
	}{
		{"empty", nil, 0},
		{"single", []int64{40}, 40},
		{"odd", []int64{10, 50, 20}, 20},
		{"even", []int64{10, 20, 30, 40}, 25},
		{"outlier resistant", []int64{10, 20, 30, 1_000_000}, 25},
	}
	for _, tc := range tests {
		if got := MedianPriceMicros(mk(tc.prices...)); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

func TestPriceScoreCheapBeatsExpensive(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	now := time.Now()
	median := 20 * MicrosPerCredit
	created := now.Add(-48 * time.Hour)

	cheap := n.Normalize(candidateAt(10*MicrosPerCredit, 50, created), CompanyInfo{}, median, now)
	atMedian := n.Normalize(candidateAt(median, 50, created), CompanyInfo{}, median, now)
	expensive := n.Normalize(candidateAt(200*MicrosPerCredit, 50, created), CompanyInfo{}, median, now)

	if cheap.Price <= 0.5 {
		t.Fatalf("cheaper-than-median should score above 0.5, got %.4f", cheap.Price)
	}
	if math.Abs(atMedian.Price-0.5) > 1e-9 {
		t.Fatalf("at-median price should score 0.5, got %.4f", atMedian.Price)
	}
	if expensive.Price >= atMedian.Price {
		t.Fatalf("above-median should score below at-median: %.4f >= %.4f", expensive.Price, atMedian.Price)
	}
	if expensive.Price < 0 || cheap.Price > 1 {
		t.Fatalf("price scores out of [0,1]: %.4f, %.4f", expensive.Price, cheap.Price)
	}
}

func TestQualityScore(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	now := time.Now()
	f := n.Normalize(candidateAt(MicrosPerCredit, 90, now.Add(-24*time.Hour)), CompanyInfo{}, MicrosPerCredit, now)
	if math.Abs(f.Quality-0.9) > 1e-9 {
		t.Fatalf("quality 90 should normalize to 0.9, got %.4f", f.Quality)
	}
}

func TestDemandScoreGrowsWithSalesRate(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	now := time.Now()
	created := now.Add(-10 * 24 * time.Hour)

	slow := candidateAt(MicrosPerCredit, 50, created)
	slow.TotalSales = 5
	fast := candidateAt(MicrosPerCredit, 50, created)
	fast.TotalSales = 5_000

	fSlow := n.Normalize(slow, CompanyInfo{}, MicrosPerCredit, now)
	fFast := n.Normalize(fast, CompanyInfo{}, MicrosPerCredit, now)
	if fFast.Demand <= fSlow.Demand {
		t.Fatalf("higher sales rate should score higher: %.4f <= %.4f", fFast.Demand, fSlow.Demand)
	}
	if fFast.Demand > 1 {
		t.Fatalf("demand score must clamp to 1, got %.4f", fFast.Demand)
	}
}

func TestDemandScoreFloorsAgeAtOneDay(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	now := time.Now()

	// Same-day listing with sales must not divide by a near-zero age.
	p := candidateAt(MicrosPerCredit, 50, now.Add(-5*time.Minute))
	p.TotalSales = 100
	f := n.Normalize(p, CompanyInfo{}, MicrosPerCredit, now)
	want := clamp01(math.Log1p(100) / DefaultConfig().DemandNormalization)
	if math.Abs(f.Demand-want) > 1e-9 {
		t.Fatalf("same-day demand got %.4f want %.4f", f.Demand, want)
	}
}

func TestRecencyScoreDecays(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	now := time.Now()

	fresh := n.Normalize(candidateAt(MicrosPerCredit, 50, now), CompanyInfo{}, MicrosPerCredit, now)
	old := n.Normalize(candidateAt(MicrosPerCredit, 50, now.Add(-60*24*time.Hour)), CompanyInfo{}, MicrosPerCredit, now)

	if fresh.Recency < 0.99 {
		t.Fatalf("brand-new listing should score near 1, got %.4f", fresh.Recency)
	}
	if old.Recency >= fresh.Recency {
		t.Fatalf("older listing should decay: %.4f >= %.4f", old.Recency, fresh.Recency)
	}
}

func TestCompanyScoreBlendsCapAndAge(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	now := time.Now()
	p := candidateAt(MicrosPerCredit, 50, now.Add(-24*time.Hour))

	young := CompanyInfo{CreatedAt: now.Add(-24 * time.Hour), TotalShares: 100, SharePriceMicros: MicrosPerCredit}
	big := CompanyInfo{CreatedAt: now.Add(-2 * 365 * 24 * time.Hour), TotalShares: 1_000_000, SharePriceMicros: 100 * MicrosPerCredit}

	fYoung := n.Normalize(p, young, MicrosPerCredit, now)
	fBig := n.Normalize(p, big, MicrosPerCredit, now)
	if fBig.Company <= fYoung.Company {
		t.Fatalf("large old company should outrank small young one: %.4f <= %.4f", fBig.Company, fYoung.Company)
	}
	if fBig.Company > 1 || fYoung.Company < 0 {
		t.Fatalf("company scores out of [0,1]: %.4f, %.4f", fBig.Company, fYoung.Company)
	}

	// Age trust caps at one year: two old companies with the same cap tie.
	older := big
	older.CreatedAt = now.Add(-5 * 365 * 24 * time.Hour)
	fOlder := n.Normalize(p, older, MicrosPerCredit, now)
	if math.Abs(fOlder.Company-fBig.Company) > 1e-9 {
		t.Fatalf("age trust should cap at one year: %.4f != %.4f", fOlder.Company, fBig.Company)
	}
}
