package market

import (
	"math"
	"sort"
	"time"
)

// Normalizer converts raw product and company attributes into five
// independent [0,1] feature scores.
type Normalizer struct {
	cfg Config
}

func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// MedianPriceMicros is computed once per wave across the full candidate set.
// The median keeps the price feature robust against a handful of extreme
// outlier listings.
func MedianPriceMicros(products []ProductCandidate) int64 {
	if len(products) == 0 {
		return 0
	}
	prices := make([]int64, len(products))
	for i, p := range products {
		prices[i] = p.PriceMicros
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid]
	}
	return (prices[mid-1] + prices[mid]) / 2
}

// Normalize computes the five feature scores for one product against the
// wave's median price snapshot.
func (n *Normalizer) Normalize(p ProductCandidate, c CompanyInfo, medianPriceMicros int64, now time.Time) NormalizedFeatures {
	return NormalizedFeatures{
		Quality: n.qualityScore(p),
		Price:   n.priceScore(p, medianPriceMicros),
		Demand:  n.demandScore(p, now),
		Recency: n.recencyScore(p, now),
		Company: n.companyScore(c, now),
	}
}

func (n *Normalizer) qualityScore(p ProductCandidate) float64 {
	return clamp01(float64(p.Quality) / 100.0)
}

// priceScore maps the log distance from the median through a sigmoid:
// cheaper-than-median listings score near 1, listings far above the median
// asymptote toward 0.
func (n *Normalizer) priceScore(p ProductCandidate, medianPriceMicros int64) float64 {
	if medianPriceMicros <= 0 || p.PriceMicros <= 0 {
		return 0
	}
	dist := math.Log(float64(p.PriceMicros) / float64(medianPriceMicros))
	return clamp01(1.0 / (1.0 + math.Exp(dist)))
}

func (n *Normalizer) demandScore(p ProductCandidate, now time.Time) float64 {
	days := ageDays(p.CreatedAt, now)
	salesRate := float64(p.TotalSales) / days
	return clamp01(math.Log1p(salesRate) / n.cfg.DemandNormalization)
}

func (n *Normalizer) recencyScore(p ProductCandidate, now time.Time) float64 {
	days := now.Sub(p.CreatedAt).Hours() / hoursPerDay
	if days < 0 {
		days = 0
	}
	return clamp01(math.Exp(-days / n.cfg.RecencyDecayDays))
}

const (
	marketCapWeight = 0.70
	ageTrustWeight  = 0.30

	// Market caps above roughly a billion credits saturate the log scale.
	marketCapLogCeiling = 21.0

	trustCapDays = 365.0
)

// companyScore blends log-scaled market capitalization with age-based trust
// capped at one year.
func (n *Normalizer) companyScore(c CompanyInfo, now time.Time) float64 {
	capCredits := float64(c.TotalShares) * MicrosToCredits(c.SharePriceMicros)
	capScore := 0.0
	if capCredits > 0 {
		capScore = clamp01(math.Log1p(capCredits) / marketCapLogCeiling)
	}

	days := now.Sub(c.CreatedAt).Hours() / hoursPerDay
	if days < 0 {
		days = 0
	}
	trust := clamp01(days / trustCapDays)

	return clamp01(marketCapWeight*capScore + ageTrustWeight*trust)
}
