package market

import (
	"time"
)

// Penalizer computes the anti-exploit risk penalties. Each signal works on
// raw price/quality/age only, independent of the normalizer, so each can be
// tested in isolation.
type Penalizer struct {
	cfg Config
}

func NewPenalizer(cfg Config) *Penalizer {
	return &Penalizer{cfg: cfg}
}

// Penalize combines the three signals as 1-(1-p1)(1-p2)(1-p3): any single
// strong penalty dominates, weak partial penalties still compound.
func (pz *Penalizer) Penalize(p ProductCandidate, medianPriceMicros int64, now time.Time) AntiExploitPenalties {
	out := AntiExploitPenalties{
		PriceOutlier:   pz.PriceOutlierPenalty(p.PriceMicros, medianPriceMicros),
		LowQualitySpam: pz.LowQualitySpamPenalty(p.Quality, p.PriceMicros, medianPriceMicros),
		RapidCreation:  pz.RapidCreationPenalty(p.CreatedAt, now),
	}
	out.Combined = 1 - (1-out.PriceOutlier)*(1-out.LowQualitySpam)*(1-out.RapidCreation)
	return out
}

// PriceOutlierPenalty triggers only past median × outlier multiplier and
// scales with how far past the line the price sits.
func (pz *Penalizer) PriceOutlierPenalty(priceMicros, medianPriceMicros int64) float64 {
	if medianPriceMicros <= 0 || priceMicros <= 0 {
		return 0
	}
	threshold := float64(medianPriceMicros) * pz.cfg.PriceOutlierMultiplier
	if float64(priceMicros) < threshold {
		return 0
	}
	excess := float64(priceMicros)/threshold - 1
	return clamp01(0.5 + 0.5*excess)
}

const (
	spamPenaltyAboveMedian = 0.8
	spamPenaltyAtOrBelow   = 0.3
)

// LowQualitySpamPenalty punishes low quality hard when paired with an
// above-median price, lightly otherwise. Quality at or above the floor is
// never penalized by this signal.
func (pz *Penalizer) LowQualitySpamPenalty(quality int32, priceMicros, medianPriceMicros int64) float64 {
	if quality >= pz.cfg.QualityFloor {
		return 0
	}
	if priceMicros > medianPriceMicros {
		return spamPenaltyAboveMedian
	}
	return spamPenaltyAtOrBelow
}

// RapidCreationPenalty decays linearly from 1.0 at creation to 0.0 at the
// end of the hold window. It blunts mint-many-listings wave farming.
func (pz *Penalizer) RapidCreationPenalty(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	if age >= pz.cfg.NewListingHoldWindow {
		return 0
	}
	return clamp01(1 - float64(age)/float64(pz.cfg.NewListingHoldWindow))
}
