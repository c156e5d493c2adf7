package market

import (
	"fmt"
	"math"
	mathrand "math/rand"
)

// Scorer blends normalized features and the penalty discount into one final
// [0,1] score and a purchase probability.
type Scorer struct {
	cfg  Config
	rand *mathrand.Rand
}

// NewScorer validates the weight set and seeds the noise source. A zero seed
// disables noise entirely so scoring runs are reproducible.
func NewScorer(cfg Config) (*Scorer, error) {
	if sum := cfg.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return nil, fmt.Errorf("%w: scoring weights sum to %.12f, want 1.0", ErrInvalidConfig, sum)
	}
	s := &Scorer{cfg: cfg}
	if cfg.NoiseSeed != 0 && cfg.NoiseMagnitude > 0 {
		s.rand = mathrand.New(mathrand.NewSource(cfg.NoiseSeed))
	}
	return s, nil
}

// Score computes the final composite score and purchase probability for one
// product from its features and penalties.
func (s *Scorer) Score(f NormalizedFeatures, p AntiExploitPenalties) (finalScore, purchaseProbability float64) {
	w := s.cfg.Weights
	base := w.Quality*f.Quality +
		w.Price*f.Price +
		w.Demand*f.Demand +
		w.Company*f.Company +
		w.Recency*f.Recency

	discounted := base * (1 - clamp01(p.Combined))

	// Small symmetric multiplicative noise breaks ties between waves when
	// inputs are static.
	noisy := discounted
	if s.rand != nil {
		noisy *= 1 + s.cfg.NoiseMagnitude*(2*s.rand.Float64()-1)
	}
	finalScore = clamp01(noisy)

	// Sharpened probability curve: mid-tier products are suppressed relative
	// to top-tier ones.
	purchaseProbability = clamp(math.Pow(finalScore, s.cfg.ScoreSharpness), s.cfg.MinPurchaseProbability, 1)
	return finalScore, purchaseProbability
}
