package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"demandwave/internal/config"
	"demandwave/internal/market"
)

// Server exposes the read-only operational surface of the demand engine:
// next-wave scheduling, wave history, and Prometheus metrics. It never
// triggers a wave itself.
type Server struct {
	cfg   config.APIConfig
	log   *slog.Logger
	state market.WaveState
	mux   *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, state market.WaveState) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:   cfg,
		log:   logger,
		state: state,
		mux:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/waves/next", s.handleNextWave)
		r.Get("/waves/latest", s.handleLatestWave)
		r.Get("/waves", s.handleWaveHistory)
	})
}

type nextWaveResponse struct {
	LastWaveAt *time.Time `json:"last_wave_at,omitempty"`
	NextWaveAt time.Time  `json:"next_wave_at"`
	Interval   string     `json:"interval"`
}

// handleNextWave computes the next scheduled wave from the last persisted
// completion time plus the fixed interval, without touching the pipeline.
func (s *Server) handleNextWave(w http.ResponseWriter, r *http.Request) {
	last, found, err := s.state.LastWaveAt(r.Context())
	if err != nil {
		s.log.Error("read last wave time", "err", err)
		writeError(w, http.StatusInternalServerError, "wave state unavailable")
		return
	}
	resp := nextWaveResponse{Interval: s.cfg.WaveEvery.String()}
	if found {
		resp.LastWaveAt = &last
		resp.NextWaveAt = last.Add(s.cfg.WaveEvery)
	} else {
		resp.NextWaveAt = time.Now().Add(s.cfg.WaveEvery)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestWave(w http.ResponseWriter, r *http.Request) {
	waves, err := s.state.RecentWaves(r.Context(), 1)
	if err != nil {
		s.log.Error("read latest wave", "err", err)
		writeError(w, http.StatusInternalServerError, "wave history unavailable")
		return
	}
	if len(waves) == 0 {
		writeError(w, http.StatusNotFound, "no completed waves")
		return
	}
	writeJSON(w, http.StatusOK, waveView(waves[0]))
}

func (s *Server) handleWaveHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be in [1,200]")
			return
		}
		limit = n
	}
	waves, err := s.state.RecentWaves(r.Context(), limit)
	if err != nil {
		s.log.Error("read wave history", "err", err)
		writeError(w, http.StatusInternalServerError, "wave history unavailable")
		return
	}
	out := make([]map[string]any, 0, len(waves))
	for _, m := range waves {
		out = append(out, waveView(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"waves": out})
}

func waveView(m market.WaveMetrics) map[string]any {
	return map[string]any{
		"wave_id":              m.WaveID,
		"started_at":           m.StartedAt,
		"completed_at":         m.CompletedAt,
		"spent_credits":        market.MicrosToCredits(m.TotalSpentMicros),
		"items_purchased":      m.ItemsPurchased,
		"distinct_products":    m.DistinctProducts,
		"distinct_companies":   m.DistinctCompanies,
		"candidates_evaluated": m.CandidatesEvaluated,
		"candidates_filtered":  m.CandidatesFiltered,
		"planned_purchases":    m.PlannedPurchases,
		"successful_purchases": m.SuccessfulPurchases,
		"failed_purchases":     m.FailedPurchases,
		"errors":               m.Errors,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
