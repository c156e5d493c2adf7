// Package cli is the HTTP client for the demand engine's read-only API,
// used by marketctl when an API endpoint is configured instead of a direct
// database connection.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NextWave mirrors the /v1/waves/next response.
type NextWave struct {
	LastWaveAt *time.Time `json:"last_wave_at"`
	NextWaveAt time.Time  `json:"next_wave_at"`
	Interval   string     `json:"interval"`
}

// WaveSummary mirrors the wave view served by /v1/waves.
type WaveSummary struct {
	WaveID              string    `json:"wave_id"`
	StartedAt           time.Time `json:"started_at"`
	CompletedAt         time.Time `json:"completed_at"`
	SpentCredits        float64   `json:"spent_credits"`
	ItemsPurchased      int64     `json:"items_purchased"`
	DistinctProducts    int       `json:"distinct_products"`
	DistinctCompanies   int       `json:"distinct_companies"`
	CandidatesEvaluated int       `json:"candidates_evaluated"`
	CandidatesFiltered  int       `json:"candidates_filtered"`
	PlannedPurchases    int       `json:"planned_purchases"`
	SuccessfulPurchases int       `json:"successful_purchases"`
	FailedPurchases     int       `json:"failed_purchases"`
	Errors              []string  `json:"errors"`
}

func (c *Client) NextWave(ctx context.Context) (NextWave, error) {
	var out NextWave
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/waves/next", &out)
	return out, err
}

func (c *Client) LatestWave(ctx context.Context) (WaveSummary, error) {
	var out WaveSummary
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/waves/latest", &out)
	return out, err
}

func (c *Client) Waves(ctx context.Context, limit int) ([]WaveSummary, error) {
	var out struct {
		Waves []WaveSummary `json:"waves"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/waves?limit=%d", limit), &out)
	return out.Waves, err
}

func (c *Client) Healthy(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
