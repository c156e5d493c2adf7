package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWavesDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/waves" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "3" {
			t.Fatalf("unexpected limit %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"waves":[{"wave_id":"w1","spent_credits":42.5,"items_purchased":7,"successful_purchases":2}]}`))
	}))
	defer srv.Close()

	waves, err := NewClient(srv.URL).Waves(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waves) != 1 {
		t.Fatalf("expected 1 wave, got %d", len(waves))
	}
	w := waves[0]
	if w.WaveID != "w1" || w.SpentCredits != 42.5 || w.ItemsPurchased != 7 || w.SuccessfulPurchases != 2 {
		t.Fatalf("bad decode: %+v", w)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no completed waves"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).LatestWave(context.Background()); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestHealthy(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer healthy.Close()

	if err := NewClient(healthy.URL).Healthy(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if err := NewClient(down.URL).Healthy(context.Background()); err == nil {
		t.Fatal("expected an error for an unhealthy endpoint")
	}
}

func TestClientTrimsTrailingSlash(t *testing.T) {
	c := NewClient("http://localhost:8080/")
	if c.BaseURL != "http://localhost:8080" {
		t.Fatalf("base url not trimmed: %q", c.BaseURL)
	}
}
