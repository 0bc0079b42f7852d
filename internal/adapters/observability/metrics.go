package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "scout", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scout", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ScrapeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "scout", Name: "scrape_operations_total", Help: "Scrape operations against third-party surfaces."},
		[]string{"surface", "outcome"}, // outcome: found|empty|error
	)
	ScrapeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scout", Name: "scrape_duration_seconds",
			Help:    "Scrape operation duration seconds.",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"surface"},
	)
	Candidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "scout", Name: "pipeline_candidates_total", Help: "Candidates leaving the pipeline, by terminal state."},
		[]string{"state"}, // state: confirmed|uncertain|skipped|failed
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "scout", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"},
	)
	BrowserPages = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "scout", Name: "browser_pages_open", Help: "Pages currently open against the shared browser."},
	)
)

// Serve starts the standalone metrics listener when METRICS_ADDR is set.
func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ScrapeOps, ScrapeLatency, Candidates, CacheEvents, BrowserPages)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveScrape records one lookup against a third-party surface.
// outcome: found|empty|error.
func ObserveScrape(surface, outcome string, dur time.Duration) {
	ScrapeOps.WithLabelValues(surface, outcome).Inc()
	ScrapeLatency.WithLabelValues(surface).Observe(dur.Seconds())
}

func ObserveCandidate(state string) {
	Candidates.WithLabelValues(state).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
