package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TokenExchangesTotal counts client-credentials exchanges by result (success, rejected, error).
	TokenExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oemgateway_token_exchanges_total",
			Help: "Total number of OAuth2 client-credentials exchanges against the OEM identity provider.",
		},
		[]string{"result"},
	)

	// TokenCacheHitsTotal counts token requests served from the cache.
	TokenCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oemgateway_token_cache_hits_total",
			Help: "Total number of bearer token requests served from the in-memory cache.",
		},
	)

	// VendorRequestsTotal counts single vendor GET attempts by HTTP status ("0" for transport failures).
	VendorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oemgateway_vendor_requests_total",
			Help: "Total number of HTTP requests issued to the OEM telemetry API.",
		},
		[]string{"status"},
	)

	// RetriesTotal counts backoff sleeps taken before re-attempting a vendor call.
	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oemgateway_vendor_retries_total",
			Help: "Total number of retries scheduled after retriable vendor failures.",
		},
	)

	// DispatchTotal counts dispatcher invocations by method and response status.
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oemgateway_dispatch_total",
			Help: "Total number of gateway dispatch calls.",
		},
		[]string{"method", "status"},
	)

	// DispatchLatency observes end to end dispatch latency.
	DispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oemgateway_dispatch_latency_seconds",
			Help:    "Latency of gateway dispatch calls including vendor round trips.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		TokenExchangesTotal,
		TokenCacheHitsTotal,
		VendorRequestsTotal,
		RetriesTotal,
		DispatchTotal,
		DispatchLatency,
	)
}

// StatusLabel renders an HTTP status for use as a label value.
func StatusLabel(status int) string {
	return strconv.Itoa(status)
}
