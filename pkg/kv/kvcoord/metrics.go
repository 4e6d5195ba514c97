package kvcoord

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the router/batch engine's Prometheus surface, grounded on
// ZhenyuePan-NyxDB's internal/observability/metrics/cluster_metrics.go
// (promauto.With(registerer).NewCounter/NewHistogram pattern).
type Metrics struct {
	RPCSent       prometheus.Counter
	RPCRetries    *prometheus.CounterVec
	RPCLatency    prometheus.Histogram
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheEvicts   prometheus.Counter
	BatchSubsizes prometheus.Histogram
}

// NewMetrics registers the SDK's metrics on reg (prometheus.DefaultRegisterer
// if nil) under the given namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "dingostore_client"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	builder := promauto.With(reg)
	return &Metrics{
		RPCSent: builder.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_sent_total",
			Help:      "Number of store RPCs sent, across all attempts.",
		}),
		RPCRetries: builder.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_retries_total",
			Help:      "Number of store RPC retries, labeled by reason.",
		}, []string{"reason"}),
		RPCLatency: builder.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_latency_seconds",
			Help:      "End-to-end latency of a single RpcController.Call, including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheHits: builder.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meta_cache_hits_total",
			Help:      "Number of meta cache lookups served without a coordinator round trip.",
		}),
		CacheMisses: builder.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meta_cache_misses_total",
			Help:      "Number of meta cache lookups that required a coordinator refresh.",
		}),
		CacheEvicts: builder.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meta_cache_evictions_total",
			Help:      "Number of cached regions evicted due to staleness or overlap.",
		}),
		BatchSubsizes: builder.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_subrequest_size",
			Help:      "Number of payload items routed to a single region within a batch call.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),
	}
}

// noopMetrics backs Controller/MetaCache when the caller doesn't want a
// Prometheus registry (e.g. in unit tests); all of its counters exist but
// are never registered anywhere so they're safe to use unconditionally.
func noopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "dingostore_client_test")
}
