package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP请求指标
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "embedding_service_http_requests_total",
		Help: "Total HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "embedding_service_http_request_duration_seconds",
		Help:    "HTTP request latency by endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// 嵌入生成指标
var (
	EmbeddingsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_service_embeddings_generated_total",
		Help: "Total embeddings generated by the model",
	})

	EmbeddingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "embedding_service_generation_duration_seconds",
		Help:    "Embedding generation latency per batch",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_service_cache_hits_total",
		Help: "Embedding cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_service_cache_misses_total",
		Help: "Embedding cache misses",
	})
)

// 文档处理指标
var (
	DocumentsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "embedding_service_documents_processed_total",
		Help: "Documents processed by outcome",
	}, []string{"status"})

	ChunksStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_service_chunks_stored_total",
		Help: "Chunks persisted to the relational store",
	})

	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_service_searches_total",
		Help: "Vector similarity searches executed",
	})
)

// Handler 返回默认注册表的Prometheus处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
