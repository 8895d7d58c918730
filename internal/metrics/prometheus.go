package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nba_rag_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_rag_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"endpoint", "status"},
	)

	IndexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nba_rag_index_documents",
			Help: "Documents currently held in the semantic index",
		},
	)

	IndexBuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_rag_index_builds_total",
			Help: "Total semantic index builds",
		},
	)

	StatsSourceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_rag_stats_source_requests_total",
			Help: "Requests issued to the external stats source",
		},
		[]string{"status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_rag_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_rag_embedding_cache_hits_total",
			Help: "Embedding cache hits",
		},
	)

	EmbeddingCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_rag_embedding_cache_misses_total",
			Help: "Embedding cache misses",
		},
	)

	IntentFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_rag_intent_fallbacks_total",
			Help: "Queries that degraded to the default intent",
		},
	)

	RecordsScraped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_rag_records_scraped_total",
			Help: "Raw records upserted by the scraper",
		},
		[]string{"kind"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(IndexDocuments)
	prometheus.MustRegister(IndexBuilds)
	prometheus.MustRegister(StatsSourceRequests)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(EmbeddingCacheHits)
	prometheus.MustRegister(EmbeddingCacheMisses)
	prometheus.MustRegister(IntentFallbacks)
	prometheus.MustRegister(RecordsScraped)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
