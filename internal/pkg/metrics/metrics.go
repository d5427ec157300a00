package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "knowledge_base"

var (
	DocumentsUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "documents_uploaded_total", Help: "Number of document uploads by file type and outcome."},
		[]string{"file_type", "outcome"},
	)
	ChunksIngested = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "chunks_ingested_total", Help: "Number of text chunks written to the vector store."},
	)
	Queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "queries_total", Help: "Number of questions by outcome."},
		[]string{"outcome"},
	)
	LLMLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: namespace, Name: "llm_request_seconds", Help: "Latency of answer generation calls.", Buckets: prometheus.ExponentialBuckets(0.25, 2, 10)},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of requests rejected by the rate limiter."},
		[]string{"route"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(DocumentsUploaded)
	reg.MustRegister(ChunksIngested)
	reg.MustRegister(Queries)
	reg.MustRegister(LLMLatency)
	reg.MustRegister(RateLimitRejected)
}
