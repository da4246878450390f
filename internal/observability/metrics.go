package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dmsync_api_request_duration_seconds",
			Help:    "Duration of outgoing collaborator API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "outcome"},
	)

	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmsync_sends_total",
			Help: "Optimistic sends by message kind and final outcome",
		},
		[]string{"kind", "outcome"},
	)

	UploadFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmsync_upload_failures_total",
			Help: "Upload failures by phase",
		},
		[]string{"phase"},
	)

	PollTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmsync_poll_ticks_total",
			Help: "Poll sync ticks by result",
		},
		[]string{"result"},
	)

	HistoryPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmsync_history_pages_total",
			Help: "History page loads by result",
		},
		[]string{"result"},
	)

	MergedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmsync_merged_messages_total",
			Help: "Messages added to the message store by merge origin",
		},
		[]string{"origin"},
	)
)
