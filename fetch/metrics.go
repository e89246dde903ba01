package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fetchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threadview_fetch_requests",
	Help: "Upstream XRPC fetches, by kind and outcome",
}, []string{"kind", "status"})

var fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "threadview_fetch_duration",
	Help:    "Time to complete an upstream XRPC fetch",
	Buckets: prometheus.ExponentialBucketsRange(0.001, 30, 20),
}, []string{"kind", "status"})

var cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threadview_fetch_cache_hits",
	Help: "Number of cache hits for records and profiles",
}, []string{"kind"})

var cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threadview_fetch_cache_misses",
	Help: "Number of cache misses for records and profiles",
}, []string{"kind"})

var requestsCoalesced = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threadview_fetch_requests_coalesced",
	Help: "Number of fetches coalesced with an identical in-flight request",
}, []string{"kind"})
