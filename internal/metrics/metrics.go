// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var TweetResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_tweet_resolutions_total",
	Help: "Tweet media resolutions by result.",
}, []string{"result"})
var MediaItems = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_media_items_total",
	Help: "Media items returned, by media type.",
}, []string{"type"})
var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_cache_hits_total",
}, []string{"cache"})
var CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_cache_misses_total",
}, []string{"cache"})
var ManifestFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_manifest_files_total",
	Help: "Files handled during manifest traversal, by result.",
}, []string{"result"})
var Traversals = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_traversals_total",
	Help: "Manifest traversals by outcome.",
}, []string{"outcome"})
var TraversalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "inthistweet_traversal_duration_seconds",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
})
var ConvertJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_convert_jobs_total",
	Help: "Conversion jobs reaching a status.",
}, []string{"status"})
var HttpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "inthistweet_http_responses_total",
}, []string{"route", "method", "statusCode"})
var HttpResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "inthistweet_http_response_time_seconds",
}, []string{"route", "method"})

func init() {
	prometheus.MustRegister(TweetResolutions)
	prometheus.MustRegister(MediaItems)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ManifestFiles)
	prometheus.MustRegister(Traversals)
	prometheus.MustRegister(TraversalDuration)
	prometheus.MustRegister(ConvertJobs)
	prometheus.MustRegister(HttpResponses)
	prometheus.MustRegister(HttpResponseTime)
}
