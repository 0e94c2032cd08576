package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uploads_total",
		Help: "Uploads handled, partitioned by kind (image/file) and result.",
	}, []string{"kind", "result"})

	DeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_deletes_total",
		Help: "Delete requests, partitioned by result.",
	}, []string{"result"})

	TranscodeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "media_transcode_duration_seconds",
		Help:    "Wall time spent in the size-bounded transcoder.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
