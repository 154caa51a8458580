package services

import "github.com/prometheus/client_golang/prometheus"

var (
	listingRequestsCounter  *prometheus.CounterVec
	degradedListingsCounter prometheus.Counter
	uploadsCounter          prometheus.Counter
	articlesGauge           prometheus.Gauge
	featuredGauge           prometheus.Gauge
	categoryGauge           *prometheus.GaugeVec
)

func init() {
	listingRequestsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "article_listing_requests_total",
			Help: "Total number of article listing requests.",
		},
		[]string{"filtered"},
	)
	degradedListingsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "article_listing_degraded_total",
			Help: "Total number of listings answered with an empty page because the store was unavailable.",
		},
	)
	uploadsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "article_image_uploads_total",
			Help: "Total number of uploaded images.",
		},
	)
	articlesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_total",
			Help: "Number of articles in the store at the last refresh.",
		},
	)
	featuredGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_featured",
			Help: "Number of featured articles at the last refresh.",
		},
	)
	categoryGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "articles_by_category",
			Help: "Number of articles per trimmed category at the last refresh.",
		},
		[]string{"category"},
	)
	prometheus.MustRegister(listingRequestsCounter, degradedListingsCounter, uploadsCounter,
		articlesGauge, featuredGauge, categoryGauge)
}
