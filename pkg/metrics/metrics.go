package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "electrocare_http_request_duration_seconds",
		Help:    "Latency of HTTP handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	RepairTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electrocare_repair_transitions_total",
		Help: "Repair status changes by resulting status",
	}, []string{"status"})

	WalletOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electrocare_wallet_operations_total",
		Help: "Completed wallet mutations by operation",
	}, []string{"operation"})

	ListingReviews = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electrocare_listing_reviews_total",
		Help: "Marketplace listing and purchase review decisions",
	}, []string{"decision"})

	RoleApplications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electrocare_role_applications_total",
		Help: "Role application submissions and decisions",
	}, []string{"decision"})

	RealtimeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electrocare_realtime_events_total",
		Help: "Realtime events published by type",
	}, []string{"type"})

	RealtimeDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "electrocare_realtime_dropped_total",
		Help: "Realtime messages dropped because a client buffer was full",
	})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestDuration,
			RepairTransitions,
			WalletOperations,
			ListingReviews,
			RoleApplications,
			RealtimeEvents,
			RealtimeDropped,
		)
	})
}
