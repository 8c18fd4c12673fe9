package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ApplicationMetrics tracks domain-specific metrics (catalog activity, design
// autosave behavior, account lifecycle)
type ApplicationMetrics struct {
	// Catalog activity
	ProductsCreated prometheus.CounterVec
	ReviewsCreated  prometheus.CounterVec
	FavoritesTotal  prometheus.CounterVec
	CartOperations  prometheus.CounterVec

	// Design studio autosave
	DesignSavesTotal     prometheus.CounterVec
	DesignSaveConflicts  prometheus.CounterVec
	DesignSaveRetries    prometheus.CounterVec
	DesignPublishesTotal prometheus.CounterVec

	// Account lifecycle
	AccountWithdrawals prometheus.CounterVec

	// Validation metrics
	ValidationFailures prometheus.CounterVec

	// Realtime
	RealtimeConnections prometheus.GaugeVec
	RealtimeMessages    prometheus.CounterVec
}

var (
	appInstance *ApplicationMetrics
	appOnce     sync.Once
)

// App returns the application metrics singleton, registering on first use
func App() *ApplicationMetrics {
	appOnce.Do(func() {
		appInstance = newApplicationMetrics()
	})
	return appInstance
}

// InitializeApplicationMetrics creates and registers all application metrics
func InitializeApplicationMetrics() *ApplicationMetrics {
	return App()
}

func newApplicationMetrics() *ApplicationMetrics {
	return &ApplicationMetrics{
		ProductsCreated: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "products_created_total",
				Help: "Total number of products created",
			},
			[]string{"category"},
		),
		ReviewsCreated: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_created_total",
				Help: "Total number of reviews created",
			},
			[]string{"rating"},
		),
		FavoritesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "favorites_total",
				Help: "Total favorite/unfavorite operations",
			},
			[]string{"action"},
		),
		CartOperations: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_operations_total",
				Help: "Total cart add/update/remove operations",
			},
			[]string{"action"},
		),

		// Autosave metrics labeled by strategy so the save cadence of
		// debounce vs interval editing is visible in Grafana
		DesignSavesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "design_saves_total",
				Help: "Total design autosave attempts",
			},
			[]string{"strategy", "status"},
		),
		DesignSaveConflicts: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "design_save_conflicts_total",
				Help: "Total design saves that detected a concurrent edit",
			},
			[]string{"strategy"},
		),
		DesignSaveRetries: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "design_save_retries_total",
				Help: "Total design save retry attempts",
			},
			[]string{"attempt"},
		),
		DesignPublishesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "design_publishes_total",
				Help: "Total design publishes",
			},
			[]string{"status"},
		),

		AccountWithdrawals: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_withdrawals_total",
				Help: "Total account withdrawals",
			},
			[]string{"had_store"},
		),

		ValidationFailures: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validation_failures_total",
				Help: "Total validation failures",
			},
			[]string{"field", "reason"},
		),

		RealtimeConnections: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realtime_connections",
				Help: "Number of currently connected realtime clients",
			},
			[]string{},
		),
		RealtimeMessages: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_messages_total",
				Help: "Total realtime messages broadcast",
			},
			[]string{"event"},
		),
	}
}
