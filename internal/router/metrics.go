package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var workItemsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_pool_items_added_total",
	Help: "Events queued on the worker pool",
}, []string{"pool"})

var workItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_pool_items_processed_total",
	Help: "Events handled by the worker pool",
}, []string{"pool"})

var workItemsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_pool_items_failed_total",
	Help: "Events whose handler returned an error",
}, []string{"pool"})

var workItemsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "anonrelay_pool_items_active",
	Help: "Events currently being handled",
}, []string{"pool"})

var workersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "anonrelay_pool_workers",
	Help: "Number of running pool workers",
}, []string{"pool"})

var droppedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_router_unrouted_total",
	Help: "Events with no registered handler",
}, []string{"type"})
