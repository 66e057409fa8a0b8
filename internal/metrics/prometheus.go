// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"infradash/internal/database"
)

// Prometheus metrics
var (
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "infradash_store_operation_duration_seconds",
			Help:    "Time spent in document store operations, including file I/O",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infradash_store_operations_total",
			Help: "Total document store operations performed",
		},
		[]string{"collection", "operation", "status"},
	)

	StoreRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "infradash_store_recoveries_total",
			Help: "Number of times a corrupt store file was reset to seed data",
		},
	)

	StoreChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infradash_store_changes_total",
			Help: "Committed record changes",
		},
		[]string{"collection", "action"},
	)

	PortAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infradash_port_allocations_total",
			Help: "Port generation requests by outcome",
		},
		[]string{"outcome"},
	)

	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infradash_backups_total",
			Help: "Snapshot backups taken",
		},
		[]string{"status"},
	)

	Hosts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "infradash_hosts",
			Help: "Number of hosts in the store",
		},
	)

	Services = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "infradash_services",
			Help: "Number of services in the store",
		},
		[]string{"state"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "infradash_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// Source is the part of the store the collector reads counts from.
type Source interface {
	Hosts() *database.HostCollection
	Services() *database.ServiceCollection
}

// Collector records store, allocator and websocket metrics. It satisfies
// database.Observer and ports.Recorder.
type Collector struct {
	mu     sync.RWMutex
	source Source
}

func NewCollector() *Collector {
	return &Collector{}
}

// Attach sets the store counted by UpdateSystemMetrics. The store is
// usually opened with the collector as its observer, hence the two steps.
func (c *Collector) Attach(src Source) {
	c.mu.Lock()
	c.source = src
	c.mu.Unlock()
}

func (c *Collector) ObserveOp(collection, op string, elapsed time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(collection, op).Observe(elapsed.Seconds())
	StoreOperations.WithLabelValues(collection, op, getStatusLabel(err)).Inc()
}

func (c *Collector) ObserveRecovery(path string, cause error) {
	StoreRecoveries.Inc()
}

func (c *Collector) RecordChange(ch database.Change) {
	StoreChanges.WithLabelValues(ch.Collection, ch.Action).Inc()
}

func (c *Collector) RecordAllocation(outcome string) {
	PortAllocations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordBackup(err error) {
	BackupsTotal.WithLabelValues(getStatusLabel(err)).Inc()
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}

// UpdateSystemMetrics refreshes the record count gauges.
func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
	c.mu.RLock()
	src := c.source
	c.mu.RUnlock()
	if src == nil {
		return errors.New("metrics collector has no store attached")
	}

	hosts, err := src.Hosts().Count(ctx, nil)
	if err != nil {
		return err
	}
	Hosts.Set(float64(hosts))

	total, err := src.Services().Count(ctx, nil)
	if err != nil {
		return err
	}
	active, err := src.Services().Count(ctx, database.Where{database.Eq("isActive", true)})
	if err != nil {
		return err
	}
	Services.WithLabelValues("active").Set(float64(active))
	Services.WithLabelValues("inactive").Set(float64(total - active))

	return nil
}

// Run refreshes the gauges every interval until ctx is done.
func (c *Collector) Run(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.UpdateSystemMetrics(ctx); err != nil && onError != nil && ctx.Err() == nil {
			onError(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func getStatusLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "error"
}
