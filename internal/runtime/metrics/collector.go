// Package metrics exports scheduler and connectable activity to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every collector unless another is given.
const DefaultNamespace = "rxflow"

// Collector counts scheduled work and shared connections. It satisfies both
// scheduler.Recorder and runtime.ConnectableRecorder.
type Collector struct {
	mu sync.RWMutex

	schedulers   map[string]*SchedulerStats
	connectables map[string]*ConnectableStats

	// Prometheus collectors
	actionsScheduled *prometheus.CounterVec
	actionsExecuted  *prometheus.CounterVec
	actionsCancelled *prometheus.CounterVec
	flushFailures    *prometheus.CounterVec
	connects         *prometheus.CounterVec
	disconnects      *prometheus.CounterVec
	subscribers      *prometheus.GaugeVec

	registerer prometheus.Registerer
	registered bool
}

// SchedulerStats holds the counters of one scheduler.
type SchedulerStats struct {
	Scheduled     uint64    `json:"scheduled"`
	Executed      uint64    `json:"executed"`
	Cancelled     uint64    `json:"cancelled"`
	FlushFailures uint64    `json:"flush_failures"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// ConnectableStats holds the counters of one connectable.
type ConnectableStats struct {
	Connects      uint64    `json:"connects"`
	Disconnects   uint64    `json:"disconnects"`
	Subscribers   int64     `json:"subscribers"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Schedulers   map[string]SchedulerStats   `json:"schedulers"`
	Connectables map[string]ConnectableStats `json:"connectables"`
	CollectedAt  time.Time                   `json:"collected_at"`
}

func newCounterVec(namespace, subsystem, name, help, label string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		[]string{label},
	)
}

// NewCollector creates a collector under namespace. A nil registerer uses
// prometheus.DefaultRegisterer.
func NewCollector(namespace string, registerer prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Collector{
		schedulers:       make(map[string]*SchedulerStats),
		connectables:     make(map[string]*ConnectableStats),
		registerer:       registerer,
		actionsScheduled: newCounterVec(namespace, "scheduler", "actions_scheduled_total", "Total number of actions scheduled", "scheduler"),
		actionsExecuted:  newCounterVec(namespace, "scheduler", "actions_executed_total", "Total number of actions executed successfully", "scheduler"),
		actionsCancelled: newCounterVec(namespace, "scheduler", "actions_cancelled_total", "Total number of queued actions cancelled by a failed flush", "scheduler"),
		flushFailures:    newCounterVec(namespace, "scheduler", "flush_failures_total", "Total number of flushes aborted by an action error", "scheduler"),
		connects:         newCounterVec(namespace, "connectable", "connects_total", "Total number of source connections", "connectable"),
		disconnects:      newCounterVec(namespace, "connectable", "disconnects_total", "Total number of source disconnections", "connectable"),
		subscribers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "connectable",
				Name:      "subscribers",
				Help:      "Current number of subscribers attached to a connectable",
			},
			[]string{"connectable"},
		),
	}
}

// Collectors lists the underlying Prometheus collectors.
func (c *Collector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.actionsScheduled,
		c.actionsExecuted,
		c.actionsCancelled,
		c.flushFailures,
		c.connects,
		c.disconnects,
		c.subscribers,
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}
	for _, col := range c.Collectors() {
		if err := c.registerer.Register(col); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	c.registered = true
	return nil
}

func (c *Collector) ActionScheduled(scheduler string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedulerStats(scheduler).Scheduled++
	c.actionsScheduled.WithLabelValues(scheduler).Inc()
}

func (c *Collector) ActionExecuted(scheduler string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedulerStats(scheduler).Executed++
	c.actionsExecuted.WithLabelValues(scheduler).Inc()
}

func (c *Collector) ActionsCancelled(scheduler string, n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedulerStats(scheduler).Cancelled += uint64(n)
	c.actionsCancelled.WithLabelValues(scheduler).Add(float64(n))
}

func (c *Collector) FlushFailed(scheduler string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedulerStats(scheduler).FlushFailures++
	c.flushFailures.WithLabelValues(scheduler).Inc()
}

func (c *Collector) Connected(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectableStats(name).Connects++
	c.connects.WithLabelValues(name).Inc()
}

func (c *Collector) Disconnected(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectableStats(name).Disconnects++
	c.disconnects.WithLabelValues(name).Inc()
}

func (c *Collector) SubscriberAdded(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.connectableStats(name)
	stats.Subscribers++
	c.subscribers.WithLabelValues(name).Set(float64(stats.Subscribers))
}

func (c *Collector) SubscriberRemoved(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.connectableStats(name)
	if stats.Subscribers > 0 {
		stats.Subscribers--
	}
	c.subscribers.WithLabelValues(name).Set(float64(stats.Subscribers))
}

// Snapshot returns a copy of every counter.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Schedulers:   make(map[string]SchedulerStats, len(c.schedulers)),
		Connectables: make(map[string]ConnectableStats, len(c.connectables)),
		CollectedAt:  time.Now(),
	}
	for name, s := range c.schedulers {
		snap.Schedulers[name] = *s
	}
	for name, s := range c.connectables {
		snap.Connectables[name] = *s
	}
	return snap
}

// Reset clears all counters (useful for testing).
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.schedulers = make(map[string]*SchedulerStats)
	c.connectables = make(map[string]*ConnectableStats)
	c.actionsScheduled.Reset()
	c.actionsExecuted.Reset()
	c.actionsCancelled.Reset()
	c.flushFailures.Reset()
	c.connects.Reset()
	c.disconnects.Reset()
	c.subscribers.Reset()
}

func (c *Collector) schedulerStats(name string) *SchedulerStats {
	stats, ok := c.schedulers[name]
	if !ok {
		stats = &SchedulerStats{}
		c.schedulers[name] = stats
	}
	stats.LastUpdatedAt = time.Now()
	return stats
}

func (c *Collector) connectableStats(name string) *ConnectableStats {
	stats, ok := c.connectables[name]
	if !ok {
		stats = &ConnectableStats{}
		c.connectables[name] = stats
	}
	stats.LastUpdatedAt = time.Now()
	return stats
}
