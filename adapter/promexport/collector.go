// Package promexport exposes xevents bus telemetry as Prometheus metrics.
package promexport

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trickstertwo/xevents"
)

// Source is the part of *xevents.Bus the collector reads.
type Source interface {
	GetMetrics() xevents.Metrics
	DebugInfo() xevents.DebugInfo
	Health(ctx context.Context) xevents.HealthStatus
}

var _ Source = (*xevents.Bus)(nil)

var healthStates = []string{"healthy", "degraded", "unhealthy"}

// Collector implements prometheus.Collector over a bus. Values are read at
// scrape time; nothing is cached between scrapes.
type Collector struct {
	src   Source
	descs map[string]*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector whose metric names start with namespace
// (default "xevents").
func NewCollector(src Source, namespace string) *Collector {
	if namespace == "" {
		namespace = "xevents"
	}
	name := func(n string) string { return prometheus.BuildFQName(namespace, "bus", n) }

	return &Collector{
		src: src,
		descs: map[string]*prometheus.Desc{
			"emitted":        prometheus.NewDesc(name("emitted_total"), "Emissions that passed validation", nil, nil),
			"delivered":      prometheus.NewDesc(name("delivered_total"), "Handler invocations that returned without error", nil, nil),
			"rejected":       prometheus.NewDesc(name("rejected_total"), "Emissions rejected by a schema", nil, nil),
			"failures":       prometheus.NewDesc(name("handler_failures_total"), "Handler invocations that failed or panicked", nil, nil),
			"panics":         prometheus.NewDesc(name("handler_panics_total"), "Handler invocations that panicked", nil, nil),
			"no_subscribers": prometheus.NewDesc(name("no_subscribers_total"), "Emissions with no registered handler", nil, nil),
			"dropped":        prometheus.NewDesc(name("observer_events_dropped_total"), "Observer notifications dropped by a full pool", nil, nil),
			"handler_time":   prometheus.NewDesc(name("handler_duration_avg_seconds"), "Moving average of handler duration", nil, nil),
			"subscribers":    prometheus.NewDesc(name("subscribers"), "Registered handlers per event name", []string{"event"}, nil),
			"events":         prometheus.NewDesc(name("active_events"), "Event names with at least one handler", nil, nil),
			"history":        prometheus.NewDesc(name("history_entries"), "Entries held in the emission history", nil, nil),
			"history_max":    prometheus.NewDesc(name("history_capacity"), "Maximum entries the emission history keeps", nil, nil),
			"health":         prometheus.NewDesc(name("health_status"), "1 for the current health status, 0 otherwise", []string{"status"}, nil),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.descs {
		ch <- desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.GetMetrics()
	counter := func(key string, v uint64) {
		ch <- prometheus.MustNewConstMetric(c.descs[key], prometheus.CounterValue, float64(v))
	}
	counter("emitted", m.Emitted)
	counter("delivered", m.Delivered)
	counter("rejected", m.Rejected)
	counter("failures", m.HandlerFailures)
	counter("panics", m.HandlerPanics)
	counter("no_subscribers", m.NoSubscribers)
	counter("dropped", m.EventsDropped)
	ch <- prometheus.MustNewConstMetric(c.descs["handler_time"], prometheus.GaugeValue, m.AvgHandlerTimeMs/1000.0)

	info := c.src.DebugInfo()
	for event, n := range info.Events {
		ch <- prometheus.MustNewConstMetric(c.descs["subscribers"], prometheus.GaugeValue, float64(n), event)
	}
	ch <- prometheus.MustNewConstMetric(c.descs["events"], prometheus.GaugeValue, float64(info.TotalEvents))
	ch <- prometheus.MustNewConstMetric(c.descs["history"], prometheus.GaugeValue, float64(info.HistorySize))
	ch <- prometheus.MustNewConstMetric(c.descs["history_max"], prometheus.GaugeValue, float64(info.MaxHistory))

	status := c.src.Health(context.Background()).Status
	for _, s := range healthStates {
		var v float64
		if s == status {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.descs["health"], prometheus.GaugeValue, v, s)
	}
}

// Register builds a collector for src and registers it with reg.
func Register(reg prometheus.Registerer, src Source, namespace string) (*Collector, error) {
	c := NewCollector(src, namespace)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
