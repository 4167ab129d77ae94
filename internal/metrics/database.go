package metrics

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the subset of *pgxpool.Stat read at scrape time.
type PoolStats interface {
	TotalConns() int32
	AcquiredConns() int32
	IdleConns() int32
	MaxConns() int32
	EmptyAcquireCount() int64
	AcquireDuration() time.Duration
}

// PoolCollector reports connection pool gauges on every scrape, so the
// values never lag behind the pool.
type PoolCollector struct {
	stat func() PoolStats

	open, inUse, idle, maxOpen *prometheus.Desc
	emptyAcquires, acquireWait *prometheus.Desc
}

func NewPoolCollector(stat func() PoolStats) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", name), help, nil, nil)
	}
	return &PoolCollector{
		stat:          stat,
		open:          desc("connections_open", "Open database connections"),
		inUse:         desc("connections_in_use", "Database connections currently acquired"),
		idle:          desc("connections_idle", "Idle database connections"),
		maxOpen:       desc("connections_max_open", "Configured maximum database connections (pool_size + max_overflow)"),
		emptyAcquires: desc("acquire_waits_total", "Acquires that had to wait for a free connection"),
		acquireWait:   desc("acquire_wait_seconds_total", "Cumulative time spent acquiring connections"),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.open, c.inUse, c.idle, c.maxOpen, c.emptyAcquires, c.acquireWait} {
		ch <- d
	}
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.stat == nil {
		return
	}
	s := c.stat()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.maxOpen, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireWait, prometheus.CounterValue, s.AcquireDuration().Seconds())
}

// RegisterPool exposes pool statistics on Registry. The returned func removes them.
func RegisterPool(pool *pgxpool.Pool) (func(), error) {
	collector := NewPoolCollector(func() PoolStats { return pool.Stat() })
	if err := Registry.Register(collector); err != nil {
		return nil, err
	}
	return func() { Registry.Unregister(collector) }, nil
}
