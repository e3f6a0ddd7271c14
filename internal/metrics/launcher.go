// Package metrics provides Prometheus metrics for process launchers.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/procspawn/internal/process"
)

// Exit outcomes used for the outcome label.
const (
	OutcomeOK     = "ok"
	OutcomeCode   = "nonzero"
	OutcomeStderr = "stderr"
	OutcomeSignal = "signal"
)

// LauncherStats holds current counter values for one binary.
type LauncherStats struct {
	Spawned       float64
	Exited        float64
	Killed        float64
	SpawnFailures float64
	Live          float64
}

// Collector records launcher lifecycle metrics. It implements
// process.Observer.
type Collector struct {
	spawned  *prometheus.CounterVec
	exited   *prometheus.CounterVec
	killed   *prometheus.CounterVec
	failures *prometheus.CounterVec
	live     *prometheus.GaugeVec

	// Local cache for CLI summaries.
	mu    sync.RWMutex
	stats map[string]*LauncherStats
}

// NewCollector registers launcher metrics with reg.
// A nil reg selects prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		spawned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "procspawn",
			Subsystem: "launcher",
			Name:      "spawned_total",
			Help:      "Total child processes started",
		}, []string{"binary"}),
		exited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "procspawn",
			Subsystem: "launcher",
			Name:      "exited_total",
			Help:      "Total child processes that completed, by outcome",
		}, []string{"binary", "outcome"}),
		killed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "procspawn",
			Subsystem: "launcher",
			Name:      "killed_total",
			Help:      "Total termination signals sent by Kill",
		}, []string{"binary"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "procspawn",
			Subsystem: "launcher",
			Name:      "spawn_failures_total",
			Help:      "Total children that could not be started",
		}, []string{"binary", "reason"}),
		live: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "procspawn",
			Subsystem: "launcher",
			Name:      "live",
			Help:      "Children currently running",
		}, []string{"binary"}),
		stats: make(map[string]*LauncherStats),
	}
}

// ProcessStarted implements process.Observer.
func (c *Collector) ProcessStarted(info process.StartInfo) {
	c.spawned.WithLabelValues(info.Binary).Inc()
	c.live.WithLabelValues(info.Binary).Inc()
	c.update(info.Binary, func(s *LauncherStats) {
		s.Spawned++
		s.Live++
	})
}

// ProcessExited implements process.Observer.
func (c *Collector) ProcessExited(info process.ExitInfo) {
	c.exited.WithLabelValues(info.Binary, Outcome(info.Result)).Inc()
	c.live.WithLabelValues(info.Binary).Dec()
	c.update(info.Binary, func(s *LauncherStats) {
		s.Exited++
		s.Live--
	})
}

// ProcessKilled implements process.Observer. Only delivered signals count.
func (c *Collector) ProcessKilled(info process.KillInfo) {
	if info.Err != nil {
		return
	}
	c.killed.WithLabelValues(info.Binary).Inc()
	c.update(info.Binary, func(s *LauncherStats) { s.Killed++ })
}

// SpawnFailed implements process.Observer.
func (c *Collector) SpawnFailed(info process.FailInfo) {
	c.failures.WithLabelValues(info.Binary, info.Err.Reason()).Inc()
	c.update(info.Binary, func(s *LauncherStats) { s.SpawnFailures++ })
}

// Stats returns current values for binary, or nil if nothing was recorded.
func (c *Collector) Stats(binary string) *LauncherStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.stats[binary]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// Reset drops all series and cached values for binary.
func (c *Collector) Reset(binary string) {
	c.spawned.DeleteLabelValues(binary)
	c.killed.DeleteLabelValues(binary)
	c.live.DeleteLabelValues(binary)
	c.exited.DeletePartialMatch(prometheus.Labels{"binary": binary})
	c.failures.DeletePartialMatch(prometheus.Labels{"binary": binary})

	c.mu.Lock()
	delete(c.stats, binary)
	c.mu.Unlock()
}

func (c *Collector) update(binary string, fn func(*LauncherStats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[binary]
	if !ok {
		s = &LauncherStats{}
		c.stats[binary] = s
	}
	fn(s)
}

// Outcome classifies a completed run for the outcome label.
func Outcome(res process.Result) string {
	var stderrErr *process.StderrError
	switch {
	case errors.As(res.Err, &stderrErr):
		return OutcomeStderr
	case res.Code < 0:
		return OutcomeSignal
	case res.Code != 0:
		return OutcomeCode
	default:
		return OutcomeOK
	}
}
