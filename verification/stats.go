package verification

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var ErrFailedToRegisterStats = errors.New("failed to register stats collector")

type Stats struct {
	anchorWrites   *prometheus.CounterVec
	historyReads   *prometheus.CounterVec
	cacheHits      prometheus.Counter
	chainReachable prometheus.Gauge
}

func NewStats() (*Stats, error) {
	s := &Stats{
		anchorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ewaste_anchor_writes_total",
			Help: "Anchoring writes by kind and outcome",
		}, []string{"kind", "outcome"}),
		historyReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ewaste_history_reads_total",
			Help: "History reads by outcome",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ewaste_history_cache_hits_total",
			Help: "History reads served from the completed-history cache",
		}),
		chainReachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ewaste_chain_reachable",
			Help: "1 if the last connectivity check succeeded",
		}),
	}

	err := registerStats(s.anchorWrites, s.historyReads, s.cacheHits, s.chainReachable)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stats) UnregisterStats() {
	unregisterStats(s.anchorWrites, s.historyReads, s.cacheHits, s.chainReachable)
}

func (s *Stats) recordWrite(kind, outcome string) {
	if s == nil {
		return
	}
	s.anchorWrites.WithLabelValues(kind, outcome).Inc()
}

func (s *Stats) recordRead(outcome string) {
	if s == nil {
		return
	}
	s.historyReads.WithLabelValues(outcome).Inc()
}

func (s *Stats) recordCacheHit() {
	if s == nil {
		return
	}
	s.cacheHits.Inc()
}

func (s *Stats) recordPing(ok bool) {
	if s == nil {
		return
	}
	if ok {
		s.chainReachable.Set(1)
		return
	}
	s.chainReachable.Set(0)
}

func registerStats(cs ...prometheus.Collector) error {
	for _, c := range cs {
		err := prometheus.Register(c)
		if err != nil {
			return errors.Join(ErrFailedToRegisterStats, err)
		}
	}

	return nil
}

func unregisterStats(cs ...prometheus.Collector) {
	for _, c := range cs {
		_ = prometheus.Unregister(c)
	}
}
