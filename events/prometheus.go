package events

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus translates the event stream into metrics on a Prometheus
// registry: call and failure counters, fault and stream-cut counters, and a
// call latency histogram. Labels follow the event fields (provider, fault
// kind) so dashboards can slice by them.
type Prometheus struct {
	calls      *prometheus.CounterVec
	failures   *prometheus.CounterVec
	faults     *prometheus.CounterVec
	streamCuts prometheus.Counter
	latency    *prometheus.HistogramVec
	ttft       prometheus.Histogram
}

// NewPrometheus registers the harness metrics on reg. Pass
// prometheus.DefaultRegisterer to expose them on the process registry.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaos_calls_total",
				Help: "Total number of provider calls observed",
			},
			[]string{"provider"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaos_call_failures_total",
				Help: "Total number of failed provider calls",
			},
			[]string{"provider"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaos_faults_injected_total",
				Help: "Total number of faults injected, by kind",
			},
			[]string{"kind"},
		),
		streamCuts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chaos_stream_cuts_total",
				Help: "Total number of streams terminated mid-flight",
			},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chaos_call_duration_seconds",
				Help:    "Provider call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		ttft: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chaos_ttft_seconds",
				Help:    "Time to first token for streaming calls",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	for _, c := range []prometheus.Collector{
		p.calls, p.failures, p.faults, p.streamCuts, p.latency, p.ttft,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Emit(e Event) error {
	switch e.Type {
	case TypeCallEnd:
		p.calls.WithLabelValues(e.Provider).Inc()
		if e.Success != nil && !*e.Success {
			p.failures.WithLabelValues(e.Provider).Inc()
		}
		p.latency.WithLabelValues(e.Provider).Observe(e.DurationMS / 1000)
	case TypeFaultInjected:
		p.faults.WithLabelValues(e.FaultKind).Inc()
	case TypeStreamCut:
		p.streamCuts.Inc()
	case TypeTTFT:
		p.ttft.Observe(e.DurationMS / 1000)
	}
	return nil
}

func (p *Prometheus) Close() error { return nil }
