package metrics

import "github.com/prometheus/client_golang/prometheus"

type registerer struct {
	prometheus.Registerer
}

func (r registerer) counter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = namespace
	counter := prometheus.NewCounter(opts)
	r.MustRegister(counter)
	return counter
}

func (r registerer) counterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.Namespace = namespace
	counter := prometheus.NewCounterVec(opts, labelNames)
	r.MustRegister(counter)
	return counter
}

func (r registerer) gauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = namespace
	gauge := prometheus.NewGauge(opts)
	r.MustRegister(gauge)
	return gauge
}
