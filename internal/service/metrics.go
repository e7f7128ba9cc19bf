package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts engine outcomes. A nil *Metrics records nothing.
type Metrics struct {
	operations    *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewMetrics registers the file service collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idea_files_operations_total",
				Help: "File service operations by outcome.",
			},
			[]string{"operation", "result"},
		),
		compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idea_files_compensations_total",
				Help: "Metadata rollbacks performed after a later step of the same operation failed.",
			},
			[]string{"operation"},
		),
	}
	if err := reg.Register(m.operations); err != nil {
		return nil, err
	}
	if err := reg.Register(m.compensations); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, ErrorKind(err)).Inc()
}

func (m *Metrics) compensated(op string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(op).Inc()
}
