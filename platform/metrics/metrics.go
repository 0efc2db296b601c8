// Package metrics holds the Prometheus collectors used across the service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	CounterReservations *prometheus.CounterVec
	CounterConflicts    *prometheus.CounterVec
	CounterLatency      *prometheus.HistogramVec
	LeadsIngested       *prometheus.CounterVec
	Assignments         *prometheus.CounterVec
	JournalEvents       *prometheus.CounterVec
	BulkRows            *prometheus.CounterVec
}

// New builds the collectors and registers them on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CounterReservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_reservations_total",
			Help:      "Counter range reservations by outcome.",
		}, []string{"outcome"}),
		CounterConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_write_conflicts_total",
			Help:      "Write conflicts observed while incrementing counters.",
		}, []string{"backend"}),
		CounterLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "counter_reservation_duration_seconds",
			Help:      "Latency of counter reservations including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		LeadsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_ingested_total",
			Help:      "Leads created or merged on re-entry.",
		}, []string{"result"}),
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_assignments_total",
			Help:      "Lead assignment attempts by outcome.",
		}, []string{"outcome"}),
		JournalEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_events_recorded_total",
			Help:      "Lead journal entries by type.",
		}, []string{"type"}),
		BulkRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_import_rows_total",
			Help:      "Bulk import rows by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.CounterReservations,
			m.CounterConflicts,
			m.CounterLatency,
			m.LeadsIngested,
			m.Assignments,
			m.JournalEvents,
			m.BulkRows,
		)
	}
	return m
}

func (m *Metrics) ObserveReservation(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.CounterReservations.WithLabelValues(outcome).Inc()
	m.CounterLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) IncConflict(backend string) {
	if m == nil {
		return
	}
	m.CounterConflicts.WithLabelValues(backend).Inc()
}

func (m *Metrics) IncLeadIngested(result string) {
	if m == nil {
		return
	}
	m.LeadsIngested.WithLabelValues(result).Inc()
}

func (m *Metrics) IncAssignment(outcome string) {
	if m == nil {
		return
	}
	m.Assignments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncJournal(eventType string) {
	if m == nil {
		return
	}
	m.JournalEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncBulkRow(result string) {
	if m == nil {
		return
	}
	m.BulkRows.WithLabelValues(result).Inc()
}
