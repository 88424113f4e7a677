// Package metrics holds the Prometheus instruments for the admission
// lifecycle. Services treat a nil *Metrics as "metrics disabled" so unit
// tests never touch the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all admission lifecycle instruments.
type Metrics struct {
	AllocationsTotal    *prometheus.CounterVec
	AllocationConflicts prometheus.Counter
	UploadsTotal        prometheus.Counter
	DeletionsTotal      prometheus.Counter
	TransitionsTotal    *prometheus.CounterVec
	RegistrarBulkOps    *prometheus.CounterVec
	AuditEventsDropped  prometheus.Counter
}

// New registers all instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AllocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matricula_allocations_total",
			Help: "Applicant numbers allocated, by campus.",
		}, []string{"campus"}),
		AllocationConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "matricula_allocation_conflicts_total",
			Help: "Allocation attempts that hit the applicant-number unique constraint.",
		}),
		UploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "matricula_document_uploads_total",
			Help: "Document files uploaded or replaced.",
		}),
		DeletionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "matricula_document_deletions_total",
			Help: "Document files explicitly deleted.",
		}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matricula_slot_transitions_total",
			Help: "Slot status transitions, by resulting status.",
		}, []string{"status"}),
		RegistrarBulkOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matricula_registrar_bulk_ops_total",
			Help: "Bulk registrar submit/unsubmit operations.",
		}, []string{"op"}),
		AuditEventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "matricula_audit_events_dropped_total",
			Help: "Live audit events dropped because the broadcast inbox was full.",
		}),
	}
}

func (m *Metrics) RecordAllocation(campus string) {
	if m == nil {
		return
	}
	m.AllocationsTotal.WithLabelValues(campus).Inc()
}

func (m *Metrics) RecordAllocationConflict() {
	if m == nil {
		return
	}
	m.AllocationConflicts.Inc()
}

func (m *Metrics) RecordUpload() {
	if m == nil {
		return
	}
	m.UploadsTotal.Inc()
}

func (m *Metrics) RecordDeletion() {
	if m == nil {
		return
	}
	m.DeletionsTotal.Inc()
}

func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordBulkOp(op string) {
	if m == nil {
		return
	}
	m.RegistrarBulkOps.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordAuditDrop() {
	if m == nil {
		return
	}
	m.AuditEventsDropped.Inc()
}
