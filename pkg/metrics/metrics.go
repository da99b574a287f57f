package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
)

// AllocationMetrics are the gauges describing one allocation run.
// Each run gets its own registry so repeated runs in a process do not accumulate.
type AllocationMetrics struct {
	registry *prometheus.Registry

	Assigned       *prometheus.GaugeVec
	Waitlisted     *prometheus.GaugeVec
	Unfilled       *prometheus.GaugeVec
	FillAdmissions *prometheus.GaugeVec
	Unassigned     prometheus.Gauge
	Warnings       prometheus.Gauge
	Success        prometheus.Gauge
	Duration       prometheus.Gauge
}

// New creates the run gauges on a fresh registry
func New() *AllocationMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &AllocationMetrics{
		registry: registry,
		Assigned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clinic_assigned_volunteers",
				Help: "Volunteers assigned per clinic across all dates",
			},
			[]string{"clinic", "kind"},
		),
		Waitlisted: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clinic_waitlisted_volunteers",
				Help: "Volunteers waitlisted per clinic across all dates",
			},
			[]string{"clinic", "kind"},
		),
		Unfilled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clinic_unfilled_places",
				Help: "Places left below the clinic max across all dates",
			},
			[]string{"clinic", "kind"},
		),
		FillAdmissions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clinic_fill_admissions",
				Help: "Volunteers admitted beyond their year quota to fill remaining places",
			},
			[]string{"clinic"},
		),
		Unassigned: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allocation_unassigned_volunteers",
			Help: "Pooled volunteers who were not assigned on any date",
		}),
		Warnings: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allocation_warnings",
			Help: "Soft warnings raised during the run",
		}),
		Success: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allocation_success",
			Help: "1 if the final allocation passed validation",
		}),
		Duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allocation_duration_seconds",
			Help: "Wall time of the allocation",
		}),
	}
}

// Record sets the gauges from a finished outcome
func (m *AllocationMetrics) Record(outcome *allocator.AllocationOutcome, duration time.Duration) {
	for _, result := range outcome.Results() {
		clinic := result.Clinic.Code

		m.Assigned.WithLabelValues(clinic, "default").Add(float64(len(result.DefaultAssignments)))
		m.Assigned.WithLabelValues(clinic, "translator").Add(float64(len(result.TranslatorAssignments)))
		m.Waitlisted.WithLabelValues(clinic, "default").Add(float64(len(result.DefaultWaitlist)))
		m.Waitlisted.WithLabelValues(clinic, "translator").Add(float64(len(result.TranslatorWaitlist)))
		m.Unfilled.WithLabelValues(clinic, "default").Add(float64(result.UnfilledDefault))
		m.Unfilled.WithLabelValues(clinic, "translator").Add(float64(result.UnfilledTranslators))

		fills := 0
		for _, p := range result.DefaultAssignments {
			if p.Fill {
				fills++
			}
		}
		m.FillAdmissions.WithLabelValues(clinic).Add(float64(fills))
	}

	m.Unassigned.Set(float64(len(outcome.Unassigned)))
	m.Warnings.Set(float64(len(outcome.Warnings)))
	if outcome.Success {
		m.Success.Set(1)
	} else {
		m.Success.Set(0)
	}
	m.Duration.Set(duration.Seconds())
}

// WriteTextfile writes the registry in the node exporter textfile format
func (m *AllocationMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
