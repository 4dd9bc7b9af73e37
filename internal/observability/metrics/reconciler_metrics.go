// Package metrics exposes prometheus instruments for the billing engine.
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	accountdomain "github.com/aquadesk/aquadesk/internal/account/domain"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SkipReasonAdmin     = "admin"
	SkipReasonNoPlan    = "no_plan"
	SkipReasonNoCharge  = "no_charge"
	SkipReasonBranch    = "branch"
	SkipReasonInvariant = "invariant_violation"
)

const (
	ErrorTypeDB       = "db"
	ErrorTypeData     = "data"
	ErrorTypeDeadline = "deadline_exceeded"
	ErrorTypeUnknown  = "unknown"
)

// ReconcilerMetrics captures billing run health signals.
type ReconcilerMetrics struct {
	runs                 prometheus.Counter
	runDuration          prometheus.Observer
	accountsProcessed    prometheus.Counter
	accountsSkipped      *prometheus.CounterVec
	invoicesEmitted      prometheus.Counter
	transitionsActivated prometheus.Counter
	errorsTotal          *prometheus.CounterVec
}

var (
	reconcilerMetricsOnce sync.Once
	reconcilerMetrics     *ReconcilerMetrics
)

// Reconciler returns the singleton reconciler metrics registry.
func Reconciler() *ReconcilerMetrics {
	reconcilerMetricsOnce.Do(func() {
		reconcilerMetrics = newReconcilerMetrics(prometheus.DefaultRegisterer)
	})
	return reconcilerMetrics
}

// ResetReconcilerMetricsForTest resets the singleton for tests.
func ResetReconcilerMetricsForTest() {
	reconcilerMetricsOnce = sync.Once{}
	reconcilerMetrics = nil
}

func newReconcilerMetrics(registerer prometheus.Registerer) *ReconcilerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &ReconcilerMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aquadesk_reconciler_runs_total",
			Help: "Billing reconciliation runs started.",
		}),
		accountsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aquadesk_reconciler_accounts_processed_total",
			Help: "Accounts that completed a billing unit of work.",
		}),
		accountsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aquadesk_reconciler_accounts_skipped_total",
			Help: "Accounts skipped during a run, by reason.",
		}, []string{"reason"}),
		invoicesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aquadesk_reconciler_invoices_emitted_total",
			Help: "Invoices created or refreshed by the engine.",
		}),
		transitionsActivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aquadesk_reconciler_plan_transitions_total",
			Help: "Scheduled plan transitions activated.",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aquadesk_reconciler_errors_total",
			Help: "Per-account errors during a run, by type.",
		}, []string{"type"}),
	}

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aquadesk_reconciler_run_duration_seconds",
		Help:    "Wall time of one full reconciliation run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	m.runDuration = runDuration

	for _, c := range []prometheus.Collector{
		m.runs, runDuration, m.accountsProcessed, m.accountsSkipped,
		m.invoicesEmitted, m.transitionsActivated, m.errorsTotal,
	} {
		if err := registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}

	return m
}

func (m *ReconcilerMetrics) IncRun()                 { m.runs.Inc() }
func (m *ReconcilerMetrics) IncAccountProcessed()    { m.accountsProcessed.Inc() }
func (m *ReconcilerMetrics) IncInvoiceEmitted()      { m.invoicesEmitted.Inc() }
func (m *ReconcilerMetrics) IncTransitionActivated() { m.transitionsActivated.Inc() }

func (m *ReconcilerMetrics) IncAccountSkipped(reason string) {
	m.accountsSkipped.WithLabelValues(reason).Inc()
}

func (m *ReconcilerMetrics) IncError(err error) {
	m.errorsTotal.WithLabelValues(ClassifyErrorType(err)).Inc()
}

func (m *ReconcilerMetrics) ObserveRunDuration(d time.Duration) {
	m.runDuration.Observe(d.Seconds())
}

// ClassifyErrorType buckets run errors for the errors_total counter.
func ClassifyErrorType(err error) string {
	switch {
	case err == nil:
		return ErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorTypeDeadline
	case errors.Is(err, accountdomain.ErrDanglingPlanChange),
		errors.Is(err, accountdomain.ErrMissingParent):
		return ErrorTypeData
	case errors.Is(err, gorm.ErrInvalidTransaction),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrInvalidDB):
		return ErrorTypeDB
	default:
		return ErrorTypeUnknown
	}
}
