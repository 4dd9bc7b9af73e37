package reconciler

import (
	"sync/atomic"
	"time"

	"github.com/aquadesk/aquadesk/internal/billingcycle"
	"go.uber.org/zap"
)

// run carries per-run counters. Accounts are processed concurrently, so
// the counters are atomics.
type run struct {
	id         string
	cycleLabel string
	startedAt  time.Time

	processed atomic.Int64
	skipped   atomic.Int64
	emitted   atomic.Int64
	activated atomic.Int64
	errs      atomic.Int64
}

func newRun(id string, cycle billingcycle.Cycle) *run {
	return &run{
		id:         id,
		cycleLabel: cycle.Label,
		startedAt:  time.Now(),
	}
}

func (r *run) IncProcessed() { r.processed.Add(1) }
func (r *run) IncSkipped()   { r.skipped.Add(1) }
func (r *run) IncEmitted()   { r.emitted.Add(1) }
func (r *run) IncActivated() { r.activated.Add(1) }
func (r *run) IncError()     { r.errs.Add(1) }

func (r *Reconciler) logRunStart(run *run) {
	r.log.Info("reconciler.run.start",
		zap.String("run_id", run.id),
		zap.String("cycle", run.cycleLabel),
	)
}

func (r *Reconciler) logRunFinish(run *run) {
	fields := []zap.Field{
		zap.String("run_id", run.id),
		zap.String("cycle", run.cycleLabel),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int64("processed_count", run.processed.Load()),
		zap.Int64("skipped_count", run.skipped.Load()),
		zap.Int64("invoices_emitted", run.emitted.Load()),
		zap.Int64("transitions_activated", run.activated.Load()),
		zap.Int64("error_count", run.errs.Load()),
	}
	if run.errs.Load() > 0 {
		r.log.Warn("reconciler.run.finish", fields...)
		return
	}
	r.log.Info("reconciler.run.finish", fields...)
}
