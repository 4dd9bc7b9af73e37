// Package reconciler runs the periodic billing batch: it resolves the
// just-ended billing cycle, prices every account under the plan that was
// active during that cycle, emits idempotent invoices, and only then
// activates any scheduled plan transitions.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountdomain "github.com/aquadesk/aquadesk/internal/account/domain"
	"github.com/aquadesk/aquadesk/internal/billingcycle"
	"github.com/aquadesk/aquadesk/internal/clock"
	"github.com/aquadesk/aquadesk/internal/config"
	deliverydomain "github.com/aquadesk/aquadesk/internal/delivery/domain"
	invoicedomain "github.com/aquadesk/aquadesk/internal/invoice/domain"
	ledgerdomain "github.com/aquadesk/aquadesk/internal/ledger/domain"
	obsmetrics "github.com/aquadesk/aquadesk/internal/observability/metrics"
	ratingdomain "github.com/aquadesk/aquadesk/internal/rating/domain"
	ratingservice "github.com/aquadesk/aquadesk/internal/rating/service"
	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	RatingSvc  ratingdomain.Service
	InvoiceSvc invoicedomain.Service
	LedgerSvc  ledgerdomain.Service
	GenID      *snowflake.Node
	Clock      clock.Clock
	Billing    *config.BillingConfigHolder
	Config     Config `optional:"true"`
}

type Reconciler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	billing    *config.BillingConfigHolder
	ratingSvc  ratingdomain.Service
	invoiceSvc invoicedomain.Service
	ledgerSvc  ledgerdomain.Service
}

func New(p Params) (*Reconciler, error) {
	if p.DB == nil || p.Log == nil || p.RatingSvc == nil || p.InvoiceSvc == nil || p.LedgerSvc == nil || p.GenID == nil || p.Clock == nil || p.Billing == nil {
		return nil, ErrInvalidConfig
	}
	return &Reconciler{
		db:         p.DB,
		log:        p.Log.Named("reconciler").With(zap.String("component", "reconciler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		billing:    p.Billing,
		ratingSvc:  p.RatingSvc,
		invoiceSvc: p.InvoiceSvc,
		ledgerSvc:  p.LedgerSvc,
	}, nil
}

// RunOnce reconciles every account against the previous calendar month.
// Reruns converge: deterministic invoice numbers plus the non-downgrading
// merge make an interrupted run safe to repeat wholesale.
func (r *Reconciler) RunOnce(parent context.Context) error {
	wallStart := time.Now()
	now := r.clock.Now()

	ctx, cancel := context.WithTimeout(parent, r.cfg.RunTimeout)
	defer cancel()

	m := obsmetrics.Reconciler()
	m.IncRun()

	cycle := billingcycle.Resolve(now)
	run := newRun(r.genID.Generate().String(), cycle)
	r.logRunStart(run)

	var jobErr error
	var afterID snowflake.ID

	for {
		if ctx.Err() != nil {
			jobErr = errors.Join(jobErr, ctx.Err())
			break
		}

		accounts, err := r.fetchAccountsBatch(ctx, afterID, r.cfg.BatchSize)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			break
		}
		if len(accounts) == 0 {
			break
		}
		afterID = accounts[len(accounts)-1].ID

		// Accounts are independent units of work; only the ordering
		// inside one account is load-bearing.
		p := pool.New().WithMaxGoroutines(r.cfg.MaxWorkers).WithErrors().WithContext(ctx)
		for _, acct := range accounts {
			acct := acct
			p.Go(func(ctx context.Context) error {
				if err := r.processAccount(ctx, run, cycle, acct); err != nil {
					run.IncError()
					m.IncError(err)
					r.log.Error("reconciler.account.failed",
						zap.String("run_id", run.id),
						zap.String("client_code", acct.ClientCode),
						zap.String("account_id", acct.ID.String()),
						zap.Error(err),
					)
					return fmt.Errorf("account %s: %w", acct.ClientCode, err)
				}
				return nil
			})
		}
		jobErr = errors.Join(jobErr, p.Wait())

		if len(accounts) < r.cfg.BatchSize {
			break
		}
	}

	m.ObserveRunDuration(time.Since(wallStart))
	r.logRunFinish(run)
	return jobErr
}

// RunForever reruns the batch on a fixed interval. Each tick is a full
// idempotent pass, so a stuck or failed run is simply retried wholesale.
func (r *Reconciler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("reconciler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) processAccount(ctx context.Context, run *run, cycle billingcycle.Cycle, acct accountdomain.Account) error {
	m := obsmetrics.Reconciler()
	now := r.clock.Now()

	// Invariant violations are data errors: skip the account, flag it,
	// keep the batch going.
	if err := acct.Validate(); err != nil {
		run.IncSkipped()
		m.IncAccountSkipped(obsmetrics.SkipReasonInvariant)
		return fmt.Errorf("invariant violation: %w", err)
	}

	if acct.Role == accountdomain.AccountRoleAdmin {
		run.IncSkipped()
		m.IncAccountSkipped(obsmetrics.SkipReasonAdmin)
		return nil
	}

	// Branch accounts are settled against the parent ledger and counted
	// as skipped, never as processed billable units.
	if acct.Type == accountdomain.AccountTypeBranch {
		if err := r.settleBranch(ctx, cycle, acct); err != nil {
			return err
		}
		run.IncSkipped()
		m.IncAccountSkipped(obsmetrics.SkipReasonBranch)
		return nil
	}

	if !acct.HasPlan() {
		run.IncSkipped()
		m.IncAccountSkipped(obsmetrics.SkipReasonNoPlan)
		return nil
	}
	if err := r.billAccount(ctx, run, cycle, acct); err != nil {
		return err
	}

	// Billing-before-activation: the just-ended cycle was priced under
	// the old plan above, so the swap is safe now.
	if acct.TransitionDue(now) {
		var activated bool
		err := r.withRetry(ctx, func() error {
			var err error
			activated, err = r.activatePlan(ctx, acct, now)
			return err
		})
		if err != nil {
			return fmt.Errorf("activate plan: %w", err)
		}
		if activated {
			run.IncActivated()
			m.IncTransitionActivated()
			r.log.Info("plan.activated",
				zap.String("run_id", run.id),
				zap.String("client_code", acct.ClientCode),
				zap.String("from_plan", acct.Plan.Name),
				zap.String("to_plan", acct.PendingPlan.Name),
			)
		}
	}

	run.IncProcessed()
	m.IncAccountProcessed()
	return nil
}

// billAccount prices the cycle under the account's current plan and
// emits the invoice. The charge is fully computed in memory before the
// single write, so an interrupted run never leaves a partial invoice.
func (r *Reconciler) billAccount(ctx context.Context, run *run, cycle billingcycle.Cycle, acct accountdomain.Account) error {
	m := obsmetrics.Reconciler()

	var deliveries []deliverydomain.Delivery
	err := r.withRetry(ctx, func() error {
		var err error
		deliveries, err = r.fetchDeliveries(ctx, acct.ID, cycle)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch deliveries: %w", err)
	}

	var pending []accountdomain.PendingCharge
	err = r.withRetry(ctx, func() error {
		var err error
		pending, err = r.fetchPendingCharges(ctx, acct.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch pending charges: %w", err)
	}

	charge, err := r.ratingSvc.ComputeCharge(ctx, acct, cycle, deliveries, pending)
	if err != nil {
		return fmt.Errorf("compute charge: %w", err)
	}
	if charge == nil {
		run.IncSkipped()
		m.IncAccountSkipped(obsmetrics.SkipReasonNoCharge)
		return nil
	}

	draft := invoicedomain.Invoice{
		AccountID:   acct.ID,
		Number:      invoicedomain.NumberFor(acct.ClientCode, cycle.Key()),
		Amount:      charge.Amount,
		Description: charge.Description,
		IssuedAt:    r.clock.Now(),
		PeriodStart: cycle.Start,
		PeriodEnd:   cycle.End,
	}

	var inv *invoicedomain.Invoice
	var emitted bool
	err = r.withRetry(ctx, func() error {
		var err error
		inv, emitted, err = r.invoiceSvc.Upsert(ctx, draft)
		return err
	})
	if err != nil {
		return fmt.Errorf("emit invoice: %w", err)
	}
	if !emitted {
		return nil
	}

	run.IncEmitted()
	m.IncInvoiceEmitted()
	r.log.Info("invoice.emitted",
		zap.String("run_id", run.id),
		zap.String("client_code", acct.ClientCode),
		zap.String("number", inv.Number),
		zap.String("amount", inv.Amount.String()),
	)

	if len(charge.FoldedChargeIDs) > 0 {
		err = r.withRetry(ctx, func() error {
			return r.markChargesConsumed(ctx, charge.FoldedChargeIDs, inv.ID, r.clock.Now())
		})
		if err != nil {
			return fmt.Errorf("consume pending charges: %w", err)
		}
	}

	return nil
}

// settleBranch records branch consumption as a parent credit debit input
// instead of invoicing the branch directly.
func (r *Reconciler) settleBranch(ctx context.Context, cycle billingcycle.Cycle, acct accountdomain.Account) error {
	var deliveries []deliverydomain.Delivery
	err := r.withRetry(ctx, func() error {
		var err error
		deliveries, err = r.fetchDeliveries(ctx, acct.ID, cycle)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch deliveries: %w", err)
	}

	liters := ratingservice.ConsumedLiters(cycle, deliveries, r.billing.Get().LiterFactor())
	if liters.IsZero() {
		return nil
	}

	consumption := ledgerdomain.BranchConsumption{
		ParentAccountID: *acct.ParentID,
		BranchAccountID: acct.ID,
		CycleKey:        cycle.Key(),
		Liters:          liters,
		OccurredAt:      cycle.End,
	}
	err = r.withRetry(ctx, func() error {
		_, _, err := r.ledgerSvc.RecordBranchConsumption(ctx, consumption)
		return err
	})
	if err != nil {
		return fmt.Errorf("record branch consumption: %w", err)
	}
	return nil
}

func (r *Reconciler) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.cfg.AccountRetries))
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
