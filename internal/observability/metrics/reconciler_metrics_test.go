package metrics

import (
	"context"
	"errors"
	"testing"

	accountdomain "github.com/aquadesk/aquadesk/internal/account/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyErrorType(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: ErrorTypeDeadline,
		},
		{
			name: "canceled",
			err:  context.Canceled,
			want: ErrorTypeDeadline,
		},
		{
			name: "dangling_plan_change",
			err:  accountdomain.ErrDanglingPlanChange,
			want: ErrorTypeData,
		},
		{
			name: "missing_parent",
			err:  accountdomain.ErrMissingParent,
			want: ErrorTypeData,
		},
		{
			name: "duplicated_key",
			err:  gorm.ErrDuplicatedKey,
			want: ErrorTypeDB,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: ErrorTypeUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyErrorType(tc.err); got != tc.want {
				t.Fatalf("expected type %q, got %q", tc.want, got)
			}
		})
	}
}

func TestReconcilerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newReconcilerMetrics(registry)

	m.IncRun()
	m.IncAccountProcessed()
	m.IncAccountProcessed()
	m.IncAccountSkipped(SkipReasonBranch)
	m.IncInvoiceEmitted()
	m.IncTransitionActivated()
	m.IncError(gorm.ErrDuplicatedKey)

	if got := testutil.ToFloat64(m.runs); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(m.accountsProcessed); got != 2 {
		t.Fatalf("expected 2 accounts processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.accountsSkipped.WithLabelValues(SkipReasonBranch)); got != 1 {
		t.Fatalf("expected 1 branch skip, got %v", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues(ErrorTypeDB)); got != 1 {
		t.Fatalf("expected 1 db error, got %v", got)
	}
}
