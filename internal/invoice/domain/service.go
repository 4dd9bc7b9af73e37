package domain

import (
	"context"
	"errors"
)

// Service is the idempotent invoice emitter.
type Service interface {
	// Upsert merges a draft invoice keyed by Number. It creates the
	// invoice as UPCOMING, converges reruns onto the same row, and
	// never touches an invoice a reviewer has already advanced.
	// The bool reports whether the draft was written.
	Upsert(ctx context.Context, draft Invoice) (*Invoice, bool, error)

	GetByNumber(ctx context.Context, number string) (*Invoice, error)
}

var (
	ErrMissingNumber  = errors.New("invoice_number_required")
	ErrMissingAccount = errors.New("invoice_account_required")
)
