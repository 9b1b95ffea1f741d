package payment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int) (*Payment, error)
	GetByTransactionID(ctx context.Context, txRef string) (*Payment, error)
	FindPending(ctx context.Context, bookingID int) (*Payment, error)
	HasCompleted(ctx context.Context, bookingID int) (bool, error)
	List(ctx context.Context, f ListFilter) ([]Payment, error)

	// UpdatePending reprices a pending row for a new attempt.
	UpdatePending(ctx context.Context, id int, method string, a Amounts) (*Payment, error)
	SetCheckout(ctx context.Context, id int, txRef, link string) error
	MarkCompleted(ctx context.Context, id int, paidAt time.Time) (*Payment, error)
	MarkFailed(ctx context.Context, id int, at time.Time) (*Payment, error)

	RequestRefund(ctx context.Context, id int, amountCents int64, percent int, reason string, at time.Time) (*Payment, error)
	CompleteRefund(ctx context.Context, id int, refundRef, notes string, at time.Time) (*Payment, error)
	RejectRefund(ctx context.Context, id int, notes string, at time.Time) (*Payment, error)
}
