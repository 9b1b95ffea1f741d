package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"tutorbook/internal/db"
)

const paymentColumns = `id, booking_id, student_id, teacher_id, subtotal_cents, tax_cents, fees_cents, discount_cents,
	amount_cents, currency, payment_method, status, refund_status, refund_amount_cents, refund_percentage,
	refund_reason, refund_notes, refund_requested_at, refund_processed_at, refund_ref, transaction_id,
	payment_link, invoice_number, paid_at, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	query := `INSERT INTO payments (booking_id, student_id, teacher_id, subtotal_cents, tax_cents, fees_cents,
		discount_cents, amount_cents, currency, payment_method, status, invoice_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', $11)
		RETURNING ` + paymentColumns

	var out Payment
	err := r.db.GetContext(ctx, &out, query,
		p.BookingID, p.StudentID, p.TeacherID, p.SubtotalCents, p.TaxCents, p.FeesCents,
		p.DiscountCents, p.AmountCents, p.Currency, p.PaymentMethod, p.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repository) get(ctx context.Context, where string, arg interface{}) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Payment, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *repository) GetByTransactionID(ctx context.Context, txRef string) (*Payment, error) {
	return r.get(ctx, `transaction_id = $1`, txRef)
}

func (r *repository) FindPending(ctx context.Context, bookingID int) (*Payment, error) {
	return r.get(ctx, `booking_id = $1 AND status = 'pending' ORDER BY created_at DESC LIMIT 1`, bookingID)
}

func (r *repository) HasCompleted(ctx context.Context, bookingID int) (bool, error) {
	return db.Exists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE booking_id = $1 AND status IN ('completed', 'refunded'))`,
		bookingID)
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE ($1 = 0 OR student_id = $1) AND ($2 = 0 OR teacher_id = $2) AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	payments := []Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, f.StudentID, f.TeacherID, f.Status, f.Limit, f.Offset); err != nil {
		return nil, err
	}
	return payments, nil
}

// update runs a conditional UPDATE ... RETURNING; no row means the payment
// is gone or no longer in the expected state.
func (r *repository) update(ctx context.Context, query string, args ...interface{}) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, query+` RETURNING `+paymentColumns, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentStateChanged
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) UpdatePending(ctx context.Context, id int, method string, a Amounts) (*Payment, error) {
	return r.update(ctx, `UPDATE payments SET payment_method = $2, subtotal_cents = $3, tax_cents = $4, fees_cents = $5,
		discount_cents = $6, amount_cents = $7, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		id, method, a.Subtotal, a.Tax, a.Fees, a.Discount, a.Total)
}

func (r *repository) SetCheckout(ctx context.Context, id int, txRef, link string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET transaction_id = $2, payment_link = $3, updated_at = NOW() WHERE id = $1`,
		id, txRef, link)
	return err
}

func (r *repository) MarkCompleted(ctx context.Context, id int, paidAt time.Time) (*Payment, error) {
	return r.update(ctx, `UPDATE payments SET status = 'completed', paid_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'failed')`,
		id, paidAt)
}

func (r *repository) MarkFailed(ctx context.Context, id int, at time.Time) (*Payment, error) {
	return r.update(ctx, `UPDATE payments SET status = 'failed', updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'failed')`,
		id, at)
}

func (r *repository) RequestRefund(ctx context.Context, id int, amountCents int64, percent int, reason string, at time.Time) (*Payment, error) {
	return r.update(ctx, `UPDATE payments SET refund_status = 'requested', refund_amount_cents = $2, refund_percentage = $3,
		refund_reason = $4, refund_requested_at = $5, refund_notes = '', updated_at = $5
		WHERE id = $1 AND status = 'completed' AND (refund_status IS NULL OR refund_status = 'failed')`,
		id, amountCents, percent, reason, at)
}

func (r *repository) CompleteRefund(ctx context.Context, id int, refundRef, notes string, at time.Time) (*Payment, error) {
	return r.update(ctx, `UPDATE payments SET status = 'refunded', refund_status = 'completed', refund_ref = $2,
		refund_notes = $3, refund_processed_at = $4, updated_at = $4
		WHERE id = $1 AND refund_status = 'requested'`,
		id, refundRef, notes, at)
}

func (r *repository) RejectRefund(ctx context.Context, id int, notes string, at time.Time) (*Payment, error) {
	return r.update(ctx, `UPDATE payments SET refund_status = 'rejected', refund_notes = $2, refund_processed_at = $3, updated_at = $3
		WHERE id = $1 AND refund_status = 'requested'`,
		id, notes, at)
}
