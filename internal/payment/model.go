package payment

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
	StatusCancelled = "cancelled"
)

const (
	RefundRequested = "requested"
	RefundCompleted = "completed"
	RefundRejected  = "rejected"
	RefundFailed    = "failed"
)

type Payment struct {
	ID                int        `db:"id" json:"id"`
	BookingID         int        `db:"booking_id" json:"booking_id"`
	StudentID         int        `db:"student_id" json:"student_id"`
	TeacherID         int        `db:"teacher_id" json:"teacher_id"`
	SubtotalCents     int64      `db:"subtotal_cents" json:"subtotal_cents"`
	TaxCents          int64      `db:"tax_cents" json:"tax_cents"`
	FeesCents         int64      `db:"fees_cents" json:"fees_cents"`
	DiscountCents     int64      `db:"discount_cents" json:"discount_cents"`
	AmountCents       int64      `db:"amount_cents" json:"amount_cents"`
	Currency          string     `db:"currency" json:"currency"`
	PaymentMethod     string     `db:"payment_method" json:"payment_method"`
	Status            string     `db:"status" json:"status"`
	RefundStatus      *string    `db:"refund_status" json:"refund_status,omitempty"`
	RefundAmountCents *int64     `db:"refund_amount_cents" json:"refund_amount_cents,omitempty"`
	RefundPercentage  *int       `db:"refund_percentage" json:"refund_percentage,omitempty"`
	RefundReason      string     `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundNotes       string     `db:"refund_notes" json:"refund_notes,omitempty"`
	RefundRequestedAt *time.Time `db:"refund_requested_at" json:"refund_requested_at,omitempty"`
	RefundProcessedAt *time.Time `db:"refund_processed_at" json:"refund_processed_at,omitempty"`
	RefundRef         string     `db:"refund_ref" json:"refund_ref,omitempty"`
	TransactionID     string     `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentLink       string     `db:"payment_link" json:"payment_link,omitempty"`
	InvoiceNumber     string     `db:"invoice_number" json:"invoice_number"`
	PaidAt            *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// RefundIn reports whether the refund sub-flow is in one of statuses.
func (p *Payment) RefundIn(statuses ...string) bool {
	if p.RefundStatus == nil {
		return false
	}
	for _, s := range statuses {
		if *p.RefundStatus == s {
			return true
		}
	}
	return false
}

// Amounts is the price breakdown of a payment, all in cents.
type Amounts struct {
	Subtotal int64
	Tax      int64
	Fees     int64
	Discount int64
	Total    int64
}

const (
	taxPermille = 100
	feePermille = 29
)

var cardMethods = map[string]bool{
	"credit_card": true,
	"debit_card":  true,
	"card":        true,
}

// ComputeAmounts applies 10% tax, and a 2.9% fee for card methods, to
// subtotal. Each part is rounded half up to the cent.
func ComputeAmounts(subtotal, discount int64, method string) Amounts {
	a := Amounts{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      permille(subtotal, taxPermille),
	}
	if cardMethods[method] {
		a.Fees = permille(subtotal, feePermille)
	}
	a.Total = a.Subtotal - a.Discount + a.Tax + a.Fees
	return a
}

// RefundAmount is percent of amount, rounded half up to the cent.
func RefundAmount(amount int64, percent int) int64 {
	return (amount*int64(percent) + 50) / 100
}

func permille(v, pm int64) int64 {
	return (v*pm + 500) / 1000
}

type CreateIntentRequest struct {
	BookingID     int    `json:"booking_id" binding:"required,min=1"`
	PaymentMethod string `json:"payment_method" binding:"required,max=50" example:"credit_card"`
	DiscountCents int64  `json:"discount_cents" binding:"omitempty,min=0"`
}

type IntentResult struct {
	Payment     *Payment `json:"payment"`
	RedirectURL string   `json:"redirect_url"`
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=1000"`
}

type ProcessRefundRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Notes   string `json:"notes" binding:"omitempty,max=1000"`
}

type ListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending completed failed refunded cancelled"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// ListFilter scopes a listing; zero ids are not filtered on.
type ListFilter struct {
	StudentID int
	TeacherID int
	Status    string
	Limit     int
	Offset    int
}
