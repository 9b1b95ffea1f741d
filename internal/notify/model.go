package notify

import (
	"encoding/json"
	"time"
)

const (
	KindBookingRequested = "booking_requested"
	KindBookingConfirmed = "booking_confirmed"
	KindBookingRejected  = "booking_rejected"
	KindBookingCancelled = "booking_cancelled"
	KindBookingCompleted = "booking_completed"
	KindBookingExpired   = "booking_expired"
	KindBookingReminder  = "booking_reminder"
	KindPaymentCompleted = "payment_completed"
	KindPaymentFailed    = "payment_failed"
	KindRefundRequested  = "refund_requested"
	KindRefundProcessed  = "refund_processed"
)

// Payload keys read by the email bridge.
const (
	KeyBookingID     = "booking_id"
	KeyCounterpartID = "counterpart_id"
	KeyLanguage      = "language"
	KeyLessonType    = "lesson_type"
	KeyStartsAt      = "starts_at"
	KeyReason        = "reason"
	KeyStudentID     = "student_id"
	KeyInvoice       = "invoice_number"
	KeyAmountCents   = "amount_cents"
	KeyCurrency      = "currency"
	KeyMethod        = "payment_method"
	KeyApproved      = "approved"
	KeyNotes         = "notes"
)

type Payload map[string]interface{}

type Notification struct {
	ID          int             `db:"id" json:"id"`
	RecipientID int             `db:"recipient_id" json:"recipient_id"`
	Kind        string          `db:"kind" json:"kind"`
	Payload     json.RawMessage `db:"payload" json:"payload" swaggertype:"object"`
	ReadAt      *time.Time      `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Event is the message body published to the broker.
type Event struct {
	ID          int             `json:"id,omitempty"`
	RecipientID int             `json:"recipient_id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ListQuery struct {
	UnreadOnly bool `form:"unread"`
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int  `form:"offset" binding:"omitempty,min=0"`
}
