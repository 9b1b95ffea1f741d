package notify

import (
	"context"
	"time"

	"tutorbook/internal/email"
)

// mail sends the email that goes with kind, if any.
func (d *Dispatcher) mail(ctx context.Context, recipientID int, kind string, p Payload) error {
	switch kind {
	case KindBookingRequested, KindBookingConfirmed, KindBookingCancelled, KindBookingReminder:
	case KindPaymentCompleted:
		if p.id(KeyStudentID) != recipientID {
			return nil
		}
	case KindRefundProcessed:
	default:
		return nil
	}

	to, err := d.directory.GetByID(ctx, recipientID)
	if err != nil {
		return err
	}

	switch kind {
	case KindBookingRequested:
		return d.mailer.SendBookingRequest(ctx, to.Email, to.Name, d.lesson(ctx, p))
	case KindBookingConfirmed:
		return d.mailer.SendBookingConfirmation(ctx, to.Email, to.Name, d.lesson(ctx, p))
	case KindBookingCancelled:
		return d.mailer.SendCancellation(ctx, to.Email, to.Name, d.lesson(ctx, p))
	case KindBookingReminder:
		return d.mailer.SendReminder(ctx, to.Email, to.Name, d.lesson(ctx, p))
	case KindPaymentCompleted:
		return d.mailer.SendPaymentReceipt(ctx, to.Email, to.Name, email.Receipt{
			InvoiceNumber: p.str(KeyInvoice),
			AmountCents:   p.number(KeyAmountCents),
			Currency:      p.str(KeyCurrency),
			Method:        p.str(KeyMethod),
		})
	default:
		return d.mailer.SendRefundOutcome(ctx, to.Email, to.Name, email.RefundOutcome{
			Approved:    p.flag(KeyApproved),
			AmountCents: p.number(KeyAmountCents),
			Currency:    p.str(KeyCurrency),
			Notes:       p.str(KeyNotes),
		})
	}
}

func (d *Dispatcher) lesson(ctx context.Context, p Payload) email.Lesson {
	l := email.Lesson{
		Language:   p.str(KeyLanguage),
		LessonType: p.str(KeyLessonType),
		Reason:     p.str(KeyReason),
	}
	if t, ok := p[KeyStartsAt].(time.Time); ok {
		l.When = t
	}
	if id := p.id(KeyCounterpartID); id != 0 {
		if other, err := d.directory.GetByID(ctx, id); err == nil {
			l.With = other.Name
		}
	}
	return l
}

func (p Payload) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p Payload) flag(key string) bool {
	b, _ := p[key].(bool)
	return b
}

func (p Payload) id(key string) int {
	return int(p.number(key))
}

func (p Payload) number(key string) int64 {
	switch v := p[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
