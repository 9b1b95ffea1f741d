package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorbook/internal/api"
	"tutorbook/internal/auth"
	"tutorbook/internal/booking"
	"tutorbook/internal/gateway"
	"tutorbook/internal/logger"
	"tutorbook/internal/metrics"
	"tutorbook/internal/notify"
	"tutorbook/internal/schedule"
	"tutorbook/internal/user"
)

var (
	ErrPaymentNotFound     = api.NewError(api.ErrNotFound, "payment not found")
	ErrPaymentStateChanged = api.NewError(api.ErrInvalidState, "payment was already processed")
	ErrBookingNotPayable   = api.NewError(api.ErrInvalidState, "only pending or confirmed bookings can be paid")
	ErrAlreadyPaid         = api.NewError(api.ErrConflict, "booking is already paid")
	ErrAlreadyCompleted    = api.NewError(api.ErrInvalidState, "payment is already completed")
	ErrNoCheckout          = api.NewError(api.ErrInvalidState, "payment has no gateway transaction yet")
	ErrInvalidDiscount     = api.NewError(api.ErrValidation, "discount cannot exceed the lesson price")
	ErrInvalidSignature    = api.NewError(api.ErrForbidden, "invalid notification signature")
	ErrNotRefundable       = api.NewError(api.ErrInvalidState, "only completed payments can be refunded")
	ErrRefundExists        = api.NewError(api.ErrConflict, "a refund was already requested for this payment")
	ErrBookingNotCancelled = api.NewError(api.ErrInvalidState, "the booking must be cancelled before requesting a refund")
	ErrNoRefundEligible    = api.NewError(api.ErrInvalidState, "cancelled less than 24 hours before the lesson, no refund is due")
	ErrNoPendingRefund     = api.NewError(api.ErrInvalidState, "no refund is awaiting a decision")
	ErrGateway             = api.NewError(api.ErrExternalService, "payment gateway error")
	ErrRefundPending       = api.NewError(api.ErrExternalService, "refund is still pending at the payment gateway")
	ErrStudentsOnly        = api.NewError(api.ErrForbidden, "only students can do this")
	ErrAdminsOnly          = api.NewError(api.ErrForbidden, "only admins can do this")
)

// Bookings is the slice of booking storage payments read and update.
type Bookings interface {
	GetByID(ctx context.Context, id int) (*booking.Booking, error)
	LinkPayment(ctx context.Context, id, paymentID int) error
	MarkRefunded(ctx context.Context, id int) error
}

// Payers resolves the checkout customer.
type Payers interface {
	GetByID(ctx context.Context, userID int) (*user.User, error)
}

type SignatureVerifier interface {
	VerifySignature(n gateway.Notification) bool
}

type Service interface {
	CreateIntent(ctx context.Context, actor auth.Actor, req CreateIntentRequest) (*IntentResult, error)
	Confirm(ctx context.Context, actor auth.Actor, id int) (*Payment, error)
	HandleNotification(ctx context.Context, n gateway.Notification) (*Payment, error)
	RequestRefund(ctx context.Context, actor auth.Actor, id int, req RefundRequest) (*Payment, error)
	ProcessRefund(ctx context.Context, actor auth.Actor, id int, req ProcessRefundRequest) (*Payment, error)
	Get(ctx context.Context, actor auth.Actor, id int) (*Payment, error)
	List(ctx context.Context, actor auth.Actor, q ListQuery) ([]Payment, error)
}

type Options struct {
	Currency string
	Location *time.Location
}

type service struct {
	repo     Repository
	bookings Bookings
	payers   Payers
	gateway  gateway.Gateway
	verifier SignatureVerifier
	sink     notify.Sink
	currency string
	loc      *time.Location
	now      func() time.Time
}

func NewService(repo Repository, bookings Bookings, payers Payers, gw gateway.Gateway, verifier SignatureVerifier, sink notify.Sink, opts Options) Service {
	if opts.Currency == "" {
		opts.Currency = gateway.SettlementCurrency
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &service{
		repo:     repo,
		bookings: bookings,
		payers:   payers,
		gateway:  gw,
		verifier: verifier,
		sink:     sink,
		currency: opts.Currency,
		loc:      opts.Location,
		now:      time.Now,
	}
}

func (s *service) CreateIntent(ctx context.Context, actor auth.Actor, req CreateIntentRequest) (*IntentResult, error) {
	if !actor.IsStudent() {
		return nil, ErrStudentsOnly
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.StudentID != actor.ID {
		return nil, booking.ErrBookingNotFound
	}
	if !b.IsActive() {
		return nil, ErrBookingNotPayable
	}

	paid, err := s.repo.HasCompleted(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, ErrAlreadyPaid
	}

	subtotal := b.PriceCents
	if b.IsSeriesParent() && b.TotalCostCents != nil {
		subtotal = *b.TotalCostCents
	}
	if req.DiscountCents > subtotal {
		return nil, ErrInvalidDiscount
	}
	amounts := ComputeAmounts(subtotal, req.DiscountCents, req.PaymentMethod)

	p, err := s.pendingPayment(ctx, b, req.PaymentMethod, amounts)
	if err != nil {
		return nil, err
	}

	payer := gateway.Payer{ID: actor.ID}
	if u, err := s.payers.GetByID(ctx, actor.ID); err == nil {
		payer.Name, payer.Email = u.Name, u.Email
	}

	res, err := s.gateway.Initialize(ctx, gateway.InitRequest{
		OrderID:     p.InvoiceNumber,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Description: fmt.Sprintf("%s lesson #%d", b.Language, b.ID),
		Payer:       payer,
	})
	if err != nil {
		metrics.RecordPayment("init_failed", p.PaymentMethod)
		logger.Error("payment initialization failed", "payment_id", p.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := s.repo.SetCheckout(ctx, p.ID, res.TxRef, res.CheckoutURL); err != nil {
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	p.TransactionID = res.TxRef
	p.PaymentLink = res.CheckoutURL

	metrics.RecordPayment(StatusPending, p.PaymentMethod)
	logger.Info("payment initialized", "payment_id", p.ID, "booking_id", b.ID, "amount_cents", p.AmountCents)

	return &IntentResult{Payment: p, RedirectURL: res.CheckoutURL}, nil
}

// pendingPayment reuses the booking's open attempt or opens a new one.
func (s *service) pendingPayment(ctx context.Context, b *booking.Booking, method string, a Amounts) (*Payment, error) {
	existing, err := s.repo.FindPending(ctx, b.ID)
	switch {
	case err == nil:
		return s.repo.UpdatePending(ctx, existing.ID, method, a)
	case !errors.Is(err, ErrPaymentNotFound):
		return nil, err
	}

	return s.repo.Create(ctx, &Payment{
		BookingID:     b.ID,
		StudentID:     b.StudentID,
		TeacherID:     b.TeacherID,
		SubtotalCents: a.Subtotal,
		TaxCents:      a.Tax,
		FeesCents:     a.Fees,
		DiscountCents: a.Discount,
		AmountCents:   a.Total,
		Currency:      s.currency,
		PaymentMethod: method,
		InvoiceNumber: newInvoiceNumber(s.now()),
	})
}

func newInvoiceNumber(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "INV-" + now.Format("20060102") + "-" + id[:12]
}

func (s *service) Confirm(ctx context.Context, actor auth.Actor, id int) (*Payment, error) {
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, p)
}

// HandleNotification applies a provider callback. Callbacks for payments
// already completed are acknowledged without another lookup.
func (s *service) HandleNotification(ctx context.Context, n gateway.Notification) (*Payment, error) {
	if !s.verifier.VerifySignature(n) {
		logger.Warn("rejected payment notification", "order_id", n.OrderID)
		return nil, ErrInvalidSignature
	}

	p, err := s.repo.GetByTransactionID(ctx, n.OrderID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending && p.Status != StatusFailed {
		return p, nil
	}
	return s.confirm(ctx, p)
}

func (s *service) confirm(ctx context.Context, p *Payment) (*Payment, error) {
	if p.Status == StatusCompleted || p.Status == StatusRefunded {
		return nil, ErrAlreadyCompleted
	}
	if p.TransactionID == "" {
		return nil, ErrNoCheckout
	}

	now := s.now()
	res, err := s.gateway.Verify(ctx, p.TransactionID)
	if err != nil {
		logger.Error("payment verification failed", "payment_id", p.ID, "error", err)
		if _, ferr := s.fail(ctx, p, now); ferr != nil {
			logger.Error("failed to mark payment failed", "payment_id", p.ID, "error", ferr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	switch res.Status {
	case gateway.StatusSuccess:
		paid, err := s.repo.MarkCompleted(ctx, p.ID, now)
		if err != nil {
			return nil, err
		}
		if err := s.bookings.LinkPayment(ctx, paid.BookingID, paid.ID); err != nil {
			logger.Error("failed to link payment to booking", "payment_id", paid.ID, "booking_id", paid.BookingID, "error", err)
		}
		metrics.RecordPayment(StatusCompleted, paid.PaymentMethod)
		logger.Info("payment completed", "payment_id", paid.ID, "booking_id", paid.BookingID)
		s.notifyParties(ctx, paid, notify.KindPaymentCompleted)
		return paid, nil
	case gateway.StatusPending:
		return p, nil
	default:
		return s.fail(ctx, p, now)
	}
}

func (s *service) fail(ctx context.Context, p *Payment, at time.Time) (*Payment, error) {
	failed, err := s.repo.MarkFailed(ctx, p.ID, at)
	if err != nil {
		return nil, err
	}
	metrics.RecordPayment(StatusFailed, failed.PaymentMethod)
	logger.Warn("payment failed", "payment_id", failed.ID, "booking_id", failed.BookingID)
	s.notifyParties(ctx, failed, notify.KindPaymentFailed)
	return failed, nil
}

func (s *service) RequestRefund(ctx context.Context, actor auth.Actor, id int, req RefundRequest) (*Payment, error) {
	if !actor.IsStudent() {
		return nil, ErrStudentsOnly
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StudentID != actor.ID {
		return nil, ErrPaymentNotFound
	}
	if p.Status != StatusCompleted {
		return nil, ErrNotRefundable
	}
	if p.RefundIn(RefundRequested, RefundCompleted, RefundRejected) {
		return nil, ErrRefundExists
	}

	b, err := s.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusCancelled || b.CancelledAt == nil {
		return nil, ErrBookingNotCancelled
	}

	percent := schedule.RefundPercent(b.StartsAt(s.loc).Sub(*b.CancelledAt))
	if percent == 0 {
		return nil, ErrNoRefundEligible
	}
	amount := RefundAmount(p.AmountCents, percent)

	updated, err := s.repo.RequestRefund(ctx, p.ID, amount, percent, req.Reason, s.now())
	if err != nil {
		return nil, err
	}

	metrics.RecordRefund(RefundRequested)
	logger.Info("refund requested", "payment_id", p.ID, "percent", percent, "amount_cents", amount)

	s.sink.NotifyAdmins(ctx, notify.KindRefundRequested, notify.Payload{
		notify.KeyBookingID:   p.BookingID,
		notify.KeyStudentID:   p.StudentID,
		notify.KeyInvoice:     p.InvoiceNumber,
		notify.KeyAmountCents: amount,
		notify.KeyCurrency:    p.Currency,
		notify.KeyReason:      req.Reason,
	})
	return updated, nil
}

func (s *service) ProcessRefund(ctx context.Context, actor auth.Actor, id int, req ProcessRefundRequest) (*Payment, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminsOnly
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.RefundIn(RefundRequested) {
		return nil, ErrNoPendingRefund
	}

	now := s.now()
	if req.Approve == nil || !*req.Approve {
		rejected, err := s.repo.RejectRefund(ctx, p.ID, req.Notes, now)
		if err != nil {
			return nil, err
		}
		metrics.RecordRefund(RefundRejected)
		logger.Info("refund rejected", "payment_id", p.ID)
		s.notifyRefund(ctx, rejected, false)
		return rejected, nil
	}

	var amount int64
	if p.RefundAmountCents != nil {
		amount = *p.RefundAmountCents
	}

	res, err := s.gateway.Refund(ctx, p.TransactionID, amount, p.RefundReason)
	if err != nil {
		metrics.RecordRefund("gateway_error")
		logger.Error("refund gateway call failed", "payment_id", p.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	switch res.Status {
	case gateway.StatusSuccess:
	case gateway.StatusPending:
		// The gateway owns the refund now; a retry reuses the same refund key.
		metrics.RecordRefund("gateway_pending")
		logger.Warn("refund pending at gateway", "payment_id", p.ID)
		return nil, ErrRefundPending
	default:
		metrics.RecordRefund("gateway_declined")
		logger.Warn("refund declined by gateway", "payment_id", p.ID, "status", res.Status)
		return nil, fmt.Errorf("%w: refund %s", ErrGateway, res.Status)
	}

	refunded, err := s.repo.CompleteRefund(ctx, p.ID, res.RefundRef, req.Notes, now)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.MarkRefunded(ctx, refunded.BookingID); err != nil {
		logger.Error("failed to flag booking refunded", "booking_id", refunded.BookingID, "error", err)
	}

	metrics.RecordRefund(RefundCompleted)
	logger.Info("refund completed", "payment_id", p.ID, "refund_ref", res.RefundRef)
	s.notifyRefund(ctx, refunded, true)
	return refunded, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id int) (*Payment, error) {
	return s.visible(ctx, actor, id)
}

func (s *service) List(ctx context.Context, actor auth.Actor, q ListQuery) ([]Payment, error) {
	f := ListFilter{Status: q.Status, Limit: q.Limit, Offset: q.Offset}
	if f.Limit == 0 {
		f.Limit = 20
	}
	switch {
	case actor.IsStudent():
		f.StudentID = actor.ID
	case actor.IsTeacher():
		f.TeacherID = actor.ID
	}
	return s.repo.List(ctx, f)
}

// visible loads a payment the actor may see: their own as student or
// teacher, any as admin.
func (s *service) visible(ctx context.Context, actor auth.Actor, id int) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && p.StudentID != actor.ID && p.TeacherID != actor.ID {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func (s *service) notifyParties(ctx context.Context, p *Payment, kind string) {
	payload := notify.Payload{
		notify.KeyBookingID:   p.BookingID,
		notify.KeyStudentID:   p.StudentID,
		notify.KeyInvoice:     p.InvoiceNumber,
		notify.KeyAmountCents: p.AmountCents,
		notify.KeyCurrency:    p.Currency,
		notify.KeyMethod:      p.PaymentMethod,
	}
	s.sink.Enqueue(ctx, p.StudentID, kind, payload)
	s.sink.Enqueue(ctx, p.TeacherID, kind, payload)
}

func (s *service) notifyRefund(ctx context.Context, p *Payment, approved bool) {
	var amount int64
	if p.RefundAmountCents != nil {
		amount = *p.RefundAmountCents
	}
	s.sink.Enqueue(ctx, p.StudentID, notify.KindRefundProcessed, notify.Payload{
		notify.KeyBookingID:   p.BookingID,
		notify.KeyInvoice:     p.InvoiceNumber,
		notify.KeyAmountCents: amount,
		notify.KeyCurrency:    p.Currency,
		notify.KeyApproved:    approved,
		notify.KeyNotes:       p.RefundNotes,
	})
}
