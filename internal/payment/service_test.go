package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutorbook/internal/api"
	"tutorbook/internal/auth"
	"tutorbook/internal/booking"
	"tutorbook/internal/gateway"
	"tutorbook/internal/notify"
	"tutorbook/internal/user"
)

var (
	testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	student = auth.Actor{ID: 10, Role: auth.RoleStudent}
	tutor   = auth.Actor{ID: 20, Role: auth.RoleTeacher}
	admin   = auth.Actor{ID: 1, Role: auth.RoleAdmin}
)

type fixture struct {
	repo     *MockRepository
	bookings *MockBookings
	payers   *MockPayers
	gateway  *MockGateway
	sink     *MockSink
	svc      *service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(MockRepository),
		bookings: new(MockBookings),
		payers:   new(MockPayers),
		gateway:  new(MockGateway),
		sink:     new(MockSink),
	}
	f.svc = NewService(f.repo, f.bookings, f.payers, f.gateway, f.gateway, f.sink, Options{Currency: "USD"}).(*service)
	f.svc.now = func() time.Time { return testNow }
	return f
}

// lesson is a $100, 14:00-16:00 lesson on 10 March 2026.
func lesson(status string) *booking.Booking {
	return &booking.Booking{
		ID: 5, StudentID: 10, TeacherID: 20, Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "14:00", EndTime: "16:00", DurationHours: 2, PriceCents: 10000,
		Language: "Spanish", Status: status,
	}
}

func completedPayment(amount int64) *Payment {
	return &Payment{
		ID: 42, BookingID: 5, StudentID: 10, TeacherID: 20, AmountCents: amount, Currency: "USD",
		PaymentMethod: "credit_card", Status: StatusCompleted, TransactionID: "INV-1", InvoiceNumber: "INV-1",
	}
}

func TestCreateIntent_NewPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusPending), nil)
	f.repo.On("HasCompleted", ctx, 5).Return(false, nil)
	f.repo.On("FindPending", ctx, 5).Return(nil, ErrPaymentNotFound)
	f.repo.On("Create", ctx, mock.MatchedBy(func(p *Payment) bool {
		return p.SubtotalCents == 10000 && p.TaxCents == 1000 && p.FeesCents == 290 &&
			p.AmountCents == 11290 && p.Currency == "USD" && strings.HasPrefix(p.InvoiceNumber, "INV-20260302-")
	})).Return(func(p *Payment) *Payment {
		out := *p
		out.ID = 42
		out.Status = StatusPending
		return &out
	}, nil)
	f.payers.On("GetByID", ctx, 10).Return(&user.User{ID: 10, Name: "Sam", Email: "sam@example.com"}, nil)
	f.gateway.On("Initialize", ctx, mock.MatchedBy(func(r gateway.InitRequest) bool {
		return r.AmountCents == 11290 && r.Payer.Email == "sam@example.com" && strings.HasPrefix(r.OrderID, "INV-")
	})).Return(&gateway.InitResult{CheckoutURL: "https://pay.example.com/abc", TxRef: "INV-X"}, nil)
	f.repo.On("SetCheckout", ctx, 42, "INV-X", "https://pay.example.com/abc").Return(nil)

	res, err := f.svc.CreateIntent(ctx, student, CreateIntentRequest{BookingID: 5, PaymentMethod: "credit_card"})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/abc", res.RedirectURL)
	assert.Equal(t, int64(11290), res.Payment.AmountCents)
	assert.Equal(t, "INV-X", res.Payment.TransactionID)
	f.repo.AssertExpectations(t)
}

func TestCreateIntent_ReusesPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	open := &Payment{ID: 41, BookingID: 5, StudentID: 10, Status: StatusPending, InvoiceNumber: "INV-OLD", Currency: "USD"}
	repriced := *open
	repriced.AmountCents = 11000

	f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusConfirmed), nil)
	f.repo.On("HasCompleted", ctx, 5).Return(false, nil)
	f.repo.On("FindPending", ctx, 5).Return(open, nil)
	f.repo.On("UpdatePending", ctx, 41, "bank_transfer", Amounts{Subtotal: 10000, Tax: 1000, Total: 11000}).Return(&repriced, nil)
	f.payers.On("GetByID", ctx, 10).Return(nil, errors.New("lookup failed"))
	f.gateway.On("Initialize", ctx, mock.MatchedBy(func(r gateway.InitRequest) bool {
		return r.OrderID == "INV-OLD" && r.AmountCents == 11000
	})).Return(&gateway.InitResult{CheckoutURL: "https://pay.example.com/x", TxRef: "INV-OLD"}, nil)
	f.repo.On("SetCheckout", ctx, 41, "INV-OLD", "https://pay.example.com/x").Return(nil)

	res, err := f.svc.CreateIntent(ctx, student, CreateIntentRequest{BookingID: 5, PaymentMethod: "bank_transfer"})

	require.NoError(t, err)
	assert.Equal(t, 41, res.Payment.ID)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateIntent_Refusals(t *testing.T) {
	ctx := context.Background()

	t.Run("not a student", func(t *testing.T) {
		_, err := newFixture().svc.CreateIntent(ctx, tutor, CreateIntentRequest{BookingID: 5})
		assert.ErrorIs(t, err, ErrStudentsOnly)
	})

	t.Run("someone else's booking", func(t *testing.T) {
		f := newFixture()
		f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusPending), nil)
		_, err := f.svc.CreateIntent(ctx, auth.Actor{ID: 11, Role: auth.RoleStudent}, CreateIntentRequest{BookingID: 5})
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("cancelled booking", func(t *testing.T) {
		f := newFixture()
		f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusCancelled), nil)
		_, err := f.svc.CreateIntent(ctx, student, CreateIntentRequest{BookingID: 5})
		assert.ErrorIs(t, err, ErrBookingNotPayable)
	})

	t.Run("already paid", func(t *testing.T) {
		f := newFixture()
		f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusConfirmed), nil)
		f.repo.On("HasCompleted", ctx, 5).Return(true, nil)
		_, err := f.svc.CreateIntent(ctx, student, CreateIntentRequest{BookingID: 5, PaymentMethod: "card"})
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("discount too large", func(t *testing.T) {
		f := newFixture()
		f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusConfirmed), nil)
		f.repo.On("HasCompleted", ctx, 5).Return(false, nil)
		_, err := f.svc.CreateIntent(ctx, student, CreateIntentRequest{BookingID: 5, PaymentMethod: "card", DiscountCents: 10001})
		assert.ErrorIs(t, err, ErrInvalidDiscount)
	})

	t.Run("gateway down leaves pending row", func(t *testing.T) {
		f := newFixture()
		f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusConfirmed), nil)
		f.repo.On("HasCompleted", ctx, 5).Return(false, nil)
		f.repo.On("FindPending", ctx, 5).Return(nil, ErrPaymentNotFound)
		f.repo.On("Create", ctx, mock.Anything).Return(&Payment{ID: 42, Status: StatusPending}, nil)
		f.payers.On("GetByID", ctx, 10).Return(&user.User{ID: 10}, nil)
		f.gateway.On("Initialize", ctx, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := f.svc.CreateIntent(ctx, student, CreateIntentRequest{BookingID: 5, PaymentMethod: "card"})

		assert.ErrorIs(t, err, ErrGateway)
		assert.Equal(t, 502, api.StatusFor(err))
		f.repo.AssertNotCalled(t, "SetCheckout", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConfirm(t *testing.T) {
	pending := func() *Payment {
		p := completedPayment(11290)
		p.Status = StatusPending
		return p
	}

	t.Run("success links booking and notifies both", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(pending(), nil)
		f.gateway.On("Verify", ctx, "INV-1").Return(&gateway.VerifyResult{Status: gateway.StatusSuccess}, nil)
		f.repo.On("MarkCompleted", ctx, 42, testNow).Return(completedPayment(11290), nil)
		f.bookings.On("LinkPayment", ctx, 5, 42).Return(nil)
		f.sink.On("Enqueue", ctx, 10, notify.KindPaymentCompleted, mock.Anything).Once()
		f.sink.On("Enqueue", ctx, 20, notify.KindPaymentCompleted, mock.Anything).Once()

		p, err := f.svc.Confirm(ctx, student, 42)

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, p.Status)
		f.bookings.AssertExpectations(t)
		f.sink.AssertExpectations(t)
	})

	t.Run("gateway still pending", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(pending(), nil)
		f.gateway.On("Verify", ctx, "INV-1").Return(&gateway.VerifyResult{Status: gateway.StatusPending}, nil)

		p, err := f.svc.Confirm(ctx, student, 42)

		require.NoError(t, err)
		assert.Equal(t, StatusPending, p.Status)
		f.repo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
		f.repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("declined marks failed", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		failed := pending()
		failed.Status = StatusFailed
		f.repo.On("GetByID", ctx, 42).Return(pending(), nil)
		f.gateway.On("Verify", ctx, "INV-1").Return(&gateway.VerifyResult{Status: gateway.StatusFailed}, nil)
		f.repo.On("MarkFailed", ctx, 42, testNow).Return(failed, nil)
		f.sink.On("Enqueue", ctx, mock.Anything, notify.KindPaymentFailed, mock.Anything)

		p, err := f.svc.Confirm(ctx, student, 42)

		require.NoError(t, err)
		assert.Equal(t, StatusFailed, p.Status)
		f.sink.AssertNumberOfCalls(t, "Enqueue", 2)
	})

	t.Run("gateway error downgrades to failed", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		failed := pending()
		failed.Status = StatusFailed
		f.repo.On("GetByID", ctx, 42).Return(pending(), nil)
		f.gateway.On("Verify", ctx, "INV-1").Return(nil, errors.New("connection reset"))
		f.repo.On("MarkFailed", ctx, 42, testNow).Return(failed, nil)
		f.sink.On("Enqueue", ctx, mock.Anything, notify.KindPaymentFailed, mock.Anything)

		_, err := f.svc.Confirm(ctx, student, 42)

		assert.ErrorIs(t, err, ErrGateway)
		f.repo.AssertCalled(t, "MarkFailed", ctx, 42, testNow)
	})

	t.Run("already completed", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(completedPayment(11290), nil)

		_, err := f.svc.Confirm(ctx, student, 42)

		assert.ErrorIs(t, err, ErrAlreadyCompleted)
		f.gateway.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("stranger", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(pending(), nil)

		_, err := f.svc.Confirm(ctx, auth.Actor{ID: 99, Role: auth.RoleStudent}, 42)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestHandleNotification(t *testing.T) {
	n := gateway.Notification{OrderID: "INV-1", StatusCode: "200", GrossAmount: "11290.00", SignatureKey: "sig"}

	t.Run("bad signature", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("VerifySignature", n).Return(false)

		_, err := f.svc.HandleNotification(context.Background(), n)

		assert.ErrorIs(t, err, ErrInvalidSignature)
		f.repo.AssertNotCalled(t, "GetByTransactionID", mock.Anything, mock.Anything)
	})

	t.Run("duplicate callback is acknowledged", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.gateway.On("VerifySignature", n).Return(true)
		f.repo.On("GetByTransactionID", ctx, "INV-1").Return(completedPayment(11290), nil)

		p, err := f.svc.HandleNotification(ctx, n)

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, p.Status)
		f.gateway.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("confirms pending", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		p := completedPayment(11290)
		p.Status = StatusPending
		f.gateway.On("VerifySignature", n).Return(true)
		f.repo.On("GetByTransactionID", ctx, "INV-1").Return(p, nil)
		f.gateway.On("Verify", ctx, "INV-1").Return(&gateway.VerifyResult{Status: gateway.StatusSuccess}, nil)
		f.repo.On("MarkCompleted", ctx, 42, testNow).Return(completedPayment(11290), nil)
		f.bookings.On("LinkPayment", ctx, 5, 42).Return(errors.New("db down"))
		f.sink.On("Enqueue", ctx, mock.Anything, notify.KindPaymentCompleted, mock.Anything)

		got, err := f.svc.HandleNotification(ctx, n)

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	})
}

func TestRequestRefund_Tiers(t *testing.T) {
	// The lesson starts 2026-03-10 14:00 UTC.
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		notice  time.Duration
		amount  int64
		percent int
		refund  int64
		wantErr error
	}{
		{"50 hours is full", 50 * time.Hour, 10000, 100, 10000, nil},
		{"48 hours is full", 48 * time.Hour, 10000, 100, 10000, nil},
		{"47.9 hours is half", 47*time.Hour + 54*time.Minute, 11290, 50, 5645, nil},
		{"24 hours is half", 24 * time.Hour, 11290, 50, 5645, nil},
		{"23.9 hours is refused", 23*time.Hour + 54*time.Minute, 11290, 0, 0, ErrNoRefundEligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			b := lesson(booking.StatusCancelled)
			cancelledAt := start.Add(-tt.notice)
			b.CancelledAt = &cancelledAt

			f.repo.On("GetByID", ctx, 42).Return(completedPayment(tt.amount), nil)
			f.bookings.On("GetByID", ctx, 5).Return(b, nil)
			requested := completedPayment(tt.amount)
			f.repo.On("RequestRefund", ctx, 42, tt.refund, tt.percent, "plans changed", testNow).Return(requested, nil)
			f.sink.On("NotifyAdmins", ctx, notify.KindRefundRequested, mock.MatchedBy(func(p notify.Payload) bool {
				return p[notify.KeyAmountCents] == tt.refund
			}))

			_, err := f.svc.RequestRefund(ctx, student, 42, RefundRequest{Reason: "plans changed"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.repo.AssertNotCalled(t, "RequestRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				f.sink.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			f.repo.AssertExpectations(t)
			f.sink.AssertExpectations(t)
		})
	}
}

func TestRequestRefund_Preconditions(t *testing.T) {
	ctx := context.Background()
	status := func(s string) *string { return &s }

	t.Run("payment not completed", func(t *testing.T) {
		f := newFixture()
		p := completedPayment(10000)
		p.Status = StatusPending
		f.repo.On("GetByID", ctx, 42).Return(p, nil)

		_, err := f.svc.RequestRefund(ctx, student, 42, RefundRequest{})
		assert.ErrorIs(t, err, ErrNotRefundable)
	})

	t.Run("already requested", func(t *testing.T) {
		f := newFixture()
		p := completedPayment(10000)
		p.RefundStatus = status(RefundRequested)
		f.repo.On("GetByID", ctx, 42).Return(p, nil)

		_, err := f.svc.RequestRefund(ctx, student, 42, RefundRequest{})
		assert.ErrorIs(t, err, ErrRefundExists)
	})

	t.Run("failed refund may be retried", func(t *testing.T) {
		f := newFixture()
		p := completedPayment(10000)
		p.RefundStatus = status(RefundFailed)
		b := lesson(booking.StatusCancelled)
		cancelledAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		b.CancelledAt = &cancelledAt

		f.repo.On("GetByID", ctx, 42).Return(p, nil)
		f.bookings.On("GetByID", ctx, 5).Return(b, nil)
		f.repo.On("RequestRefund", ctx, 42, int64(10000), 100, "", testNow).Return(p, nil)
		f.sink.On("NotifyAdmins", ctx, notify.KindRefundRequested, mock.Anything)

		_, err := f.svc.RequestRefund(ctx, student, 42, RefundRequest{})
		assert.NoError(t, err)
	})

	t.Run("booking still active", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, 42).Return(completedPayment(10000), nil)
		f.bookings.On("GetByID", ctx, 5).Return(lesson(booking.StatusConfirmed), nil)

		_, err := f.svc.RequestRefund(ctx, student, 42, RefundRequest{})
		assert.ErrorIs(t, err, ErrBookingNotCancelled)
	})

	t.Run("other student's payment", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, 42).Return(completedPayment(10000), nil)

		_, err := f.svc.RequestRefund(ctx, auth.Actor{ID: 11, Role: auth.RoleStudent}, 42, RefundRequest{})
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func requestedPayment() *Payment {
	p := completedPayment(11290)
	s := RefundRequested
	amount := int64(5645)
	p.RefundStatus = &s
	p.RefundAmountCents = &amount
	p.RefundReason = "sick"
	return p
}

func TestProcessRefund(t *testing.T) {
	yes, no := true, false

	t.Run("approved", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		done := requestedPayment()
		s := RefundCompleted
		done.RefundStatus = &s
		done.Status = StatusRefunded

		f.repo.On("GetByID", ctx, 42).Return(requestedPayment(), nil)
		f.gateway.On("Refund", ctx, "INV-1", int64(5645), "sick").Return(&gateway.RefundResult{Status: gateway.StatusSuccess, RefundRef: "RF-1"}, nil)
		f.repo.On("CompleteRefund", ctx, 42, "RF-1", "ok", testNow).Return(done, nil)
		f.bookings.On("MarkRefunded", ctx, 5).Return(nil)
		f.sink.On("Enqueue", ctx, 10, notify.KindRefundProcessed, mock.MatchedBy(func(p notify.Payload) bool {
			return p[notify.KeyApproved] == true
		})).Once()

		p, err := f.svc.ProcessRefund(ctx, admin, 42, ProcessRefundRequest{Approve: &yes, Notes: "ok"})

		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, p.Status)
		f.bookings.AssertExpectations(t)
		f.sink.AssertExpectations(t)
	})

	t.Run("gateway error leaves request untouched", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(requestedPayment(), nil)
		f.gateway.On("Refund", ctx, "INV-1", int64(5645), "sick").Return(nil, errors.New("503"))

		_, err := f.svc.ProcessRefund(ctx, admin, 42, ProcessRefundRequest{Approve: &yes})

		assert.ErrorIs(t, err, ErrGateway)
		f.repo.AssertNotCalled(t, "CompleteRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.bookings.AssertNotCalled(t, "MarkRefunded", mock.Anything, mock.Anything)
		f.sink.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway declines", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(requestedPayment(), nil)
		f.gateway.On("Refund", ctx, "INV-1", int64(5645), "sick").Return(&gateway.RefundResult{Status: gateway.StatusFailed}, nil)

		_, err := f.svc.ProcessRefund(ctx, admin, 42, ProcessRefundRequest{Approve: &yes})

		assert.ErrorIs(t, err, ErrGateway)
		f.repo.AssertNotCalled(t, "CompleteRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.bookings.AssertNotCalled(t, "MarkRefunded", mock.Anything, mock.Anything)
	})

	t.Run("gateway pending keeps request open for retry", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(requestedPayment(), nil)
		f.gateway.On("Refund", ctx, "INV-1", int64(5645), "sick").
			Return(&gateway.RefundResult{Status: gateway.StatusPending}, nil).Once()

		_, err := f.svc.ProcessRefund(ctx, admin, 42, ProcessRefundRequest{Approve: &yes})

		assert.ErrorIs(t, err, ErrRefundPending)
		assert.Equal(t, http.StatusBadGateway, api.StatusFor(err))
		f.repo.AssertNotCalled(t, "CompleteRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.repo.AssertNotCalled(t, "RejectRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.bookings.AssertNotCalled(t, "MarkRefunded", mock.Anything, mock.Anything)
		f.sink.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		// The retry sees the same requested payment and settles it once.
		f.gateway.On("Refund", ctx, "INV-1", int64(5645), "sick").
			Return(&gateway.RefundResult{Status: gateway.StatusSuccess, RefundRef: "RF-9"}, nil).Once()
		refunded := requestedPayment()
		refunded.Status = StatusRefunded
		done := RefundCompleted
		refunded.RefundStatus = &done
		f.repo.On("CompleteRefund", ctx, 42, "RF-9", "", testNow).Return(refunded, nil).Once()
		f.bookings.On("MarkRefunded", ctx, 5).Return(nil).Once()
		f.sink.On("Enqueue", ctx, 10, notify.KindRefundProcessed, mock.Anything).Once()

		p, err := f.svc.ProcessRefund(ctx, admin, 42, ProcessRefundRequest{Approve: &yes})

		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, p.Status)
		f.gateway.AssertNumberOfCalls(t, "Refund", 2)
		f.repo.AssertNumberOfCalls(t, "CompleteRefund", 1)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		rejected := requestedPayment()
		s := RefundRejected
		rejected.RefundStatus = &s

		f.repo.On("GetByID", ctx, 42).Return(requestedPayment(), nil)
		f.repo.On("RejectRefund", ctx, 42, "too late", testNow).Return(rejected, nil)
		f.sink.On("Enqueue", ctx, 10, notify.KindRefundProcessed, mock.MatchedBy(func(p notify.Payload) bool {
			return p[notify.KeyApproved] == false
		})).Once()

		p, err := f.svc.ProcessRefund(ctx, admin, 42, ProcessRefundRequest{Approve: &no, Notes: "too late"})

		require.NoError(t, err)
		assert.Equal(t, RefundRejected, *p.RefundStatus)
		f.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.sink.AssertExpectations(t)
	})

	t.Run("nothing requested", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("GetByID", ctx, 42).Return(completedPayment(11290), nil)

		_, err := f.svc.ProcessRefund(ctx, admin, 42, ProcessRefundRequest{Approve: &yes})
		assert.ErrorIs(t, err, ErrNoPendingRefund)
	})

	t.Run("not admin", func(t *testing.T) {
		_, err := newFixture().svc.ProcessRefund(context.Background(), student, 42, ProcessRefundRequest{Approve: &yes})
		assert.ErrorIs(t, err, ErrAdminsOnly)
	})
}

func TestList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("List", ctx, ListFilter{StudentID: 10, Limit: 20}).Return([]Payment{*completedPayment(100)}, nil)
	f.repo.On("List", ctx, ListFilter{Status: StatusCompleted, Limit: 50}).Return([]Payment{}, nil)

	list, err := f.svc.List(ctx, student, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.List(ctx, admin, ListQuery{Status: StatusCompleted, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, list)
}
