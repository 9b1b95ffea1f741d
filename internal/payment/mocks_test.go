package payment

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tutorbook/internal/booking"
	"tutorbook/internal/gateway"
	"tutorbook/internal/notify"
	"tutorbook/internal/user"
)

type MockRepository struct {
	mock.Mock
}

func payment(args mock.Arguments) (*Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	args := m.Called(ctx, p)
	if fn, ok := args.Get(0).(func(*Payment) *Payment); ok {
		return fn(p), args.Error(1)
	}
	return payment(args)
}

func (m *MockRepository) GetByID(ctx context.Context, id int) (*Payment, error) {
	return payment(m.Called(ctx, id))
}

func (m *MockRepository) GetByTransactionID(ctx context.Context, txRef string) (*Payment, error) {
	return payment(m.Called(ctx, txRef))
}

func (m *MockRepository) FindPending(ctx context.Context, bookingID int) (*Payment, error) {
	return payment(m.Called(ctx, bookingID))
}

func (m *MockRepository) HasCompleted(ctx context.Context, bookingID int) (bool, error) {
	args := m.Called(ctx, bookingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]Payment, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Payment), args.Error(1)
}

func (m *MockRepository) UpdatePending(ctx context.Context, id int, method string, a Amounts) (*Payment, error) {
	return payment(m.Called(ctx, id, method, a))
}

func (m *MockRepository) SetCheckout(ctx context.Context, id int, txRef, link string) error {
	return m.Called(ctx, id, txRef, link).Error(0)
}

func (m *MockRepository) MarkCompleted(ctx context.Context, id int, paidAt time.Time) (*Payment, error) {
	return payment(m.Called(ctx, id, paidAt))
}

func (m *MockRepository) MarkFailed(ctx context.Context, id int, at time.Time) (*Payment, error) {
	return payment(m.Called(ctx, id, at))
}

func (m *MockRepository) RequestRefund(ctx context.Context, id int, amountCents int64, percent int, reason string, at time.Time) (*Payment, error) {
	return payment(m.Called(ctx, id, amountCents, percent, reason, at))
}

func (m *MockRepository) CompleteRefund(ctx context.Context, id int, refundRef, notes string, at time.Time) (*Payment, error) {
	return payment(m.Called(ctx, id, refundRef, notes, at))
}

func (m *MockRepository) RejectRefund(ctx context.Context, id int, notes string, at time.Time) (*Payment, error) {
	return payment(m.Called(ctx, id, notes, at))
}

type MockBookings struct {
	mock.Mock
}

func (m *MockBookings) GetByID(ctx context.Context, id int) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookings) LinkPayment(ctx context.Context, id, paymentID int) error {
	return m.Called(ctx, id, paymentID).Error(0)
}

func (m *MockBookings) MarkRefunded(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type MockPayers struct {
	mock.Mock
}

func (m *MockPayers) GetByID(ctx context.Context, userID int) (*user.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initialize(ctx context.Context, req gateway.InitRequest) (*gateway.InitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitResult), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, txRef string) (*gateway.VerifyResult, error) {
	args := m.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.VerifyResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, txRef string, amountCents int64, reason string) (*gateway.RefundResult, error) {
	args := m.Called(ctx, txRef, amountCents, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

func (m *MockGateway) VerifySignature(n gateway.Notification) bool {
	return m.Called(n).Bool(0)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Enqueue(ctx context.Context, recipientID int, kind string, payload notify.Payload) {
	m.Called(ctx, recipientID, kind, payload)
}

func (m *MockSink) NotifyAdmins(ctx context.Context, kind string, payload notify.Payload) {
	m.Called(ctx, kind, payload)
}
