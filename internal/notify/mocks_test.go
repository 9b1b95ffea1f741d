package notify

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tutorbook/internal/email"
	"tutorbook/internal/user"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, recipientID int, kind string, payload []byte) (*Notification, error) {
	args := m.Called(ctx, recipientID, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockRepository) ListForRecipient(ctx context.Context, recipientID int, q ListQuery) ([]Notification, error) {
	args := m.Called(ctx, recipientID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Notification), args.Error(1)
}

func (m *MockRepository) MarkRead(ctx context.Context, id, recipientID int, at time.Time) error {
	return m.Called(ctx, id, recipientID, at).Error(0)
}

func (m *MockRepository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return m.Called(ctx, routingKey, body).Error(0)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetByID(ctx context.Context, userID int) (*user.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockDirectory) AdminIDs(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendBookingRequest(ctx context.Context, to, name string, l email.Lesson) error {
	return m.Called(ctx, to, name, l).Error(0)
}

func (m *MockMailer) SendBookingConfirmation(ctx context.Context, to, name string, l email.Lesson) error {
	return m.Called(ctx, to, name, l).Error(0)
}

func (m *MockMailer) SendCancellation(ctx context.Context, to, name string, l email.Lesson) error {
	return m.Called(ctx, to, name, l).Error(0)
}

func (m *MockMailer) SendReminder(ctx context.Context, to, name string, l email.Lesson) error {
	return m.Called(ctx, to, name, l).Error(0)
}

func (m *MockMailer) SendPaymentReceipt(ctx context.Context, to, name string, r email.Receipt) error {
	return m.Called(ctx, to, name, r).Error(0)
}

func (m *MockMailer) SendRefundOutcome(ctx context.Context, to, name string, r email.RefundOutcome) error {
	return m.Called(ctx, to, name, r).Error(0)
}
