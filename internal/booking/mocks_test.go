package booking

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tutorbook/internal/notify"
	"tutorbook/internal/teacher"
)

type MockRepository struct {
	mock.Mock
}

// booking unpacks a *Booking result; a func(*Booking) *Booking lets a test
// echo the argument back.
func booking(args mock.Arguments, in *Booking) (*Booking, error) {
	if fn, ok := args.Get(0).(func(*Booking) *Booking); ok {
		return fn(in), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepository) TryReserveSlot(ctx context.Context, b *Booking) (*Booking, error) {
	return booking(m.Called(ctx, b), b)
}

func (m *MockRepository) CreateParent(ctx context.Context, b *Booking) (*Booking, error) {
	return booking(m.Called(ctx, b), b)
}

func (m *MockRepository) UpdateSeries(ctx context.Context, parentID, children int, totalCostCents int64, totalHours float64) error {
	return m.Called(ctx, parentID, children, totalCostCents, totalHours).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int) (*Booking, error) {
	return booking(m.Called(ctx, id), nil)
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockRepository) Confirm(ctx context.Context, id, teacherID int, at time.Time, req ConfirmRequest) (*Booking, error) {
	return booking(m.Called(ctx, id, teacherID, at, req), nil)
}

func (m *MockRepository) Reject(ctx context.Context, id, teacherID int, at time.Time, reason string) (*Booking, error) {
	return booking(m.Called(ctx, id, teacherID, at, reason), nil)
}

func (m *MockRepository) Cancel(ctx context.Context, id, byUserID int, at time.Time, reason string) (*Booking, error) {
	return booking(m.Called(ctx, id, byUserID, at, reason), nil)
}

func (m *MockRepository) Complete(ctx context.Context, id, teacherID int, at time.Time, notes string) (*Booking, error) {
	return booking(m.Called(ctx, id, teacherID, at, notes), nil)
}

func (m *MockRepository) Rate(ctx context.Context, id, studentID, rating int, review string, at time.Time) (*Booking, error) {
	return booking(m.Called(ctx, id, studentID, rating, review, at), nil)
}

func (m *MockRepository) CountChildren(ctx context.Context, parentID int, status string) (int, error) {
	args := m.Called(ctx, parentID, status)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) SetParentStatus(ctx context.Context, parentID int, status string, at time.Time) error {
	return m.Called(ctx, parentID, status, at).Error(0)
}

func (m *MockRepository) AverageRating(ctx context.Context, teacherID int) (float64, int, error) {
	args := m.Called(ctx, teacherID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *MockRepository) ExpireStale(ctx context.Context, now time.Time) ([]Booking, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockRepository) DueReminders(ctx context.Context, day time.Time) ([]Booking, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockRepository) MarkReminded(ctx context.Context, id int, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockRepository) HasActiveBookings(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) LinkPayment(ctx context.Context, id, paymentID int) error {
	return m.Called(ctx, id, paymentID).Error(0)
}

func (m *MockRepository) MarkRefunded(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type MockTeachers struct {
	mock.Mock
}

func (m *MockTeachers) FindApprovedTeacher(ctx context.Context, id int) (*teacher.Teacher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*teacher.Teacher), args.Error(1)
}

func (m *MockTeachers) UpdateRating(ctx context.Context, id int, avg float64, count int) error {
	return m.Called(ctx, id, avg, count).Error(0)
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
