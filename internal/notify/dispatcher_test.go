package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutorbook/internal/email"
	"tutorbook/internal/user"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestDispatcher(repo *MockRepository, pub Publisher, mailer Mailer, dir Directory) *Dispatcher {
	d := NewDispatcher(repo, pub, mailer, dir)
	d.now = func() time.Time { return fixedNow }
	return d
}

func TestEnqueue_StoresAndPublishes(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)

	repo.On("Insert", mock.Anything, 7, KindBookingRejected, mock.Anything).
		Return(&Notification{ID: 11, RecipientID: 7, Kind: KindBookingRejected, CreatedAt: fixedNow}, nil)
	pub.On("Publish", mock.Anything, "notification.booking_rejected", mock.MatchedBy(func(body []byte) bool {
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return false
		}
		return ev.ID == 11 && ev.RecipientID == 7 && string(ev.Payload) == `{"booking_id":3}`
	})).Return(nil)

	d := newTestDispatcher(repo, pub, nil, nil)
	d.Enqueue(context.Background(), 7, KindBookingRejected, Payload{KeyBookingID: 3})

	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestEnqueue_FailuresAreSwallowed(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)

	repo.On("Insert", mock.Anything, 7, KindBookingExpired, mock.Anything).Return(nil, errors.New("db down"))
	pub.On("Publish", mock.Anything, "notification.booking_expired", mock.Anything).Return(errors.New("broker down"))

	d := newTestDispatcher(repo, pub, nil, nil)
	assert.NotPanics(t, func() {
		d.Enqueue(context.Background(), 7, KindBookingExpired, Payload{KeyBookingID: 3})
	})
	pub.AssertExpectations(t)
}

func TestEnqueue_EmailsBookingRequest(t *testing.T) {
	repo := new(MockRepository)
	mailer := new(MockMailer)
	dir := new(MockDirectory)
	startsAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	repo.On("Insert", mock.Anything, 2, KindBookingRequested, mock.Anything).Return(&Notification{ID: 1}, nil)
	dir.On("GetByID", mock.Anything, 2).Return(&user.User{ID: 2, Name: "Ana", Email: "ana@example.com"}, nil)
	dir.On("GetByID", mock.Anything, 5).Return(&user.User{ID: 5, Name: "Sam"}, nil)
	mailer.On("SendBookingRequest", mock.Anything, "ana@example.com", "Ana", email.Lesson{
		With: "Sam", Language: "Spanish", LessonType: "conversation", When: startsAt,
	}).Return(nil)

	d := newTestDispatcher(repo, nil, mailer, dir)
	d.Enqueue(context.Background(), 2, KindBookingRequested, Payload{
		KeyBookingID:     9,
		KeyCounterpartID: 5,
		KeyLanguage:      "Spanish",
		KeyLessonType:    "conversation",
		KeyStartsAt:      startsAt,
	})

	mailer.AssertExpectations(t)
}

func TestEnqueue_ReceiptOnlyForStudent(t *testing.T) {
	repo := new(MockRepository)
	mailer := new(MockMailer)
	dir := new(MockDirectory)
	payload := Payload{
		KeyStudentID:   5,
		KeyInvoice:     "INV-1",
		KeyAmountCents: int64(11290),
		KeyCurrency:    "USD",
		KeyMethod:      "credit_card",
	}

	repo.On("Insert", mock.Anything, mock.Anything, KindPaymentCompleted, mock.Anything).Return(&Notification{}, nil)
	dir.On("GetByID", mock.Anything, 5).Return(&user.User{ID: 5, Name: "Sam", Email: "sam@example.com"}, nil)
	mailer.On("SendPaymentReceipt", mock.Anything, "sam@example.com", "Sam", email.Receipt{
		InvoiceNumber: "INV-1", AmountCents: 11290, Currency: "USD", Method: "credit_card",
	}).Return(nil).Once()

	d := newTestDispatcher(repo, nil, mailer, dir)
	d.Enqueue(context.Background(), 5, KindPaymentCompleted, payload)
	d.Enqueue(context.Background(), 2, KindPaymentCompleted, payload)

	mailer.AssertExpectations(t)
	dir.AssertNotCalled(t, "GetByID", mock.Anything, 2)
}

func TestEnqueue_NoEmailForUnbridgedKind(t *testing.T) {
	repo := new(MockRepository)
	mailer := new(MockMailer)
	dir := new(MockDirectory)
	repo.On("Insert", mock.Anything, 5, KindBookingCompleted, mock.Anything).Return(&Notification{}, nil)

	d := newTestDispatcher(repo, nil, mailer, dir)
	d.Enqueue(context.Background(), 5, KindBookingCompleted, Payload{KeyBookingID: 1})

	dir.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestNotifyAdmins(t *testing.T) {
	repo := new(MockRepository)
	dir := new(MockDirectory)
	dir.On("AdminIDs", mock.Anything).Return([]int{1, 4}, nil)
	repo.On("Insert", mock.Anything, 1, KindRefundRequested, mock.Anything).Return(&Notification{}, nil).Once()
	repo.On("Insert", mock.Anything, 4, KindRefundRequested, mock.Anything).Return(&Notification{}, nil).Once()

	d := newTestDispatcher(repo, nil, nil, dir)
	d.NotifyAdmins(context.Background(), KindRefundRequested, Payload{"payment_id": 8})

	repo.AssertExpectations(t)
}

func TestListDefaultsLimit(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListForRecipient", mock.Anything, 5, ListQuery{Limit: 20}).Return([]Notification{{ID: 1}}, nil)

	items, err := newTestDispatcher(repo, nil, nil, nil).List(context.Background(), 5, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMarkReadAndCleanup(t *testing.T) {
	repo := new(MockRepository)
	repo.On("MarkRead", mock.Anything, 3, 5, fixedNow).Return(nil)
	repo.On("DeleteReadBefore", mock.Anything, fixedNow.Add(-30*24*time.Hour)).Return(int64(12), nil)

	d := newTestDispatcher(repo, nil, nil, nil)
	assert.NoError(t, d.MarkRead(context.Background(), 3, 5))

	n, err := d.CleanupRead(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}
