package notify

import (
	"context"
	"encoding/json"
	"time"

	"tutorbook/internal/api"
	"tutorbook/internal/email"
	"tutorbook/internal/logger"
	"tutorbook/internal/metrics"
	"tutorbook/internal/user"
)

var ErrNotificationNotFound = api.NewError(api.ErrNotFound, "notification not found")

// Sink is what the booking and payment engines notify through. Delivery
// failures are logged and never returned to the caller.
type Sink interface {
	Enqueue(ctx context.Context, recipientID int, kind string, payload Payload)
	NotifyAdmins(ctx context.Context, kind string, payload Payload)
}

// Directory resolves recipients for email and admin fan-out.
type Directory interface {
	GetByID(ctx context.Context, userID int) (*user.User, error)
	AdminIDs(ctx context.Context) ([]int, error)
}

// Mailer is the subset of the email service the bridge uses.
type Mailer interface {
	SendBookingRequest(ctx context.Context, to, name string, l email.Lesson) error
	SendBookingConfirmation(ctx context.Context, to, name string, l email.Lesson) error
	SendCancellation(ctx context.Context, to, name string, l email.Lesson) error
	SendReminder(ctx context.Context, to, name string, l email.Lesson) error
	SendPaymentReceipt(ctx context.Context, to, name string, r email.Receipt) error
	SendRefundOutcome(ctx context.Context, to, name string, r email.RefundOutcome) error
}

type Dispatcher struct {
	repo      Repository
	publisher Publisher
	mailer    Mailer
	directory Directory
	now       func() time.Time
}

// NewDispatcher wires the store with optional broker and email outputs;
// nil publisher or mailer disables that output.
func NewDispatcher(repo Repository, publisher Publisher, mailer Mailer, directory Directory) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		publisher: publisher,
		mailer:    mailer,
		directory: directory,
		now:       time.Now,
	}
}

func (d *Dispatcher) Enqueue(ctx context.Context, recipientID int, kind string, payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to encode notification", "kind", kind, "error", err)
		return
	}

	event := Event{RecipientID: recipientID, Kind: kind, Payload: body, CreatedAt: d.now()}

	n, err := d.repo.Insert(ctx, recipientID, kind, body)
	if err != nil {
		metrics.RecordNotification(kind, "store_failed")
		logger.Error("failed to store notification", "recipient_id", recipientID, "kind", kind, "error", err)
	} else {
		event.ID = n.ID
		event.CreatedAt = n.CreatedAt
		metrics.RecordNotification(kind, "stored")
	}

	if d.publisher != nil {
		d.publish(ctx, event)
	}

	if d.mailer != nil && d.directory != nil {
		if err := d.mail(ctx, recipientID, kind, payload); err != nil {
			metrics.RecordNotification(kind, "email_failed")
			logger.Warn("failed to email notification", "recipient_id", recipientID, "kind", kind, "error", err)
		}
	}
}

func (d *Dispatcher) NotifyAdmins(ctx context.Context, kind string, payload Payload) {
	if d.directory == nil {
		return
	}
	ids, err := d.directory.AdminIDs(ctx)
	if err != nil {
		logger.Error("failed to load admins", "kind", kind, "error", err)
		return
	}
	for _, id := range ids {
		d.Enqueue(ctx, id, kind, payload)
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to encode event", "kind", event.Kind, "error", err)
		return
	}
	if err := d.publisher.Publish(ctx, "notification."+event.Kind, body); err != nil {
		metrics.RecordNotification(event.Kind, "publish_failed")
		logger.Warn("failed to publish notification", "kind", event.Kind, "error", err)
		return
	}
	metrics.RecordNotification(event.Kind, "published")
}

func (d *Dispatcher) List(ctx context.Context, recipientID int, q ListQuery) ([]Notification, error) {
	if q.Limit == 0 {
		q.Limit = 20
	}
	return d.repo.ListForRecipient(ctx, recipientID, q)
}

func (d *Dispatcher) MarkRead(ctx context.Context, id, recipientID int) error {
	return d.repo.MarkRead(ctx, id, recipientID, d.now())
}

// CleanupRead deletes notifications read more than olderThan ago.
func (d *Dispatcher) CleanupRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	return d.repo.DeleteReadBefore(ctx, d.now().Add(-olderThan))
}
