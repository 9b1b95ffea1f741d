package booking

import (
	"context"
	"time"
)

type Repository interface {
	// TryReserveSlot inserts b unless an active lesson of the same teacher
	// on the same date overlaps it.
	TryReserveSlot(ctx context.Context, b *Booking) (*Booking, error)
	CreateParent(ctx context.Context, b *Booking) (*Booking, error)
	UpdateSeries(ctx context.Context, parentID, children int, totalCostCents int64, totalHours float64) error
	GetByID(ctx context.Context, id int) (*Booking, error)
	List(ctx context.Context, f ListFilter) ([]Booking, error)

	Confirm(ctx context.Context, id, teacherID int, at time.Time, req ConfirmRequest) (*Booking, error)
	Reject(ctx context.Context, id, teacherID int, at time.Time, reason string) (*Booking, error)
	Cancel(ctx context.Context, id, byUserID int, at time.Time, reason string) (*Booking, error)
	Complete(ctx context.Context, id, teacherID int, at time.Time, notes string) (*Booking, error)
	Rate(ctx context.Context, id, studentID, rating int, review string, at time.Time) (*Booking, error)

	CountChildren(ctx context.Context, parentID int, status string) (int, error)
	SetParentStatus(ctx context.Context, parentID int, status string, at time.Time) error
	AverageRating(ctx context.Context, teacherID int) (float64, int, error)

	ExpireStale(ctx context.Context, now time.Time) ([]Booking, error)
	DueReminders(ctx context.Context, day time.Time) ([]Booking, error)
	MarkReminded(ctx context.Context, id int, at time.Time) error
	HasActiveBookings(ctx context.Context, userID int) (bool, error)

	LinkPayment(ctx context.Context, id, paymentID int) error
	MarkRefunded(ctx context.Context, id int) error
}
