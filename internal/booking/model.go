package booking

import (
	"time"

	"github.com/lib/pq"

	"tutorbook/internal/schedule"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

type Booking struct {
	ID                 int            `db:"id" json:"id"`
	StudentID          int            `db:"student_id" json:"student_id"`
	TeacherID          int            `db:"teacher_id" json:"teacher_id"`
	Date               time.Time      `db:"date" json:"date"`
	StartTime          string         `db:"start_time" json:"start_time" example:"14:00"`
	EndTime            string         `db:"end_time" json:"end_time" example:"16:00"`
	DurationHours      float64        `db:"duration_hours" json:"duration_hours"`
	PriceCents         int64          `db:"price_cents" json:"price_cents"`
	Language           string         `db:"language" json:"language"`
	LessonType         string         `db:"lesson_type" json:"lesson_type"`
	Status             string         `db:"status" json:"status"`
	IsRecurring        bool           `db:"is_recurring" json:"is_recurring"`
	DaysPerWeek        *int           `db:"days_per_week" json:"days_per_week,omitempty"`
	HoursPerDay        *float64       `db:"hours_per_day" json:"hours_per_day,omitempty"`
	SpecificDays       pq.StringArray `db:"specific_days" json:"specific_days,omitempty" swaggertype:"array,string"`
	TotalCostCents     *int64         `db:"total_cost_cents" json:"total_cost_cents,omitempty"`
	TotalHoursPerMonth *float64       `db:"total_hours_per_month" json:"total_hours_per_month,omitempty"`
	ParentBookingID    *int           `db:"parent_booking_id" json:"parent_booking_id,omitempty"`
	ExpectedChildren   int            `db:"expected_children" json:"expected_children,omitempty"`
	MeetingLink        string         `db:"meeting_link" json:"meeting_link,omitempty"`
	Location           string         `db:"location" json:"location,omitempty"`
	Notes              string         `db:"notes" json:"notes,omitempty"`
	TeacherNotes       string         `db:"teacher_notes" json:"teacher_notes,omitempty"`
	ConfirmedAt        *time.Time     `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time     `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *int           `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason string         `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RejectedAt         *time.Time     `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason    string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CompletedAt        *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	Rating             *int           `db:"rating" json:"rating,omitempty"`
	Review             string         `db:"review" json:"review,omitempty"`
	RatedAt            *time.Time     `db:"rated_at" json:"rated_at,omitempty"`
	PaymentID          *int           `db:"payment_id" json:"payment_id,omitempty"`
	Refunded           bool           `db:"refunded" json:"refunded"`
	ReminderSentAt     *time.Time     `db:"reminder_sent_at" json:"-"`
	ExpiresAt          time.Time      `db:"expires_at" json:"expires_at"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// IsSeriesParent reports whether b aggregates a recurring series rather
// than being a concrete lesson.
func (b *Booking) IsSeriesParent() bool {
	return b.IsRecurring && b.ParentBookingID == nil
}

func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// StartsAt is the scheduled start instant in loc.
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	c, _ := schedule.ParseClock(b.StartTime)
	return schedule.At(b.Date, c, loc)
}

// EndsAt is the scheduled end instant in loc.
func (b *Booking) EndsAt(loc *time.Location) time.Time {
	c, _ := schedule.ParseClock(b.EndTime)
	return schedule.At(b.Date, c, loc)
}

// Involves reports whether userID is the student or the teacher of b.
func (b *Booking) Involves(userID int) bool {
	return b.StudentID == userID || b.TeacherID == userID
}

type CreateRequest struct {
	TeacherID    int      `json:"teacher_id" binding:"required,min=1"`
	Date         string   `json:"date" binding:"required" example:"2026-03-10"`
	StartTime    string   `json:"start_time" binding:"required" example:"14:00"`
	EndTime      string   `json:"end_time" binding:"required" example:"16:00"`
	Language     string   `json:"language" binding:"required,max=40"`
	LessonType   string   `json:"lesson_type" binding:"omitempty,max=50"`
	Notes        string   `json:"notes" binding:"omitempty,max=2000"`
	IsRecurring  bool     `json:"is_recurring"`
	DaysPerWeek  int      `json:"days_per_week" binding:"omitempty,min=1,max=7"`
	HoursPerDay  float64  `json:"hours_per_day" binding:"omitempty,min=1"`
	SpecificDays []string `json:"specific_days" binding:"omitempty,max=7"`
}

type ConfirmRequest struct {
	MeetingLink string `json:"meeting_link" binding:"omitempty,url"`
	Location    string `json:"location" binding:"omitempty,max=200"`
	Notes       string `json:"notes" binding:"omitempty,max=2000"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=1000"`
}

type CompleteRequest struct {
	TeacherNotes string `json:"teacher_notes" binding:"omitempty,max=2000"`
}

type RateRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review" binding:"omitempty,max=2000"`
}

type ListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed rejected cancelled completed expired"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// ListFilter scopes a listing to a party; zero ids are not filtered on.
type ListFilter struct {
	StudentID int
	TeacherID int
	Status    string
	Limit     int
	Offset    int
}

type CreateResult struct {
	Booking  *Booking  `json:"booking"`
	Children []Booking `json:"children,omitempty"`
	Skipped  []string  `json:"skipped_dates,omitempty"`
}
