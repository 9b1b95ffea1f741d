package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tutorbook/internal/db"
	"tutorbook/internal/schedule"
)

const bookingColumns = `id, student_id, teacher_id, date, start_time, end_time, duration_hours, price_cents,
	language, lesson_type, status, is_recurring, days_per_week, hours_per_day, specific_days,
	total_cost_cents, total_hours_per_month, parent_booking_id, expected_children,
	meeting_link, location, notes, teacher_notes, confirmed_at, cancelled_at, cancelled_by,
	cancellation_reason, rejected_at, rejection_reason, completed_at, rating, review, rated_at,
	payment_id, refunded, reminder_sent_at, expires_at, created_at, updated_at`

// Concrete lessons only; series parents never occupy a slot.
const lessonFilter = `NOT (is_recurring AND parent_booking_id IS NULL)`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func insertBooking(ctx context.Context, q sqlx.QueryerContext, b *Booking) (*Booking, error) {
	query := `INSERT INTO bookings (student_id, teacher_id, date, start_time, end_time, duration_hours, price_cents,
		language, lesson_type, status, is_recurring, days_per_week, hours_per_day, specific_days,
		total_cost_cents, total_hours_per_month, parent_booking_id, expected_children, notes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING ` + bookingColumns

	var out Booking
	err := sqlx.GetContext(ctx, q, &out, query,
		b.StudentID, b.TeacherID, b.Date.Format(schedule.DateLayout), b.StartTime, b.EndTime,
		b.DurationHours, b.PriceCents, b.Language, b.LessonType, StatusPending, b.IsRecurring,
		b.DaysPerWeek, b.HoursPerDay, b.SpecificDays, b.TotalCostCents, b.TotalHoursPerMonth,
		b.ParentBookingID, b.ExpectedChildren, b.Notes, b.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repository) TryReserveSlot(ctx context.Context, b *Booking) (*Booking, error) {
	start, err := schedule.ParseClock(b.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseClock(b.EndTime)
	if err != nil {
		return nil, err
	}
	date := b.Date.Format(schedule.DateLayout)

	var created *Booking
	err = db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		key := lockKey(b.Date.Year(), int(b.Date.Month()), b.Date.Day())
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, b.TeacherID, key); err != nil {
			return fmt.Errorf("lock teacher day: %w", err)
		}

		var taken []Slot
		query := `SELECT start_time, end_time FROM bookings WHERE teacher_id = $1 AND date = $2 AND status IN ('pending', 'confirmed') AND ` + lessonFilter
		if err := tx.SelectContext(ctx, &taken, query, b.TeacherID, date); err != nil {
			return err
		}
		if conflicts(taken, start, end) {
			return ErrSchedulingConflict
		}

		inserted, err := insertBooking(ctx, tx, b)
		if err != nil {
			return err
		}
		created = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) CreateParent(ctx context.Context, b *Booking) (*Booking, error) {
	return insertBooking(ctx, r.db, b)
}

func (r *repository) UpdateSeries(ctx context.Context, parentID, children int, totalCostCents int64, totalHours float64) error {
	query := `UPDATE bookings SET expected_children = $2, total_cost_cents = $3, total_hours_per_month = $4, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, parentID, children, totalCostCents, totalHours)
	return err
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE ($1 = 0 OR student_id = $1) AND ($2 = 0 OR teacher_id = $2) AND ($3 = '' OR status = $3)
		ORDER BY date DESC, start_time DESC
		LIMIT $4 OFFSET $5`

	bookings := []Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, f.StudentID, f.TeacherID, f.Status, f.Limit, f.Offset); err != nil {
		return nil, err
	}
	return bookings, nil
}

// transition runs a conditional UPDATE ... RETURNING; no matching row means
// the booking is missing, not the actor's, or no longer in the source state.
func (r *repository) transition(ctx context.Context, query string, args ...interface{}) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, query+` RETURNING `+bookingColumns, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFoundOrAlreadyProcessed
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) Confirm(ctx context.Context, id, teacherID int, at time.Time, req ConfirmRequest) (*Booking, error) {
	return r.transition(ctx, `UPDATE bookings SET status = 'confirmed', confirmed_at = $3, meeting_link = $4, location = $5,
		notes = CASE WHEN $6 = '' THEN notes ELSE $6 END, updated_at = $3
		WHERE id = $1 AND teacher_id = $2 AND status = 'pending'`,
		id, teacherID, at, req.MeetingLink, req.Location, req.Notes)
}

func (r *repository) Reject(ctx context.Context, id, teacherID int, at time.Time, reason string) (*Booking, error) {
	return r.transition(ctx, `UPDATE bookings SET status = 'rejected', rejected_at = $3, rejection_reason = $4, updated_at = $3
		WHERE id = $1 AND teacher_id = $2 AND status = 'pending'`,
		id, teacherID, at, reason)
}

func (r *repository) Cancel(ctx context.Context, id, byUserID int, at time.Time, reason string) (*Booking, error) {
	return r.transition(ctx, `UPDATE bookings SET status = 'cancelled', cancelled_at = $3, cancelled_by = $2, cancellation_reason = $4, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'confirmed')`,
		id, byUserID, at, reason)
}

func (r *repository) Complete(ctx context.Context, id, teacherID int, at time.Time, notes string) (*Booking, error) {
	return r.transition(ctx, `UPDATE bookings SET status = 'completed', completed_at = $3, teacher_notes = $4, updated_at = $3
		WHERE id = $1 AND teacher_id = $2 AND status = 'confirmed'`,
		id, teacherID, at, notes)
}

func (r *repository) Rate(ctx context.Context, id, studentID, rating int, review string, at time.Time) (*Booking, error) {
	return r.transition(ctx, `UPDATE bookings SET rating = $3, review = $4, rated_at = $5, updated_at = $5
		WHERE id = $1 AND student_id = $2 AND status = 'completed' AND rating IS NULL`,
		id, studentID, rating, review, at)
}

func (r *repository) CountChildren(ctx context.Context, parentID int, status string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bookings WHERE parent_booking_id = $1 AND status = $2`, parentID, status)
	return n, err
}

// parentTransitions lists, per target status, the column stamped and the
// statuses a parent may be moved from.
var parentTransitions = map[string]struct {
	column string
	from   string
}{
	StatusConfirmed: {"confirmed_at", `('pending')`},
	StatusRejected:  {"rejected_at", `('pending', 'confirmed')`},
	StatusCancelled: {"cancelled_at", `('pending', 'confirmed')`},
	StatusCompleted: {"completed_at", `('pending', 'confirmed')`},
}

func (r *repository) SetParentStatus(ctx context.Context, parentID int, status string, at time.Time) error {
	t, ok := parentTransitions[status]
	if !ok {
		return fmt.Errorf("no parent transition to %q", status)
	}

	query := `UPDATE bookings SET status = $2, ` + t.column + ` = $3, updated_at = $3 WHERE id = $1 AND status IN ` + t.from
	_, err := r.db.ExecContext(ctx, query, parentID, status, at)
	return err
}

func (r *repository) AverageRating(ctx context.Context, teacherID int) (float64, int, error) {
	var row struct {
		Avg   float64 `db:"avg"`
		Count int     `db:"count"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT COALESCE(AVG(rating), 0) AS avg, COUNT(rating) AS count FROM bookings WHERE teacher_id = $1 AND rating IS NOT NULL`,
		teacherID)
	return row.Avg, row.Count, err
}

func (r *repository) ExpireStale(ctx context.Context, now time.Time) ([]Booking, error) {
	query := `UPDATE bookings SET status = 'expired', updated_at = $1 WHERE status IN ('pending', 'confirmed') AND expires_at < $1 RETURNING ` + bookingColumns

	expired := []Booking{}
	if err := r.db.SelectContext(ctx, &expired, query, now); err != nil {
		return nil, err
	}
	return expired, nil
}

func (r *repository) DueReminders(ctx context.Context, day time.Time) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'confirmed' AND date = $1 AND reminder_sent_at IS NULL AND ` + lessonFilter + `
		ORDER BY start_time`

	due := []Booking{}
	if err := r.db.SelectContext(ctx, &due, query, day.Format(schedule.DateLayout)); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *repository) MarkReminded(ctx context.Context, id int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bookings SET reminder_sent_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *repository) HasActiveBookings(ctx context.Context, userID int) (bool, error) {
	return db.Exists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE (student_id = $1 OR teacher_id = $1) AND status IN ('pending', 'confirmed'))`,
		userID)
}

func (r *repository) LinkPayment(ctx context.Context, id, paymentID int) error {
	return r.exec(ctx, `UPDATE bookings SET payment_id = $2, updated_at = NOW() WHERE id = $1`, id, paymentID)
}

func (r *repository) MarkRefunded(ctx context.Context, id int) error {
	return r.exec(ctx, `UPDATE bookings SET refunded = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (r *repository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}
