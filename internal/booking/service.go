package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"tutorbook/internal/api"
	"tutorbook/internal/auth"
	"tutorbook/internal/logger"
	"tutorbook/internal/metrics"
	"tutorbook/internal/notify"
	"tutorbook/internal/schedule"
	"tutorbook/internal/teacher"
)

var (
	ErrBookingNotFound            = api.NewError(api.ErrNotFound, "booking not found")
	ErrNotFoundOrAlreadyProcessed = api.NewError(api.ErrNotFound, "booking not found or already processed")
	ErrTeacherNotFound            = teacher.ErrTeacherNotFound
	ErrLanguageNotTaught          = api.NewError(api.ErrValidation, "teacher does not teach this language")
	ErrInvalidTimeRange           = api.NewError(api.ErrValidation, "end time must be after start time")
	ErrDateInPast                 = api.NewError(api.ErrValidation, "lesson must start in the future")
	ErrInvalidRecurrence          = api.NewError(api.ErrValidation, "recurring bookings need days_per_week, hours_per_day equal to the lesson length, and specific_days")
	ErrSchedulingConflict         = api.NewError(api.ErrConflict, "teacher already has a lesson at this time")
	ErrWithinCancellationWindow   = api.NewError(api.ErrInvalidState, "lessons cannot be cancelled less than 24 hours before they end")
	ErrLessonNotFinished          = api.NewError(api.ErrInvalidState, "lesson has not ended yet")
	ErrNotRateable                = api.NewError(api.ErrInvalidState, "booking is not completed or was already rated")
	ErrSeriesParent               = api.NewError(api.ErrInvalidState, "recurring series change status through their individual lessons")
	ErrStudentsOnly               = api.NewError(api.ErrForbidden, "only students can book lessons")
	ErrTeachersOnly               = api.NewError(api.ErrForbidden, "only the assigned teacher can do this")
)

const DefaultTTL = 30 * 24 * time.Hour

// TeacherDirectory is what bookings need to know about teachers.
type TeacherDirectory interface {
	FindApprovedTeacher(ctx context.Context, id int) (*teacher.Teacher, error)
	UpdateRating(ctx context.Context, id int, avg float64, count int) error
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*CreateResult, error)
	Confirm(ctx context.Context, actor auth.Actor, id int, req ConfirmRequest) (*Booking, error)
	Reject(ctx context.Context, actor auth.Actor, id int, req RejectRequest) (*Booking, error)
	Cancel(ctx context.Context, actor auth.Actor, id int, req CancelRequest) (*Booking, error)
	Complete(ctx context.Context, actor auth.Actor, id int, req CompleteRequest) (*Booking, error)
	Rate(ctx context.Context, actor auth.Actor, id int, req RateRequest) (*Booking, error)
	Get(ctx context.Context, actor auth.Actor, id int) (*Booking, error)
	List(ctx context.Context, actor auth.Actor, q ListQuery) ([]Booking, error)
	ExpireStale(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
	HasActiveBookings(ctx context.Context, userID int) (bool, error)
}

type Options struct {
	Location *time.Location
	TTL      time.Duration
}

type service struct {
	repo     Repository
	teachers TeacherDirectory
	sink     notify.Sink
	loc      *time.Location
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo Repository, teachers TeacherDirectory, sink notify.Sink, opts Options) Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &service{
		repo:     repo,
		teachers: teachers,
		sink:     sink,
		loc:      opts.Location,
		ttl:      opts.TTL,
		now:      time.Now,
	}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*CreateResult, error) {
	if !actor.IsStudent() {
		return nil, ErrStudentsOnly
	}

	t, err := s.teachers.FindApprovedTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	if !t.Teaches(req.Language) {
		return nil, ErrLanguageNotTaught
	}

	date, err := schedule.ParseDate(req.Date, s.loc)
	if err != nil {
		return nil, err
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		return nil, err
	}
	duration := schedule.DurationHours(start, end)
	if duration <= 0 {
		return nil, ErrInvalidTimeRange
	}

	now := s.now()
	if !schedule.At(date, start, s.loc).After(now) {
		return nil, ErrDateInPast
	}

	base := Booking{
		StudentID:     actor.ID,
		TeacherID:     t.UserID,
		Date:          date,
		StartTime:     start.String(),
		EndTime:       end.String(),
		DurationHours: duration,
		PriceCents:    int64(math.Round(duration * float64(t.HourlyRateCents))),
		Language:      req.Language,
		LessonType:    req.LessonType,
		Notes:         req.Notes,
		ExpiresAt:     now.Add(s.ttl),
	}

	if !req.IsRecurring {
		b, err := s.repo.TryReserveSlot(ctx, &base)
		if err != nil {
			return nil, err
		}
		metrics.RecordBookingTransition(StatusPending)
		logger.Info("booking created", "booking_id", b.ID, "teacher_id", b.TeacherID, "student_id", b.StudentID)
		s.sink.Enqueue(ctx, b.TeacherID, notify.KindBookingRequested, s.payload(b, b.StudentID))
		return &CreateResult{Booking: b}, nil
	}

	return s.createSeries(ctx, base, req, duration)
}

// createSeries books one child per matching day left in the month. Days
// that clash with existing lessons are skipped, not fatal.
func (s *service) createSeries(ctx context.Context, base Booking, req CreateRequest, duration float64) (*CreateResult, error) {
	if req.DaysPerWeek < 1 || req.DaysPerWeek > 7 || math.Abs(req.HoursPerDay-duration) > 1e-9 || len(req.SpecificDays) == 0 {
		return nil, ErrInvalidRecurrence
	}
	days, err := schedule.ParseWeekdays(req.SpecificDays)
	if err != nil {
		return nil, err
	}

	occurrences := schedule.RemainingMonthDays(base.Date, days)

	daysPerWeek := req.DaysPerWeek
	hoursPerDay := req.HoursPerDay
	parent := base
	parent.IsRecurring = true
	parent.DaysPerWeek = &daysPerWeek
	parent.HoursPerDay = &hoursPerDay
	parent.SpecificDays = days.Names()
	parent.ExpectedChildren = len(occurrences)

	created, err := s.repo.CreateParent(ctx, &parent)
	if err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}

	result := &CreateResult{Booking: created}
	for _, day := range occurrences {
		child := base
		child.IsRecurring = true
		child.Date = day
		child.ParentBookingID = &created.ID

		b, err := s.repo.TryReserveSlot(ctx, &child)
		if errors.Is(err, ErrSchedulingConflict) {
			result.Skipped = append(result.Skipped, day.Format(schedule.DateLayout))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create occurrence %s: %w", day.Format(schedule.DateLayout), err)
		}
		result.Children = append(result.Children, *b)
	}

	n := len(result.Children)
	totalCost := base.PriceCents * int64(n)
	totalHours := duration * float64(n)
	if err := s.repo.UpdateSeries(ctx, created.ID, n, totalCost, totalHours); err != nil {
		return nil, fmt.Errorf("update series: %w", err)
	}
	created.ExpectedChildren = n
	created.TotalCostCents = &totalCost
	created.TotalHoursPerMonth = &totalHours

	metrics.RecordBookingTransition(StatusPending)
	metrics.RecordSkippedOccurrences(len(result.Skipped))
	logger.Info("recurring booking created",
		"booking_id", created.ID, "children", n, "skipped", len(result.Skipped))

	s.sink.Enqueue(ctx, created.TeacherID, notify.KindBookingRequested, s.payload(created, created.StudentID))
	return result, nil
}

func (s *service) Confirm(ctx context.Context, actor auth.Actor, id int, req ConfirmRequest) (*Booking, error) {
	if !actor.IsTeacher() {
		return nil, ErrTeachersOnly
	}

	if _, err := s.target(ctx, id, func(b *Booking) bool { return b.TeacherID == actor.ID }); err != nil {
		return nil, err
	}

	b, err := s.repo.Confirm(ctx, id, actor.ID, s.now(), req)
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, b, StatusConfirmed)
	s.sink.Enqueue(ctx, b.StudentID, notify.KindBookingConfirmed, s.payload(b, b.TeacherID))
	return b, nil
}

func (s *service) Reject(ctx context.Context, actor auth.Actor, id int, req RejectRequest) (*Booking, error) {
	if !actor.IsTeacher() {
		return nil, ErrTeachersOnly
	}

	if _, err := s.target(ctx, id, func(b *Booking) bool { return b.TeacherID == actor.ID }); err != nil {
		return nil, err
	}

	now := s.now()
	b, err := s.repo.Reject(ctx, id, actor.ID, now, req.Reason)
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingTransition(StatusRejected)
	logger.Info("booking rejected", "booking_id", b.ID, "teacher_id", actor.ID)

	// Any rejected occurrence voids the whole series.
	if b.ParentBookingID != nil {
		if err := s.repo.SetParentStatus(ctx, *b.ParentBookingID, StatusRejected, now); err != nil {
			logger.Error("failed to reject series", "parent_id", *b.ParentBookingID, "error", err)
		}
	}

	p := s.payload(b, b.TeacherID)
	p[notify.KeyReason] = req.Reason
	s.sink.Enqueue(ctx, b.StudentID, notify.KindBookingRejected, p)
	return b, nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id int, req CancelRequest) (*Booking, error) {
	current, err := s.target(ctx, id, func(b *Booking) bool { return actor.IsAdmin() || b.Involves(actor.ID) })
	if err != nil {
		return nil, err
	}
	if !current.IsActive() {
		return nil, ErrNotFoundOrAlreadyProcessed
	}

	now := s.now()
	if schedule.WithinCancellationWindow(now, current.EndsAt(s.loc)) {
		return nil, ErrWithinCancellationWindow
	}

	b, err := s.repo.Cancel(ctx, id, actor.ID, now, req.Reason)
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, b, StatusCancelled)

	p := s.payload(b, actor.ID)
	p[notify.KeyReason] = req.Reason
	for _, recipient := range []int{b.StudentID, b.TeacherID} {
		if recipient != actor.ID {
			s.sink.Enqueue(ctx, recipient, notify.KindBookingCancelled, p)
		}
	}
	return b, nil
}

func (s *service) Complete(ctx context.Context, actor auth.Actor, id int, req CompleteRequest) (*Booking, error) {
	if !actor.IsTeacher() {
		return nil, ErrTeachersOnly
	}

	current, err := s.target(ctx, id, func(b *Booking) bool { return b.TeacherID == actor.ID })
	if err != nil {
		return nil, err
	}
	if current.Status != StatusConfirmed {
		return nil, ErrNotFoundOrAlreadyProcessed
	}

	now := s.now()
	if !current.EndsAt(s.loc).Before(now) {
		return nil, ErrLessonNotFinished
	}

	b, err := s.repo.Complete(ctx, id, actor.ID, now, req.TeacherNotes)
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, b, StatusCompleted)
	s.sink.Enqueue(ctx, b.StudentID, notify.KindBookingCompleted, s.payload(b, b.TeacherID))
	return b, nil
}

func (s *service) Rate(ctx context.Context, actor auth.Actor, id int, req RateRequest) (*Booking, error) {
	if !actor.IsStudent() {
		return nil, ErrStudentsOnly
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, api.NewError(api.ErrValidation, "rating must be between 1 and 5")
	}

	if _, err := s.target(ctx, id, func(b *Booking) bool { return b.StudentID == actor.ID }); err != nil {
		return nil, err
	}

	b, err := s.repo.Rate(ctx, id, actor.ID, req.Rating, req.Review, s.now())
	if errors.Is(err, ErrNotFoundOrAlreadyProcessed) {
		return nil, ErrNotRateable
	}
	if err != nil {
		return nil, err
	}

	avg, count, err := s.repo.AverageRating(ctx, b.TeacherID)
	if err != nil {
		logger.Error("failed to compute teacher rating", "teacher_id", b.TeacherID, "error", err)
		return b, nil
	}
	if err := s.teachers.UpdateRating(ctx, b.TeacherID, avg, count); err != nil {
		logger.Error("failed to update teacher rating", "teacher_id", b.TeacherID, "error", err)
	}

	logger.Info("booking rated", "booking_id", b.ID, "rating", req.Rating, "teacher_avg", avg)
	return b, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !b.Involves(actor.ID) {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, q ListQuery) ([]Booking, error) {
	f := ListFilter{Status: q.Status, Limit: q.Limit, Offset: q.Offset}
	if f.Limit == 0 {
		f.Limit = 20
	}
	switch {
	case actor.IsTeacher():
		f.TeacherID = actor.ID
	case actor.IsStudent():
		f.StudentID = actor.ID
	}
	return s.repo.List(ctx, f)
}

func (s *service) HasActiveBookings(ctx context.Context, userID int) (bool, error) {
	return s.repo.HasActiveBookings(ctx, userID)
}

// ExpireStale moves every overdue pending or confirmed booking to expired
// and tells each student once. Running it again finds nothing.
func (s *service) ExpireStale(ctx context.Context) (int, error) {
	expired, err := s.repo.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for i := range expired {
		b := &expired[i]
		s.sink.Enqueue(ctx, b.StudentID, notify.KindBookingExpired, s.payload(b, b.TeacherID))
	}

	metrics.RecordExpired(int64(len(expired)))
	if len(expired) > 0 {
		logger.Info("bookings expired", "count", len(expired))
	}
	return len(expired), nil
}

// SendReminders notifies both parties of confirmed lessons happening
// tomorrow, once per lesson.
func (s *service) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	tomorrow := schedule.Day(now, s.loc).AddDate(0, 0, 1)

	due, err := s.repo.DueReminders(ctx, tomorrow)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		b := &due[i]
		s.sink.Enqueue(ctx, b.StudentID, notify.KindBookingReminder, s.payload(b, b.TeacherID))
		s.sink.Enqueue(ctx, b.TeacherID, notify.KindBookingReminder, s.payload(b, b.StudentID))
		if err := s.repo.MarkReminded(ctx, b.ID, now); err != nil {
			logger.Error("failed to mark reminder", "booking_id", b.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// transitioned records a child-or-single transition and promotes the series
// parent once every expected occurrence has reached the same status.
// target loads the booking a transition acts on. Bookings hidden from the
// actor read as not found, and series parents only move with their lessons.
func (s *service) target(ctx context.Context, id int, visible func(*Booking) bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(b) {
		return nil, ErrBookingNotFound
	}
	if b.IsSeriesParent() {
		return nil, ErrSeriesParent
	}
	return b, nil
}

func (s *service) transitioned(ctx context.Context, b *Booking, status string) {
	metrics.RecordBookingTransition(status)
	logger.Info("booking "+status, "booking_id", b.ID)

	if b.ParentBookingID == nil {
		return
	}
	parentID := *b.ParentBookingID

	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		logger.Error("failed to load series parent", "parent_id", parentID, "error", err)
		return
	}
	if parent.ExpectedChildren == 0 {
		return
	}

	n, err := s.repo.CountChildren(ctx, parentID, status)
	if err != nil {
		logger.Error("failed to count series occurrences", "parent_id", parentID, "error", err)
		return
	}
	if n != parent.ExpectedChildren {
		return
	}

	if err := s.repo.SetParentStatus(ctx, parentID, status, s.now()); err != nil {
		logger.Error("failed to cascade series status", "parent_id", parentID, "status", status, "error", err)
		return
	}
	logger.Info("series "+status, "parent_id", parentID, "occurrences", n)
}

func (s *service) payload(b *Booking, counterpartID int) notify.Payload {
	return notify.Payload{
		notify.KeyBookingID:     b.ID,
		notify.KeyCounterpartID: counterpartID,
		notify.KeyLanguage:      b.Language,
		notify.KeyLessonType:    b.LessonType,
		notify.KeyStartsAt:      b.StartsAt(s.loc),
	}
}
