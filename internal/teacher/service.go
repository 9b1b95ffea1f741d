package teacher

import (
	"context"
	"math"

	"tutorbook/internal/api"
	"tutorbook/internal/logger"
)

var (
	ErrTeacherNotFound = api.NewError(api.ErrNotFound, "teacher not found")
	ErrInvalidRate     = api.NewError(api.ErrValidation, "hourly rate must be positive")
	ErrNoLanguages     = api.NewError(api.ErrValidation, "at least one language is required")
)

type Service interface {
	FindApprovedTeacher(ctx context.Context, id int) (*Teacher, error)
	GetProfile(ctx context.Context, id int) (*Teacher, error)
	CreateProfile(ctx context.Context, userID int, hourlyRateCents int64, languages []string) error
	Approve(ctx context.Context, id int) (*Teacher, error)
	UpdateRating(ctx context.Context, id int, avg float64, count int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// FindApprovedTeacher hides teachers that are unapproved or inactive behind
// the same not-found error as missing ones.
func (s *service) FindApprovedTeacher(ctx context.Context, id int) (*Teacher, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Bookable() {
		return nil, ErrTeacherNotFound
	}
	return t, nil
}

func (s *service) GetProfile(ctx context.Context, id int) (*Teacher, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) CreateProfile(ctx context.Context, userID int, hourlyRateCents int64, languages []string) error {
	if hourlyRateCents <= 0 {
		return ErrInvalidRate
	}
	languages = normalizeLanguages(languages)
	if len(languages) == 0 {
		return ErrNoLanguages
	}
	return s.repo.CreateProfile(ctx, userID, hourlyRateCents, languages)
}

func (s *service) Approve(ctx context.Context, id int) (*Teacher, error) {
	if err := s.repo.SetStatus(ctx, id, StatusApproved); err != nil {
		return nil, err
	}
	logger.Info("teacher approved", "teacher_id", id)
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateRating(ctx context.Context, id int, avg float64, count int) error {
	avg = math.Round(avg*100) / 100
	return s.repo.UpdateRating(ctx, id, avg, count)
}
