package teacher

import "context"

type Repository interface {
	CreateProfile(ctx context.Context, userID int, hourlyRateCents int64, languages []string) error
	GetByID(ctx context.Context, userID int) (*Teacher, error)
	SetStatus(ctx context.Context, userID int, status string) error
	UpdateRating(ctx context.Context, userID int, avg float64, count int) error
}
