package user

import (
	"context"
	"fmt"

	"tutorbook/internal/api"
	"tutorbook/internal/auth"
	"tutorbook/internal/logger"
)

var (
	ErrEmailExists        = api.NewError(api.ErrConflict, "email already registered")
	ErrInvalidCredentials = api.NewError(api.ErrUnauthorized, "invalid email or password")
	ErrUserNotFound       = api.NewError(api.ErrNotFound, "user not found")
	ErrHasActiveBookings  = api.NewError(api.ErrConflict, "user has active bookings")
	ErrTeacherLanguages   = api.NewError(api.ErrValidation, "teachers must list at least one language")
)

// ProfileCreator opens the pending teacher profile for a new teacher account.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, userID int, hourlyRateCents int64, languages []string) error
}

type ActiveBookings interface {
	HasActiveBookings(ctx context.Context, userID int) (bool, error)
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
	Delete(ctx context.Context, userID int) error
	AdminIDs(ctx context.Context) ([]int, error)
}

type service struct {
	repo      Repository
	profiles  ProfileCreator
	bookings  ActiveBookings
	jwtSecret string
}

func NewService(repo Repository, profiles ProfileCreator, bookings ActiveBookings, jwtSecret string) Service {
	return &service{
		repo:      repo,
		profiles:  profiles,
		bookings:  bookings,
		jwtSecret: jwtSecret,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	role := req.Role
	if role == "" {
		role = auth.RoleStudent
	}
	if role == auth.RoleTeacher && len(req.Languages) == 0 {
		return nil, "", "", ErrTeacherLanguages
	}

	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	user, err := s.repo.Create(ctx, req.Name, req.Email, passwordHash, role)
	if err != nil {
		return nil, "", "", err
	}

	if role == auth.RoleTeacher {
		if err := s.profiles.CreateProfile(ctx, user.ID, req.HourlyRateCents, req.Languages); err != nil {
			if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
				logger.Error("failed to remove user after profile error", "user_id", user.ID, "error", delErr)
			}
			return nil, "", "", fmt.Errorf("create teacher profile: %w", err)
		}
	}

	accessToken, refreshToken, err := auth.GenerateTokens(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, accessToken, refreshToken, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := auth.GenerateTokens(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	_, claims, err := auth.RefreshAccessToken(refreshToken, s.jwtSecret)
	if err != nil {
		return "", nil, api.NewError(api.ErrUnauthorized, "invalid or expired refresh token")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, err
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	return accessToken, user, nil
}

// Delete removes a user unless they still have a pending or confirmed booking.
func (s *service) Delete(ctx context.Context, userID int) error {
	active, err := s.bookings.HasActiveBookings(ctx, userID)
	if err != nil {
		return err
	}
	if active {
		return ErrHasActiveBookings
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}

	logger.Info("user deleted", "user_id", userID)
	return nil
}

func (s *service) AdminIDs(ctx context.Context) ([]int, error) {
	return s.repo.IDsByRole(ctx, auth.RoleAdmin)
}
