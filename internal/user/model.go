package user

import "time"

type User struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RegisterRequest signs up a student or a teacher. Teachers also pass
// their rate and languages and start out pending approval.
type RegisterRequest struct {
	Name            string   `json:"name" binding:"required,min=2,max=100"`
	Email           string   `json:"email" binding:"required,email"`
	Password        string   `json:"password" binding:"required,min=8"`
	Role            string   `json:"role" binding:"omitempty,oneof=student teacher"`
	HourlyRateCents int64    `json:"hourly_rate_cents" binding:"omitempty,min=0"`
	Languages       []string `json:"languages" binding:"omitempty,dive,min=2,max=40"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
