package teacher

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateProfile(ctx context.Context, userID int, hourlyRateCents int64, languages []string) error {
	query := `INSERT INTO teachers (user_id, hourly_rate_cents, languages, status, is_active) VALUES ($1, $2, $3, 'pending', TRUE)`

	_, err := r.db.ExecContext(ctx, query, userID, hourlyRateCents, pq.StringArray(languages))
	return err
}

func (r *repository) GetByID(ctx context.Context, userID int) (*Teacher, error) {
	query := `
		SELECT t.user_id, u.name, t.hourly_rate_cents, t.languages, t.status, t.is_active,
			t.rating, t.review_count, t.created_at
		FROM teachers t
		JOIN users u ON u.id = t.user_id
		WHERE t.user_id = $1
	`

	var t Teacher
	err := r.db.GetContext(ctx, &t, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeacherNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) SetStatus(ctx context.Context, userID int, status string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE teachers SET status = $2 WHERE user_id = $1`, userID, status)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *repository) UpdateRating(ctx context.Context, userID int, avg float64, count int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teachers SET rating = $2, review_count = $3 WHERE user_id = $1`,
		userID, avg, count)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTeacherNotFound
	}
	return nil
}
