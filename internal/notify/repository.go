package notify

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, recipientID int, kind string, payload []byte) (*Notification, error) {
	query := `INSERT INTO notifications (recipient_id, kind, payload) VALUES ($1, $2, $3) RETURNING id, recipient_id, kind, payload, read_at, created_at`

	var n Notification
	if err := r.db.GetContext(ctx, &n, query, recipientID, kind, payload); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repository) ListForRecipient(ctx context.Context, recipientID int, q ListQuery) ([]Notification, error) {
	query := `
		SELECT id, recipient_id, kind, payload, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1 AND ($2 = FALSE OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	notifications := []Notification{}
	err := r.db.SelectContext(ctx, &notifications, query, recipientID, q.UnreadOnly, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repository) MarkRead(ctx context.Context, id, recipientID int, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = $3 WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		id, recipientID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *repository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read_at IS NOT NULL AND read_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
