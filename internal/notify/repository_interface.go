package notify

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, recipientID int, kind string, payload []byte) (*Notification, error)
	ListForRecipient(ctx context.Context, recipientID int, q ListQuery) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID int, at time.Time) error
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}
