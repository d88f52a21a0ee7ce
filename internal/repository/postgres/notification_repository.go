package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/notification"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// notificationBatch keeps multi-row inserts under the Postgres parameter limit.
const notificationBatch = 500

func (r *NotificationRepository) CreateMany(ctx context.Context, items []notification.Notification) error {
	for start := 0; start < len(items); start += notificationBatch {
		end := min(start+notificationBatch, len(items))
		if err := r.insertBatch(ctx, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *NotificationRepository) insertBatch(ctx context.Context, items []notification.Notification) error {
	values := make([]string, 0, len(items))
	args := make([]interface{}, 0, len(items)*7)
	for _, n := range items {
		if n.ID == "" {
			n.ID = common.NewUUID()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		base := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link, n.CreatedAt)
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO notifications (id, user_id, type, title, message, link, created_at) VALUES `+strings.Join(values, ", "), args...)
	return translate(err, "notification", "create")
}

func (r *NotificationRepository) List(ctx context.Context, userID common.UUID, unreadOnly bool, page common.Page) ([]notification.Notification, int, error) {
	var w where
	w.add("user_id = ?", userID)
	if unreadOnly {
		w.add("read_at IS NULL")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "notifications", "count")
	}
	query, args := w.list(`SELECT id, user_id, type, title, message, link, read_at, created_at FROM notifications`, `created_at DESC, id`, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "notifications", "list")
	}
	defer rows.Close()
	items := make([]notification.Notification, 0)
	for rows.Next() {
		var n notification.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &readAt, &n.CreatedAt); err != nil {
			return nil, 0, translate(err, "notification", "scan")
		}
		if readAt.Valid {
			at := readAt.Time
			n.ReadAt = &at
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "notifications", "list")
	}
	return items, total, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID common.UUID) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&count); err != nil {
		return 0, translate(err, "notifications", "count")
	}
	return count, nil
}

// MarkRead reports not_found for notifications owned by someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID common.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read_at = COALESCE(read_at, $1) WHERE id = $2 AND user_id = $3`, at, id, userID)
	if err != nil {
		return translate(err, "notification", "update")
	}
	return expectAffected(res, "notification")
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID common.UUID, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read_at = $1 WHERE user_id = $2 AND read_at IS NULL`, at, userID)
	if err != nil {
		return 0, translate(err, "notifications", "update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translate(err, "notifications", "update")
	}
	return int(n), nil
}
