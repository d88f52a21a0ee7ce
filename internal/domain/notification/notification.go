package notification

import (
	"context"
	"time"

	"placementcell/internal/common"
)

const (
	TypeJobPublished       = "job.published"
	TypeApplicationStatus  = "application.status_changed"
	TypeInterviewScheduled = "interview.scheduled"
	TypeInterviewUpdated   = "interview.updated"
	TypeAnnouncementPosted = "announcement.posted"
)

type Notification struct {
	ID        common.UUID `json:"id"`
	UserID    common.UUID `json:"user_id"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Link      string      `json:"link,omitempty"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type Repository interface {
	CreateMany(ctx context.Context, items []Notification) error
	List(ctx context.Context, userID common.UUID, unreadOnly bool, page common.Page) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID common.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID common.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, userID common.UUID, at time.Time) (int, error)
}
