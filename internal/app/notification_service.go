package app

import (
	"context"
	"fmt"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/notification"
)

type NotificationService struct {
	repo   notification.Repository
	logger Logger
	now    func() time.Time
}

func NewNotificationService(repo notification.Repository, logger Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger, now: time.Now}
}

// Notify fans a notification out to every user. Failures are logged and never returned,
// so the operation that triggered the notification still succeeds.
func (s *NotificationService) Notify(ctx context.Context, userIDs []common.UUID, kind, title, message, link string) {
	if len(userIDs) == 0 {
		return
	}
	seen := make(map[common.UUID]struct{}, len(userIDs))
	items := make([]notification.Notification, 0, len(userIDs))
	now := s.now().UTC()
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, notification.Notification{
			ID:        common.NewUUID(),
			UserID:    id,
			Type:      kind,
			Title:     title,
			Message:   message,
			Link:      link,
			CreatedAt: now,
		})
	}
	if len(items) == 0 {
		return
	}
	if err := s.repo.CreateMany(ctx, items); err != nil && s.logger != nil {
		s.logger.Error(fmt.Sprintf("notification fan-out failed type=%s recipients=%d err=%v", kind, len(items), err))
	}
}

func (s *NotificationService) List(ctx context.Context, userID common.UUID, unreadOnly bool, page common.Page) ([]notification.Notification, int, error) {
	return s.repo.List(ctx, userID, unreadOnly, page)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID common.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id common.UUID) error {
	return s.repo.MarkRead(ctx, id, userID, s.now().UTC())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID common.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now().UTC())
}
