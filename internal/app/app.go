package app

import (
	"context"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/user"
	"placementcell/internal/observability"
)

type Logger interface {
	Info(msg string)
	Error(msg string)
}

// Notifier delivers in-app notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userIDs []common.UUID, kind, title, message, link string)
}

// Cache stores serialized values for a bounded time. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func analyticsPayload(ctx context.Context, payload map[string]string) map[string]string {
	out := make(map[string]string, len(payload)+1)
	for key, value := range payload {
		out[key] = value
	}
	if id := observability.RequestIDFromContext(ctx); id != "" {
		out["request_id"] = id
	}
	return out
}

func track(ctx context.Context, repo analytics.Repository, name string, actorID common.UUID, payload map[string]string) {
	if repo == nil {
		return
	}
	event := analytics.Event{Name: name, Payload: analyticsPayload(ctx, payload)}
	if actorID != "" {
		id := actorID
		event.UserID = &id
	}
	_ = repo.Create(ctx, event)
}

func requireStaff(actor user.Actor) error {
	if !actor.IsStaff() {
		return common.NewError(common.CodeForbidden, "insufficient role", nil)
	}
	return nil
}

func requireRole(actor user.Actor, roles ...user.Role) error {
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return common.NewError(common.CodeForbidden, "insufficient role", nil)
}
