package handlers

import (
	"net/http"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/http/response"
)

type NotificationHandler struct {
	notifications *app.NotificationService
}

func NewNotificationHandler(notifications *app.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

type markAllResponse struct {
	Updated int `json:"updated"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	page := common.ParsePage(r.URL.Query())
	items, total, err := h.notifications.List(r.Context(), actor.UserID, queryBool(r, "unread"), page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, unreadCountResponse{Count: count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(r.Context(), actor.UserID, id); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	updated, err := h.notifications.MarkAllRead(r.Context(), actor.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, markAllResponse{Updated: updated})
}
