package handlers

import (
	"net/http"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/http/response"
)

type AnnouncementHandler struct {
	announcements *app.AnnouncementService
}

func NewAnnouncementHandler(announcements *app.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	page := common.ParsePage(r.URL.Query())
	items, total, err := h.announcements.List(r.Context(), actor, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *AnnouncementHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.announcements.Get(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req app.AnnouncementInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.announcements.Create(r.Context(), actor, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.AnnouncementInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.announcements.Update(r.Context(), actor, id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.announcements.Delete(r.Context(), actor, id); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "announcement deleted")
}

func (h *AnnouncementHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	file, header, err := formFile(r, "attachment")
	if err != nil {
		response.Error(w, err)
		return
	}
	defer file.Close()
	updated, err := h.announcements.UploadAttachment(r.Context(), actor, id, header.Filename, file)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *AnnouncementHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rc, name, contentType, err := h.announcements.OpenAttachment(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	streamFile(w, rc, contentType, name, false)
}
