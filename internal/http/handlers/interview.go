package handlers

import (
	"net/http"
	"strings"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/domain/interview"
	"placementcell/internal/http/response"
)

type InterviewHandler struct {
	interviews *app.InterviewService
}

func NewInterviewHandler(interviews *app.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews}
}

func (h *InterviewHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req app.InterviewInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.interviews.Schedule(r.Context(), actor, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *InterviewHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.InterviewInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.interviews.Reschedule(r.Context(), actor, id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *InterviewHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.InterviewStatusInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.interviews.UpdateStatus(r.Context(), actor, id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	jobID, err := queryUUID(r, "job_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		response.Error(w, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		response.Error(w, err)
		return
	}
	query := r.URL.Query()
	filter := interview.Filter{
		JobID:  jobID,
		Status: interview.Status(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		From:   from,
		To:     to,
	}
	page := common.ParsePage(query)
	items, total, err := h.interviews.List(r.Context(), actor, filter, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.interviews.Get(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}
