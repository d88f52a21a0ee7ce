package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/domain/application"
	"placementcell/internal/http/middleware"
	"placementcell/internal/http/response"
)

type ApplicationHandler struct {
	applications *app.ApplicationService
	limiter      middleware.Limiter
}

func NewApplicationHandler(applications *app.ApplicationService, limiter middleware.Limiter) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, limiter: limiter}
}

type applyRequest struct {
	JobID string `json:"job_id"`
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
}

type bulkStatusRequest struct {
	IDs     []string `json:"ids"`
	Status  string   `json:"status"`
	Remarks string   `json:"remarks"`
}

func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	jobID, err := common.ParseUUID(strings.TrimSpace(req.JobID))
	if err != nil {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"job_id": "job_id must be a uuid"}))
		return
	}
	if h.limiter != nil && !h.limiter.Allow("apply:"+actor.UserID.String(), 5, time.Minute) {
		middleware.RejectRateLimited(w)
		return
	}
	created, err := h.applications.Apply(r.Context(), actor, jobID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	jobID, err := queryUUID(r, "job_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	studentID, err := queryUUID(r, "student_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	query := r.URL.Query()
	filter := application.Filter{
		JobID:     jobID,
		StudentID: studentID,
		Status:    app.NormalizeApplicationStatus(application.Status(strings.ToLower(strings.TrimSpace(query.Get("status"))))),
	}
	page := common.ParsePage(query)
	items, total, err := h.applications.List(r.Context(), actor, filter, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.applications.Get(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	status := application.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	updated, err := h.applications.UpdateStatus(r.Context(), actor, id, status, req.Remarks)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *ApplicationHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req bulkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	ids := make([]common.UUID, 0, len(req.IDs))
	for i, raw := range req.IDs {
		id, err := common.ParseUUID(strings.TrimSpace(raw))
		if err != nil {
			response.Error(w, common.NewValidationError("invalid request", map[string]string{fmt.Sprintf("ids[%d]", i): "must be a uuid"}))
			return
		}
		ids = append(ids, id)
	}
	status := application.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	results, err := h.applications.BulkUpdateStatus(r.Context(), actor, ids, status, req.Remarks)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, results)
}

func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	updated, err := h.applications.Withdraw(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}
