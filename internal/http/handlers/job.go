package handlers

import (
	"net/http"
	"strings"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/job"
	"placementcell/internal/http/response"
)

type JobHandler struct {
	jobs *app.JobService
}

func NewJobHandler(jobs *app.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type jobStatusRequest struct {
	Status string `json:"status"`
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	companyID, err := queryUUID(r, "company_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	query := r.URL.Query()
	filter := job.Filter{
		Status:    job.Status(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		CompanyID: companyID,
		Query:     strings.TrimSpace(query.Get("q")),
	}
	page := common.ParsePage(query)
	items, total, err := h.jobs.List(r.Context(), actor, filter, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.jobs.Get(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req app.JobInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.jobs.Create(r.Context(), actor, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.JobInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.jobs.Update(r.Context(), actor, id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.jobs.Delete(r.Context(), actor, id); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "job deleted")
}

func (h *JobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req jobStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	status := job.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	updated, err := h.jobs.UpdateStatus(r.Context(), actor, id, status)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *JobHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.jobs.CheckEligibility(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *JobHandler) EligibleStudents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := h.jobs.EligibleStudents(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *JobHandler) Applications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	status := application.Status(strings.ToLower(strings.TrimSpace(query.Get("status"))))
	page := common.ParsePage(query)
	items, total, err := h.jobs.Applications(r.Context(), actor, id, status, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}
