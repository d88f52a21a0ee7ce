package handlers

import (
	"net/http"
	"strings"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/domain/company"
	"placementcell/internal/http/response"
)

type CompanyHandler struct {
	companies *app.CompanyService
}

func NewCompanyHandler(companies *app.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := company.Filter{
		Status: company.Status(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		Query:  strings.TrimSpace(query.Get("q")),
	}
	page := common.ParsePage(query)
	items, total, err := h.companies.List(r.Context(), filter, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.companies.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req app.CompanyInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.companies.Create(r.Context(), actor, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.CompanyInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.companies.Update(r.Context(), actor, id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.companies.Delete(r.Context(), actor, id); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "company deleted")
}

func (h *CompanyHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	page := common.ParsePage(r.URL.Query())
	items, total, err := h.companies.Jobs(r.Context(), actor, id, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *CompanyHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	file, _, err := formFile(r, "logo")
	if err != nil {
		response.Error(w, err)
		return
	}
	defer file.Close()
	updated, err := h.companies.UploadLogo(r.Context(), actor, id, file)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *CompanyHandler) Logo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rc, contentType, err := h.companies.OpenLogo(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	streamFile(w, rc, contentType, "", true)
}
