package handlers

import (
	"net/http"
	"strings"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/domain/student"
	"placementcell/internal/http/response"
)

type StudentHandler struct {
	students *app.StudentService
}

func NewStudentHandler(students *app.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	filter, err := studentFilter(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	page := common.ParsePage(r.URL.Query())
	items, total, err := h.students.List(r.Context(), actor, filter, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func studentFilter(r *http.Request) (student.Filter, error) {
	deptID, err := queryUUID(r, "department_id")
	if err != nil {
		return student.Filter{}, err
	}
	batchYear, err := queryInt(r, "batch_year")
	if err != nil {
		return student.Filter{}, err
	}
	query := r.URL.Query()
	return student.Filter{
		DepartmentID:    deptID,
		BatchYear:       batchYear,
		PlacementStatus: student.PlacementStatus(strings.ToLower(strings.TrimSpace(query.Get("placement_status")))),
		Query:           strings.TrimSpace(query.Get("q")),
	}, nil
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.students.Get(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req app.StudentInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.students.Create(r.Context(), actor, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.StudentInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.students.Update(r.Context(), actor, id, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.students.Delete(r.Context(), actor, id); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "student deleted")
}

func (h *StudentHandler) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	file, _, err := formFile(r, "file")
	if err != nil {
		response.Error(w, err)
		return
	}
	defer file.Close()
	result, err := h.students.Import(r.Context(), actor, file)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *StudentHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	item, err := h.students.GetSelf(r.Context(), actor)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *StudentHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req app.SelfUpdateInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.students.UpdateSelf(r.Context(), actor, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *StudentHandler) UploadResume(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	file, _, err := formFile(r, "resume")
	if err != nil {
		response.Error(w, err)
		return
	}
	defer file.Close()
	updated, err := h.students.UploadResume(r.Context(), actor, file)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *StudentHandler) Resume(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rc, record, err := h.students.OpenResume(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	streamFile(w, rc, "application/pdf", record.RollNumber+"-resume.pdf", true)
}

func (h *StudentHandler) Applications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := h.students.Applications(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}
