package handlers

import (
	"net/http"
	"strings"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/domain/user"
	"placementcell/internal/http/response"
)

type UserHandler struct {
	users       *app.UserService
	departments *app.DepartmentService
}

func NewUserHandler(users *app.UserService, departments *app.DepartmentService) *UserHandler {
	return &UserHandler{users: users, departments: departments}
}

type createUserRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id"`
}

type updateUserRequest struct {
	Name         *string `json:"name"`
	Role         *string `json:"role"`
	DepartmentID *string `json:"department_id"`
	IsActive     *bool   `json:"is_active"`
}

type createDepartmentRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := user.Filter{
		Role:  user.Role(strings.ToLower(strings.TrimSpace(query.Get("role")))),
		Query: strings.TrimSpace(query.Get("q")),
	}
	if value := query.Get("is_active"); value != "" {
		active := queryBool(r, "is_active")
		filter.IsActive = &active
	}
	page := common.ParsePage(query)
	items, total, err := h.users.List(r.Context(), actor, filter, page)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.users.Create(r.Context(), actor, app.CreateUserInput{
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		Role:         user.Role(req.Role),
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.users.Get(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	in := app.UpdateUserInput{Name: req.Name, DepartmentID: req.DepartmentID, IsActive: req.IsActive}
	if req.Role != nil {
		role := user.Role(strings.ToLower(strings.TrimSpace(*req.Role)))
		in.Role = &role
	}
	updated, err := h.users.Update(r.Context(), actor, id, in)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	updated, err := h.users.Deactivate(r.Context(), actor, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *UserHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	items, err := h.departments.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *UserHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req createDepartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.departments.Create(r.Context(), actor, req.Code, req.Name)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}
