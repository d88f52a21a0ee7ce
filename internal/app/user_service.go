package app

import (
	"context"
	"net/mail"
	"strings"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/department"
	"placementcell/internal/domain/user"
	"placementcell/internal/security"
)

type UserService struct {
	users       user.Repository
	departments department.Repository
	analytics   analytics.Repository
}

func NewUserService(users user.Repository, departments department.Repository, analytics analytics.Repository) *UserService {
	return &UserService{users: users, departments: departments, analytics: analytics}
}

type CreateUserInput struct {
	Email        string
	Name         string
	Password     string
	Role         user.Role
	DepartmentID string
}

func (s *UserService) Create(ctx context.Context, actor user.Actor, in CreateUserInput) (*user.User, error) {
	if err := requireRole(actor, user.RoleAdmin); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	role := user.Role(strings.ToLower(strings.TrimSpace(string(in.Role))))
	fields := map[string]string{}
	if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "valid email is required"
	}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if !role.Valid() {
		fields["role"] = "role must be admin, coordinator, dept_officer, or student"
	}
	if len(in.Password) < security.MinPasswordLength {
		fields["password"] = "password must be at least 8 characters"
	}
	deptID, err := s.resolveDepartment(ctx, in.DepartmentID, fields)
	if err != nil {
		return nil, err
	}
	if role == user.RoleDeptOfficer && deptID == "" {
		fields["department_id"] = "department is required for department officers"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid user", fields)
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, common.NewValidationError("invalid user", map[string]string{"password": err.Error()})
	}
	created, err := s.users.Create(ctx, user.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		DepartmentID: common.UUIDPtr(deptID),
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "user.created", actor.UserID, map[string]string{"user_id": created.ID.String(), "role": string(role)})
	return created, nil
}

func (s *UserService) List(ctx context.Context, actor user.Actor, filter user.Filter, page common.Page) ([]user.User, int, error) {
	if err := requireRole(actor, user.RoleAdmin); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, filter, page)
}

func (s *UserService) Get(ctx context.Context, actor user.Actor, id common.UUID) (*user.User, error) {
	if actor.Role != user.RoleAdmin && actor.UserID != id {
		return nil, common.NewError(common.CodeForbidden, "insufficient role", nil)
	}
	return s.users.GetByID(ctx, id)
}

type UpdateUserInput struct {
	Name         *string
	Role         *user.Role
	DepartmentID *string
	IsActive     *bool
}

func (s *UserService) Update(ctx context.Context, actor user.Actor, id common.UUID, in UpdateUserInput) (*user.User, error) {
	if err := requireRole(actor, user.RoleAdmin); err != nil {
		return nil, err
	}
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			fields["name"] = "name cannot be empty"
		}
		current.Name = name
	}
	if in.Role != nil {
		role := user.Role(strings.ToLower(strings.TrimSpace(string(*in.Role))))
		if !role.Valid() {
			fields["role"] = "role must be admin, coordinator, dept_officer, or student"
		} else if id == actor.UserID && role != user.RoleAdmin {
			return nil, common.NewError(common.CodeValidation, "admins cannot demote themselves", nil)
		}
		current.Role = role
	}
	if in.DepartmentID != nil {
		deptID, err := s.resolveDepartment(ctx, *in.DepartmentID, fields)
		if err != nil {
			return nil, err
		}
		current.DepartmentID = common.UUIDPtr(deptID)
	}
	if in.IsActive != nil {
		if id == actor.UserID && !*in.IsActive {
			return nil, common.NewError(common.CodeValidation, "admins cannot deactivate themselves", nil)
		}
		current.IsActive = *in.IsActive
	}
	if current.Role == user.RoleDeptOfficer && current.DepartmentID == nil {
		fields["department_id"] = "department is required for department officers"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid user", fields)
	}
	updated, err := s.users.Update(ctx, *current)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "user.updated", actor.UserID, map[string]string{"user_id": id.String()})
	return updated, nil
}

func (s *UserService) Deactivate(ctx context.Context, actor user.Actor, id common.UUID) (*user.User, error) {
	inactive := false
	return s.Update(ctx, actor, id, UpdateUserInput{IsActive: &inactive})
}

func (s *UserService) resolveDepartment(ctx context.Context, raw string, fields map[string]string) (common.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	id, err := common.ParseUUID(raw)
	if err != nil {
		fields["department_id"] = "invalid uuid"
		return "", nil
	}
	if _, err := s.departments.GetByID(ctx, id); err != nil {
		if common.Is(err, common.CodeNotFound) {
			fields["department_id"] = "department not found"
			return "", nil
		}
		return "", err
	}
	return id, nil
}
