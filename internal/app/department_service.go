package app

import (
	"context"
	"regexp"
	"strings"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/department"
	"placementcell/internal/domain/user"
)

var departmentCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

type DepartmentService struct {
	repo      department.Repository
	analytics analytics.Repository
}

func NewDepartmentService(repo department.Repository, analytics analytics.Repository) *DepartmentService {
	return &DepartmentService{repo: repo, analytics: analytics}
}

func (s *DepartmentService) List(ctx context.Context) ([]department.Department, error) {
	return s.repo.List(ctx)
}

func (s *DepartmentService) Create(ctx context.Context, actor user.Actor, code, name string) (*department.Department, error) {
	if err := requireRole(actor, user.RoleAdmin); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	fields := map[string]string{}
	if !departmentCodePattern.MatchString(code) {
		fields["code"] = "code must be 2-10 letters or digits starting with a letter"
	}
	if name == "" {
		fields["name"] = "name is required"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid department", fields)
	}
	created, err := s.repo.Create(ctx, department.Department{Code: code, Name: name})
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "department.created", actor.UserID, map[string]string{"department_id": created.ID.String()})
	return created, nil
}
