package user

import (
	"context"
	"slices"
	"time"

	"placementcell/internal/common"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleDeptOfficer Role = "dept_officer"
	RoleStudent     Role = "student"
)

// StaffRoles lists every role allowed to manage placement records.
var StaffRoles = []Role{RoleAdmin, RoleCoordinator, RoleDeptOfficer}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoordinator, RoleDeptOfficer, RoleStudent:
		return true
	default:
		return false
	}
}

func (r Role) IsStaff() bool {
	return slices.Contains(StaffRoles, r)
}

type User struct {
	ID           common.UUID  `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Role         Role         `json:"role"`
	DepartmentID *common.UUID `json:"department_id,omitempty"`
	PasswordHash string       `json:"-"`
	IsActive     bool         `json:"is_active"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Filter struct {
	Role     Role
	IsActive *bool
	Query    string
}

type Repository interface {
	Create(ctx context.Context, u User) (*User, error)
	// CreateForStudent creates the account and links it to a student record that has none, atomically.
	CreateForStudent(ctx context.Context, u User, studentID common.UUID) (*User, error)
	Update(ctx context.Context, u User) (*User, error)
	GetByID(ctx context.Context, id common.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter Filter, page common.Page) ([]User, int, error)
	CountByRole(ctx context.Context, role Role) (int, error)
	SetPassword(ctx context.Context, id common.UUID, hash string) error
	TouchLogin(ctx context.Context, id common.UUID, at time.Time) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID       common.UUID
	Role         Role
	DepartmentID common.UUID
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// CanManageDepartment reports whether the actor may act on records of the given department.
// Department officers are confined to their own department.
func (a Actor) CanManageDepartment(departmentID common.UUID) bool {
	switch a.Role {
	case RoleAdmin, RoleCoordinator:
		return true
	case RoleDeptOfficer:
		return a.DepartmentID != "" && a.DepartmentID == departmentID
	default:
		return false
	}
}
