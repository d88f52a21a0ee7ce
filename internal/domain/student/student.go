package student

import (
	"context"
	"time"

	"placementcell/internal/common"
)

type PlacementStatus string

const (
	PlacementUnplaced PlacementStatus = "unplaced"
	PlacementPlaced   PlacementStatus = "placed"
	PlacementOptedOut PlacementStatus = "opted_out"
)

func (s PlacementStatus) Valid() bool {
	return s == PlacementUnplaced || s == PlacementPlaced || s == PlacementOptedOut
}

type Student struct {
	ID              common.UUID     `json:"id"`
	UserID          *common.UUID    `json:"user_id,omitempty"`
	RollNumber      string          `json:"roll_number"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	DepartmentID    common.UUID     `json:"department_id"`
	Degree          string          `json:"degree"`
	BatchYear       int             `json:"batch_year"`
	CGPA            float64         `json:"cgpa"`
	Backlogs        int             `json:"backlogs"`
	Skills          []string        `json:"skills"`
	ResumePath      string          `json:"-"`
	ResumeText      string          `json:"-"`
	HasResume       bool            `json:"has_resume"`
	PlacementStatus PlacementStatus `json:"placement_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Filter struct {
	DepartmentID    common.UUID
	BatchYear       int
	PlacementStatus PlacementStatus
	Query           string
}

type Repository interface {
	Create(ctx context.Context, s Student) (*Student, error)
	Update(ctx context.Context, s Student) (*Student, error)
	Delete(ctx context.Context, id common.UUID) error
	GetByID(ctx context.Context, id common.UUID) (*Student, error)
	GetByUserID(ctx context.Context, userID common.UUID) (*Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (*Student, error)
	List(ctx context.Context, filter Filter, page common.Page) ([]Student, int, error)
	ListAll(ctx context.Context, filter Filter) ([]Student, error)
	SetResume(ctx context.Context, id common.UUID, path, text string) error
}
