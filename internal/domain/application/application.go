package application

import (
	"context"
	"time"

	"placementcell/internal/common"
)

type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusShortlisted Status = "shortlisted"
	StatusInterview   Status = "interview"
	StatusSelected    Status = "selected"
	StatusRejected    Status = "rejected"
	StatusWithdrawn   Status = "withdrawn"
)

type Application struct {
	ID          common.UUID `json:"id"`
	JobID       common.UUID `json:"job_id"`
	StudentID   common.UUID `json:"student_id"`
	Status      Status      `json:"status"`
	Remarks     string      `json:"remarks,omitempty"`
	JobTitle    string      `json:"job_title,omitempty"`
	CompanyName string      `json:"company_name,omitempty"`
	StudentName string      `json:"student_name,omitempty"`
	RollNumber  string      `json:"roll_number,omitempty"`
	// DepartmentID is the applicant's department, joined for scoping.
	DepartmentID common.UUID `json:"department_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Filter struct {
	JobID        common.UUID
	StudentID    common.UUID
	DepartmentID common.UUID
	Status       Status
}

// StatusChange moves an application from From to To. It fails with a conflict when the stored
// status is no longer From. MarkPlaced also marks the applicant placed in the same write.
type StatusChange struct {
	ID         common.UUID
	From       Status
	To         Status
	Remarks    string
	MarkPlaced bool
}

type Repository interface {
	Create(ctx context.Context, a Application) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	FindByJobAndStudent(ctx context.Context, jobID, studentID common.UUID) (*Application, error)
	List(ctx context.Context, filter Filter, page common.Page) ([]Application, int, error)
	ListAll(ctx context.Context, filter Filter) ([]Application, error)
	ChangeStatus(ctx context.Context, change StatusChange) (*Application, error)
}
