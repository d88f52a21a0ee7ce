package interview

import (
	"context"
	"time"

	"placementcell/internal/common"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Result string

const (
	ResultPending Result = "pending"
	ResultPassed  Result = "passed"
	ResultFailed  Result = "failed"
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

type Interview struct {
	ID              common.UUID `json:"id"`
	ApplicationID   common.UUID `json:"application_id"`
	StudentID       common.UUID `json:"student_id"`
	JobID           common.UUID `json:"job_id"`
	Round           int         `json:"round"`
	Title           string      `json:"title"`
	ScheduledAt     time.Time   `json:"scheduled_at"`
	DurationMinutes int         `json:"duration_minutes"`
	Mode            Mode        `json:"mode"`
	Location        string      `json:"location,omitempty"`
	MeetingLink     string      `json:"meeting_link,omitempty"`
	Status          Status      `json:"status"`
	Result          Result      `json:"result"`
	Feedback        string      `json:"feedback,omitempty"`
	StudentName     string      `json:"student_name,omitempty"`
	JobTitle        string      `json:"job_title,omitempty"`
	CompanyName     string      `json:"company_name,omitempty"`
	DepartmentID    common.UUID `json:"department_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (i Interview) EndsAt() time.Time {
	return i.ScheduledAt.Add(time.Duration(i.DurationMinutes) * time.Minute)
}

type Filter struct {
	StudentID    common.UUID
	JobID        common.UUID
	DepartmentID common.UUID
	Status       Status
	From         *time.Time
	To           *time.Time
}

type Repository interface {
	Create(ctx context.Context, i Interview) (*Interview, error)
	Update(ctx context.Context, i Interview) (*Interview, error)
	GetByID(ctx context.Context, id common.UUID) (*Interview, error)
	List(ctx context.Context, filter Filter, page common.Page) ([]Interview, int, error)
	// ListScheduledForStudent returns scheduled interviews that overlap [from, to).
	ListScheduledForStudent(ctx context.Context, studentID common.UUID, from, to time.Time) ([]Interview, error)
	CountUpcoming(ctx context.Context, now time.Time) (int, error)
}
