package job

import (
	"context"
	"encoding/json"
	"time"

	"placementcell/internal/common"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusClosed    Status = "closed"
)

type Type string

const (
	TypeFullTime      Type = "full_time"
	TypeInternship    Type = "internship"
	TypeInternshipPPO Type = "internship_ppo"
)

// Eligibility holds the criteria a student must meet to apply. Empty lists mean no restriction;
// a negative MaxBacklogs means any number of backlogs is accepted.
type Eligibility struct {
	MinCGPA       float64       `json:"min_cgpa"`
	MaxBacklogs   int           `json:"max_backlogs"`
	Degrees       []string      `json:"degrees"`
	BatchYears    []int         `json:"batch_years"`
	DepartmentIDs []common.UUID `json:"department_ids"`
}

// UnmarshalJSON treats a missing max_backlogs as no limit.
func (e *Eligibility) UnmarshalJSON(data []byte) error {
	type plain Eligibility
	decoded := plain{MaxBacklogs: -1}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*e = Eligibility(decoded)
	return nil
}

type Job struct {
	ID          common.UUID `json:"id"`
	CompanyID   common.UUID `json:"company_id"`
	CompanyName string      `json:"company_name,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Type        Type        `json:"job_type"`
	CTC         float64     `json:"ctc"`
	Stipend     float64     `json:"stipend"`
	Eligibility Eligibility `json:"eligibility"`
	Deadline    time.Time   `json:"deadline"`
	Status      Status      `json:"status"`
	CreatedBy   common.UUID `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Filter struct {
	Status    Status
	CompanyID common.UUID
	Query     string
}

type Repository interface {
	Create(ctx context.Context, j Job) (*Job, error)
	Update(ctx context.Context, j Job) (*Job, error)
	Delete(ctx context.Context, id common.UUID) error
	GetByID(ctx context.Context, id common.UUID) (*Job, error)
	List(ctx context.Context, filter Filter, page common.Page) ([]Job, int, error)
	CountOpenByCompany(ctx context.Context, companyID common.UUID) (int, error)
}
