package analytics

import (
	"context"
	"time"

	"placementcell/internal/common"
)

type Event struct {
	ID        common.UUID       `json:"id"`
	Name      string            `json:"name"`
	UserID    *common.UUID      `json:"user_id,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, event Event) error
}

type Dashboard struct {
	TotalStudents      int     `json:"total_students"`
	PlacedStudents     int     `json:"placed_students"`
	PlacementRate      float64 `json:"placement_rate"`
	ActiveCompanies    int     `json:"active_companies"`
	PublishedJobs      int     `json:"published_jobs"`
	TotalApplications  int     `json:"total_applications"`
	UpcomingInterviews int     `json:"upcoming_interviews"`
	HighestCTC         float64 `json:"highest_ctc"`
	AverageCTC         float64 `json:"average_ctc"`
	MedianCTC          float64 `json:"median_ctc"`
}

type DepartmentStats struct {
	DepartmentID   common.UUID `json:"department_id"`
	DepartmentCode string      `json:"department_code"`
	DepartmentName string      `json:"department_name"`
	TotalStudents  int         `json:"total_students"`
	PlacedStudents int         `json:"placed_students"`
	PlacementRate  float64     `json:"placement_rate"`
}

type CompanyStats struct {
	CompanyID    common.UUID `json:"company_id"`
	CompanyName  string      `json:"company_name"`
	Jobs         int         `json:"jobs"`
	Applications int         `json:"applications"`
	Selections   int         `json:"selections"`
}

// Counts is the raw material the analytics service turns into a Dashboard.
type Counts struct {
	TotalStudents     int
	PlacedStudents    int
	ActiveCompanies   int
	PublishedJobs     int
	TotalApplications int
}

type ReportRepository interface {
	Counts(ctx context.Context) (Counts, error)
	SelectedOfferCTCs(ctx context.Context) ([]float64, error)
	DepartmentStats(ctx context.Context, batchYear int) ([]DepartmentStats, error)
	CompanyStats(ctx context.Context) ([]CompanyStats, error)
}
