package postgres

import (
	"context"
	"database/sql"

	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/company"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/student"
)

// ReportRepository runs the aggregate queries behind the analytics endpoints.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Counts(ctx context.Context) (analytics.Counts, error) {
	var c analytics.Counts
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM students),
		(SELECT COUNT(*) FROM students WHERE placement_status = $1),
		(SELECT COUNT(*) FROM companies WHERE status = $2),
		(SELECT COUNT(*) FROM jobs WHERE status = $3),
		(SELECT COUNT(*) FROM applications)`,
		student.PlacementPlaced, company.StatusActive, job.StatusPublished,
	).Scan(&c.TotalStudents, &c.PlacedStudents, &c.ActiveCompanies, &c.PublishedJobs, &c.TotalApplications)
	if err != nil {
		return c, translate(err, "dashboard counts", "load")
	}
	return c, nil
}

// SelectedOfferCTCs returns the CTC of every selected application with a positive CTC.
func (r *ReportRepository) SelectedOfferCTCs(ctx context.Context) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT j.ctc FROM applications a JOIN jobs j ON j.id = a.job_id
		WHERE a.status = $1 AND j.ctc > 0 ORDER BY j.ctc`, application.StatusSelected)
	if err != nil {
		return nil, translate(err, "offers", "list")
	}
	defer rows.Close()
	out := make([]float64, 0)
	for rows.Next() {
		var ctc float64
		if err := rows.Scan(&ctc); err != nil {
			return nil, translate(err, "offer", "scan")
		}
		out = append(out, ctc)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "offers", "list")
	}
	return out, nil
}

// DepartmentStats counts students per department; batchYear 0 means every batch.
func (r *ReportRepository) DepartmentStats(ctx context.Context, batchYear int) ([]analytics.DepartmentStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT d.id, d.code, d.name,
		COUNT(s.id),
		COUNT(s.id) FILTER (WHERE s.placement_status = $1)
		FROM departments d
		LEFT JOIN students s ON s.department_id = d.id AND ($2::int = 0 OR s.batch_year = $2::int)
		GROUP BY d.id, d.code, d.name
		ORDER BY d.code`, student.PlacementPlaced, batchYear)
	if err != nil {
		return nil, translate(err, "department stats", "load")
	}
	defer rows.Close()
	out := make([]analytics.DepartmentStats, 0)
	for rows.Next() {
		var s analytics.DepartmentStats
		if err := rows.Scan(&s.DepartmentID, &s.DepartmentCode, &s.DepartmentName, &s.TotalStudents, &s.PlacedStudents); err != nil {
			return nil, translate(err, "department stats", "scan")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "department stats", "load")
	}
	return out, nil
}

func (r *ReportRepository) CompanyStats(ctx context.Context) ([]analytics.CompanyStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT c.id, c.name,
		COUNT(DISTINCT j.id),
		COUNT(a.id),
		COUNT(a.id) FILTER (WHERE a.status = $1)
		FROM companies c
		LEFT JOIN jobs j ON j.company_id = c.id
		LEFT JOIN applications a ON a.job_id = j.id
		GROUP BY c.id, c.name
		ORDER BY c.name`, application.StatusSelected)
	if err != nil {
		return nil, translate(err, "company stats", "load")
	}
	defer rows.Close()
	out := make([]analytics.CompanyStats, 0)
	for rows.Next() {
		var s analytics.CompanyStats
		if err := rows.Scan(&s.CompanyID, &s.CompanyName, &s.Jobs, &s.Applications, &s.Selections); err != nil {
			return nil, translate(err, "company stats", "scan")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "company stats", "load")
	}
	return out, nil
}
