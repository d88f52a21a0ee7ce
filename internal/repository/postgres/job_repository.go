package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/job"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobSelect = `SELECT j.id, j.company_id, c.name, j.title, j.description, j.location, j.job_type, j.ctc, j.stipend, j.eligibility,
	j.deadline, j.status, j.created_by, j.created_at, j.updated_at
	FROM jobs j JOIN companies c ON c.id = j.company_id`

func scanJob(row rowScanner) (*job.Job, error) {
	var j job.Job
	var eligibility []byte
	var createdBy sql.NullString
	if err := row.Scan(&j.ID, &j.CompanyID, &j.CompanyName, &j.Title, &j.Description, &j.Location, &j.Type, &j.CTC, &j.Stipend, &eligibility,
		&j.Deadline, &j.Status, &createdBy, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if len(eligibility) > 0 {
		if err := json.Unmarshal(eligibility, &j.Eligibility); err != nil {
			return nil, err
		}
	}
	j.CreatedBy = common.UUID(createdBy.String)
	return &j, nil
}

func encodeEligibility(e job.Eligibility) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", common.NewError(common.CodeInternal, "failed to encode eligibility", err)
	}
	return string(raw), nil
}

func (r *JobRepository) Create(ctx context.Context, j job.Job) (*job.Job, error) {
	if j.ID == "" {
		j.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now
	eligibility, err := encodeEligibility(j.Eligibility)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO jobs (id, company_id, title, description, location, job_type, ctc, stipend, eligibility, deadline, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		j.ID, j.CompanyID, j.Title, j.Description, j.Location, j.Type, j.CTC, j.Stipend, eligibility, j.Deadline, j.Status, j.CreatedBy, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return nil, translate(err, "job", "create")
	}
	return r.GetByID(ctx, j.ID)
}

func (r *JobRepository) Update(ctx context.Context, j job.Job) (*job.Job, error) {
	eligibility, err := encodeEligibility(j.Eligibility)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE jobs SET company_id = $1, title = $2, description = $3, location = $4, job_type = $5, ctc = $6, stipend = $7,
		eligibility = $8, deadline = $9, status = $10, updated_at = $11 WHERE id = $12`,
		j.CompanyID, j.Title, j.Description, j.Location, j.Type, j.CTC, j.Stipend, eligibility, j.Deadline, j.Status, time.Now().UTC(), j.ID)
	if err != nil {
		return nil, translate(err, "job", "update")
	}
	if err := expectAffected(res, "job"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, j.ID)
}

func (r *JobRepository) Delete(ctx context.Context, id common.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return translate(err, "job", "delete")
	}
	return expectAffected(res, "job")
}

func (r *JobRepository) GetByID(ctx context.Context, id common.UUID) (*job.Job, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, jobSelect+` WHERE j.id = $1`, id))
	if err != nil {
		return nil, translate(err, "job", "load")
	}
	return j, nil
}

func (r *JobRepository) List(ctx context.Context, filter job.Filter, page common.Page) ([]job.Job, int, error) {
	var w where
	if filter.Status != "" {
		w.add("j.status = ?", filter.Status)
	}
	if filter.CompanyID != "" {
		w.add("j.company_id = ?", filter.CompanyID)
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		w.add("(j.title ILIKE ? OR c.name ILIKE ? OR j.location ILIKE ?)", pattern, pattern, pattern)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs j JOIN companies c ON c.id = j.company_id`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "jobs", "count")
	}
	query, args := w.list(jobSelect, `j.deadline ASC, j.created_at DESC`, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "jobs", "list")
	}
	defer rows.Close()
	items := make([]job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, translate(err, "job", "scan")
		}
		items = append(items, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "jobs", "list")
	}
	return items, total, nil
}

func (r *JobRepository) CountOpenByCompany(ctx context.Context, companyID common.UUID) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE company_id = $1 AND status = $2`, companyID, job.StatusPublished).Scan(&count); err != nil {
		return 0, translate(err, "jobs", "count")
	}
	return count, nil
}
