package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/student"
)

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationSelect = `SELECT a.id, a.job_id, a.student_id, a.status, a.remarks, j.title, c.name, s.name, s.roll_number, s.department_id, a.created_at, a.updated_at
	FROM applications a
	JOIN jobs j ON j.id = a.job_id
	JOIN companies c ON c.id = j.company_id
	JOIN students s ON s.id = a.student_id`

func scanApplication(row rowScanner) (*application.Application, error) {
	var a application.Application
	if err := row.Scan(&a.ID, &a.JobID, &a.StudentID, &a.Status, &a.Remarks, &a.JobTitle, &a.CompanyName, &a.StudentName, &a.RollNumber,
		&a.DepartmentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, a application.Application) (*application.Application, error) {
	a.ID = common.NewUUID()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO applications (id, job_id, student_id, status, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.JobID, a.StudentID, a.Status, a.Remarks, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return nil, translate(err, "application", "create")
	}
	return &a, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, translate(err, "application", "load")
	}
	return a, nil
}

func (r *ApplicationRepository) FindByJobAndStudent(ctx context.Context, jobID, studentID common.UUID) (*application.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.job_id = $1 AND a.student_id = $2`, jobID, studentID))
	if err != nil {
		return nil, translate(err, "application", "load")
	}
	return a, nil
}

func applicationWhere(filter application.Filter) *where {
	w := &where{}
	if filter.JobID != "" {
		w.add("a.job_id = ?", filter.JobID)
	}
	if filter.StudentID != "" {
		w.add("a.student_id = ?", filter.StudentID)
	}
	if filter.DepartmentID != "" {
		w.add("s.department_id = ?", filter.DepartmentID)
	}
	if filter.Status != "" {
		w.add("a.status = ?", filter.Status)
	}
	return w
}

func (r *ApplicationRepository) List(ctx context.Context, filter application.Filter, page common.Page) ([]application.Application, int, error) {
	w := applicationWhere(filter)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications a JOIN students s ON s.id = a.student_id`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "applications", "count")
	}
	query, args := w.list(applicationSelect, `a.created_at DESC, a.id`, page)
	items, err := r.query(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ApplicationRepository) ListAll(ctx context.Context, filter application.Filter) ([]application.Application, error) {
	w := applicationWhere(filter)
	return r.query(ctx, applicationSelect+w.String()+` ORDER BY a.created_at DESC, a.id`, w.args)
}

func (r *ApplicationRepository) query(ctx context.Context, query string, args []interface{}) ([]application.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "applications", "list")
	}
	defer rows.Close()
	items := make([]application.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, translate(err, "application", "scan")
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "applications", "list")
	}
	return items, nil
}

// ChangeStatus updates the application and, for selections, the student's placement in one transaction.
func (r *ApplicationRepository) ChangeStatus(ctx context.Context, change application.StatusChange) (*application.Application, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate(err, "application", "update")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	var studentID common.UUID
	err = tx.QueryRowContext(ctx, `UPDATE applications SET status = $1, remarks = $2, updated_at = $3
		WHERE id = $4 AND status = $5 RETURNING student_id`,
		change.To, change.Remarks, now, change.ID, change.From).Scan(&studentID)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, change.ID).Scan(&exists); err != nil {
			return nil, translate(err, "application", "load")
		}
		if !exists {
			return nil, common.NewError(common.CodeNotFound, "application not found", nil)
		}
		return nil, common.NewError(common.CodeConflict, "application status changed, reload and retry", nil)
	}
	if err != nil {
		return nil, translate(err, "application", "update")
	}
	if change.MarkPlaced {
		res, err := tx.ExecContext(ctx, `UPDATE students SET placement_status = $1, updated_at = $2 WHERE id = $3`, student.PlacementPlaced, now, studentID)
		if err != nil {
			return nil, translate(err, "student", "update")
		}
		if err := expectAffected(res, "student"); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, translate(err, "application", "update")
	}
	return r.GetByID(ctx, change.ID)
}
