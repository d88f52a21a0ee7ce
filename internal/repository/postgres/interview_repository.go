package postgres

import (
	"context"
	"database/sql"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/interview"
)

type InterviewRepository struct {
	db *sql.DB
}

func NewInterviewRepository(db *sql.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

const interviewSelect = `SELECT i.id, i.application_id, i.student_id, i.job_id, i.round, i.title, i.scheduled_at, i.duration_minutes, i.mode,
	i.location, i.meeting_link, i.status, i.result, i.feedback, s.name, j.title, c.name, s.department_id, i.created_at, i.updated_at
	FROM interviews i
	JOIN students s ON s.id = i.student_id
	JOIN jobs j ON j.id = i.job_id
	JOIN companies c ON c.id = j.company_id`

func scanInterview(row rowScanner) (*interview.Interview, error) {
	var i interview.Interview
	if err := row.Scan(&i.ID, &i.ApplicationID, &i.StudentID, &i.JobID, &i.Round, &i.Title, &i.ScheduledAt, &i.DurationMinutes, &i.Mode,
		&i.Location, &i.MeetingLink, &i.Status, &i.Result, &i.Feedback, &i.StudentName, &i.JobTitle, &i.CompanyName, &i.DepartmentID,
		&i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *InterviewRepository) Create(ctx context.Context, i interview.Interview) (*interview.Interview, error) {
	if i.ID == "" {
		i.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	i.CreatedAt = now
	i.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO interviews (id, application_id, student_id, job_id, round, title, scheduled_at, duration_minutes, mode,
		location, meeting_link, status, result, feedback, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		i.ID, i.ApplicationID, i.StudentID, i.JobID, i.Round, i.Title, i.ScheduledAt, i.DurationMinutes, i.Mode,
		i.Location, i.MeetingLink, i.Status, i.Result, i.Feedback, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return nil, translate(err, "interview", "create")
	}
	return r.GetByID(ctx, i.ID)
}

func (r *InterviewRepository) Update(ctx context.Context, i interview.Interview) (*interview.Interview, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE interviews SET round = $1, title = $2, scheduled_at = $3, duration_minutes = $4, mode = $5, location = $6,
		meeting_link = $7, status = $8, result = $9, feedback = $10, updated_at = $11 WHERE id = $12`,
		i.Round, i.Title, i.ScheduledAt, i.DurationMinutes, i.Mode, i.Location, i.MeetingLink, i.Status, i.Result, i.Feedback, time.Now().UTC(), i.ID)
	if err != nil {
		return nil, translate(err, "interview", "update")
	}
	if err := expectAffected(res, "interview"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, i.ID)
}

func (r *InterviewRepository) GetByID(ctx context.Context, id common.UUID) (*interview.Interview, error) {
	i, err := scanInterview(r.db.QueryRowContext(ctx, interviewSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, translate(err, "interview", "load")
	}
	return i, nil
}

func (r *InterviewRepository) List(ctx context.Context, filter interview.Filter, page common.Page) ([]interview.Interview, int, error) {
	var w where
	if filter.StudentID != "" {
		w.add("i.student_id = ?", filter.StudentID)
	}
	if filter.JobID != "" {
		w.add("i.job_id = ?", filter.JobID)
	}
	if filter.DepartmentID != "" {
		w.add("s.department_id = ?", filter.DepartmentID)
	}
	if filter.Status != "" {
		w.add("i.status = ?", filter.Status)
	}
	if filter.From != nil {
		w.add("i.scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add("i.scheduled_at < ?", *filter.To)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interviews i JOIN students s ON s.id = i.student_id`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "interviews", "count")
	}
	query, args := w.list(interviewSelect, `i.scheduled_at ASC`, page)
	items, err := r.query(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *InterviewRepository) ListScheduledForStudent(ctx context.Context, studentID common.UUID, from, to time.Time) ([]interview.Interview, error) {
	return r.query(ctx, interviewSelect+` WHERE i.student_id = $1 AND i.status = $2
		AND i.scheduled_at < $3 AND i.scheduled_at + make_interval(mins => i.duration_minutes) > $4
		ORDER BY i.scheduled_at`, []interface{}{studentID, interview.StatusScheduled, to, from})
}

func (r *InterviewRepository) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interviews WHERE status = $1 AND scheduled_at >= $2`, interview.StatusScheduled, now).Scan(&count); err != nil {
		return 0, translate(err, "interviews", "count")
	}
	return count, nil
}

func (r *InterviewRepository) query(ctx context.Context, query string, args []interface{}) ([]interview.Interview, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "interviews", "list")
	}
	defer rows.Close()
	items := make([]interview.Interview, 0)
	for rows.Next() {
		i, err := scanInterview(rows)
		if err != nil {
			return nil, translate(err, "interview", "scan")
		}
		items = append(items, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "interviews", "list")
	}
	return items, nil
}
