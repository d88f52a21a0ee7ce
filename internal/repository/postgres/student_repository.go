package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"

	"placementcell/internal/common"
	"placementcell/internal/domain/student"
)

type StudentRepository struct {
	db *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, roll_number, name, email, phone, department_id, degree, batch_year, cgpa, backlogs, skills, resume_path, resume_text, placement_status, created_at, updated_at`

func scanStudent(row rowScanner) (*student.Student, error) {
	var s student.Student
	var userID sql.NullString
	var skills pq.StringArray
	if err := row.Scan(&s.ID, &userID, &s.RollNumber, &s.Name, &s.Email, &s.Phone, &s.DepartmentID, &s.Degree, &s.BatchYear, &s.CGPA, &s.Backlogs,
		&skills, &s.ResumePath, &s.ResumeText, &s.PlacementStatus, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := common.UUID(userID.String)
		s.UserID = &id
	}
	s.Skills = []string(skills)
	if s.Skills == nil {
		s.Skills = []string{}
	}
	s.HasResume = s.ResumePath != ""
	return &s, nil
}

func (r *StudentRepository) Create(ctx context.Context, s student.Student) (*student.Student, error) {
	if s.ID == "" {
		s.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.PlacementStatus == "" {
		s.PlacementStatus = student.PlacementUnplaced
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO students (id, user_id, roll_number, name, email, phone, department_id, degree, batch_year, cgpa, backlogs, skills, resume_path, resume_text, placement_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		s.ID, s.UserID, s.RollNumber, s.Name, s.Email, s.Phone, s.DepartmentID, s.Degree, s.BatchYear, s.CGPA, s.Backlogs,
		pq.Array(s.Skills), s.ResumePath, s.ResumeText, s.PlacementStatus, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return nil, translate(err, "student", "create")
	}
	s.HasResume = s.ResumePath != ""
	return &s, nil
}

func (r *StudentRepository) Update(ctx context.Context, s student.Student) (*student.Student, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET roll_number = $1, name = $2, email = $3, phone = $4, department_id = $5, degree = $6,
		batch_year = $7, cgpa = $8, backlogs = $9, skills = $10, placement_status = $11, updated_at = $12 WHERE id = $13`,
		s.RollNumber, s.Name, s.Email, s.Phone, s.DepartmentID, s.Degree, s.BatchYear, s.CGPA, s.Backlogs,
		pq.Array(s.Skills), s.PlacementStatus, time.Now().UTC(), s.ID)
	if err != nil {
		return nil, translate(err, "student", "update")
	}
	if err := expectAffected(res, "student"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, s.ID)
}

func (r *StudentRepository) Delete(ctx context.Context, id common.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return translate(err, "student", "delete")
	}
	return expectAffected(res, "student")
}

func (r *StudentRepository) GetByID(ctx context.Context, id common.UUID) (*student.Student, error) {
	return r.get(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

func (r *StudentRepository) GetByUserID(ctx context.Context, userID common.UUID) (*student.Student, error) {
	return r.get(ctx, `SELECT `+studentColumns+` FROM students WHERE user_id = $1`, userID)
}

func (r *StudentRepository) GetByRollNumber(ctx context.Context, rollNumber string) (*student.Student, error) {
	return r.get(ctx, `SELECT `+studentColumns+` FROM students WHERE roll_number = $1`, strings.ToUpper(strings.TrimSpace(rollNumber)))
}

func (r *StudentRepository) get(ctx context.Context, query string, arg interface{}) (*student.Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, translate(err, "student", "load")
	}
	return s, nil
}

func studentWhere(filter student.Filter) *where {
	w := &where{}
	if filter.DepartmentID != "" {
		w.add("department_id = ?", filter.DepartmentID)
	}
	if filter.BatchYear != 0 {
		w.add("batch_year = ?", filter.BatchYear)
	}
	if filter.PlacementStatus != "" {
		w.add("placement_status = ?", filter.PlacementStatus)
	}
	if filter.Query != "" {
		w.add(`(name ILIKE ? OR roll_number ILIKE ? OR email ILIKE ? OR array_to_string(skills, ' ') ILIKE ? OR resume_text ILIKE ?)`,
			repeat(likePattern(filter.Query), 5)...)
	}
	return w
}

func repeat(value interface{}, n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func (r *StudentRepository) List(ctx context.Context, filter student.Filter, page common.Page) ([]student.Student, int, error) {
	w := studentWhere(filter)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "students", "count")
	}
	query, args := w.list(`SELECT `+studentColumns+` FROM students`, `roll_number`, page)
	items, err := r.query(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *StudentRepository) ListAll(ctx context.Context, filter student.Filter) ([]student.Student, error) {
	w := studentWhere(filter)
	return r.query(ctx, `SELECT `+studentColumns+` FROM students`+w.String()+` ORDER BY roll_number`, w.args)
}

func (r *StudentRepository) query(ctx context.Context, query string, args []interface{}) ([]student.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "students", "list")
	}
	defer rows.Close()
	items := make([]student.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, translate(err, "student", "scan")
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "students", "list")
	}
	return items, nil
}

func (r *StudentRepository) SetResume(ctx context.Context, id common.UUID, path, text string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET resume_path = $1, resume_text = $2, updated_at = $3 WHERE id = $4`, path, text, time.Now().UTC(), id)
	if err != nil {
		return translate(err, "student", "update")
	}
	return expectAffected(res, "student")
}
