package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/department"
)

type DepartmentRepository struct {
	db *sql.DB
}

func NewDepartmentRepository(db *sql.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, d department.Department) (*department.Department, error) {
	if d.ID == "" {
		d.ID = common.NewUUID()
	}
	d.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO departments (id, code, name, created_at) VALUES ($1, $2, $3, $4)`, d.ID, d.Code, d.Name, d.CreatedAt)
	if err != nil {
		return nil, translate(err, "department", "create")
	}
	return &d, nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id common.UUID) (*department.Department, error) {
	return r.get(ctx, `SELECT id, code, name, created_at FROM departments WHERE id = $1`, id)
}

func (r *DepartmentRepository) GetByCode(ctx context.Context, code string) (*department.Department, error) {
	return r.get(ctx, `SELECT id, code, name, created_at FROM departments WHERE code = $1`, strings.ToUpper(strings.TrimSpace(code)))
}

func (r *DepartmentRepository) get(ctx context.Context, query string, arg interface{}) (*department.Department, error) {
	var d department.Department
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&d.ID, &d.Code, &d.Name, &d.CreatedAt); err != nil {
		return nil, translate(err, "department", "load")
	}
	return &d, nil
}

func (r *DepartmentRepository) List(ctx context.Context) ([]department.Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name, created_at FROM departments ORDER BY code`)
	if err != nil {
		return nil, translate(err, "departments", "list")
	}
	defer rows.Close()
	items := make([]department.Department, 0)
	for rows.Next() {
		var d department.Department
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.CreatedAt); err != nil {
			return nil, translate(err, "department", "scan")
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "departments", "list")
	}
	return items, nil
}
