package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/user"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, role, department_id, password_hash, is_active, last_login_at, created_at, updated_at`

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var dept sql.NullString
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &dept, &u.PasswordHash, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if dept.Valid {
		id := common.UUID(dept.String)
		u.DepartmentID = &id
	}
	if lastLogin.Valid {
		at := lastLogin.Time
		u.LastLoginAt = &at
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (*user.User, error) {
	if u.ID == "" {
		u.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, email, name, role, department_id, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Name, u.Role, u.DepartmentID, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return nil, translate(err, "user", "create")
	}
	return &u, nil
}

func (r *UserRepository) CreateForStudent(ctx context.Context, u user.User, studentID common.UUID) (*user.User, error) {
	if u.ID == "" {
		u.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate(err, "user", "create")
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, email, name, role, department_id, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Name, u.Role, u.DepartmentID, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt); err != nil {
		_ = tx.Rollback()
		return nil, translate(err, "user", "create")
	}
	res, err := tx.ExecContext(ctx, `UPDATE students SET user_id = $1, updated_at = $2 WHERE id = $3 AND user_id IS NULL`, u.ID, now, studentID)
	if err != nil {
		_ = tx.Rollback()
		return nil, translate(err, "student", "link")
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		_ = tx.Rollback()
		if err != nil {
			return nil, translate(err, "student", "link")
		}
		return nil, common.NewError(common.CodeConflict, "account already exists for this roll number", nil)
	}
	if err := tx.Commit(); err != nil {
		return nil, translate(err, "user", "create")
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, u user.User) (*user.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET name = $1, role = $2, department_id = $3, is_active = $4, updated_at = $5 WHERE id = $6`,
		u.Name, u.Role, u.DepartmentID, u.IsActive, time.Now().UTC(), u.ID)
	if err != nil {
		return nil, translate(err, "user", "update")
	}
	if err := expectAffected(res, "user"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, u.ID)
}

func (r *UserRepository) GetByID(ctx context.Context, id common.UUID) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "user", "load")
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, translate(err, "user", "load")
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, filter user.Filter, page common.Page) ([]user.User, int, error) {
	var w where
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		w.add("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "users", "count")
	}
	query, args := w.list(`SELECT `+userColumns+` FROM users`, `created_at DESC, id`, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "users", "list")
	}
	defer rows.Close()
	items := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, translate(err, "user", "scan")
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "users", "list")
	}
	return items, total, nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role user.Role) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count); err != nil {
		return 0, translate(err, "users", "count")
	}
	return count, nil
}

func (r *UserRepository) SetPassword(ctx context.Context, id common.UUID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, time.Now().UTC(), id)
	if err != nil {
		return translate(err, "user", "update")
	}
	return expectAffected(res, "user")
}

func (r *UserRepository) TouchLogin(ctx context.Context, id common.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	return translate(err, "user", "update")
}
