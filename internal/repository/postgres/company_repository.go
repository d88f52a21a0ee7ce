package postgres

import (
	"context"
	"database/sql"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/company"
)

type CompanyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

const companyColumns = `id, name, industry, website, description, contact_name, contact_email, contact_phone, logo_path, status, created_at, updated_at`

func scanCompany(row rowScanner) (*company.Company, error) {
	var c company.Company
	if err := row.Scan(&c.ID, &c.Name, &c.Industry, &c.Website, &c.Description, &c.ContactName, &c.ContactEmail, &c.ContactPhone,
		&c.LogoPath, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.HasLogo = c.LogoPath != ""
	return &c, nil
}

func (r *CompanyRepository) Create(ctx context.Context, c company.Company) (*company.Company, error) {
	if c.ID == "" {
		c.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO companies (id, name, industry, website, description, contact_name, contact_email, contact_phone, logo_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Name, c.Industry, c.Website, c.Description, c.ContactName, c.ContactEmail, c.ContactPhone, c.LogoPath, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, translate(err, "company", "create")
	}
	return &c, nil
}

func (r *CompanyRepository) Update(ctx context.Context, c company.Company) (*company.Company, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE companies SET name = $1, industry = $2, website = $3, description = $4, contact_name = $5,
		contact_email = $6, contact_phone = $7, status = $8, updated_at = $9 WHERE id = $10`,
		c.Name, c.Industry, c.Website, c.Description, c.ContactName, c.ContactEmail, c.ContactPhone, c.Status, time.Now().UTC(), c.ID)
	if err != nil {
		return nil, translate(err, "company", "update")
	}
	if err := expectAffected(res, "company"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

// Delete fails with a conflict while any job still references the company.
func (r *CompanyRepository) Delete(ctx context.Context, id common.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return translate(err, "company", "delete")
	}
	return expectAffected(res, "company")
}

func (r *CompanyRepository) GetByID(ctx context.Context, id common.UUID) (*company.Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "company", "load")
	}
	return c, nil
}

func (r *CompanyRepository) List(ctx context.Context, filter company.Filter, page common.Page) ([]company.Company, int, error) {
	var w where
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		w.add("(name ILIKE ? OR industry ILIKE ?)", pattern, pattern)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "companies", "count")
	}
	query, args := w.list(`SELECT `+companyColumns+` FROM companies`, `name`, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "companies", "list")
	}
	defer rows.Close()
	items := make([]company.Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, translate(err, "company", "scan")
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "companies", "list")
	}
	return items, total, nil
}

func (r *CompanyRepository) SetLogo(ctx context.Context, id common.UUID, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE companies SET logo_path = $1, updated_at = $2 WHERE id = $3`, path, time.Now().UTC(), id)
	if err != nil {
		return translate(err, "company", "update")
	}
	return expectAffected(res, "company")
}
