package postgres

import (
	"context"
	"database/sql"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/announcement"
)

type AnnouncementRepository struct {
	db *sql.DB
}

func NewAnnouncementRepository(db *sql.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

const announcementColumns = `id, title, content, excerpt, audience, department_id, batch_year, pinned, attachment_path, attachment_name, created_by, expires_at, created_at, updated_at`

func scanAnnouncement(row rowScanner) (*announcement.Announcement, error) {
	var a announcement.Announcement
	var dept, createdBy sql.NullString
	var batch sql.NullInt64
	var expires sql.NullTime
	if err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Excerpt, &a.Audience, &dept, &batch, &a.Pinned, &a.AttachmentPath, &a.AttachmentName,
		&createdBy, &expires, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if dept.Valid {
		id := common.UUID(dept.String)
		a.DepartmentID = &id
	}
	if batch.Valid {
		year := int(batch.Int64)
		a.BatchYear = &year
	}
	if expires.Valid {
		at := expires.Time
		a.ExpiresAt = &at
	}
	a.CreatedBy = common.UUID(createdBy.String)
	return &a, nil
}

func (r *AnnouncementRepository) Create(ctx context.Context, a announcement.Announcement) (*announcement.Announcement, error) {
	if a.ID == "" {
		a.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO announcements (id, title, content, excerpt, audience, department_id, batch_year, pinned, attachment_path, attachment_name, created_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.Title, a.Content, a.Excerpt, a.Audience, a.DepartmentID, a.BatchYear, a.Pinned, a.AttachmentPath, a.AttachmentName, a.CreatedBy, a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return nil, translate(err, "announcement", "create")
	}
	return &a, nil
}

func (r *AnnouncementRepository) Update(ctx context.Context, a announcement.Announcement) (*announcement.Announcement, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE announcements SET title = $1, content = $2, excerpt = $3, audience = $4, department_id = $5, batch_year = $6,
		pinned = $7, expires_at = $8, updated_at = $9 WHERE id = $10`,
		a.Title, a.Content, a.Excerpt, a.Audience, a.DepartmentID, a.BatchYear, a.Pinned, a.ExpiresAt, time.Now().UTC(), a.ID)
	if err != nil {
		return nil, translate(err, "announcement", "update")
	}
	if err := expectAffected(res, "announcement"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, a.ID)
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id common.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return translate(err, "announcement", "delete")
	}
	return expectAffected(res, "announcement")
}

func (r *AnnouncementRepository) GetByID(ctx context.Context, id common.UUID) (*announcement.Announcement, error) {
	a, err := scanAnnouncement(r.db.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "announcement", "load")
	}
	return a, nil
}

// ListVisible applies the same rules as the service-level visibility check, pinned first then newest.
func (r *AnnouncementRepository) ListVisible(ctx context.Context, viewer announcement.Viewer, page common.Page) ([]announcement.Announcement, int, error) {
	var w where
	w.add("(expires_at IS NULL OR expires_at > ?)", viewer.Now)
	if !viewer.Staff {
		w.add("audience <> ?", announcement.AudienceStaff)
		w.add("(department_id IS NULL OR department_id = ?)", common.UUIDPtr(viewer.DepartmentID))
		w.add("(batch_year IS NULL OR batch_year = ?)", viewer.BatchYear)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "announcements", "count")
	}
	query, args := w.list(`SELECT `+announcementColumns+` FROM announcements`, `pinned DESC, created_at DESC`, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "announcements", "list")
	}
	defer rows.Close()
	items := make([]announcement.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, 0, translate(err, "announcement", "scan")
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "announcements", "list")
	}
	return items, total, nil
}

func (r *AnnouncementRepository) SetAttachment(ctx context.Context, id common.UUID, path, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE announcements SET attachment_path = $1, attachment_name = $2, updated_at = $3 WHERE id = $4`, path, name, time.Now().UTC(), id)
	if err != nil {
		return translate(err, "announcement", "update")
	}
	return expectAffected(res, "announcement")
}
