package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/document"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/announcement"
	"placementcell/internal/domain/notification"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
	"placementcell/internal/storage"
)

const excerptRunes = 200

var attachmentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

type AnnouncementService struct {
	repo      announcement.Repository
	students  student.Repository
	files     storage.FileStore
	notifier  Notifier
	analytics analytics.Repository
	maxUpload int64
	now       func() time.Time
}

func NewAnnouncementService(repo announcement.Repository, students student.Repository, files storage.FileStore, notifier Notifier, analytics analytics.Repository, maxUpload int64) *AnnouncementService {
	return &AnnouncementService{repo: repo, students: students, files: files, notifier: notifier, analytics: analytics, maxUpload: maxUpload, now: time.Now}
}

type AnnouncementInput struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Audience     string     `json:"audience"`
	DepartmentID string     `json:"department_id"`
	BatchYear    *int       `json:"batch_year"`
	Pinned       bool       `json:"pinned"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (s *AnnouncementService) List(ctx context.Context, actor user.Actor, page common.Page) ([]announcement.Announcement, int, error) {
	viewer, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListVisible(ctx, viewer, page)
}

func (s *AnnouncementService) Get(ctx context.Context, actor user.Actor, id common.UUID) (*announcement.Announcement, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	viewer, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !Visible(*item, viewer) {
		return nil, common.NewError(common.CodeNotFound, "announcement not found", nil)
	}
	return item, nil
}

func (s *AnnouncementService) Create(ctx context.Context, actor user.Actor, in AnnouncementInput) (*announcement.Announcement, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	record, fields := s.build(actor, in)
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid announcement", fields)
	}
	record.CreatedBy = actor.UserID
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.notifyAudience(ctx, created)
	track(ctx, s.analytics, "announcement.created", actor.UserID, map[string]string{"announcement_id": created.ID.String(), "audience": string(created.Audience)})
	return created, nil
}

func (s *AnnouncementService) Update(ctx context.Context, actor user.Actor, id common.UUID, in AnnouncementInput) (*announcement.Announcement, error) {
	current, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	record, fields := s.build(actor, in)
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid announcement", fields)
	}
	record.ID = current.ID
	record.CreatedBy = current.CreatedBy
	record.CreatedAt = current.CreatedAt
	record.AttachmentPath = current.AttachmentPath
	record.AttachmentName = current.AttachmentName
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "announcement.updated", actor.UserID, map[string]string{"announcement_id": id.String()})
	return updated, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, actor user.Actor, id common.UUID) error {
	current, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if current.AttachmentPath != "" {
		_ = s.files.Remove(ctx, current.AttachmentPath)
	}
	track(ctx, s.analytics, "announcement.deleted", actor.UserID, map[string]string{"announcement_id": id.String()})
	return nil
}

func (s *AnnouncementService) UploadAttachment(ctx context.Context, actor user.Actor, id common.UUID, filename string, r io.Reader) (*announcement.Announcement, error) {
	current, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(strings.TrimSpace(filename))
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := attachmentTypes[ext]; !ok || name == "." {
		return nil, common.NewValidationError("invalid attachment", map[string]string{"attachment": "attachment must be pdf, doc, docx, xlsx, png, or jpg"})
	}
	path, err := s.files.Save(ctx, "attachments", ext, r, s.maxUpload)
	if err != nil {
		return nil, uploadError(err)
	}
	if err := s.repo.SetAttachment(ctx, id, path, name); err != nil {
		_ = s.files.Remove(ctx, path)
		return nil, err
	}
	if current.AttachmentPath != "" {
		_ = s.files.Remove(ctx, current.AttachmentPath)
	}
	current.AttachmentPath = path
	current.AttachmentName = name
	track(ctx, s.analytics, "announcement.attachment_uploaded", actor.UserID, map[string]string{"announcement_id": id.String()})
	return current, nil
}

// OpenAttachment returns the attachment, its original name and content type; the caller must close it.
func (s *AnnouncementService) OpenAttachment(ctx context.Context, actor user.Actor, id common.UUID) (io.ReadCloser, string, string, error) {
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", "", err
	}
	if item.AttachmentPath == "" {
		return nil, "", "", common.NewError(common.CodeNotFound, "announcement has no attachment", nil)
	}
	rc, err := s.files.Open(ctx, item.AttachmentPath)
	if err != nil {
		return nil, "", "", err
	}
	contentType := attachmentTypes[strings.ToLower(filepath.Ext(item.AttachmentPath))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, item.AttachmentName, contentType, nil
}

// Visible reports whether viewer may read the announcement. Staff see everything that has not expired.
func Visible(a announcement.Announcement, viewer announcement.Viewer) bool {
	if a.ExpiresAt != nil && !a.ExpiresAt.After(viewer.Now) {
		return false
	}
	if viewer.Staff {
		return true
	}
	if a.Audience == announcement.AudienceStaff {
		return false
	}
	if a.DepartmentID != nil && *a.DepartmentID != viewer.DepartmentID {
		return false
	}
	if a.BatchYear != nil && *a.BatchYear != viewer.BatchYear {
		return false
	}
	return true
}

func (s *AnnouncementService) viewer(ctx context.Context, actor user.Actor) (announcement.Viewer, error) {
	viewer := announcement.Viewer{Now: s.now().UTC()}
	if actor.IsStaff() {
		viewer.Staff = true
		return viewer, nil
	}
	self, err := s.students.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return viewer, nil
		}
		return viewer, err
	}
	viewer.DepartmentID = self.DepartmentID
	viewer.BatchYear = self.BatchYear
	return viewer, nil
}

func (s *AnnouncementService) getManaged(ctx context.Context, actor user.Actor, id common.UUID) (*announcement.Announcement, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == user.RoleDeptOfficer && (current.DepartmentID == nil || *current.DepartmentID != actor.DepartmentID) {
		return nil, common.NewError(common.CodeForbidden, "announcement belongs to another department", nil)
	}
	return current, nil
}

func (s *AnnouncementService) build(actor user.Actor, in AnnouncementInput) (announcement.Announcement, map[string]string) {
	fields := map[string]string{}
	content := document.CleanHTML(in.Content)
	record := announcement.Announcement{
		Title:     strings.TrimSpace(in.Title),
		Content:   content,
		Excerpt:   document.Excerpt(content, excerptRunes),
		Audience:  announcement.Audience(strings.ToLower(strings.TrimSpace(in.Audience))),
		BatchYear: in.BatchYear,
		Pinned:    in.Pinned,
		ExpiresAt: in.ExpiresAt,
	}
	if record.Title == "" {
		fields["title"] = "title is required"
	} else if len([]rune(record.Title)) > 200 {
		fields["title"] = "title must be at most 200 characters"
	}
	if record.Excerpt == "" {
		fields["content"] = "content is required"
	}
	switch record.Audience {
	case announcement.AudienceAll, announcement.AudienceStudents, announcement.AudienceStaff:
	case "":
		record.Audience = announcement.AudienceAll
	default:
		fields["audience"] = "audience must be all, students, or staff"
	}
	if raw := strings.TrimSpace(in.DepartmentID); raw != "" {
		id, err := common.ParseUUID(raw)
		if err != nil {
			fields["department_id"] = "invalid uuid"
		} else {
			record.DepartmentID = &id
		}
	}
	if actor.Role == user.RoleDeptOfficer {
		dept := actor.DepartmentID
		record.DepartmentID = &dept
	}
	if record.BatchYear != nil && (*record.BatchYear < 2000 || *record.BatchYear > 2100) {
		fields["batch_year"] = "batch_year must be between 2000 and 2100"
	}
	if record.ExpiresAt != nil {
		expires := record.ExpiresAt.UTC()
		if !expires.After(s.now()) {
			fields["expires_at"] = "expires_at must be in the future"
		}
		record.ExpiresAt = &expires
	}
	return record, fields
}

func (s *AnnouncementService) notifyAudience(ctx context.Context, item *announcement.Announcement) {
	if s.notifier == nil || item.Audience == announcement.AudienceStaff {
		return
	}
	filter := student.Filter{}
	if item.DepartmentID != nil {
		filter.DepartmentID = *item.DepartmentID
	}
	if item.BatchYear != nil {
		filter.BatchYear = *item.BatchYear
	}
	targets, err := s.students.ListAll(ctx, filter)
	if err != nil {
		return
	}
	recipients := make([]common.UUID, 0, len(targets))
	for _, target := range targets {
		if target.UserID != nil {
			recipients = append(recipients, *target.UserID)
		}
	}
	s.notifier.Notify(ctx, recipients, notification.TypeAnnouncementPosted, item.Title, item.Excerpt, fmt.Sprintf("/announcements/%s", item.ID))
}
