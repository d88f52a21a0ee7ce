package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/company"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/user"
	"placementcell/internal/storage"
)

var logoExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

type CompanyService struct {
	repo      company.Repository
	jobs      job.Repository
	files     storage.FileStore
	analytics analytics.Repository
	logger    Logger
	maxUpload int64
}

func NewCompanyService(repo company.Repository, jobs job.Repository, files storage.FileStore, analytics analytics.Repository, logger Logger, maxUpload int64) *CompanyService {
	return &CompanyService{repo: repo, jobs: jobs, files: files, analytics: analytics, logger: logger, maxUpload: maxUpload}
}

type CompanyInput struct {
	Name         string `json:"name"`
	Industry     string `json:"industry"`
	Website      string `json:"website"`
	Description  string `json:"description"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Status       string `json:"status"`
}

func (s *CompanyService) List(ctx context.Context, filter company.Filter, page common.Page) ([]company.Company, int, error) {
	return s.repo.List(ctx, filter, page)
}

func (s *CompanyService) Get(ctx context.Context, id common.UUID) (*company.Company, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CompanyService) Create(ctx context.Context, actor user.Actor, in CompanyInput) (*company.Company, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	record, fields := buildCompany(in)
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid company", fields)
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "company.created", actor.UserID, map[string]string{"company_id": created.ID.String()})
	return created, nil
}

func (s *CompanyService) Update(ctx context.Context, actor user.Actor, id common.UUID, in CompanyInput) (*company.Company, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	record, fields := buildCompany(in)
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid company", fields)
	}
	record.ID = current.ID
	record.LogoPath = current.LogoPath
	record.HasLogo = current.HasLogo
	record.CreatedAt = current.CreatedAt
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "company.updated", actor.UserID, map[string]string{"company_id": id.String()})
	return updated, nil
}

func (s *CompanyService) Delete(ctx context.Context, actor user.Actor, id common.UUID) error {
	if err := requireRole(actor, user.RoleAdmin, user.RoleCoordinator); err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	open, err := s.jobs.CountOpenByCompany(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return common.NewError(common.CodeConflict, fmt.Sprintf("company has %d open jobs", open), nil)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if current.LogoPath != "" {
		if err := s.files.Remove(ctx, current.LogoPath); err != nil && s.logger != nil {
			s.logger.Error(fmt.Sprintf("remove logo company_id=%s err=%v", id, err))
		}
	}
	track(ctx, s.analytics, "company.deleted", actor.UserID, map[string]string{"company_id": id.String()})
	return nil
}

func (s *CompanyService) Jobs(ctx context.Context, actor user.Actor, id common.UUID, page common.Page) ([]job.Job, int, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, 0, err
	}
	filter := job.Filter{CompanyID: id}
	if !actor.IsStaff() {
		filter.Status = job.StatusPublished
	}
	return s.jobs.List(ctx, filter, page)
}

// UploadLogo sniffs the image type from content rather than trusting the client.
func (s *CompanyService) UploadLogo(ctx context.Context, actor user.Actor, id common.UUID, r io.Reader) (*company.Company, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return nil, common.NewError(common.CodeValidation, "failed to read upload", err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("logo exceeds %d bytes", s.maxUpload), nil)
	}
	ext, ok := logoExtensions[logoContentType(data)]
	if !ok {
		return nil, common.NewValidationError("invalid logo", map[string]string{"logo": "logo must be png, jpeg, webp, or svg"})
	}
	path, err := s.files.Save(ctx, "logos", ext, bytes.NewReader(data), s.maxUpload)
	if err != nil {
		return nil, uploadError(err)
	}
	if err := s.repo.SetLogo(ctx, id, path); err != nil {
		_ = s.files.Remove(ctx, path)
		return nil, err
	}
	if current.LogoPath != "" {
		_ = s.files.Remove(ctx, current.LogoPath)
	}
	current.LogoPath = path
	current.HasLogo = true
	track(ctx, s.analytics, "company.logo_uploaded", actor.UserID, map[string]string{"company_id": id.String()})
	return current, nil
}

// OpenLogo returns the logo and its content type; the caller must close it.
func (s *CompanyService) OpenLogo(ctx context.Context, id common.UUID) (io.ReadCloser, string, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if current.LogoPath == "" {
		return nil, "", common.NewError(common.CodeNotFound, "logo not uploaded", nil)
	}
	rc, err := s.files.Open(ctx, current.LogoPath)
	if err != nil {
		return nil, "", err
	}
	for contentType, ext := range logoExtensions {
		if strings.HasSuffix(current.LogoPath, ext) {
			return rc, contentType, nil
		}
	}
	return rc, "application/octet-stream", nil
}

func logoContentType(data []byte) string {
	head := bytes.TrimSpace(data)
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.HasPrefix(head, []byte("<svg")) || (bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg"))) {
		return "image/svg+xml"
	}
	return http.DetectContentType(data)
}

func buildCompany(in CompanyInput) (company.Company, map[string]string) {
	fields := map[string]string{}
	record := company.Company{
		Name:         strings.TrimSpace(in.Name),
		Industry:     strings.TrimSpace(in.Industry),
		Website:      strings.TrimSpace(in.Website),
		Description:  strings.TrimSpace(in.Description),
		ContactName:  strings.TrimSpace(in.ContactName),
		ContactEmail: normalizeEmail(in.ContactEmail),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		Status:       company.StatusActive,
	}
	if record.Name == "" {
		fields["name"] = "name is required"
	}
	if record.Website != "" {
		parsed, err := url.Parse(record.Website)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			fields["website"] = "website must be an http(s) url"
		}
	}
	if record.ContactEmail != "" {
		if _, err := mail.ParseAddress(record.ContactEmail); err != nil {
			fields["contact_email"] = "invalid email"
		}
	}
	if record.ContactPhone != "" && !phonePattern.MatchString(record.ContactPhone) {
		fields["contact_phone"] = "invalid phone number"
	}
	if raw := strings.TrimSpace(in.Status); raw != "" {
		status := company.Status(strings.ToLower(raw))
		if status != company.StatusActive && status != company.StatusInactive {
			fields["status"] = "status must be active or inactive"
		}
		record.Status = status
	}
	return record, fields
}
