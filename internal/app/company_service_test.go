package app

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"placementcell/internal/common"
	"placementcell/internal/domain/company"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/user"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type companyFixture struct {
	service   *CompanyService
	companies *fakeCompanyRepo
	jobs      *fakeJobRepo
	files     *memFileStore
	logger    *fakeLogger
	acme      company.Company
}

func newCompanyFixture() *companyFixture {
	acme := company.Company{ID: common.NewUUID(), Name: "Acme", Status: company.StatusActive}
	f := &companyFixture{
		companies: newFakeCompanyRepo(acme),
		jobs:      newFakeJobRepo(),
		files:     newMemFileStore(),
		logger:    &fakeLogger{},
		acme:      acme,
	}
	f.service = NewCompanyService(f.companies, f.jobs, f.files, &fakeAnalyticsRepo{}, f.logger, 1024)
	return f
}

func (f *companyFixture) addJob(title string, status job.Status) {
	_, _ = f.jobs.Create(context.Background(), job.Job{CompanyID: f.acme.ID, CompanyName: f.acme.Name, Title: title, Status: status})
}

func TestDeleteCompanyRefusedWithOpenJobs(t *testing.T) {
	f := newCompanyFixture()
	ctx := context.Background()
	f.addJob("Backend Engineer", job.StatusPublished)
	f.addJob("Old Role", job.StatusClosed)

	err := f.service.Delete(ctx, coordinator, f.acme.ID)
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := f.companies.GetByID(ctx, f.acme.ID); err != nil {
		t.Fatalf("expected company to remain, got %v", err)
	}
}

func TestDeleteCompanyRemovesLogo(t *testing.T) {
	f := newCompanyFixture()
	ctx := context.Background()
	f.addJob("Old Role", job.StatusClosed)
	if _, err := f.service.UploadLogo(ctx, coordinator, f.acme.ID, bytes.NewReader(pngHeader)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	officer := user.Actor{UserID: common.NewUUID(), Role: user.RoleDeptOfficer, DepartmentID: common.NewUUID()}
	if err := f.service.Delete(ctx, officer, f.acme.ID); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for dept officer, got %v", err)
	}
	if err := f.service.Delete(ctx, coordinator, f.acme.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.companies.GetByID(ctx, f.acme.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected company to be gone, got %v", err)
	}
	if f.files.count() != 0 {
		t.Fatalf("expected logo to be removed, got %d files", f.files.count())
	}
}

func TestUploadLogoSniffsContent(t *testing.T) {
	f := newCompanyFixture()
	ctx := context.Background()

	_, err := f.service.UploadLogo(ctx, coordinator, f.acme.ID, strings.NewReader("just some text, renamed to logo.png"))
	appErr := common.AsError(err)
	if appErr == nil || appErr.Code != common.CodeValidation || appErr.Fields["logo"] == "" {
		t.Fatalf("expected logo validation error, got %v", err)
	}
	if f.files.count() != 0 {
		t.Fatalf("expected rejected upload not to be stored")
	}

	updated, err := f.service.UploadLogo(ctx, coordinator, f.acme.ID, bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("upload png: %v", err)
	}
	if !updated.HasLogo || !strings.HasSuffix(updated.LogoPath, ".png") {
		t.Fatalf("expected png logo, got %+v", updated)
	}

	svg := `<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`
	if _, err := f.service.UploadLogo(ctx, coordinator, f.acme.ID, strings.NewReader(svg)); err != nil {
		t.Fatalf("upload svg: %v", err)
	}
	if f.files.count() != 1 {
		t.Fatalf("expected previous logo to be replaced, got %d files", f.files.count())
	}
	rc, contentType, err := f.service.OpenLogo(ctx, f.acme.ID)
	if err != nil {
		t.Fatalf("open logo: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if contentType != "image/svg+xml" || string(body) != svg {
		t.Fatalf("expected stored svg, got %q %q", contentType, body)
	}

	student := user.Actor{UserID: common.NewUUID(), Role: user.RoleStudent}
	if _, err := f.service.UploadLogo(ctx, student, f.acme.ID, bytes.NewReader(pngHeader)); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for student, got %v", err)
	}
}

func TestUploadLogoRejectsOversizedFile(t *testing.T) {
	f := newCompanyFixture()
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)
	_, err := f.service.UploadLogo(context.Background(), coordinator, f.acme.ID, bytes.NewReader(big))
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.files.count() != 0 {
		t.Fatalf("expected oversized upload not to be stored")
	}
}

func TestCompanyJobsHidesUnpublishedFromStudents(t *testing.T) {
	f := newCompanyFixture()
	ctx := context.Background()
	f.addJob("Backend Engineer", job.StatusPublished)
	f.addJob("Draft Role", job.StatusDraft)
	f.addJob("Closed Role", job.StatusClosed)
	student := user.Actor{UserID: common.NewUUID(), Role: user.RoleStudent}

	jobs, total, err := f.service.Jobs(ctx, student, f.acme.ID, common.Page{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if total != 1 || len(jobs) != 1 || jobs[0].Title != "Backend Engineer" {
		t.Fatalf("expected only the published job, got %d %+v", total, jobs)
	}

	_, total, err = f.service.Jobs(ctx, coordinator, f.acme.ID, common.Page{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected staff to see all jobs, got %d", total)
	}

	if _, _, err := f.service.Jobs(ctx, student, common.NewUUID(), common.Page{Page: 1, Limit: 10}); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not found for unknown company, got %v", err)
	}
}

func TestCreateCompanyValidation(t *testing.T) {
	f := newCompanyFixture()
	_, err := f.service.Create(context.Background(), coordinator, CompanyInput{Website: "javascript:alert(1)", ContactEmail: "nope", Status: "archived"})
	appErr := common.AsError(err)
	if appErr == nil || appErr.Code != common.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "website", "contact_email", "status"} {
		if appErr.Fields[field] == "" {
			t.Fatalf("expected %s error, got %v", field, appErr.Fields)
		}
	}
}
