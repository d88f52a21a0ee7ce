package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"placementcell/internal/common"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/company"
	"placementcell/internal/domain/department"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
)

func TestSearchHidesStudentsFromStudents(t *testing.T) {
	asha := linkedStudent("CS1", 8)
	asha.Name = "Asha Rao"
	asha.ResumeText = "golang kubernetes"
	jobs := newFakeJobRepo(
		job.Job{ID: common.NewUUID(), Title: "Golang Developer", Status: job.StatusPublished},
		job.Job{ID: common.NewUUID(), Title: "Golang Intern", Status: job.StatusDraft},
	)
	service := NewSearchService(newFakeStudentRepo(asha), newFakeCompanyRepo(company.Company{ID: common.NewUUID(), Name: "Golang Labs"}), jobs)
	ctx := context.Background()

	staff, err := service.Search(ctx, coordinator, "golang", nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(staff.Students) != 1 || len(staff.Companies) != 1 || len(staff.Jobs) != 2 {
		t.Fatalf("unexpected staff results %+v", staff)
	}

	learner := user.Actor{UserID: common.NewUUID(), Role: user.RoleStudent}
	own, err := service.Search(ctx, learner, "golang", []string{"students", "jobs"}, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(own.Students) != 0 || len(own.Companies) != 0 || len(own.Jobs) != 1 {
		t.Fatalf("unexpected student results %+v", own)
	}
	if _, err := service.Search(ctx, learner, " g ", nil, 0); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected short query to fail, got %v", err)
	}
}

func TestExportStudentsMatchesImportLayout(t *testing.T) {
	dept := department.Department{ID: common.NewUUID(), Code: "CSE"}
	asha := linkedStudent("CS1", 8.25)
	asha.Name = "Rao, Asha"
	asha.DepartmentID = dept.ID
	asha.Skills = []string{"Go", "SQL"}
	service := NewExportService(newFakeStudentRepo(asha), newFakeApplicationRepo(), newFakeDepartmentRepo(dept), &fakeAnalyticsRepo{})

	var buf bytes.Buffer
	if err := service.Students(context.Background(), coordinator, student.Filter{}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d", len(rows))
	}
	for i, column := range ImportColumns {
		if rows[0][i] != column {
			t.Fatalf("column %d: expected %s, got %s", i, column, rows[0][i])
		}
	}
	if rows[1][1] != "Rao, Asha" || rows[1][4] != "CSE" || rows[1][7] != "8.25" || rows[1][9] != "Go;SQL" {
		t.Fatalf("unexpected row %v", rows[1])
	}
}

func TestExportPlacementsFiltersBatch(t *testing.T) {
	current := linkedStudent("CS1", 8)
	current.BatchYear = 2025
	older := linkedStudent("CS2", 8)
	older.BatchYear = 2024
	apps := newFakeApplicationRepo(
		application.Application{ID: common.NewUUID(), StudentID: current.ID, Status: application.StatusSelected, CompanyName: "Acme"},
		application.Application{ID: common.NewUUID(), StudentID: older.ID, Status: application.StatusSelected, CompanyName: "Globex"},
		application.Application{ID: common.NewUUID(), StudentID: current.ID, Status: application.StatusRejected, CompanyName: "Initech"},
	)
	service := NewExportService(newFakeStudentRepo(current, older), apps, newFakeDepartmentRepo(), &fakeAnalyticsRepo{})

	var buf bytes.Buffer
	if err := service.Placements(context.Background(), coordinator, 2025, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	if len(rows) != 2 || rows[1][4] != "Acme" {
		t.Fatalf("unexpected rows %v", rows)
	}
	learner := user.Actor{UserID: common.NewUUID(), Role: user.RoleStudent}
	if err := service.Placements(context.Background(), learner, 0, &buf); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestNotificationFanOutDeduplicates(t *testing.T) {
	repo := &fakeNotificationRepo{}
	service := NewNotificationService(repo, &fakeLogger{})
	ctx := context.Background()
	a, b := common.NewUUID(), common.NewUUID()
	service.Notify(ctx, []common.UUID{a, b, a, ""}, "job.published", "New job", "Apply now", "/jobs/1")

	if n, _ := service.UnreadCount(ctx, a); n != 1 {
		t.Fatalf("expected 1 unread for a, got %d", n)
	}
	items, _, _ := service.List(ctx, b, true, common.Page{Page: 1, Limit: 20})
	if len(items) != 1 {
		t.Fatalf("expected 1 item for b, got %d", len(items))
	}
	if err := service.MarkRead(ctx, a, items[0].ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected another user's notification to be not found, got %v", err)
	}
	if err := service.MarkRead(ctx, b, items[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n, _ := service.MarkAllRead(ctx, a); n != 1 {
		t.Fatalf("expected 1 marked, got %d", n)
	}
	if n, _ := service.UnreadCount(ctx, b); n != 0 {
		t.Fatalf("expected 0 unread, got %d", n)
	}
}
