package app

import (
	"context"
	"testing"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
)

type applicationFixture struct {
	service       *ApplicationService
	apps          *fakeApplicationRepo
	students      *fakeStudentRepo
	notifications *fakeNotificationRepo
	job           job.Job
	student       student.Student
	actor         user.Actor
}

func newApplicationFixture() *applicationFixture {
	self := linkedStudent("CS1", 8)
	self.DepartmentID = common.NewUUID()
	posting := job.Job{
		ID:          common.NewUUID(),
		Title:       "Backend Engineer",
		CompanyName: "Acme",
		Status:      job.StatusPublished,
		Deadline:    fixedNow.Add(24 * time.Hour),
		Eligibility: job.Eligibility{MinCGPA: 7, MaxBacklogs: -1},
	}
	f := &applicationFixture{
		apps:          newFakeApplicationRepo(),
		students:      newFakeStudentRepo(self),
		notifications: &fakeNotificationRepo{},
		job:           posting,
		student:       self,
		actor:         user.Actor{UserID: *self.UserID, Role: user.RoleStudent},
	}
	f.apps.students = f.students
	notifier := NewNotificationService(f.notifications, &fakeLogger{})
	f.service = NewApplicationService(f.apps, newFakeJobRepo(posting), f.students, notifier, &fakeAnalyticsRepo{}, EligibilityPolicy{})
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func TestApplyCreatesSubmittedApplication(t *testing.T) {
	f := newApplicationFixture()
	created, err := f.service.Apply(context.Background(), f.actor, f.job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if created.Status != application.StatusSubmitted || created.StudentID != f.student.ID {
		t.Fatalf("unexpected application %+v", created)
	}
	if _, err := f.service.Apply(context.Background(), f.actor, f.job.ID); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected already applied conflict, got %v", err)
	}
}

func TestApplyRejectsAfterDeadlineAndIneligible(t *testing.T) {
	f := newApplicationFixture()
	f.service.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	if _, err := f.service.Apply(context.Background(), f.actor, f.job.ID); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	f = newApplicationFixture()
	weak := f.student
	weak.CGPA = 6
	_, _ = f.students.Update(context.Background(), weak)
	_, err := f.service.Apply(context.Background(), f.actor, f.job.ID)
	appErr := common.AsError(err)
	if appErr.Code != common.CodeValidation || appErr.Fields["eligibility"] == "" {
		t.Fatalf("expected eligibility error, got %v", err)
	}
}

func TestApplicationTransitionTable(t *testing.T) {
	cases := []struct {
		from, to application.Status
		allowed  bool
	}{
		{application.StatusSubmitted, application.StatusShortlisted, true},
		{application.StatusSubmitted, application.StatusInterview, false},
		{application.StatusSubmitted, application.StatusSelected, false},
		{application.StatusShortlisted, application.StatusInterview, true},
		{application.StatusShortlisted, application.StatusSelected, true},
		{application.StatusInterview, application.StatusSelected, true},
		{application.StatusInterview, application.StatusWithdrawn, false},
		{application.StatusSelected, application.StatusRejected, false},
		{application.StatusRejected, application.StatusShortlisted, false},
	}
	for _, tc := range cases {
		if got := IsAllowedApplicationTransition(tc.from, tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestNormalizeApplicationStatusAliases(t *testing.T) {
	cases := map[application.Status]application.Status{
		"applied":       application.StatusSubmitted,
		" Interviewing": application.StatusInterview,
		"OFFERED":       application.StatusSelected,
		"shortlisted":   application.StatusShortlisted,
	}
	for in, want := range cases {
		if got := NormalizeApplicationStatus(in); got != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestSelectingMarksStudentPlacedAndNotifies(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	created, _ := f.service.Apply(ctx, f.actor, f.job.ID)

	if _, err := f.service.UpdateStatus(ctx, coordinator, created.ID, "offered", ""); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected submitted->selected to fail, got %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, coordinator, created.ID, application.StatusShortlisted, ""); err != nil {
		t.Fatalf("shortlist: %v", err)
	}
	selected, err := f.service.UpdateStatus(ctx, coordinator, created.ID, "offered", "12 LPA")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selected.Status != application.StatusSelected || selected.Remarks != "12 LPA" {
		t.Fatalf("unexpected application %+v", selected)
	}
	record, _ := f.students.GetByID(ctx, f.student.ID)
	if record.PlacementStatus != student.PlacementPlaced {
		t.Fatalf("expected student to be placed, got %s", record.PlacementStatus)
	}
	if got := len(f.notifications.forUser(f.actor.UserID)); got != 2 {
		t.Fatalf("expected 2 notifications, got %d", got)
	}
	remarked, err := f.service.UpdateStatus(ctx, coordinator, created.ID, application.StatusSelected, "joining in July")
	if err != nil || remarked.Remarks != "joining in July" {
		t.Fatalf("expected remarks-only update, got %+v %v", remarked, err)
	}
	if _, err := f.service.UpdateStatus(ctx, coordinator, created.ID, application.StatusRejected, ""); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected final status to be locked, got %v", err)
	}
}

func TestSelectionIsUndoneWhenPlacementFails(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	created, _ := f.service.Apply(ctx, f.actor, f.job.ID)
	if _, err := f.service.UpdateStatus(ctx, coordinator, created.ID, application.StatusShortlisted, ""); err != nil {
		t.Fatalf("shortlist: %v", err)
	}
	f.apps.placementErr = common.NewError(common.CodeInternal, "failed to update student", nil)

	if _, err := f.service.UpdateStatus(ctx, coordinator, created.ID, application.StatusSelected, ""); !common.Is(err, common.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	stored, _ := f.apps.GetByID(ctx, created.ID)
	if stored.Status != application.StatusShortlisted {
		t.Fatalf("expected application to stay shortlisted, got %s", stored.Status)
	}

	selected, err := f.service.UpdateStatus(ctx, coordinator, created.ID, application.StatusSelected, "")
	if err != nil || selected.Status != application.StatusSelected {
		t.Fatalf("expected retry to select, got %+v %v", selected, err)
	}
	record, _ := f.students.GetByID(ctx, f.student.ID)
	if record.PlacementStatus != student.PlacementPlaced {
		t.Fatalf("expected student to be placed, got %s", record.PlacementStatus)
	}
}

func TestConcurrentStatusChangeConflicts(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	created, _ := f.service.Apply(ctx, f.actor, f.job.ID)
	f.apps.beforeChange = func() {
		f.apps.beforeChange = nil
		f.apps.setStatus(created.ID, application.StatusWithdrawn)
	}

	if _, err := f.service.UpdateStatus(ctx, coordinator, created.ID, application.StatusShortlisted, ""); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored, _ := f.apps.GetByID(ctx, created.ID)
	if stored.Status != application.StatusWithdrawn {
		t.Fatalf("expected withdrawal to stand, got %s", stored.Status)
	}
}

func TestBulkUpdateReportsPerID(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	created, _ := f.service.Apply(ctx, f.actor, f.job.ID)
	missing := common.NewUUID()

	results, err := f.service.BulkUpdateStatus(ctx, coordinator, []common.UUID{created.ID, missing, created.ID}, application.StatusShortlisted, "")
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected duplicate ids to collapse, got %d", len(results))
	}
	if !results[0].Success || results[1].Success || results[1].Error == "" {
		t.Fatalf("unexpected results %+v", results)
	}
	if _, err := f.service.BulkUpdateStatus(ctx, coordinator, []common.UUID{created.ID}, "hired", ""); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestWithdrawOnlyByOwner(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	created, _ := f.service.Apply(ctx, f.actor, f.job.ID)

	stranger := user.Actor{UserID: common.NewUUID(), Role: user.RoleStudent}
	if _, err := f.service.Withdraw(ctx, stranger, created.ID); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	withdrawn, err := f.service.Withdraw(ctx, f.actor, created.ID)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.Status != application.StatusWithdrawn {
		t.Fatalf("expected withdrawn, got %s", withdrawn.Status)
	}
}

func TestDeptOfficerSeesOwnDepartmentApplications(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	created, _ := f.service.Apply(ctx, f.actor, f.job.ID)

	other := user.Actor{UserID: common.NewUUID(), Role: user.RoleDeptOfficer, DepartmentID: common.NewUUID()}
	items, total, err := f.service.List(ctx, other, application.Filter{}, common.Page{Page: 1, Limit: 20})
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("expected no applications for other department, got %d %v", total, err)
	}
	if _, err := f.service.UpdateStatus(ctx, other, created.ID, application.StatusShortlisted, ""); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	own := user.Actor{UserID: common.NewUUID(), Role: user.RoleDeptOfficer, DepartmentID: f.student.DepartmentID}
	if _, total, _ := f.service.List(ctx, own, application.Filter{}, common.Page{Page: 1, Limit: 20}); total != 1 {
		t.Fatalf("expected 1 application for own department, got %d", total)
	}
}
