package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/notification"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
)

type ApplicationService struct {
	repo      application.Repository
	jobs      job.Repository
	students  student.Repository
	notifier  Notifier
	analytics analytics.Repository
	policy    EligibilityPolicy
	now       func() time.Time
}

func NewApplicationService(repo application.Repository, jobs job.Repository, students student.Repository, notifier Notifier, analytics analytics.Repository, policy EligibilityPolicy) *ApplicationService {
	return &ApplicationService{repo: repo, jobs: jobs, students: students, notifier: notifier, analytics: analytics, policy: policy, now: time.Now}
}

func (s *ApplicationService) Apply(ctx context.Context, actor user.Actor, jobID common.UUID) (*application.Application, error) {
	if actor.Role != user.RoleStudent {
		return nil, common.NewError(common.CodeForbidden, "only students can apply", nil)
	}
	self, err := s.students.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeValidation, "student profile is required", nil)
		}
		return nil, err
	}
	posting, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if posting.Status != job.StatusPublished {
		return nil, common.NewError(common.CodeValidation, "job is not open for applications", nil)
	}
	if s.now().After(posting.Deadline) {
		return nil, common.NewError(common.CodeValidation, "application deadline has passed", nil)
	}
	if result := CheckEligibility(*self, posting.Eligibility, s.policy); !result.Eligible {
		return nil, common.NewValidationError("not eligible for this job", map[string]string{"eligibility": strings.Join(result.Reasons, "; ")})
	}
	if _, err := s.repo.FindByJobAndStudent(ctx, jobID, self.ID); err == nil {
		return nil, common.NewError(common.CodeConflict, "already applied", nil)
	} else if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}
	created, err := s.repo.Create(ctx, application.Application{
		JobID:        jobID,
		StudentID:    self.ID,
		Status:       application.StatusSubmitted,
		JobTitle:     posting.Title,
		CompanyName:  posting.CompanyName,
		StudentName:  self.Name,
		RollNumber:   self.RollNumber,
		DepartmentID: self.DepartmentID,
	})
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "application.created", actor.UserID, map[string]string{"application_id": created.ID.String(), "job_id": jobID.String()})
	return created, nil
}

func (s *ApplicationService) List(ctx context.Context, actor user.Actor, filter application.Filter, page common.Page) ([]application.Application, int, error) {
	switch {
	case actor.Role == user.RoleStudent:
		self, err := s.students.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if common.Is(err, common.CodeNotFound) {
				return []application.Application{}, 0, nil
			}
			return nil, 0, err
		}
		filter.StudentID = self.ID
		filter.DepartmentID = ""
	case actor.Role == user.RoleDeptOfficer:
		filter.DepartmentID = actor.DepartmentID
	case !actor.IsStaff():
		return nil, 0, common.NewError(common.CodeForbidden, "insufficient role", nil)
	}
	return s.repo.List(ctx, filter, page)
}

func (s *ApplicationService) Get(ctx context.Context, actor user.Actor, id common.UUID) (*application.Application, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateStatus applies a staff decision. Posting the current status again only updates remarks.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor user.Actor, id common.UUID, status application.Status, remarks string) (*application.Application, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageDepartment(item.DepartmentID) {
		return nil, common.NewError(common.CodeForbidden, "application belongs to another department", nil)
	}
	return s.transition(ctx, actor, item, NormalizeApplicationStatus(status), strings.TrimSpace(remarks))
}

type BulkStatusResult struct {
	ID          common.UUID              `json:"id"`
	Success     bool                     `json:"success"`
	Error       string                   `json:"error,omitempty"`
	Application *application.Application `json:"application,omitempty"`
}

// BulkUpdateStatus applies one status to many applications, reporting per id.
func (s *ApplicationService) BulkUpdateStatus(ctx context.Context, actor user.Actor, ids []common.UUID, status application.Status, remarks string) ([]BulkStatusResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, common.NewValidationError("invalid request", map[string]string{"ids": "at least one id is required"})
	}
	if len(ids) > 200 {
		return nil, common.NewValidationError("invalid request", map[string]string{"ids": "at most 200 ids per request"})
	}
	next := NormalizeApplicationStatus(status)
	if !isKnownApplicationStatus(next) {
		return nil, invalidApplicationStatus()
	}
	results := make([]BulkStatusResult, 0, len(ids))
	seen := make(map[common.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		updated, err := s.UpdateStatus(ctx, actor, id, next, remarks)
		if err != nil {
			if common.AsError(err).Code == common.CodeInternal {
				return nil, err
			}
			results = append(results, BulkStatusResult{ID: id, Error: common.AsError(err).Message})
			continue
		}
		results = append(results, BulkStatusResult{ID: id, Success: true, Application: updated})
	}
	return results, nil
}

func (s *ApplicationService) Withdraw(ctx context.Context, actor user.Actor, id common.UUID) (*application.Application, error) {
	if actor.Role != user.RoleStudent {
		return nil, common.NewError(common.CodeForbidden, "only the applicant can withdraw", nil)
	}
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, item, application.StatusWithdrawn, item.Remarks)
}

func (s *ApplicationService) transition(ctx context.Context, actor user.Actor, item *application.Application, next application.Status, remarks string) (*application.Application, error) {
	if !isKnownApplicationStatus(next) {
		return nil, invalidApplicationStatus()
	}
	change := application.StatusChange{
		ID:         item.ID,
		From:       item.Status,
		To:         next,
		Remarks:    remarks,
		MarkPlaced: next == application.StatusSelected,
	}
	if next == item.Status {
		updated, err := s.repo.ChangeStatus(ctx, change)
		if err != nil {
			return nil, err
		}
		if remarks != item.Remarks {
			track(ctx, s.analytics, "application.remarks_updated", actor.UserID, map[string]string{"application_id": item.ID.String()})
		}
		return updated, nil
	}
	if isFinalApplicationStatus(item.Status) {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("application is already %s", item.Status), nil)
	}
	if !IsAllowedApplicationTransition(item.Status, next) {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("cannot move application from %s to %s", item.Status, next), nil)
	}
	updated, err := s.repo.ChangeStatus(ctx, change)
	if err != nil {
		return nil, err
	}
	s.notifyApplicant(ctx, updated)
	track(ctx, s.analytics, "application.status_changed", actor.UserID, map[string]string{
		"application_id": item.ID.String(),
		"from":           string(item.Status),
		"to":             string(next),
	})
	return updated, nil
}

func (s *ApplicationService) notifyApplicant(ctx context.Context, item *application.Application) {
	if s.notifier == nil {
		return
	}
	userID, ok := studentUserID(ctx, s.students, item.StudentID)
	if !ok {
		return
	}
	subject := item.JobTitle
	if subject == "" {
		subject = "your application"
	}
	if item.CompanyName != "" {
		subject = fmt.Sprintf("%s at %s", subject, item.CompanyName)
	}
	title := "Application update"
	message := fmt.Sprintf("Your application for %s is now %s.", subject, item.Status)
	s.notifier.Notify(ctx, []common.UUID{userID}, notification.TypeApplicationStatus, title, message, "/applications/"+item.ID.String())
}

func (s *ApplicationService) authorize(ctx context.Context, actor user.Actor, item *application.Application) error {
	if actor.Role == user.RoleStudent {
		self, err := s.students.GetByUserID(ctx, actor.UserID)
		if err != nil || self.ID != item.StudentID {
			return common.NewError(common.CodeForbidden, "cannot access another student's application", nil)
		}
		return nil
	}
	if !actor.CanManageDepartment(item.DepartmentID) {
		return common.NewError(common.CodeForbidden, "application belongs to another department", nil)
	}
	return nil
}

// IsAllowedApplicationTransition encodes the selection pipeline.
func IsAllowedApplicationTransition(from, to application.Status) bool {
	switch from {
	case application.StatusSubmitted:
		return to == application.StatusShortlisted || to == application.StatusRejected || to == application.StatusWithdrawn
	case application.StatusShortlisted:
		return to == application.StatusInterview || to == application.StatusSelected || to == application.StatusRejected || to == application.StatusWithdrawn
	case application.StatusInterview:
		return to == application.StatusSelected || to == application.StatusRejected
	default:
		return false
	}
}

func isFinalApplicationStatus(status application.Status) bool {
	return status == application.StatusSelected || status == application.StatusRejected || status == application.StatusWithdrawn
}

// NormalizeApplicationStatus accepts the legacy names the web client still sends.
func NormalizeApplicationStatus(status application.Status) application.Status {
	normalized := application.Status(strings.ToLower(strings.TrimSpace(string(status))))
	switch normalized {
	case "applied":
		return application.StatusSubmitted
	case "interviewing":
		return application.StatusInterview
	case "offered":
		return application.StatusSelected
	}
	return normalized
}

func isKnownApplicationStatus(status application.Status) bool {
	switch status {
	case application.StatusSubmitted, application.StatusShortlisted, application.StatusInterview, application.StatusSelected, application.StatusRejected, application.StatusWithdrawn:
		return true
	default:
		return false
	}
}

func invalidApplicationStatus() error {
	return common.NewValidationError("invalid status", map[string]string{"status": "status must be submitted, shortlisted, interview, selected, rejected, or withdrawn"})
}

func studentUserID(ctx context.Context, students student.Repository, studentID common.UUID) (common.UUID, bool) {
	record, err := students.GetByID(ctx, studentID)
	if err != nil || record.UserID == nil {
		return "", false
	}
	return *record.UserID, true
}
