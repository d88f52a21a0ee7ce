package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/company"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/notification"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
)

type JobService struct {
	repo         job.Repository
	companies    company.Repository
	students     student.Repository
	applications application.Repository
	notifier     Notifier
	analytics    analytics.Repository
	policy       EligibilityPolicy
	now          func() time.Time
}

func NewJobService(repo job.Repository, companies company.Repository, students student.Repository, applications application.Repository, notifier Notifier, analytics analytics.Repository, policy EligibilityPolicy) *JobService {
	return &JobService{
		repo:         repo,
		companies:    companies,
		students:     students,
		applications: applications,
		notifier:     notifier,
		analytics:    analytics,
		policy:       policy,
		now:          time.Now,
	}
}

type JobInput struct {
	CompanyID   string           `json:"company_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Location    string           `json:"location"`
	Type        string           `json:"job_type"`
	CTC         float64          `json:"ctc"`
	Stipend     float64          `json:"stipend"`
	Eligibility *job.Eligibility `json:"eligibility"`
	Deadline    time.Time        `json:"deadline"`
}

// Listing is a job as shown to a caller; students also see whether they may apply.
type Listing struct {
	job.Job
	Eligible *bool    `json:"eligible,omitempty"`
	Reasons  []string `json:"ineligibility_reasons,omitempty"`
}

func (s *JobService) List(ctx context.Context, actor user.Actor, filter job.Filter, page common.Page) ([]Listing, int, error) {
	var self *student.Student
	if !actor.IsStaff() {
		filter.Status = job.StatusPublished
		record, err := s.students.GetByUserID(ctx, actor.UserID)
		if err != nil && !common.Is(err, common.CodeNotFound) {
			return nil, 0, err
		}
		self = record
	}
	items, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Listing, 0, len(items))
	for _, item := range items {
		listing := Listing{Job: item}
		if self != nil {
			result := CheckEligibility(*self, item.Eligibility, s.policy)
			eligible := result.Eligible
			listing.Eligible = &eligible
			listing.Reasons = result.Reasons
		}
		out = append(out, listing)
	}
	return out, total, nil
}

func (s *JobService) Get(ctx context.Context, actor user.Actor, id common.UUID) (*job.Job, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && item.Status != job.StatusPublished && item.Status != job.StatusClosed {
		return nil, common.NewError(common.CodeNotFound, "job not found", nil)
	}
	return item, nil
}

func (s *JobService) Create(ctx context.Context, actor user.Actor, in JobInput) (*job.Job, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	record, fields, err := s.buildJob(ctx, in)
	if err != nil {
		return nil, err
	}
	if !in.Deadline.IsZero() && !in.Deadline.After(s.now()) {
		fields["deadline"] = "deadline must be in the future"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid job", fields)
	}
	record.Status = job.StatusDraft
	record.CreatedBy = actor.UserID
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "job.created", actor.UserID, map[string]string{"job_id": created.ID.String(), "company_id": created.CompanyID.String()})
	return created, nil
}

func (s *JobService) Update(ctx context.Context, actor user.Actor, id common.UUID, in JobInput) (*job.Job, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	record, fields, err := s.buildJob(ctx, in)
	if err != nil {
		return nil, err
	}
	if current.Status == job.StatusPublished && !in.Deadline.IsZero() && !in.Deadline.After(s.now()) {
		fields["deadline"] = "deadline of a published job must be in the future"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid job", fields)
	}
	record.ID = current.ID
	record.Status = current.Status
	record.CreatedBy = current.CreatedBy
	record.CreatedAt = current.CreatedAt
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "job.updated", actor.UserID, map[string]string{"job_id": id.String()})
	return updated, nil
}

func (s *JobService) Delete(ctx context.Context, actor user.Actor, id common.UUID) error {
	if err := requireRole(actor, user.RoleAdmin, user.RoleCoordinator); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	_, count, err := s.applications.List(ctx, application.Filter{JobID: id}, common.Page{Page: 1, Limit: 1})
	if err != nil {
		return err
	}
	if count > 0 {
		return common.NewError(common.CodeConflict, "job has applications; close it instead", nil)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	track(ctx, s.analytics, "job.deleted", actor.UserID, map[string]string{"job_id": id.String()})
	return nil
}

// UpdateStatus moves a job through draft -> published -> closed. A closed job may be
// re-published while its deadline has not passed.
func (s *JobService) UpdateStatus(ctx context.Context, actor user.Actor, id common.UUID, status job.Status) (*job.Job, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := job.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if next != job.StatusDraft && next != job.StatusPublished && next != job.StatusClosed {
		return nil, common.NewValidationError("invalid status", map[string]string{"status": "status must be draft, published, or closed"})
	}
	if next == current.Status {
		return current, nil
	}
	if !isAllowedJobTransition(current.Status, next) {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("cannot move job from %s to %s", current.Status, next), nil)
	}
	if next == job.StatusPublished {
		if !current.Deadline.After(s.now()) {
			return nil, common.NewError(common.CodeValidation, "deadline has passed", nil)
		}
		owner, err := s.companies.GetByID(ctx, current.CompanyID)
		if err != nil {
			return nil, err
		}
		if owner.Status != company.StatusActive {
			return nil, common.NewError(common.CodeValidation, "company is not active", nil)
		}
	}
	firstPublish := current.Status == job.StatusDraft && next == job.StatusPublished
	current.Status = next
	updated, err := s.repo.Update(ctx, *current)
	if err != nil {
		return nil, err
	}
	if firstPublish {
		s.notifyEligible(ctx, updated)
	}
	track(ctx, s.analytics, "job.status_changed", actor.UserID, map[string]string{"job_id": id.String(), "status": string(next)})
	return updated, nil
}

func isAllowedJobTransition(from, to job.Status) bool {
	switch from {
	case job.StatusDraft:
		return to == job.StatusPublished
	case job.StatusPublished:
		return to == job.StatusClosed
	case job.StatusClosed:
		return to == job.StatusPublished
	default:
		return false
	}
}

func (s *JobService) notifyEligible(ctx context.Context, item *job.Job) {
	if s.notifier == nil {
		return
	}
	candidates, err := s.eligibleStudents(ctx, item, student.Filter{})
	if err != nil {
		return
	}
	recipients := make([]common.UUID, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.UserID != nil {
			recipients = append(recipients, *candidate.UserID)
		}
	}
	title := "New job: " + item.Title
	if item.CompanyName != "" {
		title = fmt.Sprintf("New job at %s: %s", item.CompanyName, item.Title)
	}
	message := fmt.Sprintf("Applications close on %s.", item.Deadline.Format("02 Jan 2006"))
	s.notifier.Notify(ctx, recipients, notification.TypeJobPublished, title, message, "/jobs/"+item.ID.String())
}

// CheckEligibility evaluates the calling student against a job.
func (s *JobService) CheckEligibility(ctx context.Context, actor user.Actor, id common.UUID) (*EligibilityResult, error) {
	if actor.Role != user.RoleStudent {
		return nil, common.NewError(common.CodeForbidden, "only students can check eligibility", nil)
	}
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	self, err := s.students.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeValidation, "student profile is required", nil)
		}
		return nil, err
	}
	result := CheckEligibility(*self, item.Eligibility, s.policy)
	return &result, nil
}

func (s *JobService) EligibleStudents(ctx context.Context, actor user.Actor, id common.UUID) ([]student.Student, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	filter := student.Filter{}
	if actor.Role == user.RoleDeptOfficer {
		filter.DepartmentID = actor.DepartmentID
	}
	return s.eligibleStudents(ctx, item, filter)
}

func (s *JobService) eligibleStudents(ctx context.Context, item *job.Job, filter student.Filter) ([]student.Student, error) {
	all, err := s.students.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]student.Student, 0)
	for _, candidate := range all {
		if CheckEligibility(candidate, item.Eligibility, s.policy).Eligible {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func (s *JobService) Applications(ctx context.Context, actor user.Actor, id common.UUID, status application.Status, page common.Page) ([]application.Application, int, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.applications.List(ctx, application.Filter{JobID: id, Status: status}, page)
}

func (s *JobService) buildJob(ctx context.Context, in JobInput) (job.Job, map[string]string, error) {
	fields := map[string]string{}
	record := job.Job{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Type:        job.Type(strings.ToLower(strings.TrimSpace(in.Type))),
		CTC:         in.CTC,
		Stipend:     in.Stipend,
		Eligibility: normalizeEligibility(in.Eligibility),
		Deadline:    in.Deadline.UTC(),
	}
	if record.Title == "" {
		fields["title"] = "title is required"
	}
	switch record.Type {
	case job.TypeFullTime, job.TypeInternship, job.TypeInternshipPPO:
	case "":
		record.Type = job.TypeFullTime
	default:
		fields["job_type"] = "job_type must be full_time, internship, or internship_ppo"
	}
	if record.CTC < 0 {
		fields["ctc"] = "ctc cannot be negative"
	}
	if record.Stipend < 0 {
		fields["stipend"] = "stipend cannot be negative"
	}
	if in.Deadline.IsZero() {
		fields["deadline"] = "deadline is required"
	}
	if record.Eligibility.MinCGPA < 0 || record.Eligibility.MinCGPA > 10 {
		fields["eligibility.min_cgpa"] = "min_cgpa must be between 0 and 10"
	}
	companyID, err := common.ParseUUID(strings.TrimSpace(in.CompanyID))
	if err != nil {
		fields["company_id"] = "valid company_id is required"
		return record, fields, nil
	}
	owner, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if !common.Is(err, common.CodeNotFound) {
			return record, nil, err
		}
		fields["company_id"] = "company not found"
	} else {
		record.CompanyName = owner.Name
	}
	record.CompanyID = companyID
	return record, fields, nil
}

func normalizeEligibility(in *job.Eligibility) job.Eligibility {
	e := job.Eligibility{MaxBacklogs: -1}
	if in != nil {
		e = *in
	}
	out := job.Eligibility{MinCGPA: e.MinCGPA, MaxBacklogs: e.MaxBacklogs, BatchYears: []int{}, Degrees: []string{}, DepartmentIDs: []common.UUID{}}
	for _, degree := range e.Degrees {
		if degree = strings.TrimSpace(degree); degree != "" && !containsFold(out.Degrees, degree) {
			out.Degrees = append(out.Degrees, degree)
		}
	}
	seenYears := map[int]bool{}
	for _, year := range e.BatchYears {
		if !seenYears[year] {
			seenYears[year] = true
			out.BatchYears = append(out.BatchYears, year)
		}
	}
	seenDepts := map[common.UUID]bool{}
	for _, id := range e.DepartmentIDs {
		if id != "" && !seenDepts[id] {
			seenDepts[id] = true
			out.DepartmentIDs = append(out.DepartmentIDs, id)
		}
	}
	return out
}
