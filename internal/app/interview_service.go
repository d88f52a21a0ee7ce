package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/interview"
	"placementcell/internal/domain/notification"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
)

const (
	minInterviewMinutes     = 15
	maxInterviewMinutes     = 480
	defaultInterviewMinutes = 60
)

type InterviewService struct {
	repo         interview.Repository
	applications application.Repository
	students     student.Repository
	notifier     Notifier
	analytics    analytics.Repository
	now          func() time.Time
}

func NewInterviewService(repo interview.Repository, applications application.Repository, students student.Repository, notifier Notifier, analytics analytics.Repository) *InterviewService {
	return &InterviewService{repo: repo, applications: applications, students: students, notifier: notifier, analytics: analytics, now: time.Now}
}

type InterviewInput struct {
	ApplicationID   string    `json:"application_id"`
	Round           int       `json:"round"`
	Title           string    `json:"title"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Mode            string    `json:"mode"`
	Location        string    `json:"location"`
	MeetingLink     string    `json:"meeting_link"`
}

func (s *InterviewService) Schedule(ctx context.Context, actor user.Actor, in InterviewInput) (*interview.Interview, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	appID, err := common.ParseUUID(strings.TrimSpace(in.ApplicationID))
	if err != nil {
		return nil, common.NewValidationError("invalid interview", map[string]string{"application_id": "valid application_id is required"})
	}
	app, err := s.applications.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageDepartment(app.DepartmentID) {
		return nil, common.NewError(common.CodeForbidden, "application belongs to another department", nil)
	}
	if app.Status != application.StatusShortlisted && app.Status != application.StatusInterview {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("cannot schedule an interview for a %s application", app.Status), nil)
	}
	record, fields := s.buildSlot(in)
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid interview", fields)
	}
	if err := s.checkOverlap(ctx, app.StudentID, record, ""); err != nil {
		return nil, err
	}
	record.ApplicationID = app.ID
	record.StudentID = app.StudentID
	record.JobID = app.JobID
	record.StudentName = app.StudentName
	record.JobTitle = app.JobTitle
	record.CompanyName = app.CompanyName
	record.DepartmentID = app.DepartmentID
	record.Status = interview.StatusScheduled
	record.Result = interview.ResultPending
	if record.Round <= 0 {
		record.Round = 1
	}
	// A failed insert leaves the application in interview, which Schedule accepts on retry.
	if app.Status == application.StatusShortlisted {
		if _, err := s.applications.ChangeStatus(ctx, application.StatusChange{
			ID:      app.ID,
			From:    application.StatusShortlisted,
			To:      application.StatusInterview,
			Remarks: app.Remarks,
		}); err != nil {
			return nil, err
		}
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, created, notification.TypeInterviewScheduled, "Interview scheduled",
		fmt.Sprintf("%s on %s.", interviewSubject(created), created.ScheduledAt.Format("02 Jan 2006 15:04 MST")))
	track(ctx, s.analytics, "interview.scheduled", actor.UserID, map[string]string{"interview_id": created.ID.String(), "application_id": app.ID.String()})
	return created, nil
}

// Reschedule moves a scheduled interview to a new slot.
func (s *InterviewService) Reschedule(ctx context.Context, actor user.Actor, id common.UUID, in InterviewInput) (*interview.Interview, error) {
	current, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.Status != interview.StatusScheduled {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("interview is %s", current.Status), nil)
	}
	record, fields := s.buildSlot(in)
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid interview", fields)
	}
	if err := s.checkOverlap(ctx, current.StudentID, record, current.ID); err != nil {
		return nil, err
	}
	current.Title = record.Title
	current.ScheduledAt = record.ScheduledAt
	current.DurationMinutes = record.DurationMinutes
	current.Mode = record.Mode
	current.Location = record.Location
	current.MeetingLink = record.MeetingLink
	if record.Round > 0 {
		current.Round = record.Round
	}
	updated, err := s.repo.Update(ctx, *current)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, notification.TypeInterviewUpdated, "Interview rescheduled",
		fmt.Sprintf("%s moved to %s.", interviewSubject(updated), updated.ScheduledAt.Format("02 Jan 2006 15:04 MST")))
	track(ctx, s.analytics, "interview.rescheduled", actor.UserID, map[string]string{"interview_id": id.String()})
	return updated, nil
}

type InterviewStatusInput struct {
	Status   string `json:"status"`
	Result   string `json:"result"`
	Feedback string `json:"feedback"`
}

func (s *InterviewService) UpdateStatus(ctx context.Context, actor user.Actor, id common.UUID, in InterviewStatusInput) (*interview.Interview, error) {
	current, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	next := interview.Status(strings.ToLower(strings.TrimSpace(in.Status)))
	result := interview.Result(strings.ToLower(strings.TrimSpace(in.Result)))
	if next != interview.StatusCompleted && next != interview.StatusCancelled {
		return nil, common.NewValidationError("invalid status", map[string]string{"status": "status must be completed or cancelled"})
	}
	if current.Status != interview.StatusScheduled {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("interview is already %s", current.Status), nil)
	}
	if next == interview.StatusCompleted {
		if result != interview.ResultPassed && result != interview.ResultFailed {
			return nil, common.NewValidationError("invalid result", map[string]string{"result": "result must be passed or failed"})
		}
		current.Result = result
	}
	current.Status = next
	current.Feedback = strings.TrimSpace(in.Feedback)
	updated, err := s.repo.Update(ctx, *current)
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("%s was cancelled.", interviewSubject(updated))
	if next == interview.StatusCompleted {
		message = fmt.Sprintf("%s is complete.", interviewSubject(updated))
	}
	s.notify(ctx, updated, notification.TypeInterviewUpdated, "Interview update", message)
	track(ctx, s.analytics, "interview.status_changed", actor.UserID, map[string]string{"interview_id": id.String(), "status": string(next), "result": string(updated.Result)})
	return updated, nil
}

func (s *InterviewService) List(ctx context.Context, actor user.Actor, filter interview.Filter, page common.Page) ([]interview.Interview, int, error) {
	switch {
	case actor.Role == user.RoleStudent:
		self, err := s.students.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if common.Is(err, common.CodeNotFound) {
				return []interview.Interview{}, 0, nil
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

func (s *InterviewService) Get(ctx context.Context, actor user.Actor, id common.UUID) (*interview.Interview, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == user.RoleStudent {
		self, err := s.students.GetByUserID(ctx, actor.UserID)
		if err != nil || self.ID != item.StudentID {
			return nil, common.NewError(common.CodeForbidden, "cannot access another student's interview", nil)
		}
		return item, nil
	}
	if !actor.CanManageDepartment(item.DepartmentID) {
		return nil, common.NewError(common.CodeForbidden, "interview belongs to another department", nil)
	}
	return item, nil
}

func (s *InterviewService) getManaged(ctx context.Context, actor user.Actor, id common.UUID) (*interview.Interview, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *InterviewService) buildSlot(in InterviewInput) (interview.Interview, map[string]string) {
	fields := map[string]string{}
	record := interview.Interview{
		Round:           in.Round,
		Title:           strings.TrimSpace(in.Title),
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Mode:            interview.Mode(strings.ToLower(strings.TrimSpace(in.Mode))),
		Location:        strings.TrimSpace(in.Location),
		MeetingLink:     strings.TrimSpace(in.MeetingLink),
	}
	if record.DurationMinutes == 0 {
		record.DurationMinutes = defaultInterviewMinutes
	}
	if record.DurationMinutes < minInterviewMinutes || record.DurationMinutes > maxInterviewMinutes {
		fields["duration_minutes"] = fmt.Sprintf("duration must be between %d and %d minutes", minInterviewMinutes, maxInterviewMinutes)
	}
	if in.ScheduledAt.IsZero() {
		fields["scheduled_at"] = "scheduled_at is required"
	} else if !in.ScheduledAt.After(s.now()) {
		fields["scheduled_at"] = "scheduled_at must be in the future"
	}
	if record.Round < 0 {
		fields["round"] = "round cannot be negative"
	}
	switch record.Mode {
	case interview.ModeOnline:
		parsed, err := url.Parse(record.MeetingLink)
		if record.MeetingLink == "" || err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			fields["meeting_link"] = "online interviews need an http(s) meeting_link"
		}
		record.Location = ""
	case interview.ModeOffline:
		if record.Location == "" {
			fields["location"] = "offline interviews need a location"
		}
		record.MeetingLink = ""
	default:
		fields["mode"] = "mode must be online or offline"
	}
	if record.Title == "" {
		record.Title = fmt.Sprintf("Round %d", max(record.Round, 1))
	}
	return record, fields
}

func (s *InterviewService) checkOverlap(ctx context.Context, studentID common.UUID, slot interview.Interview, exclude common.UUID) error {
	clashes, err := s.repo.ListScheduledForStudent(ctx, studentID, slot.ScheduledAt, slot.EndsAt())
	if err != nil {
		return err
	}
	for _, clash := range clashes {
		if clash.ID == exclude {
			continue
		}
		return common.NewError(common.CodeConflict, fmt.Sprintf("student already has an interview from %s to %s",
			clash.ScheduledAt.Format(time.RFC3339), clash.EndsAt().Format(time.RFC3339)), nil)
	}
	return nil
}

func (s *InterviewService) notify(ctx context.Context, item *interview.Interview, kind, title, message string) {
	if s.notifier == nil {
		return
	}
	userID, ok := studentUserID(ctx, s.students, item.StudentID)
	if !ok {
		return
	}
	s.notifier.Notify(ctx, []common.UUID{userID}, kind, title, message, "/interviews/"+item.ID.String())
}

func interviewSubject(item *interview.Interview) string {
	subject := item.Title
	if item.JobTitle != "" {
		subject = fmt.Sprintf("%s for %s", subject, item.JobTitle)
	}
	if item.CompanyName != "" {
		subject = fmt.Sprintf("%s at %s", subject, item.CompanyName)
	}
	return subject
}
