package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/announcement"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/auth"
	"placementcell/internal/domain/company"
	"placementcell/internal/domain/department"
	"placementcell/internal/domain/interview"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/notification"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
	"placementcell/internal/storage"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func notFound(what string) error {
	return common.NewError(common.CodeNotFound, what+" not found", nil)
}

func paginate[T any](items []T, page common.Page) []T {
	if page.Limit == 0 {
		return items
	}
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[common.UUID]user.User
	// students receives account links; linkErr fails the next link before anything is written.
	students *fakeStudentRepo
	linkErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[common.UUID]user.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, common.NewError(common.CodeConflict, "email already in use", nil)
		}
	}
	if u.ID == "" {
		u.ID = common.NewUUID()
	}
	u.CreatedAt = fixedNow
	u.UpdatedAt = fixedNow
	r.users[u.ID] = u
	return &u, nil
}

func (r *fakeUserRepo) CreateForStudent(ctx context.Context, u user.User, studentID common.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linkErr != nil {
		err := r.linkErr
		r.linkErr = nil
		return nil, err
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, common.NewError(common.CodeConflict, "email already in use", nil)
		}
	}
	if u.ID == "" {
		u.ID = common.NewUUID()
	}
	if err := r.students.linkUser(studentID, u.ID); err != nil {
		return nil, err
	}
	u.CreatedAt = fixedNow
	u.UpdatedAt = fixedNow
	r.users[u.ID] = u
	return &u, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return nil, notFound("user")
	}
	r.users[u.ID] = u
	return &u, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id common.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, notFound("user")
}

func (r *fakeUserRepo) List(ctx context.Context, filter user.Filter, page common.Page) ([]user.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []user.User
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return paginate(out, page), len(out), nil
}

func (r *fakeUserRepo) CountByRole(ctx context.Context, role user.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) SetPassword(ctx context.Context, id common.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return notFound("user")
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) TouchLogin(ctx context.Context, id common.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return notFound("user")
	}
	u.LastLoginAt = &at
	r.users[id] = u
	return nil
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]auth.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: make(map[string]auth.RefreshToken)}
}

func (r *fakeRefreshRepo) Store(ctx context.Context, token auth.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeRefreshRepo) GetByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok {
		return nil, notFound("refresh token")
	}
	return &stored, nil
}

func (r *fakeRefreshRepo) Revoke(ctx context.Context, token string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok {
		return notFound("refresh token")
	}
	stored.RevokedAt = &revokedAt
	r.tokens[token] = stored
	return nil
}

func (r *fakeRefreshRepo) RevokeAll(ctx context.Context, userID common.UUID, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, stored := range r.tokens {
		if stored.UserID == userID && stored.RevokedAt == nil {
			stored.RevokedAt = &revokedAt
			r.tokens[key] = stored
		}
	}
	return nil
}

type fakeAnalyticsRepo struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (r *fakeAnalyticsRepo) Create(ctx context.Context, event analytics.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeAnalyticsRepo) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Name)
	}
	return out
}

type fakeDepartmentRepo struct {
	mu    sync.Mutex
	items map[common.UUID]department.Department
}

func newFakeDepartmentRepo(depts ...department.Department) *fakeDepartmentRepo {
	repo := &fakeDepartmentRepo{items: make(map[common.UUID]department.Department)}
	for _, d := range depts {
		repo.items[d.ID] = d
	}
	return repo
}

func (r *fakeDepartmentRepo) Create(ctx context.Context, d department.Department) (*department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Code == d.Code {
			return nil, common.NewError(common.CodeConflict, "department code already exists", nil)
		}
	}
	d.ID = common.NewUUID()
	d.CreatedAt = fixedNow
	r.items[d.ID] = d
	return &d, nil
}

func (r *fakeDepartmentRepo) GetByID(ctx context.Context, id common.UUID) (*department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, notFound("department")
	}
	return &d, nil
}

func (r *fakeDepartmentRepo) GetByCode(ctx context.Context, code string) (*department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.items {
		if d.Code == code {
			found := d
			return &found, nil
		}
	}
	return nil, notFound("department")
}

func (r *fakeDepartmentRepo) List(ctx context.Context) ([]department.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]department.Department, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type fakeStudentRepo struct {
	mu    sync.Mutex
	items map[common.UUID]student.Student
}

func newFakeStudentRepo(students ...student.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{items: make(map[common.UUID]student.Student)}
	for _, s := range students {
		repo.items[s.ID] = s
	}
	return repo
}

func (r *fakeStudentRepo) Create(ctx context.Context, s student.Student) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.RollNumber == s.RollNumber || existing.Email == s.Email {
			return nil, common.NewError(common.CodeConflict, "student already exists", nil)
		}
	}
	if s.ID == "" {
		s.ID = common.NewUUID()
	}
	s.CreatedAt = fixedNow
	s.UpdatedAt = fixedNow
	r.items[s.ID] = s
	return &s, nil
}

func (r *fakeStudentRepo) Update(ctx context.Context, s student.Student) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return nil, notFound("student")
	}
	r.items[s.ID] = s
	return &s, nil
}

func (r *fakeStudentRepo) Delete(ctx context.Context, id common.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return notFound("student")
	}
	delete(r.items, id)
	return nil
}

func (r *fakeStudentRepo) GetByID(ctx context.Context, id common.UUID) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, notFound("student")
	}
	return &s, nil
}

func (r *fakeStudentRepo) GetByUserID(ctx context.Context, userID common.UUID) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.UserID != nil && *s.UserID == userID {
			found := s
			return &found, nil
		}
	}
	return nil, notFound("student")
}

func (r *fakeStudentRepo) GetByRollNumber(ctx context.Context, rollNumber string) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.RollNumber == rollNumber {
			found := s
			return &found, nil
		}
	}
	return nil, notFound("student")
}

func (r *fakeStudentRepo) match(s student.Student, filter student.Filter) bool {
	if filter.DepartmentID != "" && s.DepartmentID != filter.DepartmentID {
		return false
	}
	if filter.BatchYear != 0 && s.BatchYear != filter.BatchYear {
		return false
	}
	if filter.PlacementStatus != "" && s.PlacementStatus != filter.PlacementStatus {
		return false
	}
	if q := strings.ToLower(filter.Query); q != "" {
		haystack := strings.ToLower(strings.Join([]string{s.Name, s.RollNumber, s.Email, strings.Join(s.Skills, " "), s.ResumeText}, " "))
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

func (r *fakeStudentRepo) List(ctx context.Context, filter student.Filter, page common.Page) ([]student.Student, int, error) {
	all, _ := r.ListAll(ctx, filter)
	return paginate(all, page), len(all), nil
}

func (r *fakeStudentRepo) ListAll(ctx context.Context, filter student.Filter) ([]student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []student.Student
	for _, s := range r.items {
		if r.match(s, filter) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNumber < out[j].RollNumber })
	return out, nil
}

func (r *fakeStudentRepo) linkUser(id, userID common.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return notFound("student")
	}
	if s.UserID != nil {
		return common.NewError(common.CodeConflict, "account already exists for this roll number", nil)
	}
	s.UserID = &userID
	r.items[id] = s
	return nil
}

func (r *fakeStudentRepo) setPlacement(id common.UUID, status student.PlacementStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return notFound("student")
	}
	s.PlacementStatus = status
	r.items[id] = s
	return nil
}

func (r *fakeStudentRepo) SetResume(ctx context.Context, id common.UUID, path, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return notFound("student")
	}
	s.ResumePath = path
	s.ResumeText = text
	s.HasResume = path != ""
	r.items[id] = s
	return nil
}

type fakeCompanyRepo struct {
	mu    sync.Mutex
	items map[common.UUID]company.Company
}

func newFakeCompanyRepo(companies ...company.Company) *fakeCompanyRepo {
	repo := &fakeCompanyRepo{items: make(map[common.UUID]company.Company)}
	for _, c := range companies {
		repo.items[c.ID] = c
	}
	return repo
}

func (r *fakeCompanyRepo) Create(ctx context.Context, c company.Company) (*company.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, c.Name) {
			return nil, common.NewError(common.CodeConflict, "company already exists", nil)
		}
	}
	c.ID = common.NewUUID()
	c.CreatedAt = fixedNow
	c.UpdatedAt = fixedNow
	r.items[c.ID] = c
	return &c, nil
}

func (r *fakeCompanyRepo) Update(ctx context.Context, c company.Company) (*company.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return nil, notFound("company")
	}
	r.items[c.ID] = c
	return &c, nil
}

func (r *fakeCompanyRepo) Delete(ctx context.Context, id common.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return notFound("company")
	}
	delete(r.items, id)
	return nil
}

func (r *fakeCompanyRepo) GetByID(ctx context.Context, id common.UUID) (*company.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, notFound("company")
	}
	return &c, nil
}

func (r *fakeCompanyRepo) List(ctx context.Context, filter company.Filter, page common.Page) ([]company.Company, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []company.Company
	for _, c := range r.items {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Industry), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page), len(out), nil
}

func (r *fakeCompanyRepo) SetLogo(ctx context.Context, id common.UUID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return notFound("company")
	}
	c.LogoPath = path
	c.HasLogo = path != ""
	r.items[id] = c
	return nil
}

type fakeJobRepo struct {
	mu    sync.Mutex
	items map[common.UUID]job.Job
}

func newFakeJobRepo(jobs ...job.Job) *fakeJobRepo {
	repo := &fakeJobRepo{items: make(map[common.UUID]job.Job)}
	for _, j := range jobs {
		repo.items[j.ID] = j
	}
	return repo
}

func (r *fakeJobRepo) Create(ctx context.Context, j job.Job) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j.ID = common.NewUUID()
	j.CreatedAt = fixedNow
	j.UpdatedAt = fixedNow
	r.items[j.ID] = j
	return &j, nil
}

func (r *fakeJobRepo) Update(ctx context.Context, j job.Job) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[j.ID]; !ok {
		return nil, notFound("job")
	}
	r.items[j.ID] = j
	return &j, nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, id common.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return notFound("job")
	}
	delete(r.items, id)
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id common.UUID) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.items[id]
	if !ok {
		return nil, notFound("job")
	}
	return &j, nil
}

func (r *fakeJobRepo) List(ctx context.Context, filter job.Filter, page common.Page) ([]job.Job, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []job.Job
	for _, j := range r.items {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.CompanyID != "" && j.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(j.Title+" "+j.CompanyName), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return paginate(out, page), len(out), nil
}

func (r *fakeJobRepo) CountOpenByCompany(ctx context.Context, companyID common.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, j := range r.items {
		if j.CompanyID == companyID && j.Status == job.StatusPublished {
			count++
		}
	}
	return count, nil
}

type fakeApplicationRepo struct {
	mu    sync.Mutex
	items map[common.UUID]application.Application
	// students receives placement updates; placementErr fails the next one and rolls the change back.
	students     *fakeStudentRepo
	placementErr error
	// beforeChange runs ahead of each status change to interleave a competing write.
	beforeChange func()
}

func newFakeApplicationRepo(apps ...application.Application) *fakeApplicationRepo {
	repo := &fakeApplicationRepo{items: make(map[common.UUID]application.Application)}
	for _, a := range apps {
		repo.items[a.ID] = a
	}
	return repo
}

func (r *fakeApplicationRepo) Create(ctx context.Context, a application.Application) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.JobID == a.JobID && existing.StudentID == a.StudentID {
			return nil, common.NewError(common.CodeConflict, "already applied", nil)
		}
	}
	a.ID = common.NewUUID()
	a.CreatedAt = fixedNow
	a.UpdatedAt = fixedNow
	r.items[a.ID] = a
	return &a, nil
}

func (r *fakeApplicationRepo) setStatus(id common.UUID, status application.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.items[id]
	a.Status = status
	r.items[id] = a
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, notFound("application")
	}
	return &a, nil
}

func (r *fakeApplicationRepo) FindByJobAndStudent(ctx context.Context, jobID, studentID common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.JobID == jobID && a.StudentID == studentID {
			found := a
			return &found, nil
		}
	}
	return nil, notFound("application")
}

func (r *fakeApplicationRepo) List(ctx context.Context, filter application.Filter, page common.Page) ([]application.Application, int, error) {
	all, _ := r.ListAll(ctx, filter)
	return paginate(all, page), len(all), nil
}

func (r *fakeApplicationRepo) ListAll(ctx context.Context, filter application.Filter) ([]application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []application.Application
	for _, a := range r.items {
		if filter.JobID != "" && a.JobID != filter.JobID {
			continue
		}
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.DepartmentID != "" && a.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeApplicationRepo) ChangeStatus(ctx context.Context, change application.StatusChange) (*application.Application, error) {
	if r.beforeChange != nil {
		r.beforeChange()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[change.ID]
	if !ok {
		return nil, notFound("application")
	}
	if a.Status != change.From {
		return nil, common.NewError(common.CodeConflict, "application status changed, reload and retry", nil)
	}
	if change.MarkPlaced && r.students != nil {
		if r.placementErr != nil {
			err := r.placementErr
			r.placementErr = nil
			return nil, err
		}
		if err := r.students.setPlacement(a.StudentID, student.PlacementPlaced); err != nil {
			return nil, err
		}
	}
	a.Status = change.To
	a.Remarks = change.Remarks
	r.items[change.ID] = a
	return &a, nil
}

type fakeInterviewRepo struct {
	mu        sync.Mutex
	items     map[common.UUID]interview.Interview
	createErr error
}

func newFakeInterviewRepo() *fakeInterviewRepo {
	return &fakeInterviewRepo{items: make(map[common.UUID]interview.Interview)}
}

func (r *fakeInterviewRepo) Create(ctx context.Context, i interview.Interview) (*interview.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return nil, err
	}
	i.ID = common.NewUUID()
	i.CreatedAt = fixedNow
	i.UpdatedAt = fixedNow
	r.items[i.ID] = i
	return &i, nil
}

func (r *fakeInterviewRepo) Update(ctx context.Context, i interview.Interview) (*interview.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[i.ID]; !ok {
		return nil, notFound("interview")
	}
	r.items[i.ID] = i
	return &i, nil
}

func (r *fakeInterviewRepo) GetByID(ctx context.Context, id common.UUID) (*interview.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id]
	if !ok {
		return nil, notFound("interview")
	}
	return &i, nil
}

func (r *fakeInterviewRepo) List(ctx context.Context, filter interview.Filter, page common.Page) ([]interview.Interview, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interview.Interview
	for _, i := range r.items {
		if filter.StudentID != "" && i.StudentID != filter.StudentID {
			continue
		}
		if filter.JobID != "" && i.JobID != filter.JobID {
			continue
		}
		if filter.DepartmentID != "" && i.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Status != "" && i.Status != filter.Status {
			continue
		}
		if filter.From != nil && i.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !i.ScheduledAt.Before(*filter.To) {
			continue
		}
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ScheduledAt.Before(out[b].ScheduledAt) })
	return paginate(out, page), len(out), nil
}

func (r *fakeInterviewRepo) ListScheduledForStudent(ctx context.Context, studentID common.UUID, from, to time.Time) ([]interview.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interview.Interview
	for _, i := range r.items {
		if i.StudentID != studentID || i.Status != interview.StatusScheduled {
			continue
		}
		if i.ScheduledAt.Before(to) && i.EndsAt().After(from) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *fakeInterviewRepo) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, i := range r.items {
		if i.Status == interview.StatusScheduled && i.ScheduledAt.After(now) {
			count++
		}
	}
	return count, nil
}

type fakeAnnouncementRepo struct {
	mu    sync.Mutex
	items map[common.UUID]announcement.Announcement
}

func newFakeAnnouncementRepo() *fakeAnnouncementRepo {
	return &fakeAnnouncementRepo{items: make(map[common.UUID]announcement.Announcement)}
}

func (r *fakeAnnouncementRepo) Create(ctx context.Context, a announcement.Announcement) (*announcement.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = common.NewUUID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = fixedNow
	}
	a.UpdatedAt = a.CreatedAt
	r.items[a.ID] = a
	return &a, nil
}

func (r *fakeAnnouncementRepo) Update(ctx context.Context, a announcement.Announcement) (*announcement.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return nil, notFound("announcement")
	}
	r.items[a.ID] = a
	return &a, nil
}

func (r *fakeAnnouncementRepo) Delete(ctx context.Context, id common.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return notFound("announcement")
	}
	delete(r.items, id)
	return nil
}

func (r *fakeAnnouncementRepo) GetByID(ctx context.Context, id common.UUID) (*announcement.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, notFound("announcement")
	}
	return &a, nil
}

func (r *fakeAnnouncementRepo) ListVisible(ctx context.Context, viewer announcement.Viewer, page common.Page) ([]announcement.Announcement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []announcement.Announcement
	for _, a := range r.items {
		if a.ExpiresAt != nil && !a.ExpiresAt.After(viewer.Now) {
			continue
		}
		if !viewer.Staff {
			if a.Audience == announcement.AudienceStaff {
				continue
			}
			if a.DepartmentID != nil && *a.DepartmentID != viewer.DepartmentID {
				continue
			}
			if a.BatchYear != nil && *a.BatchYear != viewer.BatchYear {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, page), len(out), nil
}

func (r *fakeAnnouncementRepo) SetAttachment(ctx context.Context, id common.UUID, path, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return notFound("announcement")
	}
	a.AttachmentPath = path
	a.AttachmentName = name
	r.items[id] = a
	return nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []notification.Notification
}

func (r *fakeNotificationRepo) CreateMany(ctx context.Context, items []notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item.ID == "" {
			item.ID = common.NewUUID()
		}
		r.items = append(r.items, item)
	}
	return nil
}

func (r *fakeNotificationRepo) List(ctx context.Context, userID common.UUID, unreadOnly bool, page common.Page) ([]notification.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, item := range r.items {
		if item.UserID != userID || (unreadOnly && item.ReadAt != nil) {
			continue
		}
		out = append(out, item)
	}
	return paginate(out, page), len(out), nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID common.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, item := range r.items {
		if item.UserID == userID && item.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID common.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for idx, item := range r.items {
		if item.ID == id && item.UserID == userID {
			if item.ReadAt == nil {
				r.items[idx].ReadAt = &at
			}
			return nil
		}
	}
	return notFound("notification")
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID common.UUID, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for idx, item := range r.items {
		if item.UserID == userID && item.ReadAt == nil {
			r.items[idx].ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) forUser(userID common.UUID) []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out
}

type fakeLogger struct {
	mu    sync.Mutex
	infos []string
	errs  []string
}

func (l *fakeLogger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *fakeLogger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

type memFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
	seq   int
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (m *memFileStore) Save(ctx context.Context, dir, ext string, r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxBytes {
		return "", storage.ErrTooLarge
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	path := fmt.Sprintf("%s/%d%s", dir, m.seq, ext)
	m.files[path] = data
	return path, nil
}

func (m *memFileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "file not found", nil)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memFileStore) Remove(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *memFileStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}
