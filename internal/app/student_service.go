package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"placementcell/internal/common"
	"placementcell/internal/document"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/department"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
	"placementcell/internal/storage"
)

var (
	rollNumberPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/-]{2,19}$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9][0-9 -]{6,17}[0-9]$`)
)

// ImportColumns is the header a bulk student CSV must carry.
var ImportColumns = []string{"roll_number", "name", "email", "phone", "department_code", "degree", "batch_year", "cgpa", "backlogs", "skills"}

type StudentService struct {
	repo         student.Repository
	departments  department.Repository
	applications application.Repository
	files        storage.FileStore
	analytics    analytics.Repository
	logger       Logger
	maxUpload    int64
}

func NewStudentService(repo student.Repository, departments department.Repository, applications application.Repository, files storage.FileStore, analytics analytics.Repository, logger Logger, maxUpload int64) *StudentService {
	return &StudentService{
		repo:         repo,
		departments:  departments,
		applications: applications,
		files:        files,
		analytics:    analytics,
		logger:       logger,
		maxUpload:    maxUpload,
	}
}

type StudentInput struct {
	RollNumber      string   `json:"roll_number"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	DepartmentID    string   `json:"department_id"`
	Degree          string   `json:"degree"`
	BatchYear       int      `json:"batch_year"`
	CGPA            float64  `json:"cgpa"`
	Backlogs        int      `json:"backlogs"`
	Skills          []string `json:"skills"`
	PlacementStatus string   `json:"placement_status"`
}

func (s *StudentService) List(ctx context.Context, actor user.Actor, filter student.Filter, page common.Page) ([]student.Student, int, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	if actor.Role == user.RoleDeptOfficer {
		filter.DepartmentID = actor.DepartmentID
	}
	return s.repo.List(ctx, filter, page)
}

// Get returns a student to staff of the owning department or to the student themselves.
func (s *StudentService) Get(ctx context.Context, actor user.Actor, id common.UUID) (*student.Student, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(actor, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *StudentService) Create(ctx context.Context, actor user.Actor, in StudentInput) (*student.Student, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	record, fields, err := s.buildStudent(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid student", fields)
	}
	if !actor.CanManageDepartment(record.DepartmentID) {
		return nil, common.NewError(common.CodeForbidden, "student belongs to another department", nil)
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "student.created", actor.UserID, map[string]string{"student_id": created.ID.String()})
	return created, nil
}

func (s *StudentService) Update(ctx context.Context, actor user.Actor, id common.UUID, in StudentInput) (*student.Student, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageDepartment(current.DepartmentID) {
		return nil, common.NewError(common.CodeForbidden, "student belongs to another department", nil)
	}
	record, fields, err := s.buildStudent(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid student", fields)
	}
	if !actor.CanManageDepartment(record.DepartmentID) {
		return nil, common.NewError(common.CodeForbidden, "cannot move student to another department", nil)
	}
	record.ID = current.ID
	record.UserID = current.UserID
	record.ResumePath = current.ResumePath
	record.ResumeText = current.ResumeText
	record.HasResume = current.HasResume
	record.CreatedAt = current.CreatedAt
	if strings.TrimSpace(in.PlacementStatus) == "" {
		record.PlacementStatus = current.PlacementStatus
	}
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "student.updated", actor.UserID, map[string]string{"student_id": id.String()})
	return updated, nil
}

func (s *StudentService) Delete(ctx context.Context, actor user.Actor, id common.UUID) error {
	if err := requireRole(actor, user.RoleAdmin, user.RoleCoordinator); err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if current.ResumePath != "" {
		if err := s.files.Remove(ctx, current.ResumePath); err != nil {
			s.logError(fmt.Sprintf("remove resume student_id=%s err=%v", id, err))
		}
	}
	track(ctx, s.analytics, "student.deleted", actor.UserID, map[string]string{"student_id": id.String()})
	return nil
}

func (s *StudentService) GetSelf(ctx context.Context, actor user.Actor) (*student.Student, error) {
	if actor.Role != user.RoleStudent {
		return nil, common.NewError(common.CodeForbidden, "only students have a placement profile", nil)
	}
	record, err := s.repo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeNotFound, "student profile not found", nil)
		}
		return nil, err
	}
	return record, nil
}

type SelfUpdateInput struct {
	Phone  *string  `json:"phone"`
	Skills []string `json:"skills"`
}

// UpdateSelf lets a student edit contact details and skills; academic data stays with staff.
func (s *StudentService) UpdateSelf(ctx context.Context, actor user.Actor, in SelfUpdateInput) (*student.Student, error) {
	record, err := s.GetSelf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone != "" && !phonePattern.MatchString(phone) {
			return nil, common.NewValidationError("invalid student", map[string]string{"phone": "invalid phone number"})
		}
		record.Phone = phone
	}
	if in.Skills != nil {
		record.Skills = normalizeSkills(in.Skills)
	}
	updated, err := s.repo.Update(ctx, *record)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "student.self_updated", actor.UserID, map[string]string{"student_id": record.ID.String()})
	return updated, nil
}

// UploadResume stores a PDF resume for the calling student and indexes its text for search.
func (s *StudentService) UploadResume(ctx context.Context, actor user.Actor, r io.Reader) (*student.Student, error) {
	record, err := s.GetSelf(ctx, actor)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return nil, common.NewError(common.CodeValidation, "failed to read upload", err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, common.NewError(common.CodeValidation, fmt.Sprintf("resume exceeds %d bytes", s.maxUpload), nil)
	}
	if !document.IsPDF(data) {
		return nil, common.NewValidationError("invalid resume", map[string]string{"resume": "resume must be a PDF"})
	}
	text, err := document.PDFText(data)
	if err != nil {
		// Scanned resumes have no text layer; keep the file, skip the index.
		s.logInfo(fmt.Sprintf("resume text extraction failed student_id=%s err=%v", record.ID, err))
		text = ""
	}
	path, err := s.files.Save(ctx, "resumes", ".pdf", bytes.NewReader(data), s.maxUpload)
	if err != nil {
		return nil, uploadError(err)
	}
	if err := s.repo.SetResume(ctx, record.ID, path, text); err != nil {
		_ = s.files.Remove(ctx, path)
		return nil, err
	}
	if record.ResumePath != "" {
		if err := s.files.Remove(ctx, record.ResumePath); err != nil {
			s.logError(fmt.Sprintf("remove old resume student_id=%s err=%v", record.ID, err))
		}
	}
	record.ResumePath = path
	record.ResumeText = text
	record.HasResume = true
	track(ctx, s.analytics, "student.resume_uploaded", actor.UserID, map[string]string{"student_id": record.ID.String()})
	return record, nil
}

// OpenResume returns the stored resume; the caller must close it.
func (s *StudentService) OpenResume(ctx context.Context, actor user.Actor, id common.UUID) (io.ReadCloser, *student.Student, error) {
	record, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if record.ResumePath == "" {
		return nil, nil, common.NewError(common.CodeNotFound, "resume not uploaded", nil)
	}
	rc, err := s.files.Open(ctx, record.ResumePath)
	if err != nil {
		return nil, nil, err
	}
	return rc, record, nil
}

func (s *StudentService) Applications(ctx context.Context, actor user.Actor, id common.UUID) ([]application.Application, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.applications.ListAll(ctx, application.Filter{StudentID: id})
}

type ImportFailure struct {
	Row        int               `json:"row"`
	RollNumber string            `json:"roll_number,omitempty"`
	Errors     map[string]string `json:"errors"`
}

type ImportResult struct {
	Created int             `json:"created"`
	Updated int             `json:"updated"`
	Failed  []ImportFailure `json:"failed"`
}

// Import upserts students from CSV by roll number. Rows are validated independently;
// a bad row is reported and skipped, never aborting the rest.
func (s *StudentService) Import(ctx context.Context, actor user.Actor, r io.Reader) (*ImportResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.NewError(common.CodeValidation, "csv file is empty", nil)
		}
		return nil, common.NewError(common.CodeValidation, "invalid csv", err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}
	deptCache := make(map[string]*department.Department)
	result := &ImportResult{Failed: []ImportFailure{}}
	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			result.Failed = append(result.Failed, ImportFailure{Row: row, Errors: map[string]string{"row": "malformed csv row"}})
			continue
		}
		if isBlankRow(record) {
			continue
		}
		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		in, fields := s.importRow(ctx, field, deptCache)
		roll := normalizeRollNumber(field("roll_number"))
		if len(fields) > 0 {
			result.Failed = append(result.Failed, ImportFailure{Row: row, RollNumber: roll, Errors: fields})
			continue
		}
		if !actor.CanManageDepartment(common.UUID(in.DepartmentID)) {
			result.Failed = append(result.Failed, ImportFailure{Row: row, RollNumber: roll, Errors: map[string]string{"department_code": "outside your department"}})
			continue
		}
		created, err := s.upsert(ctx, actor, in)
		if err != nil {
			appErr := common.AsError(err)
			if appErr.Code == common.CodeInternal {
				return nil, err
			}
			msg := appErr.Message
			result.Failed = append(result.Failed, ImportFailure{Row: row, RollNumber: roll, Errors: mergeFields(appErr.Fields, msg)})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	s.logInfo(fmt.Sprintf("student import created=%d updated=%d failed=%d", result.Created, result.Updated, len(result.Failed)))
	track(ctx, s.analytics, "student.imported", actor.UserID, map[string]string{
		"created": strconv.Itoa(result.Created),
		"updated": strconv.Itoa(result.Updated),
		"failed":  strconv.Itoa(len(result.Failed)),
	})
	return result, nil
}

func (s *StudentService) upsert(ctx context.Context, actor user.Actor, in StudentInput) (bool, error) {
	existing, err := s.repo.GetByRollNumber(ctx, normalizeRollNumber(in.RollNumber))
	if err != nil && !common.Is(err, common.CodeNotFound) {
		return false, err
	}
	if existing == nil {
		_, err := s.Create(ctx, actor, in)
		return err == nil, err
	}
	_, err = s.Update(ctx, actor, existing.ID, in)
	return false, err
}

func (s *StudentService) importRow(ctx context.Context, field func(string) string, deptCache map[string]*department.Department) (StudentInput, map[string]string) {
	fields := map[string]string{}
	in := StudentInput{
		RollNumber: field("roll_number"),
		Name:       field("name"),
		Email:      field("email"),
		Phone:      field("phone"),
		Degree:     field("degree"),
		Skills:     splitSkills(field("skills")),
	}
	if raw := field("batch_year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			fields["batch_year"] = "batch_year must be a number"
		}
		in.BatchYear = year
	}
	if raw := field("cgpa"); raw != "" {
		cgpa, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fields["cgpa"] = "cgpa must be a number"
		}
		in.CGPA = cgpa
	}
	if raw := field("backlogs"); raw != "" {
		backlogs, err := strconv.Atoi(raw)
		if err != nil {
			fields["backlogs"] = "backlogs must be a number"
		}
		in.Backlogs = backlogs
	}
	code := strings.ToUpper(field("department_code"))
	if code == "" {
		fields["department_code"] = "department_code is required"
		return in, fields
	}
	dept, ok := deptCache[code]
	if !ok {
		found, err := s.departments.GetByCode(ctx, code)
		if err != nil {
			found = nil
		}
		deptCache[code] = found
		dept = found
	}
	if dept == nil {
		fields["department_code"] = "unknown department " + code
		return in, fields
	}
	in.DepartmentID = dept.ID.String()
	return in, fields
}

func (s *StudentService) buildStudent(ctx context.Context, in StudentInput) (student.Student, map[string]string, error) {
	fields := map[string]string{}
	record := student.Student{
		RollNumber:      normalizeRollNumber(in.RollNumber),
		Name:            strings.TrimSpace(in.Name),
		Email:           normalizeEmail(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		Degree:          strings.TrimSpace(in.Degree),
		BatchYear:       in.BatchYear,
		CGPA:            in.CGPA,
		Backlogs:        in.Backlogs,
		Skills:          normalizeSkills(in.Skills),
		PlacementStatus: student.PlacementUnplaced,
	}
	if !rollNumberPattern.MatchString(record.RollNumber) {
		fields["roll_number"] = "roll_number must be 3-20 letters, digits, '/' or '-'"
	}
	if record.Name == "" {
		fields["name"] = "name is required"
	}
	if _, err := mail.ParseAddress(record.Email); err != nil || record.Email == "" {
		fields["email"] = "valid email is required"
	}
	if record.Phone != "" && !phonePattern.MatchString(record.Phone) {
		fields["phone"] = "invalid phone number"
	}
	if record.Degree == "" {
		fields["degree"] = "degree is required"
	}
	if record.BatchYear < 2000 || record.BatchYear > 2100 {
		fields["batch_year"] = "batch_year must be between 2000 and 2100"
	}
	if record.CGPA < 0 || record.CGPA > 10 {
		fields["cgpa"] = "cgpa must be between 0 and 10"
	}
	if record.Backlogs < 0 {
		fields["backlogs"] = "backlogs cannot be negative"
	}
	if raw := strings.TrimSpace(in.PlacementStatus); raw != "" {
		status := student.PlacementStatus(strings.ToLower(raw))
		if !status.Valid() {
			fields["placement_status"] = "placement_status must be unplaced, placed, or opted_out"
		}
		record.PlacementStatus = status
	}
	deptID, err := common.ParseUUID(strings.TrimSpace(in.DepartmentID))
	if err != nil {
		fields["department_id"] = "valid department_id is required"
		return record, fields, nil
	}
	if _, err := s.departments.GetByID(ctx, deptID); err != nil {
		if !common.Is(err, common.CodeNotFound) {
			return record, nil, err
		}
		fields["department_id"] = "department not found"
	}
	record.DepartmentID = deptID
	return record, fields, nil
}

func (s *StudentService) authorizeView(actor user.Actor, record *student.Student) error {
	if actor.Role == user.RoleStudent {
		if record.UserID != nil && *record.UserID == actor.UserID {
			return nil
		}
		return common.NewError(common.CodeForbidden, "cannot access another student's record", nil)
	}
	if !actor.CanManageDepartment(record.DepartmentID) {
		return common.NewError(common.CodeForbidden, "student belongs to another department", nil)
	}
	return nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[name] = i
	}
	var missing []string
	for _, name := range ImportColumns {
		if name == "phone" || name == "skills" {
			continue
		}
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, common.NewValidationError("csv header is missing columns", map[string]string{"header": strings.Join(missing, ", ")})
	}
	for _, name := range []string{"phone", "skills"} {
		if _, ok := index[name]; !ok {
			index[name] = len(header) + 1
		}
	}
	return index, nil
}

func isBlankRow(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func splitSkills(raw string) []string {
	return normalizeSkills(strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' || r == ',' }))
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	return out
}

func mergeFields(fields map[string]string, msg string) map[string]string {
	if len(fields) > 0 {
		return fields
	}
	return map[string]string{"row": msg}
}

func uploadError(err error) error {
	if errors.Is(err, storage.ErrTooLarge) {
		return common.NewError(common.CodeValidation, "file exceeds size limit", err)
	}
	return common.NewError(common.CodeInternal, "failed to store file", err)
}

func (s *StudentService) logInfo(msg string) {
	if s.logger != nil {
		s.logger.Info(msg)
	}
}

func (s *StudentService) logError(msg string) {
	if s.logger != nil {
		s.logger.Error(msg)
	}
}
