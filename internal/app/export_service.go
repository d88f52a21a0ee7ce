package app

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/application"
	"placementcell/internal/domain/department"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
)

type ExportService struct {
	students     student.Repository
	applications application.Repository
	departments  department.Repository
	analytics    analytics.Repository
}

func NewExportService(students student.Repository, applications application.Repository, departments department.Repository, analytics analytics.Repository) *ExportService {
	return &ExportService{students: students, applications: applications, departments: departments, analytics: analytics}
}

// Students writes the student roll in the same column layout the bulk import accepts.
func (s *ExportService) Students(ctx context.Context, actor user.Actor, filter student.Filter, w io.Writer) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if actor.Role == user.RoleDeptOfficer {
		filter.DepartmentID = actor.DepartmentID
	}
	items, err := s.students.ListAll(ctx, filter)
	if err != nil {
		return err
	}
	codes, err := s.departmentCodes(ctx)
	if err != nil {
		return err
	}
	out := csv.NewWriter(w)
	header := append(append([]string{}, ImportColumns...), "placement_status", "has_resume")
	if err := out.Write(header); err != nil {
		return err
	}
	for _, item := range items {
		row := []string{
			item.RollNumber,
			item.Name,
			item.Email,
			item.Phone,
			codes[item.DepartmentID],
			item.Degree,
			strconv.Itoa(item.BatchYear),
			strconv.FormatFloat(item.CGPA, 'f', 2, 64),
			strconv.Itoa(item.Backlogs),
			strings.Join(item.Skills, ";"),
			string(item.PlacementStatus),
			strconv.FormatBool(item.HasResume),
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return err
	}
	track(ctx, s.analytics, "export.students", actor.UserID, map[string]string{"rows": strconv.Itoa(len(items))})
	return nil
}

func (s *ExportService) Applications(ctx context.Context, actor user.Actor, jobID common.UUID, w io.Writer) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	filter := application.Filter{JobID: jobID}
	if actor.Role == user.RoleDeptOfficer {
		filter.DepartmentID = actor.DepartmentID
	}
	items, err := s.applications.ListAll(ctx, filter)
	if err != nil {
		return err
	}
	out := csv.NewWriter(w)
	if err := out.Write([]string{"application_id", "roll_number", "student_name", "company", "job_title", "status", "remarks", "applied_at"}); err != nil {
		return err
	}
	for _, item := range items {
		if err := out.Write([]string{
			item.ID.String(),
			item.RollNumber,
			item.StudentName,
			item.CompanyName,
			item.JobTitle,
			string(item.Status),
			item.Remarks,
			item.CreatedAt.UTC().Format("2006-01-02"),
		}); err != nil {
			return err
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return err
	}
	track(ctx, s.analytics, "export.applications", actor.UserID, map[string]string{"rows": strconv.Itoa(len(items))})
	return nil
}

// Placements lists selected applications, one row per offer.
func (s *ExportService) Placements(ctx context.Context, actor user.Actor, batchYear int, w io.Writer) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	filter := application.Filter{Status: application.StatusSelected}
	if actor.Role == user.RoleDeptOfficer {
		filter.DepartmentID = actor.DepartmentID
	}
	items, err := s.applications.ListAll(ctx, filter)
	if err != nil {
		return err
	}
	codes, err := s.departmentCodes(ctx)
	if err != nil {
		return err
	}
	out := csv.NewWriter(w)
	if err := out.Write([]string{"roll_number", "student_name", "department", "batch_year", "company", "job_title", "remarks", "selected_at"}); err != nil {
		return err
	}
	rows := 0
	for _, item := range items {
		record, err := s.students.GetByID(ctx, item.StudentID)
		if err != nil {
			if common.Is(err, common.CodeNotFound) {
				continue
			}
			return err
		}
		if batchYear != 0 && record.BatchYear != batchYear {
			continue
		}
		if err := out.Write([]string{
			record.RollNumber,
			record.Name,
			codes[record.DepartmentID],
			strconv.Itoa(record.BatchYear),
			item.CompanyName,
			item.JobTitle,
			item.Remarks,
			item.UpdatedAt.UTC().Format("2006-01-02"),
		}); err != nil {
			return err
		}
		rows++
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return err
	}
	track(ctx, s.analytics, "export.placements", actor.UserID, map[string]string{"rows": strconv.Itoa(rows)})
	return nil
}

func (s *ExportService) departmentCodes(ctx context.Context) (map[common.UUID]string, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, err
	}
	codes := make(map[common.UUID]string, len(depts))
	for _, d := range depts {
		codes[d.ID] = d.Code
	}
	return codes, nil
}
