package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"placementcell/internal/common"
	"placementcell/internal/domain/company"
	"placementcell/internal/domain/job"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
)

const (
	minSearchQuery     = 2
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

type SearchService struct {
	students  student.Repository
	companies company.Repository
	jobs      job.Repository
}

func NewSearchService(students student.Repository, companies company.Repository, jobs job.Repository) *SearchService {
	return &SearchService{students: students, companies: companies, jobs: jobs}
}

type SearchResults struct {
	Query     string            `json:"query"`
	Students  []student.Student `json:"students,omitempty"`
	Companies []company.Company `json:"companies,omitempty"`
	Jobs      []job.Job         `json:"jobs,omitempty"`
}

// Search looks across entity types. Students never see other students.
func (s *SearchService) Search(ctx context.Context, actor user.Actor, query string, types []string, limit int) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQuery {
		return nil, common.NewValidationError("invalid query", map[string]string{"q": "query must be at least 2 characters"})
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	wanted := map[string]bool{"students": true, "companies": true, "jobs": true}
	if len(types) > 0 {
		wanted = map[string]bool{}
		for _, t := range types {
			wanted[strings.ToLower(strings.TrimSpace(t))] = true
		}
	}
	page := common.Page{Page: 1, Limit: limit}
	results := &SearchResults{Query: query}
	if wanted["students"] && actor.IsStaff() {
		filter := student.Filter{Query: query}
		if actor.Role == user.RoleDeptOfficer {
			filter.DepartmentID = actor.DepartmentID
		}
		items, _, err := s.students.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		results.Students = items
	}
	if wanted["companies"] {
		items, _, err := s.companies.List(ctx, company.Filter{Query: query}, page)
		if err != nil {
			return nil, err
		}
		results.Companies = items
	}
	if wanted["jobs"] {
		filter := job.Filter{Query: query}
		if !actor.IsStaff() {
			filter.Status = job.StatusPublished
		}
		items, _, err := s.jobs.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		results.Jobs = items
	}
	return results, nil
}
