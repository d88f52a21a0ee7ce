package app

import (
	"fmt"
	"strings"

	"placementcell/internal/domain/job"
	"placementcell/internal/domain/student"
)

type EligibilityResult struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons,omitempty"`
}

type EligibilityPolicy struct {
	AllowPlaced bool
}

// CheckEligibility evaluates every criterion and reports all of the ones the student fails.
func CheckEligibility(s student.Student, criteria job.Eligibility, policy EligibilityPolicy) EligibilityResult {
	reasons := make([]string, 0)
	if criteria.MinCGPA > 0 && s.CGPA+1e-9 < criteria.MinCGPA {
		reasons = append(reasons, fmt.Sprintf("cgpa %.2f is below the minimum %.2f", s.CGPA, criteria.MinCGPA))
	}
	if criteria.MaxBacklogs >= 0 && s.Backlogs > criteria.MaxBacklogs {
		reasons = append(reasons, fmt.Sprintf("%d backlogs exceed the maximum of %d", s.Backlogs, criteria.MaxBacklogs))
	}
	if len(criteria.Degrees) > 0 && !containsFold(criteria.Degrees, s.Degree) {
		reasons = append(reasons, fmt.Sprintf("degree %s is not eligible", s.Degree))
	}
	if len(criteria.BatchYears) > 0 {
		found := false
		for _, year := range criteria.BatchYears {
			if year == s.BatchYear {
				found = true
				break
			}
		}
		if !found {
			reasons = append(reasons, fmt.Sprintf("batch %d is not eligible", s.BatchYear))
		}
	}
	if len(criteria.DepartmentIDs) > 0 {
		found := false
		for _, id := range criteria.DepartmentIDs {
			if id == s.DepartmentID {
				found = true
				break
			}
		}
		if !found {
			reasons = append(reasons, "department is not eligible")
		}
	}
	switch s.PlacementStatus {
	case student.PlacementOptedOut:
		reasons = append(reasons, "student has opted out of placements")
	case student.PlacementPlaced:
		if !policy.AllowPlaced {
			reasons = append(reasons, "student is already placed")
		}
	}
	if len(reasons) == 0 {
		return EligibilityResult{Eligible: true}
	}
	return EligibilityResult{Eligible: false, Reasons: reasons}
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}
