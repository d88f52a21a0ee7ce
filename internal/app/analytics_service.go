package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/interview"
	"placementcell/internal/domain/user"
)

const dashboardCacheKey = "analytics:dashboard"

type AnalyticsService struct {
	reports    analytics.ReportRepository
	interviews interview.Repository
	cache      Cache
	cacheTTL   time.Duration
	logger     Logger
	now        func() time.Time
}

func NewAnalyticsService(reports analytics.ReportRepository, interviews interview.Repository, cache Cache, cacheTTL time.Duration, logger Logger) *AnalyticsService {
	return &AnalyticsService{reports: reports, interviews: interviews, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Dashboard aggregates placement totals. Results are cached when a cache is configured;
// cache failures fall through to the database. refresh drops the cached copy first.
func (s *AnalyticsService) Dashboard(ctx context.Context, actor user.Actor, refresh bool) (*analytics.Dashboard, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if refresh {
		s.Invalidate(ctx)
	} else if s.cache != nil && s.cacheTTL > 0 {
		var cached analytics.Dashboard
		found, err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err != nil {
			s.logError(fmt.Sprintf("dashboard cache read failed: %v", err))
		} else if found {
			return &cached, nil
		}
	}
	counts, err := s.reports.Counts(ctx)
	if err != nil {
		return nil, err
	}
	ctcs, err := s.reports.SelectedOfferCTCs(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.interviews.CountUpcoming(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	dashboard := &analytics.Dashboard{
		TotalStudents:      counts.TotalStudents,
		PlacedStudents:     counts.PlacedStudents,
		PlacementRate:      rate(counts.PlacedStudents, counts.TotalStudents),
		ActiveCompanies:    counts.ActiveCompanies,
		PublishedJobs:      counts.PublishedJobs,
		TotalApplications:  counts.TotalApplications,
		UpcomingInterviews: upcoming,
	}
	dashboard.HighestCTC, dashboard.AverageCTC, dashboard.MedianCTC = ctcSummary(ctcs)
	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, dashboardCacheKey, dashboard, s.cacheTTL); err != nil {
			s.logError(fmt.Sprintf("dashboard cache write failed: %v", err))
		}
	}
	return dashboard, nil
}

func (s *AnalyticsService) Departments(ctx context.Context, actor user.Actor, batchYear int) ([]analytics.DepartmentStats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	stats, err := s.reports.DepartmentStats(ctx, batchYear)
	if err != nil {
		return nil, err
	}
	out := make([]analytics.DepartmentStats, 0, len(stats))
	for _, item := range stats {
		if actor.Role == user.RoleDeptOfficer && item.DepartmentID != actor.DepartmentID {
			continue
		}
		item.PlacementRate = rate(item.PlacedStudents, item.TotalStudents)
		out = append(out, item)
	}
	return out, nil
}

func (s *AnalyticsService) Companies(ctx context.Context, actor user.Actor) ([]analytics.CompanyStats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.reports.CompanyStats(ctx)
}

// Invalidate drops cached aggregates.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logError(fmt.Sprintf("dashboard cache delete failed: %v", err))
	}
}

// rate is a percentage rounded to two decimals.
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(total))
}

func ctcSummary(values []float64) (highest, average, median float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	highest = sorted[n-1]
	average = sum / float64(n)
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return round2(highest), round2(average), round2(median)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *AnalyticsService) logError(msg string) {
	if s.logger != nil {
		s.logger.Error(msg)
	}
}
