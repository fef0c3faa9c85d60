package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hydroaid/hydroaid-backend/internal/metrics"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/hydroaid/hydroaid-backend/internal/records/repository"
	recordsvc "github.com/hydroaid/hydroaid-backend/internal/records/service"
)

const (
	recentDashboardLimit  = 10
	recentDepartmentLimit = 5
	DefaultLiveLimit      = 20
	MaxLiveLimit          = 100
)

// Totals is a completed-donation sum over a calendar window.
type Totals struct {
	Donations float64 `json:"donations"`
	Count     int64   `json:"count"`
}

type DashboardStats struct {
	Today           Totals                                        `json:"today"`
	Month           Totals                                        `json:"month"`
	Projects        map[domain.ProjectStatus]domain.ProjectRollup `json:"projects"`
	Issues          map[domain.IssueStatus]int64                  `json:"issues"`
	Users           map[domain.Role]int64                         `json:"users"`
	RecentDonations []domain.Donation                             `json:"recentDonations"`
	RecentIssues    []domain.Issue                                `json:"recentIssues"`
}

type DepartmentProjects struct {
	Total    int                          `json:"total"`
	ByStatus map[domain.ProjectStatus]int `json:"byStatus"`
}

type DepartmentDonations struct {
	Today float64 `json:"today"`
	Count int64   `json:"count"`
}

type DepartmentIssues struct {
	Total      int                          `json:"total"`
	ByPriority map[domain.IssuePriority]int `json:"byPriority"`
	Recent     []domain.Issue               `json:"recent"`
}

type DepartmentStats struct {
	Projects  DepartmentProjects  `json:"projects"`
	Donations DepartmentDonations `json:"donations"`
	Issues    DepartmentIssues    `json:"issues"`
}

// Engine computes statistics from the record store on every call.
// Nothing is cached and nothing is written.
type Engine struct {
	store    repository.Store
	enricher *recordsvc.Enricher
	timeout  time.Duration
	now      func() time.Time
}

func NewEngine(store repository.Store, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Engine{
		store:    store,
		enricher: recordsvc.NewEnricher(store),
		timeout:  timeout,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock used for day and month boundaries.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// StartOfDay is local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfMonth is local midnight on the first of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func (e *Engine) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := e.now()
	out := &DashboardStats{}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := e.store.CompletedDonationTotals(ctx, StartOfDay(now), "")
		if err != nil {
			return unavailable("today_totals", err)
		}
		out.Today = Totals{Donations: b.Sum, Count: b.Count}
		return nil
	})
	g.Go(func() error {
		b, err := e.store.CompletedDonationTotals(ctx, StartOfMonth(now), "")
		if err != nil {
			return unavailable("month_totals", err)
		}
		out.Month = Totals{Donations: b.Sum, Count: b.Count}
		return nil
	})
	g.Go(func() error {
		r, err := e.store.ProjectRollupByStatus(ctx)
		if err != nil {
			return unavailable("project_rollup", err)
		}
		out.Projects = r
		return nil
	})
	g.Go(func() error {
		r, err := e.store.IssueCountsByStatus(ctx)
		if err != nil {
			return unavailable("issue_counts", err)
		}
		out.Issues = r
		return nil
	})
	g.Go(func() error {
		r, err := e.store.UserCountsByRole(ctx)
		if err != nil {
			return unavailable("user_counts", err)
		}
		out.Users = r
		return nil
	})
	g.Go(func() error {
		ds, err := e.store.RecentCompletedDonations(ctx, recentDashboardLimit)
		if err != nil {
			return unavailable("recent_donations", err)
		}
		if err := e.enricher.Donations(ctx, ds); err != nil {
			return unavailable("enrich_donations", err)
		}
		out.RecentDonations = ds
		return nil
	})
	g.Go(func() error {
		is, err := e.store.RecentIssues(ctx, recentDashboardLimit)
		if err != nil {
			return unavailable("recent_issues", err)
		}
		if err := e.enricher.Issues(ctx, is); err != nil {
			return unavailable("enrich_issues", err)
		}
		out.RecentIssues = is
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.normalize()
	return out, nil
}

func (e *Engine) GetDepartmentStats(ctx context.Context, departmentID string) (*DepartmentStats, error) {
	if departmentID == "" {
		return nil, domain.Missing("departmentId")
	}
	now := e.now()
	out := &DepartmentStats{
		Projects: DepartmentProjects{ByStatus: map[domain.ProjectStatus]int{}},
		Issues:   DepartmentIssues{ByPriority: map[domain.IssuePriority]int{}, Recent: []domain.Issue{}},
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		projects, err := e.store.ProjectsByDepartment(ctx, departmentID)
		if err != nil {
			return unavailable("department_projects", err)
		}
		out.Projects.Total = len(projects)
		for _, p := range projects {
			out.Projects.ByStatus[p.Status]++
		}
		return nil
	})
	g.Go(func() error {
		b, err := e.store.CompletedDonationTotals(ctx, StartOfDay(now), departmentID)
		if err != nil {
			return unavailable("department_totals", err)
		}
		out.Donations = DepartmentDonations{Today: b.Sum, Count: b.Count}
		return nil
	})
	g.Go(func() error {
		issues, err := e.store.IssuesByDepartment(ctx, departmentID)
		if err != nil {
			return unavailable("department_issues", err)
		}
		out.Issues.Total = len(issues)
		for _, i := range issues {
			out.Issues.ByPriority[i.Priority]++
		}
		recent := issues
		if len(recent) > recentDepartmentLimit {
			recent = recent[:recentDepartmentLimit]
		}
		recent = append([]domain.Issue{}, recent...)
		if err := e.enricher.Issues(ctx, recent); err != nil {
			return unavailable("enrich_issues", err)
		}
		out.Issues.Recent = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLiveDonations returns the newest completed donations. A limit outside
// [1, MaxLiveLimit] is clamped; zero means DefaultLiveLimit.
func (e *Engine) GetLiveDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	switch {
	case limit == 0:
		limit = DefaultLiveLimit
	case limit < 1:
		limit = 1
	case limit > MaxLiveLimit:
		limit = MaxLiveLimit
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ds, err := e.store.RecentCompletedDonations(ctx, limit)
	if err != nil {
		return nil, unavailable("live_donations", err)
	}
	if err := e.enricher.Donations(ctx, ds); err != nil {
		return nil, unavailable("enrich_donations", err)
	}
	if ds == nil {
		ds = []domain.Donation{}
	}
	return ds, nil
}

// normalize replaces absent groups with empty ones so the JSON never
// carries null where an object or array is expected.
func (s *DashboardStats) normalize() {
	if s.Projects == nil {
		s.Projects = map[domain.ProjectStatus]domain.ProjectRollup{}
	}
	if s.Issues == nil {
		s.Issues = map[domain.IssueStatus]int64{}
	}
	if s.Users == nil {
		s.Users = map[domain.Role]int64{}
	}
	if s.RecentDonations == nil {
		s.RecentDonations = []domain.Donation{}
	}
	if s.RecentIssues == nil {
		s.RecentIssues = []domain.Issue{}
	}
}

func unavailable(op string, err error) error {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	return domain.Unavailable(op, err)
}
