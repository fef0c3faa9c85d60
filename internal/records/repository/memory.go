package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
)

// MemoryStore is an in-process Store. It backs tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu        sync.RWMutex
	seq       int64
	donations []memDonation
	issues    []memIssue
	projects  []domain.Project
	users     map[string]domain.User
}

type memDonation struct {
	seq int64
	domain.Donation
}

type memIssue struct {
	seq int64
	domain.Issue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]domain.User)}
}

func (s *MemoryStore) InsertDonation(ctx context.Context, d *domain.Donation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	d.Amount = roundCents(d.Amount)
	cp := *d
	cp.Payer = nil
	s.donations = append(s.donations, memDonation{seq: s.seq, Donation: cp})
	return nil
}

func (s *MemoryStore) InsertIssue(ctx context.Context, i *domain.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *i
	cp.Reporter = nil
	cp.Photos = append([]domain.Photo(nil), i.Photos...)
	cp.StatusUpdates = append([]domain.StatusUpdate(nil), i.StatusUpdates...)
	s.issues = append(s.issues, memIssue{seq: s.seq, Issue: cp})
	return nil
}

// roundCents mirrors the numeric(14,2) amount column.
func roundCents(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// PutProject seeds a project. Projects are not created by the write path.
func (s *MemoryStore) PutProject(p domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
}

// PutUser seeds or replaces a user.
func (s *MemoryStore) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	s.users[u.ID] = u
}

func (s *MemoryStore) CompletedDonationTotals(ctx context.Context, since time.Time, departmentID string) (domain.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return domain.Bucket{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b domain.Bucket
	for _, d := range s.donations {
		if d.Status != domain.DonationCompleted || d.CreatedAt.Before(since) {
			continue
		}
		if departmentID != "" && d.DepartmentRef != departmentID {
			continue
		}
		b.Count++
		b.Sum += d.Amount
	}
	return b, nil
}

func (s *MemoryStore) ProjectRollupByStatus(ctx context.Context) (map[domain.ProjectStatus]domain.ProjectRollup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.ProjectStatus]domain.ProjectRollup)
	for _, p := range s.projects {
		r := out[p.Status]
		r.Count++
		r.TotalFunding += p.CurrentFunding
		out[p.Status] = r
	}
	return out, nil
}

func (s *MemoryStore) IssueCountsByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.IssueStatus]int64)
	for _, i := range s.issues {
		out[i.Status]++
	}
	return out, nil
}

func (s *MemoryStore) UserCountsByRole(ctx context.Context) (map[domain.Role]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.Role]int64)
	for _, u := range s.users {
		out[u.Role]++
	}
	return out, nil
}

func (s *MemoryStore) RecentCompletedDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]memDonation, 0, len(s.donations))
	for _, d := range s.donations {
		if d.Status == domain.DonationCompleted {
			rows = append(rows, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(a, b int) bool {
		if !rows[a].CreatedAt.Equal(rows[b].CreatedAt) {
			return rows[a].CreatedAt.After(rows[b].CreatedAt)
		}
		return rows[a].seq > rows[b].seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]domain.Donation, len(rows))
	for i, r := range rows {
		out[i] = r.Donation
	}
	return out, nil
}

func (s *MemoryStore) RecentIssues(ctx context.Context, limit int) ([]domain.Issue, error) {
	return s.issuesWhere(ctx, limit, func(domain.Issue) bool { return true })
}

func (s *MemoryStore) IssuesByDepartment(ctx context.Context, departmentID string) ([]domain.Issue, error) {
	return s.issuesWhere(ctx, 0, func(i domain.Issue) bool { return i.DepartmentRef == departmentID })
}

func (s *MemoryStore) issuesWhere(ctx context.Context, limit int, keep func(domain.Issue) bool) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]memIssue, 0, len(s.issues))
	for _, i := range s.issues {
		if keep(i.Issue) {
			rows = append(rows, i)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(a, b int) bool {
		if !rows[a].CreatedAt.Equal(rows[b].CreatedAt) {
			return rows[a].CreatedAt.After(rows[b].CreatedAt)
		}
		return rows[a].seq > rows[b].seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]domain.Issue, len(rows))
	for i, r := range rows {
		out[i] = r.Issue
	}
	return out, nil
}

func (s *MemoryStore) ProjectsByDepartment(ctx context.Context, departmentID string) ([]domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Project, 0)
	for _, p := range s.projects {
		if p.DepartmentRef == departmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) UsersByID(ctx context.Context, ids []string) (map[string]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
