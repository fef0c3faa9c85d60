package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func donation(id string, status domain.DonationStatus, amount float64, at time.Time, dept string) *domain.Donation {
	return &domain.Donation{
		ID:            id,
		PayerRef:      domain.AnonymousActor,
		Payer:         &domain.Actor{ID: "should-not-persist"},
		Amount:        amount,
		PaymentMethod: domain.PaymentWallet,
		Status:        status,
		DepartmentRef: dept,
		CreatedAt:     at,
	}
}

func TestMemoryStore_CompletedDonationTotals(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertDonation(ctx, donation("a", domain.DonationCompleted, 10, base, "d1")))
	require.NoError(t, s.InsertDonation(ctx, donation("b", domain.DonationCompleted, 15, base.Add(time.Hour), "d2")))
	require.NoError(t, s.InsertDonation(ctx, donation("c", domain.DonationPending, 99, base.Add(time.Hour), "d1")))
	require.NoError(t, s.InsertDonation(ctx, donation("d", domain.DonationCompleted, 5, base.Add(-time.Hour), "d1")))

	all, err := s.CompletedDonationTotals(ctx, base, "")
	require.NoError(t, err)
	assert.Equal(t, domain.Bucket{Count: 2, Sum: 25}, all)

	d1, err := s.CompletedDonationTotals(ctx, base, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.Bucket{Count: 1, Sum: 10}, d1)
}

func TestMemoryStore_RecentOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	// same timestamp: later insert sorts first
	require.NoError(t, s.InsertDonation(ctx, donation("first", domain.DonationCompleted, 1, base, "")))
	require.NoError(t, s.InsertDonation(ctx, donation("second", domain.DonationCompleted, 1, base, "")))
	require.NoError(t, s.InsertDonation(ctx, donation("older", domain.DonationCompleted, 1, base.Add(-time.Minute), "")))
	require.NoError(t, s.InsertDonation(ctx, donation("failed", domain.DonationFailed, 1, base.Add(time.Minute), "")))

	got, err := s.RecentCompletedDonations(ctx, 10)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, d := range got {
		ids[i] = d.ID
		assert.Nil(t, d.Payer)
	}
	assert.Equal(t, []string{"second", "first", "older"}, ids)

	got, err = s.RecentCompletedDonations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].ID)
}

func TestMemoryStore_Issues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	photos := []domain.Photo{{URL: "https://cdn/a.jpg"}}
	require.NoError(t, s.InsertIssue(ctx, &domain.Issue{ID: "i1", Status: domain.IssueReported, DepartmentRef: "d1", Photos: photos, CreatedAt: base}))
	require.NoError(t, s.InsertIssue(ctx, &domain.Issue{ID: "i2", Status: domain.IssueResolved, DepartmentRef: "d2", CreatedAt: base.Add(time.Second)}))
	photos[0].URL = "mutated"

	byStatus, err := s.IssueCountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.IssueStatus]int64{domain.IssueReported: 1, domain.IssueResolved: 1}, byStatus)

	d1, err := s.IssuesByDepartment(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, d1, 1)
	assert.Equal(t, "https://cdn/a.jpg", d1[0].Photos[0].URL)

	recent, err := s.RecentIssues(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "i2", recent[0].ID)
}

func TestMemoryStore_ProjectsAndUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutProject(domain.Project{ID: "p1", Status: domain.ProjectOnHold, CurrentFunding: 40, DepartmentRef: "d1"})
	s.PutProject(domain.Project{ID: "p2", Status: domain.ProjectOnHold, CurrentFunding: 60, DepartmentRef: "d2"})
	s.PutUser(domain.User{ID: "u1", Name: "Asha", Email: "Asha@Example.org", Role: domain.RoleDepartment})

	rollup, err := s.ProjectRollupByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectRollup{Count: 2, TotalFunding: 100}, rollup[domain.ProjectOnHold])

	projects, err := s.ProjectsByDepartment(ctx, "none")
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)

	users, err := s.UsersByID(ctx, []string{"u1", "ghost"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "asha@example.org", users["u1"].Email)

	roles, err := s.UserCountsByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), roles[domain.RoleDepartment])
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	assert.Error(t, s.InsertDonation(ctx, donation("x", domain.DonationCompleted, 1, base, "")))
	assert.Error(t, s.Ping(ctx))
	assert.NoError(t, s.Ping(context.Background()))
}

func TestMemoryStore_AmountStoredInCents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	d := donation("cents", domain.DonationCompleted, 12.345678, base, "")
	require.NoError(t, s.InsertDonation(ctx, d))
	assert.Equal(t, 12.35, d.Amount)

	got, err := s.RecentCompletedDonations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12.35, got[0].Amount)
}
