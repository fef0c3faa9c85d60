package repository

import (
	"context"
	"time"

	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
)

// Store is the record store contract. Implementations provide atomic
// single-record inserts and read-committed aggregate queries.
type Store interface {
	InsertDonation(ctx context.Context, d *domain.Donation) error
	InsertIssue(ctx context.Context, i *domain.Issue) error

	// CompletedDonationTotals sums completed donations created at or after
	// since. An empty departmentID means every department.
	CompletedDonationTotals(ctx context.Context, since time.Time, departmentID string) (domain.Bucket, error)
	ProjectRollupByStatus(ctx context.Context) (map[domain.ProjectStatus]domain.ProjectRollup, error)
	IssueCountsByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error)
	UserCountsByRole(ctx context.Context) (map[domain.Role]int64, error)

	// Recent* return newest first, ties broken by id descending.
	RecentCompletedDonations(ctx context.Context, limit int) ([]domain.Donation, error)
	RecentIssues(ctx context.Context, limit int) ([]domain.Issue, error)

	ProjectsByDepartment(ctx context.Context, departmentID string) ([]domain.Project, error)
	IssuesByDepartment(ctx context.Context, departmentID string) ([]domain.Issue, error)

	UsersByID(ctx context.Context, ids []string) (map[string]domain.User, error)

	Ping(ctx context.Context) error
}
