package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// insertDonationSQL reads back the amount as the numeric column holds it,
// so callers publish the stored value rather than the submitted one.
const insertDonationSQL = `
insert into donations (id, payer_ref, amount, payment_method, status, project_ref, department_ref, anonymous, created_at)
values ($1, $2, $3, $4, $5, $6, nullif($7,''), $8, $9)
returning amount::float8, created_at;
`

func (s *PostgresStore) InsertDonation(ctx context.Context, d *domain.Donation) error {
	err := s.db.QueryRow(ctx, insertDonationSQL,
		d.ID, d.PayerRef, d.Amount, string(d.PaymentMethod), string(d.Status),
		d.ProjectRef, d.DepartmentRef, d.Anonymous, d.CreatedAt,
	).Scan(&d.Amount, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertIssue(ctx context.Context, i *domain.Issue) error {
	photosJSON, err := json.Marshal(i.Photos)
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}
	updatesJSON, err := json.Marshal(i.StatusUpdates)
	if err != nil {
		return fmt.Errorf("marshal updates: %w", err)
	}

	const q = `
insert into issues (id, title, description, category, priority, status, lat, lng,
                    reporter_ref, assignee_ref, department_ref, photos, updates, resolved_at, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, nullif($10,''), $11, $12, $13, $14, $15)
returning created_at;
`
	err = s.db.QueryRow(ctx, q,
		i.ID, i.Title, i.Description, string(i.Category), string(i.Priority), string(i.Status),
		i.Location.Lat, i.Location.Lng, i.ReporterRef, i.AssigneeRef, i.DepartmentRef,
		photosJSON, updatesJSON, i.ResolvedAt, i.CreatedAt,
	).Scan(&i.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompletedDonationTotals(ctx context.Context, since time.Time, departmentID string) (domain.Bucket, error) {
	const q = `
select count(*), coalesce(sum(amount), 0)::float8
from donations
where status = 'completed'
  and created_at >= $1
  and ($2 = '' or department_ref = $2);
`
	var b domain.Bucket
	if err := s.db.QueryRow(ctx, q, since, departmentID).Scan(&b.Count, &b.Sum); err != nil {
		return domain.Bucket{}, fmt.Errorf("donation totals: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ProjectRollupByStatus(ctx context.Context) (map[domain.ProjectStatus]domain.ProjectRollup, error) {
	const q = `
select status, count(*), coalesce(sum(current_funding), 0)::float8
from projects
group by status;
`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("project rollup: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ProjectStatus]domain.ProjectRollup)
	for rows.Next() {
		var status string
		var r domain.ProjectRollup
		if err := rows.Scan(&status, &r.Count, &r.TotalFunding); err != nil {
			return nil, fmt.Errorf("scan project rollup: %w", err)
		}
		out[domain.ProjectStatus(status)] = r
	}
	return out, rows.Err()
}

func (s *PostgresStore) IssueCountsByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error) {
	counts, err := s.groupCount(ctx, `select status, count(*) from issues group by status;`)
	if err != nil {
		return nil, fmt.Errorf("issue counts: %w", err)
	}
	out := make(map[domain.IssueStatus]int64, len(counts))
	for k, v := range counts {
		out[domain.IssueStatus(k)] = v
	}
	return out, nil
}

func (s *PostgresStore) UserCountsByRole(ctx context.Context) (map[domain.Role]int64, error) {
	counts, err := s.groupCount(ctx, `select role, count(*) from users group by role;`)
	if err != nil {
		return nil, fmt.Errorf("user counts: %w", err)
	}
	out := make(map[domain.Role]int64, len(counts))
	for k, v := range counts {
		out[domain.Role(k)] = v
	}
	return out, nil
}

func (s *PostgresStore) groupCount(ctx context.Context, q string) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

const donationColumns = `id, payer_ref, amount::float8, payment_method, status, project_ref,
       coalesce(department_ref, ''), anonymous, created_at`

func (s *PostgresStore) RecentCompletedDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	q := `select ` + donationColumns + `
from donations
where status = 'completed'
order by created_at desc, id desc
limit $1;`
	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent donations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Donation, 0, limit)
	for rows.Next() {
		var d domain.Donation
		var method, status string
		if err := rows.Scan(&d.ID, &d.PayerRef, &d.Amount, &method, &status, &d.ProjectRef,
			&d.DepartmentRef, &d.Anonymous, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		d.PaymentMethod = domain.PaymentMethod(method)
		d.Status = domain.DonationStatus(status)
		out = append(out, d)
	}
	return out, rows.Err()
}

const issueColumns = `id, title, description, category, priority, status, lat, lng,
       reporter_ref, coalesce(assignee_ref, ''), department_ref, photos, updates, resolved_at, created_at`

func (s *PostgresStore) RecentIssues(ctx context.Context, limit int) ([]domain.Issue, error) {
	q := `select ` + issueColumns + `
from issues
order by created_at desc, id desc
limit $1;`
	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent issues: %w", err)
	}
	return scanIssues(rows)
}

func (s *PostgresStore) IssuesByDepartment(ctx context.Context, departmentID string) ([]domain.Issue, error) {
	q := `select ` + issueColumns + `
from issues
where department_ref = $1
order by created_at desc, id desc;`
	rows, err := s.db.Query(ctx, q, departmentID)
	if err != nil {
		return nil, fmt.Errorf("department issues: %w", err)
	}
	return scanIssues(rows)
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	defer rows.Close()

	out := make([]domain.Issue, 0)
	for rows.Next() {
		var i domain.Issue
		var category, priority, status string
		var photosJSON, updatesJSON []byte
		if err := rows.Scan(&i.ID, &i.Title, &i.Description, &category, &priority, &status,
			&i.Location.Lat, &i.Location.Lng, &i.ReporterRef, &i.AssigneeRef, &i.DepartmentRef,
			&photosJSON, &updatesJSON, &i.ResolvedAt, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		i.Category = domain.IssueCategory(category)
		i.Priority = domain.IssuePriority(priority)
		i.Status = domain.IssueStatus(status)

		if err := decodeList(photosJSON, &i.Photos); err != nil {
			return nil, fmt.Errorf("decode photos of issue %s: %w", i.ID, err)
		}
		if err := decodeList(updatesJSON, &i.StatusUpdates); err != nil {
			return nil, fmt.Errorf("decode updates of issue %s: %w", i.ID, err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ProjectsByDepartment(ctx context.Context, departmentID string) ([]domain.Project, error) {
	const q = `
select id, name, description, lat, lng, status, progress, department_ref,
       estimated_cost::float8, current_funding::float8, team_members, updates, created_at
from projects
where department_ref = $1
order by created_at desc, id desc;
`
	rows, err := s.db.Query(ctx, q, departmentID)
	if err != nil {
		return nil, fmt.Errorf("department projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		var status string
		var teamJSON, updatesJSON []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Location.Lat, &p.Location.Lng,
			&status, &p.Progress, &p.DepartmentRef, &p.EstimatedCost, &p.CurrentFunding,
			&teamJSON, &updatesJSON, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Status = domain.ProjectStatus(status)

		if err := decodeList(teamJSON, &p.TeamMembers); err != nil {
			return nil, fmt.Errorf("decode team of project %s: %w", p.ID, err)
		}
		if err := decodeList(updatesJSON, &p.Updates); err != nil {
			return nil, fmt.Errorf("decode updates of project %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UsersByID(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	const q = `
select id, name, email, role, coalesce(department_name, ''), created_at
from users
where id = any($1);
`
	rows, err := s.db.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("users by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.DepartmentName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = domain.Role(role)
		out[u.ID] = u
	}
	return out, rows.Err()
}

// decodeList unmarshals a jsonb array column into dst. A NULL or JSON null
// column leaves an empty, non-nil slice.
func decodeList[T any](raw []byte, dst *[]T) error {
	*dst = []T{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []T{}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
