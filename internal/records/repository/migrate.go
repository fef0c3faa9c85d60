package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`create table if not exists users (
  id text primary key,
  name text not null,
  email text not null,
  role text not null default 'user',
  department_name text,
  created_at timestamptz not null default now()
);`,
	`create unique index if not exists users_email_lower_idx on users (lower(email));`,
	`create table if not exists donations (
  id text primary key,
  payer_ref text not null,
  amount numeric(14,2) not null check (amount > 0),
  payment_method text not null,
  status text not null default 'pending',
  project_ref text not null default '',
  department_ref text,
  anonymous boolean not null default false,
  created_at timestamptz not null default now()
);`,
	`create index if not exists donations_status_created_idx on donations (status, created_at desc, id desc);`,
	`create index if not exists donations_department_idx on donations (department_ref, created_at);`,
	`create table if not exists issues (
  id text primary key,
  title text not null,
  description text not null,
  category text not null,
  priority text not null default 'medium',
  status text not null default 'reported',
  lat double precision not null,
  lng double precision not null,
  reporter_ref text not null,
  assignee_ref text,
  department_ref text not null,
  photos jsonb not null default '[]',
  updates jsonb not null default '[]',
  resolved_at timestamptz,
  created_at timestamptz not null default now()
);`,
	`create index if not exists issues_created_idx on issues (created_at desc, id desc);`,
	`create index if not exists issues_department_idx on issues (department_ref, created_at desc);`,
	`create table if not exists projects (
  id text primary key,
  name text not null,
  description text not null,
  lat double precision not null default 0,
  lng double precision not null default 0,
  status text not null default 'planning',
  progress integer not null default 0 check (progress between 0 and 100),
  department_ref text not null,
  estimated_cost numeric(14,2) not null,
  current_funding numeric(14,2) not null default 0,
  team_members jsonb not null default '[]',
  updates jsonb not null default '[]',
  created_at timestamptz not null default now()
);`,
	`create index if not exists projects_department_idx on projects (department_ref);`,
}

// Migrate creates the record tables if they do not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
