// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store keeps extracted rosters in Postgres so that repeated runs
// over the same sheets can be compared.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"rollcall/internal/resilience"
	"rollcall/internal/roster"
	"rollcall/internal/security"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "attendance_records"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// RosterStore writes students to a single table keyed by (run_id, student_id_full).
type RosterStore struct {
	DB *sql.DB

	table string
	retry resilience.RetryConfig
}

// Record is a stored student.
type Record struct {
	ID        int64
	RunID     string
	CreatedAt time.Time
	roster.Student
}

// NewRosterStore wraps an open database handle.
func NewRosterStore(db *sql.DB, table string) (*RosterStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name '%s': use lower-case letters, digits and underscores", table)
	}
	return &RosterStore{
		DB:    db,
		table: pgx.Identifier{table}.Sanitize(),
		retry: resilience.DatabaseRetryConfig(),
	}, nil
}

// Open connects to dsn through the pgx driver and checks the connection.
func Open(ctx context.Context, dsn, table string) (*RosterStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open %s: %w", security.MaskDSN(dsn), err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	s, err := NewRosterStore(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}

	stats, err := resilience.RetryWithStats(ctx, s.retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping %s failed after %d attempts: %w", security.MaskDSN(dsn), stats.TotalAttempts, err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *RosterStore) Close() error {
	return s.DB.Close()
}

// Migrate creates the table when it does not exist.
func (s *RosterStore) Migrate(ctx context.Context) error {
	q := `
create table if not exists ` + s.table + ` (
  id              bigserial primary key,
  run_id          text not null,
  created_at      timestamptz not null default now(),
  surname         text not null default '',
  name            text not null default '',
  full_name       text not null default '',
  student_id_full text not null,
  student_id_num  text not null,
  confidence      double precision not null,
  file_name       text not null default '',
  unique (run_id, student_id_full)
)`
	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// SaveStudents upserts students under runID in one transaction. A student
// already stored for the run is overwritten.
func (s *RosterStore) SaveStudents(ctx context.Context, runID string, students []roster.Student) error {
	if runID == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	if len(students) == 0 {
		return nil
	}

	q := `
insert into ` + s.table + ` (
  run_id, surname, name, full_name, student_id_full, student_id_num, confidence, file_name
) values ($1,$2,$3,$4,$5,$6,$7,$8)
on conflict (run_id, student_id_full) do update
set surname = excluded.surname,
    name = excluded.name,
    full_name = excluded.full_name,
    student_id_num = excluded.student_id_num,
    confidence = excluded.confidence,
    file_name = excluded.file_name`

	return resilience.RetryWithBackoff(ctx, s.retry, func(ctx context.Context) error {
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, st := range students {
			if _, err := stmt.ExecContext(ctx, runID, st.Surname, st.GivenName, st.FullName,
				st.IdentifierFull, st.IdentifierNum, st.Confidence, st.SourceFile); err != nil {
				return fmt.Errorf("save %s: %w", st.IdentifierFull, err)
			}
		}
		return tx.Commit()
	})
}

// ListRun returns the students stored for runID in insertion order.
func (s *RosterStore) ListRun(ctx context.Context, runID string) ([]Record, error) {
	q := `
select id, run_id, created_at, surname, name, full_name,
       student_id_full, student_id_num, confidence, file_name
from ` + s.table + `
where run_id = $1
order by id`

	rows, err := s.DB.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RunID, &r.CreatedAt, &r.Surname, &r.GivenName, &r.FullName,
			&r.IdentifierFull, &r.IdentifierNum, &r.Confidence, &r.SourceFile); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
