package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS processes (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		definition  JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id                          TEXT PRIMARY KEY,
		process_id                  TEXT NOT NULL REFERENCES processes(id),
		applicant_name              TEXT NOT NULL,
		referral_channel            TEXT NOT NULL DEFAULT 'AGENT',
		current_status_id           TEXT NOT NULL,
		submitted_to_institute      BOOLEAN NOT NULL DEFAULT FALSE,
		unconditional_received      BOOLEAN NOT NULL DEFAULT FALSE,
		fee_paid                    BOOLEAN NOT NULL DEFAULT FALSE,
		sponsorship_letter_received BOOLEAN NOT NULL DEFAULT FALSE,
		visa_granted                BOOLEAN NOT NULL DEFAULT FALSE,
		enrolled                    BOOLEAN NOT NULL DEFAULT FALSE,
		is_cancelled                BOOLEAN NOT NULL DEFAULT FALSE,
		cancelled_by                TEXT,
		cancel_reason               TEXT,
		cancelled_at                TIMESTAMPTZ,
		is_rejected                 BOOLEAN NOT NULL DEFAULT FALSE,
		rejected_by                 TEXT,
		reject_reason               TEXT,
		rejected_at                 TIMESTAMPTZ,
		updated_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (NOT (is_cancelled AND is_rejected))
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_records (
		application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		milestone_key  TEXT NOT NULL,
		type           TEXT NOT NULL CHECK (type IN ('form', 'file')),
		data           JSONB NOT NULL,
		completed      BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at   TIMESTAMPTZ,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (application_id, milestone_key)
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id                 TEXT PRIMARY KEY,
		application_id     TEXT NOT NULL UNIQUE REFERENCES applications(id),
		tuition_fee        NUMERIC(14,2) NOT NULL,
		scholarship_amount NUMERIC(14,2) NOT NULL,
		fee_payable        NUMERIC(14,2) NOT NULL,
		initial_deposit    NUMERIC(14,2) NOT NULL,
		enrollment_fee     NUMERIC(14,2) NOT NULL,
		total_paid         NUMERIC(14,2) NOT NULL,
		booked_by          TEXT NOT NULL,
		booked_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		user_id     TEXT,
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		resource_id TEXT,
		old_values  JSONB,
		new_values  JSONB,
		ip_address  TEXT,
		user_agent  TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_process ON applications(process_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource, resource_id)`,
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS processes (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		definition  TEXT NOT NULL,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id                          TEXT PRIMARY KEY,
		process_id                  TEXT NOT NULL REFERENCES processes(id),
		applicant_name              TEXT NOT NULL,
		referral_channel            TEXT NOT NULL DEFAULT 'AGENT',
		current_status_id           TEXT NOT NULL,
		submitted_to_institute      BOOLEAN NOT NULL DEFAULT 0,
		unconditional_received      BOOLEAN NOT NULL DEFAULT 0,
		fee_paid                    BOOLEAN NOT NULL DEFAULT 0,
		sponsorship_letter_received BOOLEAN NOT NULL DEFAULT 0,
		visa_granted                BOOLEAN NOT NULL DEFAULT 0,
		enrolled                    BOOLEAN NOT NULL DEFAULT 0,
		is_cancelled                BOOLEAN NOT NULL DEFAULT 0,
		cancelled_by                TEXT,
		cancel_reason               TEXT,
		cancelled_at                DATETIME,
		is_rejected                 BOOLEAN NOT NULL DEFAULT 0,
		rejected_by                 TEXT,
		reject_reason               TEXT,
		rejected_at                 DATETIME,
		updated_at                  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (NOT (is_cancelled AND is_rejected))
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_records (
		application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		milestone_key  TEXT NOT NULL,
		type           TEXT NOT NULL CHECK (type IN ('form', 'file')),
		data           TEXT NOT NULL,
		completed      BOOLEAN NOT NULL DEFAULT 0,
		completed_at   DATETIME,
		updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (application_id, milestone_key)
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id                 TEXT PRIMARY KEY,
		application_id     TEXT NOT NULL UNIQUE REFERENCES applications(id),
		tuition_fee        TEXT NOT NULL,
		scholarship_amount TEXT NOT NULL,
		fee_payable        TEXT NOT NULL,
		initial_deposit    TEXT NOT NULL,
		enrollment_fee     TEXT NOT NULL,
		total_paid         TEXT NOT NULL,
		booked_by          TEXT NOT NULL,
		booked_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		user_id     TEXT,
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		resource_id TEXT,
		old_values  TEXT,
		new_values  TEXT,
		ip_address  TEXT,
		user_agent  TEXT,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_process ON applications(process_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource, resource_id)`,
}

// Migrate creates the lifecycle schema for the connected driver. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := postgresMigrations
	if db.DriverName() == "sqlite" {
		statements = sqliteMigrations
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
