package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

const applicationColumns = `id, process_id, applicant_name, referral_channel, current_status_id,
	submitted_to_institute, unconditional_received, fee_paid, sponsorship_letter_received, visa_granted, enrolled,
	is_cancelled, cancelled_by, cancel_reason, cancelled_at,
	is_rejected, rejected_by, reject_reason, rejected_at, updated_at`

const activeApplication = `NOT is_cancelled AND NOT is_rejected`

// ApplicationRepository persists applications and their milestone records.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// TerminateParams captures a cancellation or rejection.
type TerminateParams struct {
	ID             string
	ExpectedStatus string
	Actor          string
	Reason         string
	At             time.Time
}

// GetByID fetches an application snapshot including its milestone records.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := r.db.Rebind(`SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	records, err := r.ListMilestones(ctx, id)
	if err != nil {
		return nil, err
	}
	app.Milestones = records
	return &app, nil
}

// ListMilestones returns the milestone records of an application ordered by key.
func (r *ApplicationRepository) ListMilestones(ctx context.Context, applicationID string) ([]models.MilestoneRecord, error) {
	query := r.db.Rebind(`SELECT application_id, milestone_key, type, data, completed, completed_at, updated_at
	FROM milestone_records WHERE application_id = ? ORDER BY milestone_key`)
	records := make([]models.MilestoneRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, applicationID); err != nil {
		return nil, fmt.Errorf("list milestone records: %w", err)
	}
	return records, nil
}

// Create inserts an application. Applications normally arrive from the institution; this
// is used for seeding and imports.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = time.Now().UTC()
	}
	if app.ReferralChannel == "" {
		app.ReferralChannel = models.ReferralChannelAgent
	}
	const query = `INSERT INTO applications (id, process_id, applicant_name, referral_channel, current_status_id,
	submitted_to_institute, unconditional_received, fee_paid, sponsorship_letter_received, visa_granted, enrolled, updated_at)
	VALUES (:id, :process_id, :applicant_name, :referral_channel, :current_status_id,
	:submitted_to_institute, :unconditional_received, :fee_paid, :sponsorship_letter_received, :visa_granted, :enrolled, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// UpdateFlags overwrites the institution completion flags.
func (r *ApplicationRepository) UpdateFlags(ctx context.Context, id string, flags models.CompletionFlags, at time.Time) error {
	query := r.db.Rebind(`UPDATE applications SET submitted_to_institute = ?, unconditional_received = ?, fee_paid = ?,
	sponsorship_letter_received = ?, visa_granted = ?, enrolled = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query,
		flags.SubmittedToInstitute, flags.UnconditionalReceived, flags.FeePaid,
		flags.SponsorshipLetterReceived, flags.VisaGranted, flags.Enrolled, at, id)
	if err != nil {
		return fmt.Errorf("update application flags: %w", err)
	}
	return expectAffected(result, "application flags")
}

// UpdateStatus moves an active application to statusID. Terminated or missing applications yield sql.ErrNoRows.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, statusID string, at time.Time) error {
	query := r.db.Rebind(`UPDATE applications SET current_status_id = ?, updated_at = ? WHERE id = ? AND ` + activeApplication)
	result, err := r.db.ExecContext(ctx, query, statusID, at, id)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return expectAffected(result, "application status")
}

// Cancel marks the application cancelled if it is still active and in the expected status.
func (r *ApplicationRepository) Cancel(ctx context.Context, params TerminateParams) error {
	query := r.db.Rebind(`UPDATE applications SET is_cancelled = TRUE, cancelled_by = ?, cancel_reason = ?, cancelled_at = ?, updated_at = ?
	WHERE id = ? AND current_status_id = ? AND ` + activeApplication)
	result, err := r.db.ExecContext(ctx, query, params.Actor, params.Reason, params.At, params.At, params.ID, params.ExpectedStatus)
	if err != nil {
		return fmt.Errorf("cancel application: %w", err)
	}
	return expectAffected(result, "application cancel")
}

// Reject marks the application rejected if it is still active and in the expected status.
func (r *ApplicationRepository) Reject(ctx context.Context, params TerminateParams) error {
	query := r.db.Rebind(`UPDATE applications SET is_rejected = TRUE, rejected_by = ?, reject_reason = ?, rejected_at = ?, updated_at = ?
	WHERE id = ? AND current_status_id = ? AND ` + activeApplication)
	result, err := r.db.ExecContext(ctx, query, params.Actor, params.Reason, params.At, params.At, params.ID, params.ExpectedStatus)
	if err != nil {
		return fmt.Errorf("reject application: %w", err)
	}
	return expectAffected(result, "application reject")
}

// UpsertMilestone writes the single record for (application, key). completed never
// reverts once stored, whatever the incoming record says.
func (r *ApplicationRepository) UpsertMilestone(ctx context.Context, record models.MilestoneRecord) error {
	query := r.db.Rebind(`INSERT INTO milestone_records (application_id, milestone_key, type, data, completed, completed_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (application_id, milestone_key) DO UPDATE SET
		type = excluded.type,
		data = excluded.data,
		completed = milestone_records.completed OR excluded.completed,
		completed_at = COALESCE(excluded.completed_at, milestone_records.completed_at),
		updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query,
		record.ApplicationID, record.Key, string(record.Type), string(record.Data),
		record.Completed, record.CompletedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert milestone record %s: %w", record.Key, err)
	}
	return nil
}

func expectAffected(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", what, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
