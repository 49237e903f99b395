package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

var applicationRowColumns = []string{
	"id", "process_id", "applicant_name", "referral_channel", "current_status_id",
	"submitted_to_institute", "unconditional_received", "fee_paid", "sponsorship_letter_received", "visa_granted", "enrolled",
	"is_cancelled", "cancelled_by", "cancel_reason", "cancelled_at",
	"is_rejected", "rejected_by", "reject_reason", "rejected_at", "updated_at",
}

func TestApplicationRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, process_id, applicant_name")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).
			AddRow("app-1", "uk-ug", "Ayu", "AGENT", "docs-pending",
				true, true, false, false, false, false,
				false, nil, nil, nil,
				false, nil, nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM milestone_records WHERE application_id")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"application_id", "milestone_key", "type", "data", "completed", "completed_at", "updated_at"}).
			AddRow("app-1", "passport", "file", `{"files":[{"id":"f1"}]}`, true, now, now))

	app, err := NewApplicationRepository(db).GetByID(context.Background(), "app-1")
	require.NoError(t, err)
	require.Equal(t, "docs-pending", app.CurrentStatusID)
	require.True(t, app.SubmittedToInstitute)
	require.Len(t, app.Milestones, 1)
	require.True(t, app.Milestone("passport").Completed)
	require.JSONEq(t, `{"files":[{"id":"f1"}]}`, string(app.Milestones[0].Data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusGuarded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET current_status_id = ?, updated_at = ? WHERE id = ? AND NOT is_cancelled AND NOT is_rejected")).
		WithArgs("offer-pending", now, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "app-1", "offer-pending", now))

	mock.ExpectExec("UPDATE applications SET current_status_id").
		WithArgs("offer-pending", now, "app-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.UpdateStatus(context.Background(), "app-2", "offer-pending", now), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCancelAndReject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	now := time.Now()
	params := TerminateParams{ID: "app-1", ExpectedStatus: "new", Actor: "agent-1", Reason: "withdrawn", At: now}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET is_cancelled = TRUE")).
		WithArgs("agent-1", "withdrawn", now, now, "app-1", "new").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Cancel(context.Background(), params))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET is_rejected = TRUE")).
		WithArgs("agent-1", "withdrawn", now, now, "app-1", "new").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Reject(context.Background(), params), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpsertMilestoneIsMonotonic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	record := models.MilestoneRecord{
		ApplicationID: "app-1",
		Key:           "passport",
		Type:          models.MilestoneTypeFile,
		Data:          []byte(`{"files":[]}`),
		UpdatedAt:     now,
	}
	mock.ExpectExec(regexp.QuoteMeta("completed = milestone_records.completed OR excluded.completed")).
		WithArgs("app-1", "passport", "file", `{"files":[]}`, false, nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewApplicationRepository(db).UpsertMilestone(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpsertMilestoneFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO milestone_records").WillReturnError(sql.ErrConnDone)

	err := NewApplicationRepository(db).UpsertMilestone(context.Background(), models.MilestoneRecord{Key: "passport"})
	require.ErrorIs(t, err, sql.ErrConnDone)
}

func TestApplicationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).WillReturnResult(sqlmock.NewResult(0, 1))

	app := &models.Application{ID: "app-1", ProcessID: "uk-ug", ApplicantName: "Ayu", CurrentStatusID: "new"}
	require.NoError(t, NewApplicationRepository(db).Create(context.Background(), app))
	require.Equal(t, models.ReferralChannelAgent, app.ReferralChannel)
	require.NoError(t, mock.ExpectationsWereMet())
}
