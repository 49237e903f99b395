package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	user := "agent-1"
	resourceID := "app-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), &user, models.AuditActionCancel, "application", &resourceID, nil, `{"reason":"withdrawn"}`, "127.0.0.1", "test", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	log := &models.AuditLog{
		UserID:     &user,
		Action:     models.AuditActionCancel,
		Resource:   "application",
		ResourceID: &resourceID,
		NewValues:  []byte(`{"reason":"withdrawn"}`),
		IPAddress:  "127.0.0.1",
		UserAgent:  "test",
	}
	require.NoError(t, NewAuditRepository(db).CreateAuditLog(context.Background(), log))
	require.NotEmpty(t, log.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListByResource(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("log-1", "agent-1", models.AuditActionStatusChange, "application", "app-1", `{"status":"new"}`, `{"status":"docs-pending"}`, "", "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE resource = ? AND resource_id = ?")).
		WithArgs("application", "app-1", 50).
		WillReturnRows(rows)

	logs, err := NewAuditRepository(db).ListByResource(context.Background(), "application", "app-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.JSONEq(t, `{"status":"docs-pending"}`, string(logs[0].NewValues))
	require.NoError(t, mock.ExpectationsWereMet())
}
