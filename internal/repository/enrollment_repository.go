package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

// ErrDuplicate signals a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

// EnrollmentRepository stores enrollment bookings.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Book inserts the enrollment. A second booking for the same application yields ErrDuplicate.
func (r *EnrollmentRepository) Book(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	const query = `INSERT INTO enrollments
	(id, application_id, tuition_fee, scholarship_amount, fee_payable, initial_deposit, enrollment_fee, total_paid, booked_by, booked_at)
	VALUES (:id, :application_id, :tuition_fee, :scholarship_amount, :fee_payable, :initial_deposit, :enrollment_fee, :total_paid, :booked_by, :booked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("book enrollment: %w", err)
	}
	return nil
}

// GetByApplication fetches the enrollment booked for an application.
func (r *EnrollmentRepository) GetByApplication(ctx context.Context, applicationID string) (*models.Enrollment, error) {
	query := r.db.Rebind(`SELECT id, application_id, tuition_fee, scholarship_amount, fee_payable, initial_deposit,
	enrollment_fee, total_paid, booked_by, booked_at FROM enrollments WHERE application_id = ?`)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, applicationID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
