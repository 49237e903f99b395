package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/models"
)

type enrollmentLookup interface {
	GetByApplication(ctx context.Context, applicationID string) (*models.Enrollment, error)
}

type auditHistory interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// ApplicationService serves application snapshots and their audit history.
type ApplicationService struct {
	apps        applicationReader
	enrollments enrollmentLookup
	history     auditHistory
}

// NewApplicationService constructs the service.
func NewApplicationService(apps applicationReader, enrollments enrollmentLookup, history auditHistory) *ApplicationService {
	return &ApplicationService{apps: apps, enrollments: enrollments, history: history}
}

// Get returns the application with its enrollment when one has been booked.
func (s *ApplicationService) Get(ctx context.Context, id string) (*dto.ApplicationResponse, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "application", "failed to load application")
	}
	resp := &dto.ApplicationResponse{Application: app}
	if s.enrollments == nil {
		return resp, nil
	}
	enrollment, err := s.enrollments.GetByApplication(ctx, id)
	switch {
	case err == nil:
		resp.Enrollment = enrollment
	case !errors.Is(err, sql.ErrNoRows):
		return nil, mapStoreError(err, "enrollment", "failed to load enrollment")
	}
	return resp, nil
}

// History lists the newest audit entries of an application.
func (s *ApplicationService) History(ctx context.Context, id string, limit int) ([]models.AuditLog, error) {
	if _, err := s.apps.GetByID(ctx, id); err != nil {
		return nil, mapStoreError(err, "application", "failed to load application")
	}
	logs, err := s.history.ListByResource(ctx, "application", id, limit)
	if err != nil {
		return nil, mapStoreError(err, "audit log", "failed to load application history")
	}
	return logs, nil
}
