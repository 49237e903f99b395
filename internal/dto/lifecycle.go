package dto

import (
	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
)

// TransitionRequest asks to move an application to another status.
type TransitionRequest struct {
	TargetStatusID string `json:"targetStatusId" validate:"required"`
}

// TransitionResponse carries an APPLIED or BLOCKED outcome. BLOCKED is a regular result,
// listing the required milestones still outstanding.
type TransitionResponse struct {
	Outcome         lifecycle.Outcome            `json:"outcome"`
	Status          models.Status                `json:"status"`
	MissingRequired []models.MilestoneDefinition `json:"missingRequired"`
	Application     *models.Application          `json:"application"`
}

// TerminateRequest carries the reason of a cancellation or rejection.
type TerminateRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// FileMilestoneRequest submits file references. Save completes the milestone.
type FileMilestoneRequest struct {
	Files []models.FileRef `json:"files" validate:"dive"`
	Save  bool             `json:"save"`
}

// FormMilestoneRequest submits the values produced by the form renderer.
type FormMilestoneRequest struct {
	Values map[string]interface{} `json:"values" validate:"required"`
}

// MilestoneResponse returns the stored record and the re-fetched application.
type MilestoneResponse struct {
	Record      models.MilestoneRecord `json:"record"`
	Application *models.Application    `json:"application"`
}

// JourneyResponse is the render-ready progress trail of an application.
type JourneyResponse struct {
	ApplicationID string                `json:"applicationId"`
	ProcessID     string                `json:"processId"`
	Stages        []lifecycle.StageView `json:"stages"`
}

// ApplicationResponse is an application snapshot with its enrollment when booked.
type ApplicationResponse struct {
	*models.Application
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
}
