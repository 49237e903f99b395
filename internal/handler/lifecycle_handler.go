package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/middleware"
	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
	"github.com/noah-isme/agent-portal-api/pkg/response"
)

type transitionService interface {
	Evaluate(ctx context.Context, applicationID, statusID string) (*lifecycle.Evaluation, error)
	RequestTransition(ctx context.Context, applicationID string, req dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResponse, error)
	Cancel(ctx context.Context, applicationID string, req dto.TerminateRequest, actor *models.JWTClaims) (*models.Application, error)
	Reject(ctx context.Context, applicationID string, req dto.TerminateRequest, actor *models.JWTClaims) (*models.Application, error)
}

type milestoneService interface {
	RecordFile(ctx context.Context, applicationID, key string, req dto.FileMilestoneRequest, actor *models.JWTClaims) (*dto.MilestoneResponse, error)
	RecordForm(ctx context.Context, applicationID, key string, req dto.FormMilestoneRequest, actor *models.JWTClaims) (*dto.MilestoneResponse, error)
}

// LifecycleHandler exposes status transitions, terminations and milestone saves.
type LifecycleHandler struct {
	transitions transitionService
	milestones  milestoneService
}

// NewLifecycleHandler constructs LifecycleHandler.
func NewLifecycleHandler(transitions transitionService, milestones milestoneService) *LifecycleHandler {
	return &LifecycleHandler{transitions: transitions, milestones: milestones}
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// Checklist godoc
// @Summary Milestone checklist of a status
// @Tags Lifecycle
// @Produce json
// @Param id path string true "Application ID"
// @Param statusId path string true "Status ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id}/statuses/{statusId}/milestones [get]
func (h *LifecycleHandler) Checklist(c *gin.Context) {
	eval, err := h.transitions.Evaluate(c.Request.Context(), c.Param("id"), c.Param("statusId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eval, nil)
}

// Transition godoc
// @Summary Request a status transition
// @Description Returns outcome APPLIED, or BLOCKED with the required milestones still missing. BLOCKED is not an error.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/transitions [post]
func (h *LifecycleHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.transitions.RequestTransition(c.Request.Context(), c.Param("id"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Cancel godoc
// @Summary Cancel application
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.TerminateRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/cancel [post]
func (h *LifecycleHandler) Cancel(c *gin.Context) {
	var req dto.TerminateRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.transitions.Cancel(c.Request.Context(), c.Param("id"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Reject godoc
// @Summary Reject application
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.TerminateRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/reject [post]
func (h *LifecycleHandler) Reject(c *gin.Context) {
	var req dto.TerminateRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.transitions.Reject(c.Request.Context(), c.Param("id"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// RecordFiles godoc
// @Summary Save a file milestone
// @Description Merges file references into the milestone; save=true completes it.
// @Tags Milestones
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param key path string true "Milestone key"
// @Param payload body dto.FileMilestoneRequest true "Files"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/{id}/milestones/{key}/files [put]
func (h *LifecycleHandler) RecordFiles(c *gin.Context) {
	var req dto.FileMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.milestones.RecordFile(c.Request.Context(), c.Param("id"), c.Param("key"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// RecordForm godoc
// @Summary Save a form milestone
// @Tags Milestones
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param key path string true "Milestone key"
// @Param payload body dto.FormMilestoneRequest true "Form values"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/{id}/milestones/{key}/form [put]
func (h *LifecycleHandler) RecordForm(c *gin.Context) {
	var req dto.FormMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.milestones.RecordForm(c.Request.Context(), c.Param("id"), c.Param("key"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
