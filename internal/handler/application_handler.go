package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/models"
	"github.com/noah-isme/agent-portal-api/internal/service"
	"github.com/noah-isme/agent-portal-api/pkg/response"
)

type applicationService interface {
	Get(ctx context.Context, id string) (*dto.ApplicationResponse, error)
	History(ctx context.Context, id string, limit int) ([]models.AuditLog, error)
}

type journeyService interface {
	Journey(ctx context.Context, applicationID string) (*dto.JourneyResponse, error)
}

type exportService interface {
	Export(ctx context.Context, applicationID, format string) (*service.ExportResult, error)
}

// ApplicationHandler exposes read views of an application.
type ApplicationHandler struct {
	applications applicationService
	journeys     journeyService
	exports      exportService
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(applications applicationService, journeys journeyService, exports exportService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, journeys: journeys, exports: exports}
}

// Get godoc
// @Summary Get application
// @Description Application snapshot with completion flags, milestone records and the booked enrollment.
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// History godoc
// @Summary Application audit history
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/history [get]
func (h *ApplicationHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	logs, err := h.applications.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Journey godoc
// @Summary Application journey
// @Description Stage trail with done/current/upcoming states; terminated applications end with a synthetic entry.
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/journey [get]
func (h *ApplicationHandler) Journey(c *gin.Context) {
	journey, err := h.journeys.Journey(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journey, nil)
}

// ExportJourney godoc
// @Summary Export application journey
// @Tags Applications
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Application ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /applications/{id}/journey/export [get]
func (h *ApplicationHandler) ExportJourney(c *gin.Context) {
	result, err := h.exports.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
