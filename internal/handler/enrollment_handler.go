package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agent-portal-api/internal/dto"
	"github.com/noah-isme/agent-portal-api/internal/middleware"
	"github.com/noah-isme/agent-portal-api/internal/models"
	"github.com/noah-isme/agent-portal-api/pkg/response"
)

type enrollmentService interface {
	Quote(req dto.BookingRequest) (*models.BookingQuote, error)
	Book(ctx context.Context, applicationID string, req dto.BookingRequest, actor *models.JWTClaims) (*dto.EnrollmentResponse, error)
	Get(ctx context.Context, applicationID string) (*dto.EnrollmentResponse, error)
}

// EnrollmentHandler exposes enrollment booking endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Quote godoc
// @Summary Validate booking figures
// @Description Computes fee payable, total paid and remaining fee without booking anything.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.BookingRequest true "Booking figures"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments/quote [post]
func (h *EnrollmentHandler) Quote(c *gin.Context) {
	var req dto.BookingRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.enrollments.Quote(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

// Book godoc
// @Summary Book enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.BookingRequest true "Booking figures"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /applications/{id}/enrollment [post]
func (h *EnrollmentHandler) Book(c *gin.Context) {
	var req dto.BookingRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.enrollments.Book(c.Request.Context(), c.Param("id"), req, middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Get godoc
// @Summary Get booked enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id}/enrollment [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	resp, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
