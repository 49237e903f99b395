package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agent-portal-api/internal/middleware"
	"github.com/noah-isme/agent-portal-api/internal/models"
	"github.com/noah-isme/agent-portal-api/pkg/response"
)

type processService interface {
	Get(ctx context.Context, id string) (*models.Process, bool, error)
	Invalidate(ctx context.Context, id string) error
}

// ProcessHandler exposes process definitions.
type ProcessHandler struct {
	processes processService
}

// NewProcessHandler constructs ProcessHandler.
func NewProcessHandler(processes processService) *ProcessHandler {
	return &ProcessHandler{processes: processes}
}

// Get godoc
// @Summary Get process definition
// @Description Returns the stages, statuses and milestone requirements of a process.
// @Tags Processes
// @Produce json
// @Param id path string true "Process ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /processes/{id} [get]
func (h *ProcessHandler) Get(c *gin.Context) {
	process, hit, err := h.processes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, process, middleware.ExtractMeta(c))
}

// InvalidateCache godoc
// @Summary Drop cached process definition
// @Tags Processes
// @Param id path string true "Process ID"
// @Success 204
// @Router /processes/{id}/cache [delete]
func (h *ProcessHandler) InvalidateCache(c *gin.Context) {
	if err := h.processes.Invalidate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
