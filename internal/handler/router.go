package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agent-portal-api/internal/middleware"
	"github.com/noah-isme/agent-portal-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Processes    *ProcessHandler
	Applications *ApplicationHandler
	Lifecycle    *LifecycleHandler
	Enrollments  *EnrollmentHandler
}

// RegisterRoutes mounts the portal API on group. auth authenticates every route.
func RegisterRoutes(group *gin.RouterGroup, auth gin.HandlerFunc, h Handlers) {
	anyRole := middleware.RequireRoles(models.PortalRoles...)
	admins := middleware.RequireRoles(models.RoleAgentAdmin, models.RoleSuperAdmin)
	superadmin := middleware.RequireRoles(models.RoleSuperAdmin)

	api := group.Group("")
	api.Use(auth, middleware.WithResponseMeta())

	processes := api.Group("/processes")
	processes.GET("/:id", anyRole, h.Processes.Get)
	processes.DELETE("/:id/cache", superadmin, h.Processes.InvalidateCache)

	apps := api.Group("/applications/:id")
	apps.GET("", anyRole, h.Applications.Get)
	apps.GET("/history", anyRole, h.Applications.History)
	apps.GET("/journey", anyRole, h.Applications.Journey)
	apps.GET("/journey/export", anyRole, h.Applications.ExportJourney)
	apps.GET("/statuses/:statusId/milestones", anyRole, h.Lifecycle.Checklist)
	apps.POST("/transitions", anyRole, h.Lifecycle.Transition)
	apps.POST("/cancel", anyRole, h.Lifecycle.Cancel)
	apps.POST("/reject", admins, h.Lifecycle.Reject)
	apps.PUT("/milestones/:key/files", anyRole, h.Lifecycle.RecordFiles)
	apps.PUT("/milestones/:key/form", anyRole, h.Lifecycle.RecordForm)
	apps.POST("/enrollment", anyRole, h.Enrollments.Book)
	apps.GET("/enrollment", anyRole, h.Enrollments.Get)

	api.POST("/enrollments/quote", anyRole, h.Enrollments.Quote)
}
