package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assignments-api/internal/middleware"
	"github.com/noah-isme/sma-assignments-api/internal/models"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth        *AuthHandler
	Assignments *AssignmentHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts operational endpoints at the root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens middleware.TokenValidator, logger *zap.Logger) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/auth/me", h.Auth.Me)

	manage := middleware.RequireCapability(models.CapManageAssignments)
	grade := middleware.RequireCapability(models.CapGradeSubmissions)
	submit := middleware.RequireCapability(models.CapSubmitWork)

	assignments := secured.Group("/assignments")
	assignments.GET("", h.Assignments.List)
	assignments.GET("/:id", h.Assignments.Get)
	assignments.POST("", manage, middleware.Audit(logger, "assignment.create"), h.Assignments.Create)
	assignments.PUT("/:id", manage, middleware.Audit(logger, "assignment.update"), h.Assignments.Update)
	assignments.DELETE("/:id", manage, middleware.Audit(logger, "assignment.delete"), h.Assignments.Delete)
	assignments.POST("/:id/submit", submit, middleware.Audit(logger, "submission.submit"), h.Assignments.Submit)
	assignments.GET("/:id/download", h.Assignments.DownloadDocument)
	assignments.GET("/:id/submission/download", h.Assignments.DownloadSubmission)
	assignments.POST("/:id/grade", grade, middleware.Audit(logger, "submission.grade"), h.Assignments.Grade)
	assignments.GET("/:id/report", grade, h.Assignments.Report)
}
