package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/rollcall-api/internal/middleware"
)

// RouterConfig bundles the handlers and cross-cutting options mounted by Register.
type RouterConfig struct {
	APIPrefix  string
	Students   *StudentHandler
	Attendance *AttendanceHandler
	Metrics    *MetricsHandler
	// Auth, when set, guards the API group. Reader tokens may only use safe methods.
	Auth gin.HandlerFunc
	Docs bool
}

// Register mounts every route on r.
func Register(r *gin.Engine, cfg RouterConfig) {
	r.GET("/health", cfg.Metrics.Health)
	r.GET("/ready", cfg.Metrics.Ready)
	r.GET("/metrics", cfg.Metrics.Prometheus)
	if cfg.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix, middleware.WithResponseMeta())
	if cfg.Auth != nil {
		api.Use(cfg.Auth, middleware.RequireWrite())
	}

	students := api.Group("/students")
	students.GET("", cfg.Students.List)
	students.POST("", cfg.Students.Create)
	students.GET("/:id", cfg.Students.Get)
	students.PUT("/:id", cfg.Students.Update)
	students.DELETE("/:id", cfg.Students.Delete)
	students.GET("/:id/attendance", cfg.Attendance.History)

	attendance := api.Group("/attendance")
	attendance.GET("", cfg.Attendance.List)
	attendance.POST("", cfg.Attendance.Insert)
	attendance.POST("/mark", cfg.Attendance.Mark)
	attendance.GET("/summary", cfg.Attendance.Summary)
	attendance.GET("/export", cfg.Attendance.Export)
	attendance.PATCH("/:id", cfg.Attendance.UpdateStatus)
}
