package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "picking-control.com/picking-control/internal/http/middlewares"
	"picking-control.com/picking-control/internal/ws"
)

func Register(e *echo.Echo, h *Handler, socket *ws.Handler, rateLimitPerMinute int) {
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	e.GET("/health", h.Health)
	e.GET("/ws", socket.Serve)

	e.POST("/api/tasks/preview", h.PreviewTask)
	e.POST("/api/tasks", h.CreateTask)
	e.GET("/api/tasks", h.ListTasks)
	e.GET("/api/tasks/:id", h.GetTask)
	e.POST("/api/tasks/:id/start", h.StartTask)
	e.POST("/api/tasks/:id/pause", h.PauseTask)
	e.POST("/api/tasks/:id/resume", h.ResumeTask)
	e.PATCH("/api/tasks/:id/items/:sku", h.MarkItem)
	e.POST("/api/tasks/:id/complete", h.CompleteTask)
	e.POST("/api/tasks/:id/cancel", h.CancelTask)
	e.DELETE("/api/tasks/:id", h.DeleteTask)
	e.GET("/api/tasks/:id/export-excel", h.ExportTaskExcel)

	e.GET("/api/metrics", h.Metrics)
	e.GET("/api/export/csv", h.ExportCSV)
	e.GET("/api/download/:filename", h.Download)

	e.POST("/api/auth/admin", h.AdminLogin)
	e.GET("/api/admin/dashboard", h.AdminDashboard)
}
