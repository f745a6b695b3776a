package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/handler"
	"github.com/noah-isme/swimcoach/internal/middleware"
)

const (
	roleInstructor = "instructor"
	roleStudent    = "student"
	roleAdmin      = "admin"

	downloadRoute = "/reports/download"
)

type routeHandlers struct {
	requests       *handler.CourseRequestHandler
	enrollments    *handler.EnrollmentHandler
	ledger         *handler.LedgerHandler
	reconciliation *handler.ReconciliationHandler
	reports        *handler.ReportHandler
	dashboard      *handler.DashboardHandler
	search         *handler.SearchHandler
	metrics        *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, prefix string, h routeHandlers, logger *zap.Logger) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET(prefix+downloadRoute, h.reports.Download)

	api := r.Group(prefix, middleware.Bearer(nil))
	instructor := middleware.RequireRoles(roleInstructor, roleAdmin)
	student := middleware.RequireRoles(roleStudent, roleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logger, action, resource)
	}

	requests := api.Group("/course-requests")
	requests.GET("/pending", instructor, h.requests.Pending)
	requests.GET("/mine", student, h.requests.Mine)
	requests.GET("/:id", h.requests.Get)
	requests.POST("", student, audit("submit", "course_request"), h.requests.Submit)
	requests.PUT("/:id/approve", instructor, audit("approve", "course_request"), h.requests.Approve)
	requests.PUT("/:id/reject", instructor, audit("reject", "course_request"), h.requests.Reject)
	requests.PUT("/:id/cancel", student, audit("cancel", "course_request"), h.requests.Cancel)

	enrollments := api.Group("/enrollments")
	enrollments.GET("/instructor", instructor, h.enrollments.Instructor)
	enrollments.GET("/mine", student, h.enrollments.Mine)
	enrollments.GET("/:id", h.enrollments.Get)
	enrollments.PATCH("/:id/status", instructor, audit("update_status", "enrollment"), h.enrollments.PatchStatus)
	enrollments.PATCH("/:id/attendance", instructor, audit("record_sessions", "enrollment"), h.enrollments.RecordAttendance)
	enrollments.GET("/:id/completion", h.enrollments.Completion)

	enrollments.GET("/:id/attendances", h.ledger.ListAttendance)
	enrollments.POST("/:id/attendances", instructor, audit("create", "attendance"), h.ledger.CreateAttendance)
	enrollments.PUT("/:id/attendances/:attendanceId", instructor, audit("update", "attendance"), h.ledger.UpdateAttendance)
	enrollments.DELETE("/:id/attendances/:attendanceId", instructor, audit("delete", "attendance"), h.ledger.DeleteAttendance)
	enrollments.GET("/:id/session-progress", h.ledger.ListSessionProgress)
	enrollments.POST("/:id/session-progress", instructor, audit("create", "session_progress"), h.ledger.CreateSessionProgress)
	enrollments.GET("/:id/timeline", h.ledger.Timeline)
	enrollments.GET("/:id/milestones", h.ledger.Milestones)
	enrollments.GET("/:id/skills", h.ledger.Skills)

	enrollments.POST("/:id/reconcile", instructor, h.reconciliation.Reconcile)
	enrollments.GET("/:id/reconciliation", instructor, h.reconciliation.Latest)
	enrollments.GET("/:id/report", h.reports.Progress)
	enrollments.POST("/:id/report/share", audit("share", "report"), h.reports.Share)

	progress := api.Group("/session-progress", instructor)
	progress.PUT("/:progressId", audit("update", "session_progress"), h.ledger.UpdateSessionProgress)
	progress.DELETE("/:progressId", audit("delete", "session_progress"), h.ledger.DeleteSessionProgress)

	dashboard := api.Group("/dashboard")
	dashboard.GET("/student", student, h.dashboard.Student)
	dashboard.GET("/instructor", instructor, h.dashboard.Instructor)

	search := api.Group("/search")
	search.GET("/instructors", h.search.Instructors)
	search.GET("/courses", h.search.Courses)
}
