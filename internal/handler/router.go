package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/middleware"
	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/service"
)

// RouterDeps bundles everything RegisterRoutes needs to wire the API.
type RouterDeps struct {
	Auth          *AuthHandler
	Requests      *RequestHandler
	Students      *StudentHandler
	Programs      *ProgramHandler
	Courses       *CourseHandler
	Enrollments   *EnrollmentHandler
	Grades        *GradeHandler
	Notifications *NotificationHandler
	Documents     *DocumentHandler
	Dashboard     *DashboardHandler
	Reports       *ReportHandler

	AuthService      *service.AuthService
	StudentService   *service.StudentService
	DashboardService *service.DashboardService
	Metrics          *service.MetricsService
	Logger           *zap.Logger
	EnableDocs       bool
	ReadyCheck       func() error
}

// RegisterRoutes mounts the full API surface under /api/v1 plus the
// operational endpoints at the root.
func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if deps.ReadyCheck != nil {
			if err := deps.ReadyCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	invalidate := middleware.InvalidateDashboard(deps.DashboardService)

	// Public surface: authentication, prospective student applications and
	// signed report downloads.
	v1.POST("/auth/login", deps.Auth.Login)
	v1.POST("/auth/refresh", deps.Auth.Refresh)
	v1.POST("/requests", invalidate, deps.Requests.Create)
	v1.GET("/reports/download", deps.Reports.Download)

	authed := v1.Group("")
	authed.Use(middleware.JWT(deps.AuthService))
	authed.POST("/auth/logout", deps.Auth.Logout)
	authed.POST("/auth/change-password", deps.Auth.ChangePassword)
	authed.GET("/me/notifications", deps.Notifications.List)
	authed.POST("/me/notifications/:id/read", deps.Notifications.MarkRead)

	resolve := middleware.ResolveStudent(deps.StudentService, deps.AuthService, deps.Logger)

	// Student surface. ResolveStudent attaches the student profile and
	// rejects STUDENT accounts without one.
	student := authed.Group("")
	student.Use(middleware.RequireRoles(models.RoleStudent), resolve, invalidate)
	student.GET("/me/profile", deps.Dashboard.Profile)
	student.GET("/me/dashboard", deps.Dashboard.StudentHome)
	student.POST("/programs/:id/register", deps.Programs.Register)
	student.GET("/me/courses/available", deps.Courses.ListAvailable)
	student.POST("/enrollments", deps.Enrollments.Enroll)
	student.GET("/me/timetable", deps.Enrollments.Timetable)
	student.GET("/me/grades", deps.Grades.ListOwn)
	student.POST("/me/reports", deps.Reports.Request)
	student.GET("/me/reports", deps.Reports.List)
	student.GET("/me/reports/:id", deps.Reports.Status)
	student.GET("/me/reports/:id/download-link", deps.Reports.DownloadLink)

	// Staff surface.
	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleStaff), invalidate)
	staff.GET("/requests", deps.Requests.List)
	staff.POST("/requests/:id/decision", deps.Requests.Decide)
	staff.POST("/students", deps.Students.Create)
	staff.GET("/students", deps.Students.List)
	staff.GET("/students/:id", deps.Students.Get)
	staff.POST("/students/:id/reset-password", deps.Students.ResetPassword)
	staff.POST("/programs", deps.Programs.Create)
	staff.POST("/courses", deps.Courses.Create)
	staff.PUT("/courses/:id", deps.Courses.Update)
	staff.DELETE("/courses/:id", deps.Courses.Delete)
	staff.POST("/courses/:id/documents", deps.Documents.Upload)
	staff.DELETE("/documents/:id", deps.Documents.Delete)
	staff.POST("/grades", deps.Grades.Record)
	staff.PUT("/grades/:id", deps.Grades.Amend)
	staff.GET("/grades", deps.Grades.ListByStudent)
	staff.GET("/courses/:id/grades", deps.Grades.ListByCourse)
	staff.GET("/dashboard", deps.Dashboard.AdminStats)

	// Read endpoints shared by both roles. Document access still resolves
	// the student profile so enrollment scoping applies to students.
	shared := authed.Group("")
	shared.Use(resolve)
	shared.GET("/courses/:id/documents", deps.Documents.ListForCourse)
	shared.GET("/documents/:id/download", deps.Documents.Download)

	authed.GET("/programs", deps.Programs.List)
	authed.GET("/programs/:id", deps.Programs.Get)
	authed.GET("/courses", deps.Courses.List)
	authed.GET("/courses/:id", deps.Courses.Get)
}
