package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkamdem/assoflow-api/internal/middleware"
	"github.com/mkamdem/assoflow-api/internal/models"
	"github.com/mkamdem/assoflow-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Members      *MemberHandler
	Courses      *CourseHandler
	Enrollments  *EnrollmentHandler
	Attendance   *AttendanceHandler
	Registration *RegistrationHandler
	Expenses     *ExpenseHandler
	Finance      *FinanceHandler
}

// RegisterRoutes wires the API surface onto the router group. Mutating
// course, expense and payment endpoints are admin-only; members read
// their own records through SELF access.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, auth *service.AuthService, metrics *service.MetricsService) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), "SELF")
	authenticated := middleware.JWT(auth)

	api.POST("/auth/login", h.Auth.Login)
	api.GET("/auth/me", authenticated, h.Auth.Me)

	members := api.Group("/members", authenticated)
	{
		members.GET("", admin, h.Members.List)
		members.POST("", admin, h.Members.Create)
		members.GET("/:memberId", adminOrSelf, h.Members.Get)
	}

	courses := api.Group("/courses", authenticated)
	{
		courses.GET("", h.Courses.List)
		courses.GET("/:id", h.Courses.Get)
		courses.POST("", admin, h.Courses.Create)
		courses.PUT("/:id", admin, h.Courses.Update)
		courses.PATCH("/:id/status", admin, h.Courses.UpdateStatus)
		courses.DELETE("/:id", admin, h.Courses.Delete)

		courses.GET("/:id/enrollments/:memberId", adminOrSelf, h.Enrollments.Get)
		courses.DELETE("/:id/enrollments/:memberId", adminOrSelf, h.Enrollments.Cancel)
		courses.POST("/:id/enrollments/:memberId/payment", admin, h.Enrollments.RecordPayment)
		courses.DELETE("/:id/enrollments/:memberId/payment", admin, h.Enrollments.RevertPayment)
		courses.POST("/:id/enrollments/:memberId/exempt", admin, h.Enrollments.Exempt)

		courses.PUT("/:id/attendance/:memberId", admin, h.Attendance.Set)
		courses.POST("/:id/attendance", admin, h.Attendance.BulkSet)
	}

	enrollments := api.Group("/enrollments", authenticated)
	{
		enrollments.GET("", h.Enrollments.List)
		enrollments.POST("", h.Enrollments.Enroll)
	}

	registrations := api.Group("/registrations", authenticated)
	{
		registrations.GET("", h.Registration.List)
		registrations.POST("", admin, h.Registration.Create)
		registrations.POST("/:id/payment", admin, h.Registration.RecordPayment)
		registrations.DELETE("/:id/payment", admin, h.Registration.RevertPayment)
		registrations.POST("/:id/exempt", admin, h.Registration.Exempt)
	}

	expenses := api.Group("/expenses", authenticated, admin)
	{
		expenses.GET("", h.Expenses.List)
		expenses.GET("/:id", h.Expenses.Get)
		expenses.POST("", h.Expenses.Create)
		expenses.POST("/:id/pay", h.Expenses.MarkPaid)
		expenses.POST("/:id/cancel", h.Expenses.Cancel)
	}

	finance := api.Group("/finance", authenticated)
	{
		finance.GET("/summary", admin, h.Finance.Summary)
		finance.GET("/monthly", admin, h.Finance.Monthly)
		finance.GET("/members/:memberId", adminOrSelf, h.Finance.MemberLedger)
		finance.GET("/report", admin, h.Finance.Report)
	}

	api.GET("/metrics", gin.WrapH(metrics.Handler()))

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
