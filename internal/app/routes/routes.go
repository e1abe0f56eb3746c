package routes

import (
	"net/http"

	"github.com/carebridge/carebridge/internal/app/controllers"
	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Controllers groups the HTTP handlers mounted under /api/v1
type Controllers struct {
	Auth         *controllers.AuthController
	Appointment  *controllers.AppointmentController
	Risk         *controllers.RiskController
	Wallet       *controllers.WalletController
	Eligibility  *controllers.EligibilityController
	Accumulation *controllers.AccumulationController
	Edi          *controllers.EdiController
}

// HealthCheck reports on a dependency for /api/v1/health
type HealthCheck func(c *gin.Context) error

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctrl Controllers, authMiddleware *middleware.AuthMiddleware, checks map[string]HealthCheck) {
	v1 := router.Group("/api/v1")

	v1.GET("/health", healthHandler(checks))

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", ctrl.Auth.Register)
		auth.POST("/login", ctrl.Auth.Login)
		auth.POST("/refresh", ctrl.Auth.RefreshToken)
		auth.POST("/logout", ctrl.Auth.Logout)
	}

	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/auth/profile", ctrl.Auth.Profile)

	opsOnly := authMiddleware.RoleRequired(models.RoleOps)
	practitionerOrOps := authMiddleware.RoleRequired(models.RolePractitioner, models.RoleOps)

	// Appointments
	authenticated.GET("/products", ctrl.Appointment.ListProducts)
	authenticated.POST("/products", authMiddleware.RoleRequired(models.RolePractitioner), ctrl.Appointment.CreateProduct)
	authenticated.POST("/practitioners/availability", authMiddleware.RoleRequired(models.RolePractitioner), ctrl.Appointment.AddAvailability)

	appointments := authenticated.Group("/appointments")
	{
		appointments.GET("", ctrl.Appointment.List)
		appointments.POST("", authMiddleware.RoleRequired(models.RoleMember), ctrl.Appointment.Book)
		appointments.POST("/:id/cancel", ctrl.Appointment.Cancel)
		appointments.POST("/:id/complete", practitionerOrOps, ctrl.Appointment.Complete)
		appointments.POST("/:id/no-show", practitionerOrOps, ctrl.Appointment.MarkNoShow)
	}

	// Member-scoped resources; controllers check the caller may act on :id
	members := authenticated.Group("/members/:id")
	{
		members.GET("/risks", ctrl.Risk.ActiveRisks)
		members.GET("/risks/history", ctrl.Risk.RiskHistory)
		members.PUT("/risks/:flag", opsOnly, ctrl.Risk.SetRisk)
		members.DELETE("/risks/:flag", opsOnly, ctrl.Risk.ClearRisk)
		members.POST("/bmi", ctrl.Risk.EvaluateBMI)

		members.GET("/eligibility", ctrl.Eligibility.GetEligibility)
		members.POST("/cost-breakdown", ctrl.Eligibility.CostBreakdown)
	}

	// Wallets
	wallets := authenticated.Group("/wallets")
	{
		wallets.POST("", opsOnly, ctrl.Wallet.Enroll)
		wallets.GET("/:id", ctrl.Wallet.GetWallet)
		wallets.GET("/:id/balance", ctrl.Wallet.Balance)
		wallets.POST("/:id/state", opsOnly, ctrl.Wallet.ChangeState)
		wallets.POST("/:id/categories", opsOnly, ctrl.Wallet.AddCategory)
		wallets.POST("/:id/reimbursements", ctrl.Wallet.SubmitReimbursement)
	}

	reimbursements := authenticated.Group("/reimbursements", opsOnly)
	{
		reimbursements.POST("/:id/approve", ctrl.Wallet.Approve)
		reimbursements.POST("/:id/deny", ctrl.Wallet.Deny)
	}

	// Eligibility administration
	authenticated.GET("/payers", ctrl.Eligibility.ListPayers)
	authenticated.POST("/health-plans", opsOnly, ctrl.Eligibility.CreateHealthPlan)

	// Accumulation (ops)
	treatments := authenticated.Group("/treatment-procedures", opsOnly)
	{
		treatments.POST("", ctrl.Accumulation.CreateTreatment)
		treatments.POST("/:id/accumulation", ctrl.Accumulation.QueueProcedure)
		treatments.POST("/:id/refund", ctrl.Accumulation.QueueRefund)
	}

	accumulation := authenticated.Group("/accumulation", opsOnly)
	{
		accumulation.POST("/reports", ctrl.Accumulation.GenerateReport)
		accumulation.POST("/reports/:id/submit", ctrl.Accumulation.SubmitReport)
		accumulation.POST("/reports/:id/regenerate", ctrl.Accumulation.RegenerateReport)
		accumulation.GET("/reports/:id/xlsx", ctrl.Accumulation.ExportReportXLSX)
		accumulation.POST("/responses/:payer", ctrl.Accumulation.ReconcileResponse)
	}

	// EDI (ops)
	edi := authenticated.Group("/edi", opsOnly)
	{
		edi.POST("/exports", ctrl.Edi.ExportDeposits)
		edi.POST("/imports", ctrl.Edi.ImportResults)
	}
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		report := gin.H{"status": "ok"}
		for name, check := range checks {
			if err := check(c); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		c.JSON(status, dto.NewSuccessResponse(report))
	}
}
