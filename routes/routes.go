package routes

import (
	"time"

	"shopfloor/config"
	controller "shopfloor/controllers"
	"shopfloor/middleware"
	"shopfloor/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Services bundles the entitlement core instances wired in main. Every cache
// is owned by exactly one service and injected here, never a package global.
type Services struct {
	Resolver   *utils.TenantResolver
	Lifecycle  *utils.LifecycleService
	Features   *utils.FeatureService
	Quota      *utils.QuotaValidator
	Compliance *utils.ComplianceService
}

// NewServices builds the core with its three caches. An optional bus makes
// invalidations converge across instances.
func NewServices(db *gorm.DB, bus *utils.InvalidationBus) *Services {
	cfg := config.AppConfig

	tenantCache := utils.NewTTLCache("tenant", time.Duration(cfg.TenantCacheTTL)*time.Second)
	planCache := utils.NewTTLCache("plan-features", time.Duration(cfg.PlanCacheTTL)*time.Second)
	complianceCache := utils.NewTTLCache("compliance", time.Duration(cfg.ComplianceCacheTTL)*time.Second)
	if bus != nil {
		bus.Attach(tenantCache)
		bus.Attach(planCache)
		bus.Attach(complianceCache)
	}

	lifecycle := utils.NewLifecycleService(db, tenantCache)
	return &Services{
		Resolver:   utils.NewTenantResolver(db, tenantCache, lifecycle),
		Lifecycle:  lifecycle,
		Features:   utils.NewFeatureService(db, planCache),
		Quota:      utils.NewQuotaValidator(db),
		Compliance: utils.NewComplianceService(db, complianceCache),
	}
}

func SetupRoutes(app *fiber.App, db *gorm.DB, svc *Services, appLogger *logrus.Logger) {
	authController := controller.NewAuthController(db, appLogger)
	tenantController := controller.NewTenantController(db, svc.Resolver, svc.Lifecycle, svc.Features, svc.Quota, appLogger)
	adminController := controller.NewAdminController(db, svc.Resolver, svc.Lifecycle, appLogger)
	complianceController := controller.NewComplianceController(db, svc.Compliance, appLogger)
	planController := controller.NewPlanController(db, svc.Features, appLogger)
	machineController := controller.NewMachineController(db, svc.Quota, appLogger)

	// Public endpoints
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	auth.Post("/login", middleware.LoginRateLimiter(), authController.Login)
	auth.Get("/me", middleware.Protected(db, svc.Resolver), authController.GetCurrentUser)

	// Tenant provisioning (signup)
	app.Post("/tenants", tenantController.Provision)

	// Everything under /api/v1 runs the full entitlement chain: credential
	// parse and tenant resolution, then the read-only gate, then compliance.
	api := app.Group("/api/v1",
		middleware.Protected(db, svc.Resolver),
		middleware.ReadOnlyEnforcer(),
		middleware.ComplianceGate(svc.Compliance),
		logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))

	// Tenant self-service
	tenant := api.Group("/tenant")
	tenant.Get("/", tenantController.GetTenant)
	tenant.Put("/", middleware.TenantAdminOnly(), tenantController.UpdateTenant)
	tenant.Get("/usage", tenantController.GetUsage)

	// Compliance-exempt administrative paths: feature overrides, member
	// permissions, own preferences, compliance settings themselves.
	api.Put("/features/overrides", middleware.TenantAdminOnly(), tenantController.UpdateFeatureOverrides)
	api.Put("/permissions/members/:userID", middleware.TenantAdminOnly(), tenantController.UpdateMemberRole)
	api.Put("/preferences", authController.UpdatePreferences)
	api.Get("/compliance-settings", middleware.TenantAdminOnly(), complianceController.GetSettings)
	api.Put("/compliance-settings", middleware.TenantAdminOnly(), complianceController.UpdateSettings)

	// Plan definitions: readable by any tenant, editable by platform admins
	api.Get("/plans", planController.ListPlans)
	api.Put("/plans/:code", middleware.PlatformAdminOnly(), planController.UpdatePlan)

	// Platform admin surface
	admin := api.Group("/admin", middleware.PlatformAdminOnly())
	admin.Get("/tenants", adminController.ListTenants)
	admin.Get("/tenants/:id", adminController.GetTenant)
	admin.Post("/tenants/:id/suspend", adminController.Suspend)
	admin.Post("/tenants/:id/activate", adminController.Activate)
	admin.Post("/tenants/:id/cancel", adminController.Cancel)
	admin.Delete("/tenants/:id", adminController.HardDelete)
	admin.Put("/tenants/:id/plan", adminController.ChangePlan)
	admin.Put("/tenants/:id/limits", adminController.UpdateLimits)

	// Data routes, covered by the read-only and compliance gates
	machines := api.Group("/machines")
	machines.Post("/", machineController.CreateMachine)
	machines.Get("/", machineController.GetMachines)
	machines.Get("/export",
		middleware.RequirePlanFeature(svc.Features, "data_export"),
		middleware.RequireComplianceCapability(svc.Compliance, "export"),
		machineController.ExportMachines)
	machines.Put("/:id", machineController.UpdateMachine)
	machines.Delete("/:id", machineController.DeleteMachine)

	shifts := api.Group("/shifts", middleware.RequirePlanFeature(svc.Features, "shift_scheduling"))
	shifts.Post("/", machineController.CreateShift)
	shifts.Get("/", machineController.GetShifts)

	productionLogs := api.Group("/production-logs", middleware.RequirePlanFeature(svc.Features, "production_logs"))
	productionLogs.Post("/", machineController.CreateProductionLog)
	productionLogs.Get("/", machineController.GetProductionLogs)

	// Prometheus scrape endpoint
	app.Get("/metrics", middleware.MetricsHandler())

	appLogger.Info("routes initialized")
}
