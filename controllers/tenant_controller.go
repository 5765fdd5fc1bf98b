package controller

import (
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/middleware"
	"shopfloor/models"
	"shopfloor/utils"
)

type TenantController struct {
	DB        *gorm.DB
	Resolver  *utils.TenantResolver
	Lifecycle *utils.LifecycleService
	Features  *utils.FeatureService
	Quota     *utils.QuotaValidator
	Logger    *logrus.Logger
}

func NewTenantController(db *gorm.DB, resolver *utils.TenantResolver, lifecycle *utils.LifecycleService,
	features *utils.FeatureService, quota *utils.QuotaValidator, logger *logrus.Logger) *TenantController {
	return &TenantController{
		DB:        db,
		Resolver:  resolver,
		Lifecycle: lifecycle,
		Features:  features,
		Quota:     quota,
		Logger:    logger,
	}
}

type ProvisionRequest struct {
	Slug          string `json:"slug" validate:"required,min=3,max=60"`
	Name          string `json:"name" validate:"required,max=120"`
	Plan          string `json:"plan" validate:"omitempty,oneof=FREE STARTER PROFESSIONAL ENTERPRISE"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminName     string `json:"admin_name" validate:"omitempty,max=120"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`
}

// Provision creates a tenant, its first admin user and the membership link in
// one transaction. Plans with a trial length start in TRIAL with the window
// set; plan limits come from the plan definition.
func (tc *TenantController) Provision(c *fiber.Ctx) error {
	var req ProvisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := checkmail.ValidateFormat(req.AdminEmail); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "admin_email is not a valid address"})
	}
	if req.Plan == "" {
		req.Plan = models.PlanStarter
	}

	var def models.PlanDefinition
	if err := tc.DB.Where("plan_code = ?", req.Plan).First(&def).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown plan"})
	}

	tenant := models.Tenant{
		Slug:        req.Slug,
		Name:        req.Name,
		Plan:        def.TenantPlan,
		MaxUsers:    def.MaxUsers,
		MaxMachines: def.MaxMachines,
		IsActive:    true,
	}
	if def.TrialDays > 0 {
		tenant.Status = models.TenantStatusTrial
		tenant.TrialEndsAt = utils.Pointer(time.Now().AddDate(0, 0, def.TrialDays))
	} else {
		tenant.Status = models.TenantStatusActive
	}

	admin := models.User{
		Email:    req.AdminEmail,
		Name:     req.AdminName,
		IsActive: true,
	}
	if err := admin.SetPassword(req.AdminPassword); err != nil {
		return utils.NewInternal("failed to hash password").Respond(c)
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		return tx.Create(&models.TenantUser{
			TenantID:      tenant.ID,
			UserID:        admin.ID,
			IsTenantAdmin: true,
		}).Error
	})
	if err != nil {
		tc.Logger.WithError(err).Error("tenant provisioning failed")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "could not provision tenant; slug or email may already be taken"})
	}

	tc.Logger.WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"slug":      tenant.Slug,
		"plan":      tenant.Plan,
	}).Info("tenant provisioned")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"tenant": tenant,
		"admin":  admin,
	}))
}

// GetTenant returns the caller's resolved tenant.
func (tc *TenantController) GetTenant(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}
	return c.JSON(utils.SuccessResponse(tenant))
}

type UpdateTenantRequest struct {
	Name     string                 `json:"name" validate:"omitempty,max=120"`
	Settings *models.TenantSettings `json:"settings"`
}

// UpdateTenant edits the tenant profile and settings. Feature override keys
// are validated against the feature registry, and the tenant cache entry is
// invalidated so the next resolution sees the update.
func (tc *TenantController) UpdateTenant(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var req UpdateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.Settings != nil {
		if err := tc.Features.ValidateOverrideKeys(req.Settings.FeatureOverrides); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		tenant.Settings = *req.Settings
	}

	if err := tc.DB.Save(tenant).Error; err != nil {
		return utils.NewInternal("failed to update tenant").Respond(c)
	}
	tc.Resolver.Invalidate(tenant.ID)
	return c.JSON(utils.SuccessResponse(tenant))
}

type UpdateOverridesRequest struct {
	FeatureOverrides map[string]bool `json:"feature_overrides" validate:"required"`
}

// UpdateFeatureOverrides replaces the tenant's per-feature overrides. Lives
// on a compliance-exempt path so feature administration can never be locked
// out by policy.
func (tc *TenantController) UpdateFeatureOverrides(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var req UpdateOverridesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := tc.Features.ValidateOverrideKeys(req.FeatureOverrides); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tenant.Settings.FeatureOverrides = req.FeatureOverrides
	if err := tc.DB.Save(tenant).Error; err != nil {
		return utils.NewInternal("failed to update overrides").Respond(c)
	}
	tc.Resolver.Invalidate(tenant.ID)
	return c.JSON(utils.SuccessResponse(tenant.Settings))
}

// GetUsage reports current/limit for every quota resource, for "X of Y used"
// UIs.
func (tc *TenantController) GetUsage(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	usage := fiber.Map{}
	for _, resource := range []string{models.QuotaResourceUsers, models.QuotaResourceMachines} {
		result, err := tc.Quota.Check(tenant, resource)
		if err != nil {
			return utils.NewInternal("failed to compute usage").Respond(c)
		}
		usage[resource] = result
	}
	return c.JSON(utils.SuccessResponse(usage))
}

type UpdateMemberRequest struct {
	IsTenantAdmin bool `json:"is_tenant_admin"`
}

// UpdateMemberRole flips a member's admin flag. Lives on the compliance-
// exempt permissions path.
func (tc *TenantController) UpdateMemberRole(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	userID, err := c.ParamsInt("userID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	var req UpdateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var membership models.TenantUser
	if err := tc.DB.Where("tenant_id = ? AND user_id = ?", tenant.ID, userID).First(&membership).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "member not found"})
	}

	membership.IsTenantAdmin = req.IsTenantAdmin
	if err := tc.DB.Save(&membership).Error; err != nil {
		return utils.NewInternal("failed to update member").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(membership))
}
