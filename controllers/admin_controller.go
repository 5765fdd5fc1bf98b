package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/models"
	"shopfloor/utils"
)

// AdminController is the platform-admin surface: cross-tenant lifecycle
// transitions, plan changes and limit edits. Every mutation invalidates the
// tenant cache entry so other gates never work from stale rows.
type AdminController struct {
	DB        *gorm.DB
	Resolver  *utils.TenantResolver
	Lifecycle *utils.LifecycleService
	Logger    *logrus.Logger
}

func NewAdminController(db *gorm.DB, resolver *utils.TenantResolver, lifecycle *utils.LifecycleService,
	logger *logrus.Logger) *AdminController {
	return &AdminController{DB: db, Resolver: resolver, Lifecycle: lifecycle, Logger: logger}
}

func (ac *AdminController) ListTenants(c *fiber.Ctx) error {
	var tenants []models.Tenant
	if err := ac.DB.Order("id").Find(&tenants).Error; err != nil {
		return utils.NewInternal("failed to list tenants").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(tenants))
}

func (ac *AdminController) GetTenant(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}
	var tenant models.Tenant
	if err := ac.DB.First(&tenant, id).Error; err != nil {
		return utils.NewTenantNotFound().Respond(c)
	}
	return c.JSON(utils.SuccessResponse(tenant))
}

func (ac *AdminController) Suspend(c *fiber.Ctx) error {
	return ac.applyTransition(c, ac.Lifecycle.Suspend, "tenant suspended")
}

func (ac *AdminController) Activate(c *fiber.Ctx) error {
	return ac.applyTransition(c, ac.Lifecycle.Activate, "tenant activated")
}

func (ac *AdminController) Cancel(c *fiber.Ctx) error {
	return ac.applyTransition(c, ac.Lifecycle.Cancel, "tenant cancelled")
}

func (ac *AdminController) HardDelete(c *fiber.Ctx) error {
	return ac.applyTransition(c, ac.Lifecycle.HardDelete, "tenant hard-deleted")
}

func (ac *AdminController) applyTransition(c *fiber.Ctx, transition func(uint) error, logMsg string) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}

	if err := transition(uint(id)); err != nil {
		if errors.Is(err, utils.ErrTenantCancelled) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewTenantNotFound().Respond(c)
		}
		return utils.NewInternal("tenant transition failed").Respond(c)
	}

	ac.Logger.WithField("tenant_id", id).Info(logMsg)
	return c.JSON(utils.SuccessResponse(fiber.Map{"tenant_id": id}))
}

type ChangePlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=FREE STARTER PROFESSIONAL ENTERPRISE"`
}

// ChangePlan applies an explicit plan purchase, the TRIAL→ACTIVE transition
// included.
func (ac *AdminController) ChangePlan(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}

	var req ChangePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := ac.Lifecycle.PurchasePlan(uint(id), req.Plan); err != nil {
		if errors.Is(err, utils.ErrTenantCancelled) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ac.Logger.WithFields(logrus.Fields{"tenant_id": id, "plan": req.Plan}).Info("tenant plan changed")
	return c.JSON(utils.SuccessResponse(fiber.Map{"tenant_id": id, "plan": req.Plan}))
}

type UpdateLimitsRequest struct {
	MaxUsers    *int `json:"max_users"`
	MaxMachines *int `json:"max_machines"`
}

// UpdateLimits edits a tenant's resource ceilings. -1 means unlimited.
func (ac *AdminController) UpdateLimits(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}

	var req UpdateLimitsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.MaxUsers != nil {
		if *req.MaxUsers < models.UnlimitedQuota {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_users must be -1 or a non-negative integer"})
		}
		updates["max_users"] = *req.MaxUsers
	}
	if req.MaxMachines != nil {
		if *req.MaxMachines < models.UnlimitedQuota {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_machines must be -1 or a non-negative integer"})
		}
		updates["max_machines"] = *req.MaxMachines
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nothing to update"})
	}

	res := ac.DB.Model(&models.Tenant{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return utils.NewInternal("failed to update limits").Respond(c)
	}
	if res.RowsAffected == 0 {
		return utils.NewTenantNotFound().Respond(c)
	}

	ac.Resolver.Invalidate(uint(id))
	return c.JSON(utils.SuccessResponse(fiber.Map{"tenant_id": id}))
}
