package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/middleware"
	"shopfloor/models"
	"shopfloor/utils"
)

type ComplianceController struct {
	DB         *gorm.DB
	Compliance *utils.ComplianceService
	Logger     *logrus.Logger
}

func NewComplianceController(db *gorm.DB, compliance *utils.ComplianceService, logger *logrus.Logger) *ComplianceController {
	return &ComplianceController{DB: db, Compliance: compliance, Logger: logger}
}

// GetSettings returns the tenant's compliance settings, defaults included.
func (cc *ComplianceController) GetSettings(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	settings, err := cc.Compliance.SettingsFor(tenant.ID)
	if err != nil {
		return utils.NewInternal("failed to load compliance settings").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(settings))
}

type UpdateComplianceRequest struct {
	ComplianceMode       string `json:"compliance_mode" validate:"required,max=60"`
	CanCreate            *bool  `json:"can_create" validate:"required"`
	CanEdit              *bool  `json:"can_edit" validate:"required"`
	CanDelete            *bool  `json:"can_delete" validate:"required"`
	CanExport            *bool  `json:"can_export" validate:"required"`
	CanConfig            *bool  `json:"can_config" validate:"required"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	RequiresReason       bool   `json:"requires_reason"`
}

// UpdateSettings upserts the tenant's compliance row and invalidates its
// cache entry. This endpoint is on the compliance exemption list so a
// lockout can always be undone here.
func (cc *ComplianceController) UpdateSettings(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var req UpdateComplianceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var settings models.ComplianceSettings
	err := cc.DB.Where("tenant_id = ?", tenant.ID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = *models.DefaultComplianceSettings(tenant.ID)
	} else if err != nil {
		return utils.NewInternal("failed to load compliance settings").Respond(c)
	}

	settings.ComplianceMode = req.ComplianceMode
	settings.CanCreate = *req.CanCreate
	settings.CanEdit = *req.CanEdit
	settings.CanDelete = *req.CanDelete
	settings.CanExport = *req.CanExport
	settings.CanConfig = *req.CanConfig
	settings.RequiresConfirmation = req.RequiresConfirmation
	settings.RequiresReason = req.RequiresReason

	if err := cc.DB.Save(&settings).Error; err != nil {
		return utils.NewInternal("failed to save compliance settings").Respond(c)
	}
	cc.Compliance.Invalidate(tenant.ID)

	cc.Logger.WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"mode":      settings.ComplianceMode,
	}).Info("compliance settings updated")
	return c.JSON(utils.SuccessResponse(settings))
}
