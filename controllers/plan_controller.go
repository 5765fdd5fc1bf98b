package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/models"
	"shopfloor/utils"
)

type PlanController struct {
	DB       *gorm.DB
	Features *utils.FeatureService
	Logger   *logrus.Logger
}

func NewPlanController(db *gorm.DB, features *utils.FeatureService, logger *logrus.Logger) *PlanController {
	return &PlanController{DB: db, Features: features, Logger: logger}
}

func (pc *PlanController) ListPlans(c *fiber.Ctx) error {
	var plans []models.PlanDefinition
	if err := pc.DB.Order("id").Find(&plans).Error; err != nil {
		return utils.NewInternal("failed to list plans").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(plans))
}

type UpdatePlanRequest struct {
	Description string   `json:"description" validate:"omitempty,max=255"`
	MaxUsers    *int     `json:"max_users"`
	MaxMachines *int     `json:"max_machines"`
	Features    []string `json:"features"`
	TrialDays   *int     `json:"trial_days" validate:"omitempty,min=0,max=365"`
}

// UpdatePlan edits a plan definition. Any edit invalidates the whole feature
// catalog cache, not just the edited plan, because the blast radius of the
// change is unknown to the resolver.
func (pc *PlanController) UpdatePlan(c *fiber.Ctx) error {
	code := c.Params("code")

	var plan models.PlanDefinition
	if err := pc.DB.Where("plan_code = ?", code).First(&plan).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "plan not found"})
	}

	var req UpdatePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Description != "" {
		plan.Description = req.Description
	}
	if req.MaxUsers != nil {
		plan.MaxUsers = *req.MaxUsers
	}
	if req.MaxMachines != nil {
		plan.MaxMachines = *req.MaxMachines
	}
	if req.Features != nil {
		plan.Features = models.FeatureSet(req.Features)
	}
	if req.TrialDays != nil {
		plan.TrialDays = *req.TrialDays
	}

	if err := pc.DB.Save(&plan).Error; err != nil {
		return utils.NewInternal("failed to save plan").Respond(c)
	}
	pc.Features.InvalidateCatalog()

	pc.Logger.WithField("plan_code", plan.PlanCode).Info("plan definition updated")
	return c.JSON(utils.SuccessResponse(plan))
}
