package controller

import (
	"encoding/csv"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/middleware"
	"shopfloor/models"
	"shopfloor/utils"
)

// MachineController is the thin business collaborator exercising the
// entitlement gates: machine creation runs the quota pre-flight, the export
// route sits behind a plan feature gate, and every query is scoped by the
// resolved tenant id.
type MachineController struct {
	DB     *gorm.DB
	Quota  *utils.QuotaValidator
	Logger *logrus.Logger
}

func NewMachineController(db *gorm.DB, quota *utils.QuotaValidator, logger *logrus.Logger) *MachineController {
	return &MachineController{DB: db, Quota: quota, Logger: logger}
}

type CreateMachineRequest struct {
	Code         string `json:"code" validate:"required,max=60"`
	Name         string `json:"name" validate:"required,max=120"`
	Location     string `json:"location" validate:"omitempty,max=120"`
	SerialNumber string `json:"serial_number" validate:"omitempty,max=120"`

	// Platform admins only: the tenant the machine is created for
	TenantID uint `json:"tenant_id" validate:"omitempty"`
}

// CreateMachine provisions a machine after the quota pre-flight. Reaching the
// limit exactly blocks this creation. Platform admins create on behalf of an
// explicit tenant and are not subject to the quota gate.
func (mc *MachineController) CreateMachine(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	admin := middleware.IsPlatformAdmin(c)
	if tenant == nil && !admin {
		return utils.NewNoTenantContext().Respond(c)
	}

	var req CreateMachineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var tenantID uint
	switch {
	case admin:
		tenantID = req.TenantID
		if tenantID == 0 && tenant != nil {
			tenantID = tenant.ID
		}
		if tenantID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tenant_id is required"})
		}
	default:
		tenantID = tenant.ID
		result, err := mc.Quota.Check(tenant, models.QuotaResourceMachines)
		if err != nil {
			return utils.NewInternal("quota check failed").Respond(c)
		}
		if !result.Allowed {
			return utils.NewQuotaExceeded(models.QuotaResourceMachines, result.Current, result.Limit).Respond(c)
		}
	}

	machine := models.Machine{
		TenantID:     tenantID,
		Code:         req.Code,
		Name:         req.Name,
		Location:     req.Location,
		SerialNumber: req.SerialNumber,
		Status:       "operational",
	}
	if err := mc.DB.Create(&machine).Error; err != nil {
		return utils.NewInternal("failed to create machine").Respond(c)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(machine))
}

func (mc *MachineController) GetMachines(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var machines []models.Machine
	if err := mc.DB.Where("tenant_id = ?", tenant.ID).Order("id").Find(&machines).Error; err != nil {
		return utils.NewInternal("failed to list machines").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(machines))
}

type UpdateMachineRequest struct {
	Name     string `json:"name" validate:"omitempty,max=120"`
	Location string `json:"location" validate:"omitempty,max=120"`
	Status   string `json:"status" validate:"omitempty,oneof=operational maintenance retired"`
}

func (mc *MachineController) UpdateMachine(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid machine id"})
	}

	var machine models.Machine
	if err := mc.DB.Where("id = ? AND tenant_id = ?", id, tenant.ID).First(&machine).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "machine not found"})
	}

	var req UpdateMachineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Name != "" {
		machine.Name = req.Name
	}
	if req.Location != "" {
		machine.Location = req.Location
	}
	if req.Status != "" {
		machine.Status = req.Status
	}

	if err := mc.DB.Save(&machine).Error; err != nil {
		return utils.NewInternal("failed to update machine").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(machine))
}

func (mc *MachineController) DeleteMachine(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid machine id"})
	}

	res := mc.DB.Where("tenant_id = ?", tenant.ID).Delete(&models.Machine{}, id)
	if res.Error != nil {
		return utils.NewInternal("failed to delete machine").Respond(c)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "machine not found"})
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": id}))
}

// ExportMachines streams the machine registry as CSV. Routed behind the
// data_export plan feature and the export compliance capability.
func (mc *MachineController) ExportMachines(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var machines []models.Machine
	if err := mc.DB.Where("tenant_id = ?", tenant.ID).Order("id").Find(&machines).Error; err != nil {
		return utils.NewInternal("failed to export machines").Respond(c)
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="machines.csv"`)

	w := csv.NewWriter(c)
	_ = w.Write([]string{"id", "code", "name", "location", "status", "serial_number"})
	for _, m := range machines {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(m.ID), 10),
			m.Code, m.Name, m.Location, m.Status, m.SerialNumber,
		})
	}
	w.Flush()
	return w.Error()
}

type CreateShiftRequest struct {
	Name      string    `json:"name" validate:"required,max=120"`
	StartsAt  time.Time `json:"starts_at" validate:"required"`
	EndsAt    time.Time `json:"ends_at" validate:"required"`
	MachineID *uint     `json:"machine_id"`
}

func (mc *MachineController) CreateShift(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var req CreateShiftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	shift := models.Shift{
		TenantID:  tenant.ID,
		Name:      req.Name,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		MachineID: req.MachineID,
	}
	if err := mc.DB.Create(&shift).Error; err != nil {
		return utils.NewInternal("failed to create shift").Respond(c)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(shift))
}

func (mc *MachineController) GetShifts(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var shifts []models.Shift
	if err := mc.DB.Where("tenant_id = ?", tenant.ID).Order("starts_at").Find(&shifts).Error; err != nil {
		return utils.NewInternal("failed to list shifts").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(shifts))
}

type CreateProductionLogRequest struct {
	MachineID  uint      `json:"machine_id" validate:"required"`
	ShiftID    *uint     `json:"shift_id"`
	Quantity   int       `json:"quantity" validate:"required,min=0"`
	ScrapCount int       `json:"scrap_count" validate:"omitempty,min=0"`
	RecordedAt time.Time `json:"recorded_at"`
	Notes      string    `json:"notes" validate:"omitempty,max=500"`
}

func (mc *MachineController) CreateProductionLog(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var req CreateProductionLogRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// The machine must belong to the caller's tenant
	var machine models.Machine
	if err := mc.DB.Where("id = ? AND tenant_id = ?", req.MachineID, tenant.ID).First(&machine).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "machine not found"})
	}

	if req.RecordedAt.IsZero() {
		req.RecordedAt = time.Now()
	}

	entry := models.ProductionLog{
		TenantID:   tenant.ID,
		MachineID:  req.MachineID,
		ShiftID:    req.ShiftID,
		Quantity:   req.Quantity,
		ScrapCount: req.ScrapCount,
		RecordedAt: req.RecordedAt,
		Notes:      req.Notes,
	}
	if err := mc.DB.Create(&entry).Error; err != nil {
		return utils.NewInternal("failed to record production").Respond(c)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(entry))
}

func (mc *MachineController) GetProductionLogs(c *fiber.Ctx) error {
	tenant := middleware.TenantFromCtx(c)
	if tenant == nil {
		return utils.NewNoTenantContext().Respond(c)
	}

	var logs []models.ProductionLog
	if err := mc.DB.Where("tenant_id = ?", tenant.ID).Order("recorded_at desc").Limit(200).Find(&logs).Error; err != nil {
		return utils.NewInternal("failed to list production logs").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(logs))
}
