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

type AuthController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewAuthController(db *gorm.DB, logger *logrus.Logger) *AuthController {
	return &AuthController{DB: db, Logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Login verifies credentials and issues tokens. The tenant id baked into the
// claims comes from the user's membership link; platform admins carry none.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var user models.User
	if err := ac.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return utils.NewUnauthenticated("Invalid email or password").Respond(c)
	}
	if !user.CheckPassword(req.Password) {
		ac.Logger.WithField("email", req.Email).Warn("failed login attempt")
		return utils.NewUnauthenticated("Invalid email or password").Respond(c)
	}
	if !user.IsActive {
		return utils.NewForbidden("Account is not active").Respond(c)
	}

	var tenantID *uint
	if !user.IsPlatformAdmin {
		var membership models.TenantUser
		err := ac.DB.Where("user_id = ?", user.ID).First(&membership).Error
		if err == nil {
			tenantID = &membership.TenantID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewInternal("failed to load tenant membership").Respond(c)
		}
	}

	accessToken, refreshToken, err := utils.GenerateJWTToken(&user, tenantID)
	if err != nil {
		ac.Logger.WithError(err).Error("token generation failed")
		return utils.NewInternal("failed to issue tokens").Respond(c)
	}

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// GetCurrentUser returns the caller's account plus resolved tenant context.
func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	if user == nil {
		return utils.NewUnauthenticated("Authorization required").Respond(c)
	}
	resp := fiber.Map{
		"user":           user,
		"platform_admin": middleware.IsPlatformAdmin(c),
	}
	if tenant := middleware.TenantFromCtx(c); tenant != nil {
		resp["tenant"] = tenant
	}
	if membership := middleware.MembershipFromCtx(c); membership != nil {
		resp["is_tenant_admin"] = membership.IsTenantAdmin
	}
	return c.JSON(resp)
}

type UpdatePreferencesRequest struct {
	Name     string `json:"name" validate:"omitempty,max=120"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

// UpdatePreferences edits the caller's own account. Exempt from compliance
// gating so operators always keep control of their own access.
func (ac *AuthController) UpdatePreferences(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	if user == nil {
		return utils.NewUnauthenticated("Authorization required").Respond(c)
	}

	var req UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Password != "" {
		if err := user.SetPassword(req.Password); err != nil {
			return utils.NewInternal("failed to update password").Respond(c)
		}
		// Revoke outstanding tokens on password change
		user.TokenVersion++
	}

	if err := ac.DB.Save(user).Error; err != nil {
		return utils.NewInternal("failed to update account").Respond(c)
	}
	return c.JSON(utils.SuccessResponse(user))
}
