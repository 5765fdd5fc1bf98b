package middleware

import (
	"github.com/gofiber/fiber/v2"

	"shopfloor/models"
)

// Locals keys set by Protected and read by downstream middleware/handlers.
const (
	LocalUser          = "user"
	LocalUserID        = "userID"
	LocalTenant        = "tenant"
	LocalTenantID      = "tenantID"
	LocalMembership    = "membership"
	LocalPlatformAdmin = "platformAdmin"
)

// UserFromCtx returns the authenticated user, or nil.
func UserFromCtx(c *fiber.Ctx) *models.User {
	if u, ok := c.Locals(LocalUser).(*models.User); ok {
		return u
	}
	return nil
}

// TenantFromCtx returns the resolved tenant, or nil for platform admins.
func TenantFromCtx(c *fiber.Ctx) *models.Tenant {
	if t, ok := c.Locals(LocalTenant).(*models.Tenant); ok {
		return t
	}
	return nil
}

// MembershipFromCtx returns the caller's tenant membership, or nil.
func MembershipFromCtx(c *fiber.Ctx) *models.TenantUser {
	if m, ok := c.Locals(LocalMembership).(*models.TenantUser); ok {
		return m
	}
	return nil
}

// IsPlatformAdmin reports whether the caller carries the cross-tenant
// super-identity.
func IsPlatformAdmin(c *fiber.Ctx) bool {
	admin, ok := c.Locals(LocalPlatformAdmin).(bool)
	return ok && admin
}
