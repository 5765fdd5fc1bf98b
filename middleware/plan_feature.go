package middleware

import (
	"github.com/gofiber/fiber/v2"

	"shopfloor/config"
	"shopfloor/utils"
)

// RequirePlanFeature gates a route on a plan feature. Platform admins and
// non-SaaS deployments bypass unconditionally. Denial carries the current
// plan and the required feature id so a client can render an upgrade prompt.
func RequirePlanFeature(svc *utils.FeatureService, featureID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !config.AppConfig.SaaSMode {
			return c.Next()
		}
		if IsPlatformAdmin(c) {
			return c.Next()
		}

		tenant := TenantFromCtx(c)
		if tenant == nil {
			return utils.NewNoTenantContext().Respond(c)
		}
		if !svc.IsFeatureEnabled(tenant, featureID) {
			return utils.NewPlanFeatureGated(tenant.Plan, featureID).Respond(c)
		}
		return c.Next()
	}
}

// PlatformAdminOnly restricts a route group to the cross-tenant
// super-identity.
func PlatformAdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsPlatformAdmin(c) {
			return utils.NewForbidden("Platform admin access required").Respond(c)
		}
		return c.Next()
	}
}

// TenantAdminOnly restricts a route to tenant administrators. Platform
// admins pass.
func TenantAdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if IsPlatformAdmin(c) {
			return c.Next()
		}
		membership := MembershipFromCtx(c)
		if membership == nil || !membership.IsTenantAdmin {
			return utils.NewForbidden("Tenant admin access required").Respond(c)
		}
		return c.Next()
	}
}
