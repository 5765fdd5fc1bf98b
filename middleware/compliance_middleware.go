package middleware

import (
	"github.com/gofiber/fiber/v2"

	"shopfloor/utils"
)

// ReasonHeader carries the free-text justification for gated mutations.
const ReasonHeader = "X-Action-Reason"

// complianceExemptPrefixes lists paths that must always remain reachable so
// an administrator can never lock themselves out of the control that would
// undo the lockout.
var complianceExemptPrefixes = []string{
	"/auth",
	"/api/v1/compliance-settings",
	"/api/v1/features",
	"/api/v1/permissions",
	"/api/v1/preferences",
	"/oauth/callback",
}

// ComplianceGate applies the per-tenant compliance policy to write requests
// on non-exempt paths. Platform admins bypass.
func ComplianceGate(svc *utils.ComplianceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !isWriteMethod(c.Method()) {
			return c.Next()
		}
		if matchesPrefix(c.Path(), complianceExemptPrefixes) {
			return c.Next()
		}
		if IsPlatformAdmin(c) {
			return c.Next()
		}

		tenant := TenantFromCtx(c)
		if tenant == nil {
			return c.Next()
		}

		if appErr := svc.Evaluate(tenant.ID, c.Method(), c.Get(ReasonHeader)); appErr != nil {
			return appErr.Respond(c)
		}
		return c.Next()
	}
}

// RequireComplianceCapability gates a single route on one capability boolean
// regardless of method, e.g. the export endpoint on "export".
func RequireComplianceCapability(svc *utils.ComplianceService, capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if IsPlatformAdmin(c) {
			return c.Next()
		}
		tenant := TenantFromCtx(c)
		if tenant == nil {
			return c.Next()
		}
		if appErr := svc.RequireCapability(tenant.ID, capability); appErr != nil {
			return appErr.Respond(c)
		}
		return c.Next()
	}
}
