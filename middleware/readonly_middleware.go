package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"shopfloor/models"
	"shopfloor/utils"
)

// dataRoutePrefixes is the allow-list of routes the read-only gate covers.
var dataRoutePrefixes = []string{
	"/api/v1/machines",
	"/api/v1/shifts",
	"/api/v1/production-logs",
}

// ReadOnlyEnforcer blocks writes to data routes for FREE-plan tenants that
// are not inside an unexpired trial window. Reads always pass. Runs after
// Protected, so a lazily downgraded tenant is blocked on its very next write.
func ReadOnlyEnforcer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !isWriteMethod(c.Method()) {
			return c.Next()
		}
		if IsPlatformAdmin(c) {
			return c.Next()
		}
		if !matchesPrefix(c.Path(), dataRoutePrefixes) {
			return c.Next()
		}

		tenant := TenantFromCtx(c)
		if tenant == nil {
			return c.Next()
		}
		if tenant.Plan == models.PlanFree && !tenant.InTrialWindow() {
			return utils.NewFreePlanReadOnly().Respond(c)
		}
		return c.Next()
	}
}

func isWriteMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return false
	}
	return true
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
