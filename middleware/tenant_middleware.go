package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"shopfloor/models"
	"shopfloor/utils"
)

// Protected authenticates the request and resolves its tenant context. The
// chain is: token parse → user load and liveness → tenant resolution via the
// read-through cache (platform admins skip the tenant lookup entirely) →
// request-scoped Locals for everything downstream.
func Protected(db *gorm.DB, resolver *utils.TenantResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.NewUnauthenticated("Invalid authorization format").Respond(c)
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return utils.NewUnauthenticated("Authorization required").Respond(c)
			}
		}

		claims, err := utils.ParseJWTToken(token)
		if err != nil {
			return utils.NewUnauthenticated("Invalid or expired token").Respond(c)
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			return utils.NewUnauthenticated("User not found").Respond(c)
		}
		if !user.IsActive {
			return utils.NewForbidden("Account is not active").Respond(c)
		}
		if claims.TokenVersion != user.TokenVersion {
			return utils.NewUnauthenticated("Invalid token version").Respond(c)
		}

		c.Locals(LocalUser, &user)
		c.Locals(LocalUserID, user.ID)

		tenant, appErr := resolver.Resolve(claims)
		if appErr != nil {
			return appErr.Respond(c)
		}

		if tenant == nil || tenant.IsPlatformAdmin {
			// Cross-tenant super-identity: no tenant scoping downstream.
			c.Locals(LocalPlatformAdmin, true)
		}
		if tenant != nil {
			c.Locals(LocalTenant, tenant)
			c.Locals(LocalTenantID, tenant.ID)

			var membership models.TenantUser
			err := db.Where("tenant_id = ? AND user_id = ?", tenant.ID, user.ID).
				First(&membership).Error
			if err == nil {
				c.Locals(LocalMembership, &membership)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				// A transient store failure must not silently demote the
				// caller's role
				return utils.NewInternal("failed to load tenant membership").Respond(c)
			}
		}

		return c.Next()
	}
}
