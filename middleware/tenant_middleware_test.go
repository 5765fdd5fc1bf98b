package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/models"
	"shopfloor/utils"
)

func TestProtectedRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/api/v1/machines", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, string(utils.KindUnauthenticated), errorKind(t, resp))
}

func TestProtectedRejectsMalformedHeader(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/v1/machines", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/api/v1/machines", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedAcceptsCookieToken(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	token := env.memberToken(t, tenant)

	req := httptest.NewRequest("GET", "/api/v1/machines", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	token := env.memberToken(t, tenant)

	require.NoError(t, env.db.Model(&models.User{}).Where("1 = 1").
		Update("is_active", false).Error)

	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProtectedRejectsStaleTokenVersion(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	token := env.memberToken(t, tenant)

	// A password change bumps the version and revokes outstanding tokens
	require.NoError(t, env.db.Model(&models.User{}).Where("1 = 1").
		Update("token_version", 1).Error)

	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedResolvesActiveTenant(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	token := env.memberToken(t, tenant)

	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["platform_admin"])
}

func TestProtectedBlocksSuspendedTenant(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Status = models.TenantStatusSuspended
	})
	token := env.memberToken(t, tenant)

	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, string(utils.KindTenantInactive), errorKind(t, resp))
}

func TestProtectedSurfacesMembershipLookupFailure(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	user := env.createUser(t, nil)
	id := tenant.ID
	token, _, err := utils.GenerateJWTToken(user, &id)
	require.NoError(t, err)

	// A broken membership store must error out, not demote the caller's role
	require.NoError(t, env.db.Migrator().DropTable(&models.TenantUser{}))

	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, string(utils.KindInternal), errorKind(t, resp))
}

func TestProtectedPlatformAdminBypassesTenantScope(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["platform_admin"])
}

func TestProtectedDowngradesExpiredTrialInline(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Status = models.TenantStatusTrial
		tn.Plan = models.PlanProfessional
		tn.TrialEndsAt = pastTime(time.Hour)
	})
	token := env.memberToken(t, tenant)

	// The expired-trial request itself succeeds with downgraded capability
	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Tenant
	require.NoError(t, env.db.First(&stored, tenant.ID).Error)
	assert.Equal(t, models.PlanFree, stored.Plan)
	assert.Equal(t, models.TenantStatusActive, stored.Status)
}
