package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/models"
	"shopfloor/utils"
)

func (e *testEnv) saveComplianceSettings(t *testing.T, tenantID uint, mutate func(*models.ComplianceSettings)) {
	t.Helper()
	settings := models.DefaultComplianceSettings(tenantID)
	if mutate != nil {
		mutate(settings)
	}
	require.NoError(t, e.db.Create(settings).Error)
}

func TestComplianceGateDefaultsPass(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestComplianceGateBlocksDisabledCapability(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	env.saveComplianceSettings(t, tenant.ID, func(cs *models.ComplianceSettings) {
		cs.CanCreate = false
	})
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, string(utils.KindComplianceBlocked), errorKind(t, resp))

	// Reads are never in scope
	resp = env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestComplianceGateExemptPathStaysReachable(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	env.saveComplianceSettings(t, tenant.ID, func(cs *models.ComplianceSettings) {
		cs.CanCreate = false
		cs.CanEdit = false
		cs.CanDelete = false
	})
	token := env.memberToken(t, tenant)

	// The settings route itself is exempt, so the lockout can be undone
	resp := env.request(t, "POST", "/api/v1/compliance-settings", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Every write method is exempt there, not just POST
	resp = env.request(t, "DELETE", "/api/v1/compliance-settings", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestComplianceGateReasonHeader(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	env.saveComplianceSettings(t, tenant.ID, func(cs *models.ComplianceSettings) {
		cs.RequiresReason = true
	})
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(utils.KindComplianceReasonRequired), errorKind(t, resp))

	resp = env.request(t, "POST", "/api/v1/machines", token, map[string]string{
		ReasonHeader: "commissioning new line",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestComplianceGateSkipsPlatformAdmin(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	env.saveComplianceSettings(t, tenant.ID, func(cs *models.ComplianceSettings) {
		cs.CanCreate = false
	})
	token := env.adminToken(t)

	resp := env.request(t, "POST", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireComplianceCapabilityExport(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil)
	env.saveComplianceSettings(t, tenant.ID, func(cs *models.ComplianceSettings) {
		cs.CanExport = false
	})
	token := env.memberToken(t, tenant)

	// Export is a GET, so only the capability gate can block it
	resp := env.request(t, "GET", "/api/v1/machines/export", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, string(utils.KindComplianceBlocked), errorKind(t, resp))

	require.NoError(t, env.db.Model(&models.ComplianceSettings{}).
		Where("tenant_id = ?", tenant.ID).Update("can_export", true).Error)
	env.compliance.Invalidate(tenant.ID)

	resp = env.request(t, "GET", "/api/v1/machines/export", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
