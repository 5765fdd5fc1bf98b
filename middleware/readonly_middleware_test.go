package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shopfloor/models"
	"shopfloor/utils"
)

func TestReadOnlyBlocksFreePlanWrites(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Plan = models.PlanFree
	})
	token := env.memberToken(t, tenant)

	for _, method := range []string{"POST", "PUT", "DELETE"} {
		path := "/api/v1/machines"
		if method != "POST" {
			path = "/api/v1/machines/1"
		}
		resp := env.request(t, method, path, token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, method)
		assert.Equal(t, string(utils.KindFreePlanReadOnly), errorKind(t, resp))
	}
}

func TestReadOnlyAllowsFreePlanReads(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Plan = models.PlanFree
	})
	token := env.memberToken(t, tenant)

	resp := env.request(t, "GET", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadOnlySkipsPaidPlans(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil) // STARTER
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadOnlySkipsTrialWindow(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Plan = models.PlanFree
		tn.Status = models.TenantStatusTrial
		tn.TrialEndsAt = futureTime(time.Hour)
	})
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadOnlySkipsNonDataRoutes(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Plan = models.PlanFree
	})
	token := env.memberToken(t, tenant)

	// Account management stays writable so the tenant can upgrade
	resp := env.request(t, "PUT", "/api/v1/tenant", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadOnlySkipsPlatformAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	resp := env.request(t, "POST", "/api/v1/machines", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
