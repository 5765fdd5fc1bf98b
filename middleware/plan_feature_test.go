package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shopfloor/models"
	"shopfloor/utils"
)

func TestPlanFeatureGateBlocksFreePlan(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Plan = models.PlanFree
		// Keep the read-only gate out of the way: the feature gate is what
		// should fire here
		tn.Status = models.TenantStatusTrial
		tn.TrialEndsAt = futureTime(time.Hour)
	})
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/shifts", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, string(utils.KindPlanFeatureGated), body["kind"])
	assert.Equal(t, "shift_scheduling", body["feature"])
	assert.Equal(t, models.PlanFree, body["plan"])
}

func TestPlanFeatureGateAllowsIncludedPlan(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, nil) // STARTER includes shift_scheduling
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/shifts", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlanFeatureGateHonorsOverride(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, func(tn *models.Tenant) {
		tn.Plan = models.PlanFree
		tn.Status = models.TenantStatusTrial
		tn.TrialEndsAt = futureTime(time.Hour)
		tn.Settings = models.TenantSettings{
			FeatureOverrides: map[string]bool{"shift_scheduling": true},
		}
	})
	token := env.memberToken(t, tenant)

	resp := env.request(t, "POST", "/api/v1/shifts", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlanFeatureGateSkipsPlatformAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	resp := env.request(t, "POST", "/api/v1/shifts", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
