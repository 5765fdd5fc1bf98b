package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shopfloor/models"
)

func newResolver(t *testing.T) (*TenantResolver, *gorm.DB, *TTLCache) {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, models.CreateDefaultPlans(db))
	cache := NewTTLCache("tenant", time.Minute)
	lifecycle := NewLifecycleService(db, cache)
	return NewTenantResolver(db, cache, lifecycle), db, cache
}

func claimsFor(tenant *models.Tenant) *Claims {
	c := &Claims{UserID: 1}
	if tenant != nil {
		id := tenant.ID
		c.TenantID = &id
	}
	return c
}

func TestResolvePlatformAdminSkipsLookup(t *testing.T) {
	resolver, db, _ := newResolver(t)
	// Prove no tenant lookup happens for platform admins
	require.NoError(t, db.Migrator().DropTable(&models.Tenant{}))

	tenant, appErr := resolver.Resolve(&Claims{UserID: 1, IsPlatformAdmin: true})
	assert.Nil(t, appErr)
	assert.Nil(t, tenant)
}

func TestResolveNoTenantContext(t *testing.T) {
	resolver, _, _ := newResolver(t)

	_, appErr := resolver.Resolve(&Claims{UserID: 1})
	require.NotNil(t, appErr)
	assert.Equal(t, KindNoTenantContext, appErr.Kind)
}

func TestResolveTenantNotFound(t *testing.T) {
	resolver, _, _ := newResolver(t)

	missing := uint(9999)
	_, appErr := resolver.Resolve(&Claims{UserID: 1, TenantID: &missing})
	require.NotNil(t, appErr)
	assert.Equal(t, KindTenantNotFound, appErr.Kind)
}

func TestResolveActiveTenant(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, nil)

	resolved, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, tenant.ID, resolved.ID)
}

func TestResolveKillSwitchWins(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, func(tn *models.Tenant) {
		tn.Status = models.TenantStatusActive
		tn.IsActive = false
	})

	_, appErr := resolver.Resolve(claimsFor(tenant))
	require.NotNil(t, appErr)
	assert.Equal(t, KindTenantInactive, appErr.Kind)
}

func TestResolveExpiredAccount(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, func(tn *models.Tenant) {
		tn.ExpiresAt = pastTime(time.Hour)
	})

	_, appErr := resolver.Resolve(claimsFor(tenant))
	require.NotNil(t, appErr)
	assert.Equal(t, KindTenantInactive, appErr.Kind)
	assert.Contains(t, appErr.Message, "expired")
}

func TestResolveSuspendedTenant(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, func(tn *models.Tenant) {
		tn.Status = models.TenantStatusSuspended
	})

	_, appErr := resolver.Resolve(claimsFor(tenant))
	require.NotNil(t, appErr)
	assert.Equal(t, KindTenantInactive, appErr.Kind)
	assert.Equal(t, models.TenantStatusSuspended, appErr.Meta["status"])
	assert.Contains(t, appErr.Message, "suspended")
}

func TestResolveCancelledTenant(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, func(tn *models.Tenant) {
		tn.Status = models.TenantStatusCancelled
		tn.IsActive = false
	})

	_, appErr := resolver.Resolve(claimsFor(tenant))
	require.NotNil(t, appErr)
	assert.Equal(t, models.TenantStatusCancelled, appErr.Meta["status"])
	assert.Contains(t, appErr.Message, "cancelled")
}

func TestResolveTrialInsideWindow(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, func(tn *models.Tenant) {
		tn.Status = models.TenantStatusTrial
		tn.TrialEndsAt = futureTime(time.Hour)
	})

	resolved, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, models.TenantStatusTrial, resolved.Status)
}

func TestResolveExpiredTrialDowngradesAndProceeds(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, func(tn *models.Tenant) {
		tn.Status = models.TenantStatusTrial
		tn.TrialEndsAt = pastTime(time.Second)
	})

	resolved, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, models.PlanFree, resolved.Plan)
	assert.Equal(t, models.TenantStatusActive, resolved.Status)

	// Second resolution sees the settled state, no further change
	again, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, models.PlanFree, again.Plan)
	assert.Equal(t, models.TenantStatusActive, again.Status)
}

func TestResolveReturnsRequestScopedCopies(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, func(tn *models.Tenant) {
		tn.Settings = models.TenantSettings{
			FeatureOverrides: map[string]bool{"data_export": true},
		}
	})

	first, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	second, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	require.NotSame(t, first, second)

	// One request's in-place edits stay invisible to every later resolution,
	// including the overrides map
	first.Name = "Renamed"
	first.Settings.FeatureOverrides["data_export"] = false

	third, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, "Acme Manufacturing", third.Name)
	assert.True(t, third.Settings.FeatureOverrides["data_export"])
}

func TestResolveCachesWithinTTL(t *testing.T) {
	resolver, db, _ := newResolver(t)
	tenant := createTenant(t, db, nil)

	first, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, "Acme Manufacturing", first.Name)

	// Mutate behind the cache's back: within the TTL the stale row is served
	require.NoError(t, db.Model(&models.Tenant{}).Where("id = ?", tenant.ID).
		Update("name", "Globex").Error)

	stale, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, "Acme Manufacturing", stale.Name)

	// Explicit invalidation makes the next resolution fresh
	resolver.Invalidate(tenant.ID)
	fresh, appErr := resolver.Resolve(claimsFor(tenant))
	require.Nil(t, appErr)
	assert.Equal(t, "Globex", fresh.Name)
}
