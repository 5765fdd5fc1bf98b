package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/models"
)

// TenantResolver turns verified credential claims into a live tenant. Reads
// go through a short-TTL cache in front of the tenant store; any caller that
// mutates a tenant row must call Invalidate or stale data may be served for
// up to the TTL.
type TenantResolver struct {
	db        *gorm.DB
	cache     *TTLCache
	lifecycle *LifecycleService
}

func NewTenantResolver(db *gorm.DB, cache *TTLCache, lifecycle *LifecycleService) *TenantResolver {
	return &TenantResolver{db: db, cache: cache, lifecycle: lifecycle}
}

// Resolve maps claims to the owning tenant and validates liveness. A platform
// admin short-circuits to tenant-unscoped access and gets a nil tenant. An
// expired trial is downgraded in place before the liveness verdict, so the
// request proceeds with FREE-tier capability instead of being locked out; if
// that downgrade write fails the whole operation aborts.
func (r *TenantResolver) Resolve(claims *Claims) (*models.Tenant, *AppError) {
	if claims.IsPlatformAdmin {
		return nil, nil
	}
	if claims.TenantID == nil {
		return nil, NewNoTenantContext()
	}

	tenant, appErr := r.Load(*claims.TenantID)
	if appErr != nil {
		return nil, appErr
	}

	downgraded, err := r.lifecycle.MaybeDowngradeExpiredTrial(tenant)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"tenant_id": tenant.ID,
			"slug":      tenant.Slug,
		}).WithError(err).Error("trial downgrade write failed")
		return nil, NewInternal("failed to update expired trial account")
	}
	if downgraded {
		r.cache.Set(cacheKeyForTenant(tenant.ID), tenant.Clone())
	}

	if appErr := CheckLiveness(tenant); appErr != nil {
		return nil, appErr
	}
	return tenant, nil
}

// Load fetches a tenant through the cache, populating it on a miss. The
// returned tenant is always a copy owned by the caller; the cached value is
// never aliased, so request-scoped mutation cannot leak into other requests
// or survive a failed store write.
func (r *TenantResolver) Load(tenantID uint) (*models.Tenant, *AppError) {
	key := cacheKeyForTenant(tenantID)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*models.Tenant).Clone(), nil
	}

	var tenant models.Tenant
	if err := r.db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewTenantNotFound()
		}
		logrus.WithField("tenant_id", tenantID).WithError(err).Error("tenant store lookup failed")
		return nil, NewInternal("failed to load tenant")
	}

	r.cache.Set(key, tenant.Clone())
	return &tenant, nil
}

// Invalidate drops the cache entry for one tenant. Mandatory after any tenant
// row mutation.
func (r *TenantResolver) Invalidate(tenantID uint) {
	r.cache.Invalidate(cacheKeyForTenant(tenantID))
}

func cacheKeyForTenant(tenantID uint) string {
	return strconv.FormatUint(uint64(tenantID), 10)
}

// CheckLiveness applies the liveness rules in order: the kill switch wins,
// then account expiry, then status.
func CheckLiveness(t *models.Tenant) *AppError {
	if !t.IsActive {
		return inactiveError(t)
	}
	if t.ExpiresAt != nil && t.ExpiresAt.Before(time.Now()) {
		return NewTenantInactive(t.Status, "account has expired")
	}
	if t.Status == models.TenantStatusActive {
		return nil
	}
	if t.InTrialWindow() {
		return nil
	}
	return inactiveError(t)
}

func inactiveError(t *models.Tenant) *AppError {
	switch t.Status {
	case models.TenantStatusTrial:
		return NewTenantInactive(t.Status, "trial period has expired")
	case models.TenantStatusSuspended:
		return NewTenantInactive(t.Status, "account is suspended")
	case models.TenantStatusCancelled:
		return NewTenantInactive(t.Status, "account has been cancelled")
	}
	return NewTenantInactive(t.Status, "account is not active")
}
