package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/models"
)

// Limits applied when a trial degrades to the FREE tier and no FREE plan
// definition is available.
const (
	freeFallbackMaxUsers    = 3
	freeFallbackMaxMachines = 2
)

// LifecycleService owns tenant status transitions:
//
//	TRIAL → ACTIVE               explicit plan purchase
//	TRIAL → (FREE, ACTIVE)       lazy auto-downgrade on trial expiry
//	ACTIVE ⇄ SUSPENDED           admin toggle
//	{ACTIVE,TRIAL,SUSPENDED} → CANCELLED   terminal soft delete
type LifecycleService struct {
	db          *gorm.DB
	tenantCache *TTLCache
}

func NewLifecycleService(db *gorm.DB, tenantCache *TTLCache) *LifecycleService {
	return &LifecycleService{db: db, tenantCache: tenantCache}
}

// MaybeDowngradeExpiredTrial applies the TRIAL→FREE auto-downgrade when the
// trial window has passed. The tenant row is rewritten in a single UPDATE to
// plan=FREE, status=ACTIVE and the FREE tier's limits, and the in-memory
// struct is updated to match so the current request proceeds with the new
// values. Returns true when a downgrade was applied. Idempotent: a second
// call sees status ACTIVE and does nothing. A write failure is returned to
// the caller, which must abort rather than continue with expired-trial status
// and un-downgraded limits.
func (s *LifecycleService) MaybeDowngradeExpiredTrial(t *models.Tenant) (bool, error) {
	if t.Status != models.TenantStatusTrial {
		return false, nil
	}
	if t.TrialEndsAt == nil || t.TrialEndsAt.After(time.Now()) {
		return false, nil
	}

	maxUsers, maxMachines := s.freeTierLimits()

	// The status guard in the WHERE clause makes concurrent downgrades of the
	// same tenant collapse into one effective write.
	res := s.db.Model(&models.Tenant{}).
		Where("id = ? AND status = ?", t.ID, models.TenantStatusTrial).
		Updates(map[string]interface{}{
			"plan":         models.PlanFree,
			"status":       models.TenantStatusActive,
			"max_users":    maxUsers,
			"max_machines": maxMachines,
		})
	if res.Error != nil {
		return false, res.Error
	}

	t.Plan = models.PlanFree
	t.Status = models.TenantStatusActive
	t.MaxUsers = maxUsers
	t.MaxMachines = maxMachines

	// Zero matched rows means a concurrent request won the downgrade; the
	// struct now mirrors the stored state either way, but only the winning
	// write is the downgrade event.
	if res.RowsAffected == 0 {
		return false, nil
	}

	trialDowngradeCounter.Inc()
	logrus.WithFields(logrus.Fields{
		"tenant_id": t.ID,
		"slug":      t.Slug,
	}).Info("expired trial downgraded to free plan")
	return true, nil
}

func (s *LifecycleService) freeTierLimits() (int, int) {
	var def models.PlanDefinition
	err := s.db.Where("plan_code = ?", models.PlanFree).First(&def).Error
	if err != nil {
		return freeFallbackMaxUsers, freeFallbackMaxMachines
	}
	return def.MaxUsers, def.MaxMachines
}

// ErrTenantCancelled rejects transitions out of the terminal CANCELLED state.
var ErrTenantCancelled = errors.New("tenant is cancelled; only hard delete is possible")

// Suspend flips an operating tenant to SUSPENDED.
func (s *LifecycleService) Suspend(tenantID uint) error {
	return s.transition(tenantID, func(t *models.Tenant) map[string]interface{} {
		return map[string]interface{}{"status": models.TenantStatusSuspended}
	})
}

// Activate returns a suspended tenant to ACTIVE.
func (s *LifecycleService) Activate(tenantID uint) error {
	return s.transition(tenantID, func(t *models.Tenant) map[string]interface{} {
		return map[string]interface{}{"status": models.TenantStatusActive, "is_active": true}
	})
}

// Cancel is the terminal soft delete: status CANCELLED plus the kill switch.
func (s *LifecycleService) Cancel(tenantID uint) error {
	return s.transition(tenantID, func(t *models.Tenant) map[string]interface{} {
		return map[string]interface{}{"status": models.TenantStatusCancelled, "is_active": false}
	})
}

// PurchasePlan moves a tenant onto a bought plan: TRIAL→ACTIVE with the
// plan's limits. Billing itself happens outside this core.
func (s *LifecycleService) PurchasePlan(tenantID uint, planCode string) error {
	var def models.PlanDefinition
	if err := s.db.Where("plan_code = ?", planCode).First(&def).Error; err != nil {
		return fmt.Errorf("unknown plan %q: %w", planCode, err)
	}
	return s.transition(tenantID, func(t *models.Tenant) map[string]interface{} {
		return map[string]interface{}{
			"plan":         def.TenantPlan,
			"status":       models.TenantStatusActive,
			"max_users":    def.MaxUsers,
			"max_machines": def.MaxMachines,
		}
	})
}

// HardDelete irreversibly removes a tenant row. Normal flows use Cancel.
func (s *LifecycleService) HardDelete(tenantID uint) error {
	if err := s.db.Unscoped().Delete(&models.Tenant{}, tenantID).Error; err != nil {
		return err
	}
	s.invalidate(tenantID)
	return nil
}

func (s *LifecycleService) transition(tenantID uint, updates func(*models.Tenant) map[string]interface{}) error {
	var tenant models.Tenant
	if err := s.db.First(&tenant, tenantID).Error; err != nil {
		return err
	}
	if tenant.Status == models.TenantStatusCancelled {
		return ErrTenantCancelled
	}
	if err := s.db.Model(&tenant).Updates(updates(&tenant)).Error; err != nil {
		return err
	}
	s.invalidate(tenantID)
	return nil
}

func (s *LifecycleService) invalidate(tenantID uint) {
	if s.tenantCache != nil {
		s.tenantCache.Invalidate(cacheKeyForTenant(tenantID))
	}
}

// DowngradeExpiredTrials sweeps tenants stuck in an expired TRIAL because no
// traffic arrived to trigger the lazy transition. Used by the optional
// background sweeper.
func (s *LifecycleService) DowngradeExpiredTrials(ctx context.Context) (int, error) {
	var expired []models.Tenant
	err := s.db.WithContext(ctx).
		Where("status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at < ?",
			models.TenantStatusTrial, time.Now()).
		Find(&expired).Error
	if err != nil {
		return 0, err
	}

	downgraded := 0
	for i := range expired {
		applied, err := s.MaybeDowngradeExpiredTrial(&expired[i])
		if err != nil {
			logrus.WithField("tenant_id", expired[i].ID).WithError(err).Warn("sweep downgrade failed")
			continue
		}
		if applied {
			s.invalidate(expired[i].ID)
			downgraded++
		}
	}
	return downgraded, nil
}
