package utils

import (
	"errors"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/models"
)

// ComplianceService enforces the tenant-configurable policy layered above
// plan and role authorization. It is an advisory, secondary control: if the
// settings row cannot be resolved for any reason the request is allowed
// through and the failure is recorded, because compliance unavailability must
// not take down the product.
type ComplianceService struct {
	db    *gorm.DB
	cache *TTLCache
}

func NewComplianceService(db *gorm.DB, cache *TTLCache) *ComplianceService {
	return &ComplianceService{db: db, cache: cache}
}

// SettingsFor loads the tenant's compliance settings through the cache. A
// tenant with no row yet gets the permissive standard-mode defaults.
func (s *ComplianceService) SettingsFor(tenantID uint) (*models.ComplianceSettings, error) {
	key := strconv.FormatUint(uint64(tenantID), 10)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*models.ComplianceSettings), nil
	}

	var settings models.ComplianceSettings
	err := s.db.Where("tenant_id = ?", tenantID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := models.DefaultComplianceSettings(tenantID)
		s.cache.Set(key, defaults)
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, &settings)
	return &settings, nil
}

// Evaluate runs the enforcement algorithm for one write request. A nil result
// means the request may proceed. The capability check always runs before the
// reason check, so a disabled capability is reported even when the reason is
// also missing.
func (s *ComplianceService) Evaluate(tenantID uint, method, reason string) *AppError {
	settings, err := s.SettingsFor(tenantID)
	if err != nil {
		// Fail open: enforcement is advisory and its unavailability must not
		// block the product. Record the failure.
		logrus.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"method":    method,
		}).WithError(err).Warn("compliance settings lookup failed, allowing request")
		sentry.CaptureException(err)
		complianceFailOpenCounter.Inc()
		return nil
	}

	// Fast path for the permissive default configuration.
	if settings.IsPermissive() {
		return nil
	}

	capability, allowed := settings.CapabilityFor(method)
	if !allowed {
		return NewComplianceBlocked(settings.ComplianceMode, capability)
	}

	if settings.RequiresReason && strings.TrimSpace(reason) == "" {
		return NewComplianceReasonRequired(settings.ComplianceMode)
	}

	return nil
}

// RequireCapability gates a specific capability boolean outside of the
// method-mapped write path, e.g. "export" on the export endpoint.
func (s *ComplianceService) RequireCapability(tenantID uint, capability string) *AppError {
	settings, err := s.SettingsFor(tenantID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"tenant_id":  tenantID,
			"capability": capability,
		}).WithError(err).Warn("compliance settings lookup failed, allowing request")
		sentry.CaptureException(err)
		complianceFailOpenCounter.Inc()
		return nil
	}

	allowed := true
	switch capability {
	case "export":
		allowed = settings.CanExport
	case "config":
		allowed = settings.CanConfig
	}
	if !allowed {
		return NewComplianceBlocked(settings.ComplianceMode, capability)
	}
	return nil
}

// Invalidate drops the cached settings for a tenant. Called on any settings
// update.
func (s *ComplianceService) Invalidate(tenantID uint) {
	s.cache.Invalidate(strconv.FormatUint(uint64(tenantID), 10))
}
