package utils

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor/models"
)

// fallbackPlanFeatures is the hardcoded default per tier, used when the
// plan-definitions store is empty or unavailable (cold start before seeding).
var fallbackPlanFeatures = map[string][]string{
	models.PlanFree: {
		"basic_dashboard", "machine_registry",
	},
	models.PlanStarter: {
		"basic_dashboard", "machine_registry", "shift_scheduling", "production_logs",
	},
	models.PlanProfessional: {
		"basic_dashboard", "machine_registry", "shift_scheduling", "production_logs",
		"advanced_reporting", "data_export",
	},
	models.PlanEnterprise: {
		"basic_dashboard", "machine_registry", "shift_scheduling", "production_logs",
		"advanced_reporting", "data_export", "api_access", "custom_branding", "audit_log",
	},
}

// FeatureService resolves feature enablement with the precedence: per-tenant
// override, then the plan catalog, then the hardcoded fallback set. The
// catalog cache is shared across tenants and keyed by plan code, since plan
// feature sets are shared.
type FeatureService struct {
	db      *gorm.DB
	catalog *TTLCache
}

func NewFeatureService(db *gorm.DB, catalog *TTLCache) *FeatureService {
	return &FeatureService{db: db, catalog: catalog}
}

// IsFeatureEnabled evaluates precedence top to bottom, first match wins:
// tenant override, then plan catalog.
func (s *FeatureService) IsFeatureEnabled(tenant *models.Tenant, featureID string) bool {
	if tenant.Settings.FeatureOverrides != nil {
		if enabled, ok := tenant.Settings.FeatureOverrides[featureID]; ok {
			return enabled
		}
	}
	return s.PlanFeatures(tenant.Plan)[featureID]
}

// PlanFeatures returns the feature set for a plan, loading the catalog
// through its cache.
func (s *FeatureService) PlanFeatures(plan string) map[string]bool {
	if cached, ok := s.catalog.Get(plan); ok {
		return cached.(map[string]bool)
	}

	features, ok := s.loadFromStore(plan)
	if !ok {
		features = featureSetFromList(fallbackPlanFeatures[plan])
	}
	s.catalog.Set(plan, features)
	return features
}

func (s *FeatureService) loadFromStore(plan string) (map[string]bool, bool) {
	var def models.PlanDefinition
	err := s.db.Where("plan_code = ?", plan).First(&def).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logrus.WithField("plan", plan).WithError(err).Warn("plan definitions store unavailable, using fallback features")
		}
		return nil, false
	}
	if len(def.Features) == 0 {
		return nil, false
	}
	return featureSetFromList(def.Features), true
}

// InvalidateCatalog drops the whole catalog cache. Called after any admin
// edit to a plan's feature list; the edit's blast radius is unknown here, so
// per-plan invalidation would be unsound.
func (s *FeatureService) InvalidateCatalog() {
	s.catalog.InvalidateAll()
}

// KnownFeatures is the feature registry: the union of every fallback set and
// every feature named by a plan definition.
func (s *FeatureService) KnownFeatures() map[string]bool {
	known := make(map[string]bool)
	for _, list := range fallbackPlanFeatures {
		for _, id := range list {
			known[id] = true
		}
	}
	var defs []models.PlanDefinition
	if err := s.db.Find(&defs).Error; err == nil {
		for _, def := range defs {
			for _, id := range def.Features {
				known[id] = true
			}
		}
	}
	return known
}

// ValidateOverrideKeys rejects override keys missing from the feature
// registry. Silently accepting a typo would hide it as a permanently-ignored
// override.
func (s *FeatureService) ValidateOverrideKeys(overrides map[string]bool) error {
	known := s.KnownFeatures()
	var unknown []string
	for id := range overrides {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown feature ids in overrides: %v", unknown)
	}
	return nil
}

func featureSetFromList(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, id := range list {
		set[id] = true
	}
	return set
}
