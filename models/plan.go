package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// FeatureSet is an order-irrelevant set of feature ids stored as a JSON array.
type FeatureSet []string

func (f FeatureSet) Value() (driver.Value, error) {
	if f == nil {
		f = FeatureSet{}
	}
	return json.Marshal(f)
}

func (f *FeatureSet) Scan(value interface{}) error {
	if value == nil {
		*f = FeatureSet{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	}
	return fmt.Errorf("unsupported features column type %T", value)
}

// Contains reports set membership.
func (f FeatureSet) Contains(featureID string) bool {
	for _, id := range f {
		if id == featureID {
			return true
		}
	}
	return false
}

// PlanDefinition describes one pricing tier: its feature set, resource
// ceilings and trial length. Read-mostly, admin-editable.
type PlanDefinition struct {
	gorm.Model
	PlanCode    string     `gorm:"uniqueIndex;not null" json:"plan_code"`
	TenantPlan  string     `gorm:"not null" json:"tenant_plan"`
	Description string     `json:"description"`
	MaxUsers    int        `gorm:"not null;default:5" json:"max_users"`
	MaxMachines int        `gorm:"not null;default:3" json:"max_machines"`
	Features    FeatureSet `gorm:"type:jsonb" json:"features"`
	TrialDays   int        `gorm:"default:14" json:"trial_days"`
}

// CreateDefaultPlans seeds the plan-definitions table during migration.
func CreateDefaultPlans(db *gorm.DB) error {
	defaultPlans := []PlanDefinition{
		{
			PlanCode:    PlanFree,
			TenantPlan:  PlanFree,
			Description: "Free tier with a small machine registry",
			MaxUsers:    3,
			MaxMachines: 2,
			Features:    FeatureSet{"basic_dashboard", "machine_registry"},
			TrialDays:   0,
		},
		{
			PlanCode:    PlanStarter,
			TenantPlan:  PlanStarter,
			Description: "Starter plan for small shops",
			MaxUsers:    10,
			MaxMachines: 15,
			Features:    FeatureSet{"basic_dashboard", "machine_registry", "shift_scheduling", "production_logs"},
			TrialDays:   14,
		},
		{
			PlanCode:    PlanProfessional,
			TenantPlan:  PlanProfessional,
			Description: "Professional plan with reporting and export",
			MaxUsers:    50,
			MaxMachines: 100,
			Features: FeatureSet{"basic_dashboard", "machine_registry", "shift_scheduling",
				"production_logs", "advanced_reporting", "data_export"},
			TrialDays: 14,
		},
		{
			PlanCode:    PlanEnterprise,
			TenantPlan:  PlanEnterprise,
			Description: "Custom plan for plant networks",
			MaxUsers:    UnlimitedQuota,
			MaxMachines: UnlimitedQuota,
			Features: FeatureSet{"basic_dashboard", "machine_registry", "shift_scheduling",
				"production_logs", "advanced_reporting", "data_export", "api_access",
				"custom_branding", "audit_log"},
			TrialDays: 30,
		},
	}
	for _, plan := range defaultPlans {
		if err := db.FirstOrCreate(&plan, "plan_code = ?", plan.PlanCode).Error; err != nil {
			return err
		}
	}
	return nil
}
