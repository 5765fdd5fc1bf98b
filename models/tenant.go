package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Tenant statuses
const (
	TenantStatusActive    = "ACTIVE"
	TenantStatusTrial     = "TRIAL"
	TenantStatusSuspended = "SUSPENDED"
	TenantStatusCancelled = "CANCELLED"
)

// Plan tiers
const (
	PlanFree         = "FREE"
	PlanStarter      = "STARTER"
	PlanProfessional = "PROFESSIONAL"
	PlanEnterprise   = "ENTERPRISE"
)

// UnlimitedQuota is the sentinel for "no resource ceiling"
const UnlimitedQuota = -1

// TenantSettings is the open settings blob stored as JSON on the tenant row.
// FeatureOverrides replaces the plan default for individual feature ids.
type TenantSettings struct {
	FeatureOverrides map[string]bool `json:"featureOverrides,omitempty"`
	Timezone         string          `json:"timezone,omitempty"`
	Locale           string          `json:"locale,omitempty"`
}

func (s TenantSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *TenantSettings) Scan(value interface{}) error {
	if value == nil {
		*s = TenantSettings{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported settings column type %T", value)
}

// Tenant represents an isolated customer organization. All business rows are
// scoped by its ID.
type Tenant struct {
	gorm.Model
	Slug   string `gorm:"uniqueIndex;not null" json:"slug"`
	Name   string `gorm:"not null" json:"name"`
	Status string `gorm:"not null;default:'TRIAL';index" json:"status"`
	Plan   string `gorm:"not null;default:'FREE'" json:"plan"`

	// Resource ceilings; -1 means unlimited
	MaxUsers    int `gorm:"not null;default:5" json:"max_users"`
	MaxMachines int `gorm:"not null;default:3" json:"max_machines"`

	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`

	// Kill switch, independent of Status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Marks the cross-tenant super-tenant
	IsPlatformAdmin bool `gorm:"default:false" json:"is_platform_admin"`

	Settings TenantSettings `gorm:"type:jsonb" json:"settings"`
}

// Clone returns a copy safe to hand to one request and mutate there without
// other holders of the row observing the edits. The overrides map is copied,
// not aliased.
func (t *Tenant) Clone() *Tenant {
	clone := *t
	if t.Settings.FeatureOverrides != nil {
		overrides := make(map[string]bool, len(t.Settings.FeatureOverrides))
		for k, v := range t.Settings.FeatureOverrides {
			overrides[k] = v
		}
		clone.Settings.FeatureOverrides = overrides
	}
	return &clone
}

// InTrialWindow reports whether the tenant is inside an unexpired trial.
func (t *Tenant) InTrialWindow() bool {
	return t.Status == TenantStatusTrial && t.TrialEndsAt != nil && t.TrialEndsAt.After(time.Now())
}

// LimitFor returns the tenant's ceiling for a quota resource.
func (t *Tenant) LimitFor(resource string) (int, error) {
	switch resource {
	case QuotaResourceUsers:
		return t.MaxUsers, nil
	case QuotaResourceMachines:
		return t.MaxMachines, nil
	}
	return 0, fmt.Errorf("unknown quota resource %q", resource)
}

// Quota resources
const (
	QuotaResourceUsers    = "users"
	QuotaResourceMachines = "machines"
)

// TenantUser links a user to the single tenant it belongs to.
type TenantUser struct {
	gorm.Model
	TenantID      uint `gorm:"not null;index" json:"tenant_id"`
	UserID        uint `gorm:"not null;uniqueIndex" json:"user_id"`
	IsTenantAdmin bool `gorm:"default:false" json:"is_tenant_admin"`

	// Relations
	Tenant Tenant `json:"-"`
	User   User   `json:"-"`
}
