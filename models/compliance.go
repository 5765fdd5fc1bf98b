package models

import "gorm.io/gorm"

// ComplianceModeStandard is the default, fully permissive mode.
const ComplianceModeStandard = "standard"

// ComplianceSettings is the per-tenant policy layered on top of plan and role
// authorization. One row per tenant; the "standard" defaults permit everything
// and require nothing.
type ComplianceSettings struct {
	gorm.Model
	TenantID       uint   `gorm:"uniqueIndex;not null" json:"tenant_id"`
	ComplianceMode string `gorm:"not null;default:'standard'" json:"compliance_mode"`

	CanCreate bool `gorm:"default:true" json:"can_create"`
	CanEdit   bool `gorm:"default:true" json:"can_edit"`
	CanDelete bool `gorm:"default:true" json:"can_delete"`
	CanExport bool `gorm:"default:true" json:"can_export"`
	CanConfig bool `gorm:"default:true" json:"can_config"`

	RequiresConfirmation bool `gorm:"default:false" json:"requires_confirmation"`
	RequiresReason       bool `gorm:"default:false" json:"requires_reason"`

	// Relations
	Tenant Tenant `json:"-"`
}

// DefaultComplianceSettings returns the permissive standard-mode row for a tenant.
func DefaultComplianceSettings(tenantID uint) *ComplianceSettings {
	return &ComplianceSettings{
		TenantID:       tenantID,
		ComplianceMode: ComplianceModeStandard,
		CanCreate:      true,
		CanEdit:        true,
		CanDelete:      true,
		CanExport:      true,
		CanConfig:      true,
	}
}

// IsPermissive reports whether enforcement can skip straight to the handler.
func (cs *ComplianceSettings) IsPermissive() bool {
	return cs.ComplianceMode == ComplianceModeStandard &&
		cs.CanCreate && cs.CanEdit && cs.CanDelete && cs.CanExport && cs.CanConfig &&
		!cs.RequiresConfirmation && !cs.RequiresReason
}

// CapabilityFor maps an HTTP write method to the capability it exercises.
func (cs *ComplianceSettings) CapabilityFor(method string) (string, bool) {
	switch method {
	case "POST":
		return "create", cs.CanCreate
	case "PUT", "PATCH":
		return "edit", cs.CanEdit
	case "DELETE":
		return "delete", cs.CanDelete
	}
	return "", true
}
