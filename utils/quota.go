package utils

import (
	"gorm.io/gorm"

	"shopfloor/models"
)

// QuotaResult carries what a UI needs to render "X of Y used".
type QuotaResult struct {
	Allowed bool  `json:"allowed"`
	Current int64 `json:"current"`
	Limit   int   `json:"limit"`
}

// QuotaValidator compares live resource counts against tenant limits. It is a
// pre-flight gate called before provisioning a resource, not an after-the-fact
// audit, so the comparison is strictly current < limit.
//
// There is deliberately no transaction spanning the check and the caller's
// insert: two concurrent creations can each pass and jointly exceed the limit
// by one. The limit is a business control, not a safety invariant, and the
// soft race is accepted.
type QuotaValidator struct {
	db *gorm.DB
}

func NewQuotaValidator(db *gorm.DB) *QuotaValidator {
	return &QuotaValidator{db: db}
}

// Check validates the tenant's quota for a resource. An unlimited limit (-1)
// short-circuits to allowed without issuing a usage count.
func (v *QuotaValidator) Check(tenant *models.Tenant, resource string) (QuotaResult, error) {
	limit, err := tenant.LimitFor(resource)
	if err != nil {
		return QuotaResult{}, err
	}
	if limit == models.UnlimitedQuota {
		return QuotaResult{Allowed: true, Current: 0, Limit: limit}, nil
	}

	current, err := v.count(tenant.ID, resource)
	if err != nil {
		return QuotaResult{}, err
	}

	return QuotaResult{
		Allowed: current < int64(limit),
		Current: current,
		Limit:   limit,
	}, nil
}

// count tallies live (non-deleted) rows scoped to the tenant. Soft-deleted
// rows are excluded by gorm's default scope.
func (v *QuotaValidator) count(tenantID uint, resource string) (int64, error) {
	var current int64
	var err error
	switch resource {
	case models.QuotaResourceUsers:
		err = v.db.Model(&models.TenantUser{}).Where("tenant_id = ?", tenantID).Count(&current).Error
	case models.QuotaResourceMachines:
		err = v.db.Model(&models.Machine{}).Where("tenant_id = ?", tenantID).Count(&current).Error
	}
	return current, err
}
