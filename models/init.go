package models

import "gorm.io/gorm"

// Migrate runs the schema migration for every table this core owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Tenant{},
		&TenantUser{},
		&PlanDefinition{},
		&ComplianceSettings{},
		&Machine{},
		&Shift{},
		&ProductionLog{},
	)
}
