package models

import (
	"time"

	"gorm.io/gorm"
)

// Machine is a tenant-scoped plant asset. Counted against the machines quota.
type Machine struct {
	gorm.Model
	TenantID     uint   `gorm:"not null;index" json:"tenant_id"`
	Code         string `gorm:"not null" json:"code"`
	Name         string `gorm:"not null" json:"name"`
	Location     string `json:"location"`
	Status       string `gorm:"default:'operational'" json:"status"` // operational, maintenance, retired
	SerialNumber string `json:"serial_number"`

	// Relations
	Tenant Tenant `json:"-"`
}

// Shift is a tenant-scoped work shift.
type Shift struct {
	gorm.Model
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`
	Name      string    `gorm:"not null" json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	MachineID *uint     `json:"machine_id,omitempty"`

	// Relations
	Tenant  Tenant   `json:"-"`
	Machine *Machine `json:"machine,omitempty"`
}

// ProductionLog records output for a machine during a shift.
type ProductionLog struct {
	gorm.Model
	TenantID   uint      `gorm:"not null;index" json:"tenant_id"`
	MachineID  uint      `gorm:"not null;index" json:"machine_id"`
	ShiftID    *uint     `json:"shift_id,omitempty"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	ScrapCount int       `gorm:"default:0" json:"scrap_count"`
	RecordedAt time.Time `json:"recorded_at"`
	Notes      string    `json:"notes"`

	// Relations
	Tenant  Tenant  `json:"-"`
	Machine Machine `json:"-"`
	Shift   *Shift  `json:"shift,omitempty"`
}
