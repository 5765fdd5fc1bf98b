package utils

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopfloor/models"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:utilstest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))
	return db
}

func createTenant(t *testing.T, db *gorm.DB, mutate func(*models.Tenant)) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Slug:        fmt.Sprintf("acme-%d", atomic.AddInt64(&testDBCounter, 1)),
		Name:        "Acme Manufacturing",
		Status:      models.TenantStatusActive,
		Plan:        models.PlanStarter,
		MaxUsers:    10,
		MaxMachines: 15,
		IsActive:    true,
	}
	if mutate != nil {
		mutate(tenant)
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

func pastTime(d time.Duration) *time.Time {
	ts := time.Now().Add(-d)
	return &ts
}

func futureTime(d time.Duration) *time.Time {
	ts := time.Now().Add(d)
	return &ts
}
