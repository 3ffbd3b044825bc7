package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truck-inspection-backend/config"
	"truck-inspection-backend/internal/logger"
	"truck-inspection-backend/internal/model"
)

func TestDialector(t *testing.T) {
	assert.Equal(t, "postgres", Dialector("postgres://fleet@localhost/inspections").Name())
	assert.Equal(t, "postgres", Dialector("host=localhost user=fleet dbname=inspections").Name())
	assert.Equal(t, "sqlite", Dialector("inspections.db").Name())
	assert.Equal(t, "sqlite", Dialector("file::memory:?cache=shared").Name())
}

func TestInit_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		DSN:                    filepath.Join(t.TempDir(), "inspections.db"),
		MaxOpenConns:           1,
		MaxIdleConns:           1,
		ConnMaxLifetimeMinutes: 1,
	}

	gormDB, err := Init(cfg, logger.Nop())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.True(t, gormDB.Migrator().HasTable(&model.Inspection{}))
	assert.True(t, gormDB.Migrator().HasTable(&model.PushSubscription{}))
	assert.True(t, gormDB.Migrator().HasTable(&model.SubscriptionTruck{}))
}
