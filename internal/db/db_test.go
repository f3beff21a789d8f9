package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/models"
)

func TestOpenAndMigrate(t *testing.T) {
	gdb, err := Open(&config.Config{DBDriver: "sqlite", DBDSN: "file:dbtest?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, m := range models.All() {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

func TestConnect(t *testing.T) {
	gdb, closeDB, err := Connect(&config.Config{DBDriver: "sqlite", DBDSN: "file:dbconnect?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NotNil(t, closeDB)
	assert.True(t, gdb.Migrator().HasTable(&models.Order{}))

	require.NoError(t, closeDB())
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping(), "pool is closed")
}

func TestConnect_BadDSN(t *testing.T) {
	_, closeDB, err := Connect(&config.Config{DBDriver: "sqlite", DBDSN: "file:/nonexistent-dir/x/db.sqlite?mode=ro"})
	assert.Error(t, err)
	assert.Nil(t, closeDB)
}
