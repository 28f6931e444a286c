package database

import (
	"path/filepath"
	"testing"

	"chirp/internal/config"
	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_SQLiteAutoMigrates(t *testing.T) {
	cfg := &config.Config{
		DBDriver:      config.DriverSQLite,
		DBSQLitePath:  filepath.Join(t.TempDir(), "chirp.db"),
		DBAutoMigrate: true,
	}

	db, err := Connect(cfg)
	require.NoError(t, err)

	for _, table := range []string{"users", "username_claims", "posts", "post_likes", "comments", "follow_edges"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.UsernameClaim{}, "idx_username_claims_user"))
}

func TestDialector_UnsupportedDriver(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestPersistentModels_IncludesConsistencyIndexes(t *testing.T) {
	found := map[string]bool{}
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.UsernameClaim:
			found["claims"] = true
		case *models.Like:
			found["likes"] = true
		case *models.FollowEdge:
			found["follows"] = true
		}
	}
	assert.Len(t, found, 3, "PersistentModels should include claims, likes and follow edges")
}

func TestReadDB_DefaultsToNil(t *testing.T) {
	assert.Nil(t, GetReadDB())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	SetReadDB(db)
	t.Cleanup(func() { SetReadDB(nil) })
	assert.Same(t, db, GetReadDB())
}
