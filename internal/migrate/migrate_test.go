package migrate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/courier/pkg/models"
)

func openSQLite(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestRunMigrations_SQLite(t *testing.T) {
	db := openSQLite(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	require.NoError(t, RunMigrations(sqlDB, DriverSQLite))
	// A second run is a no-op.
	require.NoError(t, RunMigrations(sqlDB, DriverSQLite))

	version, dirty, err := GetMigrationVersion(sqlDB, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	// The schema accepts the gorm models.
	require.NoError(t, db.Create(&models.User{ID: "u1", Name: "Ada"}).Error)
	n := &models.Notification{
		Type:          "comment_reply",
		Icon:          "Comment",
		Title:         "hello",
		TargetURL:     "https://app.example.com",
		ReferenceID:   "c1",
		ReferenceType: "comment",
		Avatars:       []uuid.UUID{uuid.New()},
	}
	require.NoError(t, db.Create(n).Error)
	require.NoError(t, db.Create(&models.UserNotification{UserID: "u1", NotificationID: n.ID, Public: true}).Error)

	got, err := models.GetNotification(db, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Avatars, got.Avatars)
	assert.Empty(t, got.Attachments)

	dup := &models.Notification{
		Type:          "comment_reply",
		Icon:          "Comment",
		Title:         "again",
		TargetURL:     "https://app.example.com",
		ReferenceID:   "c1",
		ReferenceType: "comment",
	}
	assert.Error(t, db.Create(dup).Error, "dedup index must reject a replay")
}

func TestRollback(t *testing.T) {
	db := openSQLite(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, RunMigrations(sqlDB, DriverSQLite))

	require.NoError(t, Rollback(sqlDB, DriverSQLite, 1))
	version, _, err := GetMigrationVersion(sqlDB, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, db.Migrator().HasColumn(&models.UserNotification{}, "email_sent_at"))
	assert.True(t, db.Migrator().HasTable("notifications"))

	require.NoError(t, Rollback(sqlDB, DriverSQLite, 1))
	version, _, err = GetMigrationVersion(sqlDB, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, db.Migrator().HasTable("notifications"))
	assert.True(t, db.Migrator().HasTable("users"))

	assert.Error(t, Rollback(sqlDB, DriverSQLite, 0))
}

func TestUnsupportedDriver(t *testing.T) {
	db := openSQLite(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	err = RunMigrations(sqlDB, "mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
