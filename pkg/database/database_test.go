package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type testEntry struct {
	ID    int64 `gorm:"primaryKey"`
	Key   string
	Value string
}

func TestInitDB_Sqlite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")

	db, err := InitDB(Options{Driver: "sqlite", DSN: dsn, LogLevel: logger.Silent}, &testEntry{})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.Create(&testEntry{Key: "k", Value: "v"}).Error)

	var got testEntry
	require.NoError(t, db.First(&got, "key = ?", "k").Error)
	assert.Equal(t, "v", got.Value)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB(Options{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestApplyPool(t *testing.T) {
	opts := Options{MaxOpenConns: 5}
	applyPool(&opts)
	assert.Equal(t, 10, opts.MaxIdleConns)
	assert.Equal(t, 5, opts.MaxOpenConns)
	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
	assert.Equal(t, logger.Warn, opts.LogLevel)
}
