package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "5000", c.AppPort)
	assert.Equal(t, time.Hour, c.JWTExpiresIn)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, 60, c.RateLimitPerMinute)
	assert.Equal(t, 5, c.UploadMaxSizeMB)
	assert.Equal(t, 1440, c.UploadOrphanTTLMinutes)
	assert.Equal(t, "/gen/", c.DefaultCommunity)
	assert.Len(t, c.Communities, 10)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("JWT_EXPIRES_IN", "90m")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ADMIN_USERNAMES", "root,  ops ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, 90*time.Minute, c.JWTExpiresIn)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, []string{"root", "ops"}, c.AdminUsernames)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
}

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "8080", "JWTExpiresIn": "2h", "Communities": ["/a/"]},
		"database": {"Driver": "sqlite", "SQLitePath": "x.db"},
		"upload": {"MaxSizeMB": 2},
		"admin": {"Usernames": ["root"]}
	}`), 0o644))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 2*time.Hour, c.JWTExpiresIn)
	assert.Equal(t, []string{"/a/"}, c.Communities)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "x.db", c.SQLitePath)
	assert.Equal(t, 2, c.UploadMaxSizeMB)
	assert.Equal(t, []string{"root"}, c.AdminUsernames)

	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "missing.json"), &c))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	assert.Error(t, loadJSONConfig(bad, &c))
}

func TestDSNs(t *testing.T) {
	assert.Equal(t, "file::memory:?_foreign_keys=1", sqliteDSN(":memory:"))
	assert.Equal(t, "board.db?_foreign_keys=1", sqliteDSN("board.db"))
	assert.Equal(t, "board.db?cache=shared&_foreign_keys=1", sqliteDSN("board.db?cache=shared"))

	c := AppConfig{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", mysqlDSN(c))
	c.DatabaseURI = "custom"
	assert.Equal(t, "custom", mysqlDSN(c))
}

func TestToGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, toGormLogLevel("debug"))
	assert.Equal(t, logger.Warn, toGormLogLevel("info"))
	assert.Equal(t, logger.Error, toGormLogLevel("error"))
	assert.Equal(t, logger.Silent, toGormLogLevel("silent"))
}

func TestOpenDatabaseSQLite(t *testing.T) {
	db, err := OpenDatabase(AppConfig{DBDriver: "sqlite", SQLitePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)

	_, err = OpenDatabase(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestOpenDatabaseReturnsIndependentHandles(t *testing.T) {
	type note struct {
		ID   uint
		Body string
	}
	c := AppConfig{DBDriver: "sqlite", SQLitePath: ":memory:", LogLevel: "silent"}
	first, err := OpenDatabase(c, &note{})
	require.NoError(t, err)
	second, err := OpenDatabase(c)
	require.NoError(t, err)

	assert.True(t, first.Migrator().HasTable(&note{}))
	assert.False(t, second.Migrator().HasTable(&note{}))
}
