package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	my := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "hr", Password: "p@ss", Name: "hr"}
	dsn := my.DSN()
	assert.True(t, strings.HasPrefix(dsn, "hr:p@ss@tcp(db:3306)/hr?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "hr", Password: "secret", Name: "hr"}
	assert.Equal(t, "postgres://hr:secret@db:5432/hr?sslmode=disable", pg.DSN())

	lite := DatabaseConfig{Driver: "sqlite", Path: "data", Name: "hr"}
	assert.Equal(t, "data/hr.db", lite.DSN())
	assert.True(t, lite.IsSQLite())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_USER", "hr")
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("CATALOG_PATH", "/etc/hr/catalog.yaml")
	t.Setenv("SESSION_SWEEP_INTERVAL", "120")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "hr", cfg.Database.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/etc/hr/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 120, cfg.Auth.SweepInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsToMySQL(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 0, cfg.Auth.SweepInterval)
	assert.Empty(t, cfg.Catalog.Path)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "mysql", Name: "hr"}}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"database.host", "database.user", "auth.secret"} {
		assert.True(t, strings.Contains(err.Error(), want), "missing %s in %v", want, err)
	}

	cfg = &Config{Database: DatabaseConfig{Driver: "oracle", Name: "hr"}, Auth: AuthConfig{Secret: "x"}}
	assert.ErrorContains(t, cfg.Validate(), "unsupported database.driver")
}
