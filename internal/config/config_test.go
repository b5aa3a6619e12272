package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/domain/ledger"
)

func TestLoadFile_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("APP_ENV", EnvMemory)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, []string{"optics"}, cfg.Ledger.RollupAccounts)
	assert.Equal(t, "POS Sale", cfg.Ledger.SaleCategory)
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, ":9091", cfg.Worker.MetricsAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.Worker.OutboxRetention)

	sc := cfg.SaleConfig()
	assert.Equal(t, []ledger.AccountKind{ledger.Optics}, sc.RollupAccounts)
}

func TestLoadFile_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  env: production
  port: 9090
database:
  dsn: postgres://clinic@localhost/clinic
  lock_timeout: 2s
jwt:
  secret: from-file
ledger:
  rollup_accounts: [optics, operation]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.App.Env)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 2*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"optics", "operation"}, cfg.Ledger.RollupAccounts)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.App.Env = EnvProduction
		c.App.Port = 8080
		c.Database.DSN = "postgres://localhost/clinic"
		c.JWT.Secret = "s3cret"
		c.Ledger.RollupAccounts = []string{"optics"}
		return c
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Database.DSN = ""
	assert.Error(t, c.Validate())

	c = base()
	c.App.Env = EnvMemory
	c.Database.DSN = ""
	assert.NoError(t, c.Validate())

	c = base()
	c.JWT.Secret = ""
	assert.Error(t, c.Validate())

	c = base()
	c.App.Env = EnvDevelopment
	c.JWT.Secret = ""
	assert.NoError(t, c.Validate())

	c = base()
	c.Ledger.RollupAccounts = []string{"pharmacy"}
	assert.Error(t, c.Validate())
}
