package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"IRA_HTTP_ADDR", "IRA_STORAGE", "IRA_DB_DSN", "IRA_JWT_SECRET", "IRA_TOKEN_TTL",
		"IRA_CORS_ORIGINS", "PORT", "JWT_SECRET", "DATABASE_URL",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.True(t, cfg.UsesDevSecret())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("IRA_STORAGE", "memory")
	t.Setenv("IRA_TOKEN_TTL", "1h")
	t.Setenv("JWT_SECRET", "legacy-secret")
	t.Setenv("PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "legacy-secret", cfg.JWTSecret)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
}

func TestLoad_PrefixedAddrBeatsPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("IRA_HTTP_ADDR", "127.0.0.1:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ira.yaml")
	data := []byte("storage: memory\njwt_secret: from-file\ntoken_ttl: 2h\ncors_origins:\n  - http://localhost:3000\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_FileAddrBeatsPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	path := filepath.Join(t.TempDir(), "ira.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: 127.0.0.1:8081\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", cfg.HTTPAddr)

	t.Setenv("IRA_HTTP_ADDR", "127.0.0.1:9000")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{HTTPAddr: ":1", Storage: "mongo", TokenTTL: 0}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage must be")
	assert.Contains(t, err.Error(), "token_ttl must be positive")
}
