package config_test

import (
	"encoding/json"
	"testing"

	"github.com/chainapsis/oko-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintServiceEnv(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(cfg, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestDatabaseConnectionString(t *testing.T) {
	cfg := config.Database{
		Host:     "localhost",
		Port:     5432,
		Username: "dbuser",
		Password: "secret",
		Database: "tss",
		AdditionalParams: map[string]string{
			"sslmode":         "disable",
			"connect_timeout": "5",
		},
	}

	dsn := cfg.ConnectionString()
	// additional params are appended in stable order
	assert.Equal(t, "host=localhost port=5432 user=dbuser password=secret dbname=tss connect_timeout=5 sslmode=disable", dsn)
}

func TestSensitiveFieldsNotMarshaled(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Database.Password = "super-secret"
	cfg.Auth.Secret = "jwt-secret"
	cfg.TSS.StageDataPassphrase = "cipher-secret"

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "super-secret")
	assert.NotContains(t, string(raw), "jwt-secret")
	assert.NotContains(t, string(raw), "cipher-secret")
}
