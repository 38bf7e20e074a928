package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJSON = `{
	"server_address": ":3000",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"viacep_base_url": "https://cep.example.com/ws",
	"lookup_timeout": 2000000000
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://viacep.com.br/ws", cfg.ViaCEPBaseURL)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.GeocoderBaseURL)
	assert.Equal(t, 5*time.Second, cfg.LookupTimeout)
	assert.Equal(t, 64, cfg.ChannelCapacity)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "https://cep.example.com/ws", cfg.ViaCEPBaseURL)
	assert.Equal(t, 2*time.Second, cfg.LookupTimeout)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("GEOCODER_USER_AGENT", "agenda-test/9.9")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, "agenda-test/9.9", cfg.GeocoderUserAgent)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestValidation(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err, "an unknown log level should fail validation")
}
