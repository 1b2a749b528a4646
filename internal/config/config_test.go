package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "scancart", cfg.MongoDBName)
	assert.Equal(t, "tag-scans", cfg.ScanTopic)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STORAGE_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.StorageTimeout)
	assert.True(t, cfg.KafkaEnabled())
}

func TestLoad_RejectsNonPositiveStorageTimeout(t *testing.T) {
	t.Setenv("STORAGE_TIMEOUT", "0s")

	_, err := Load()
	require.ErrorContains(t, err, "STORAGE_TIMEOUT")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}
