package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Engine.SnapshotInterval)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9999"
kafka:
  brokers: ["k1:9092", "k2:9092"]
  commandTopic: commands
store:
  dir: /var/lib/mako
engine:
  snapshotEvery: 64
markets:
  - amountAsset: 3q6cg0xIlKYTEU6OT-Pm5w1custnIq7z3zb4BfXZlUM
    priceAsset: MAKO
    minAmount: 10
    stepPrice: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "commands", cfg.Kafka.CommandTopic)
	assert.Equal(t, 64, cfg.Engine.SnapshotEvery)

	require.Len(t, cfg.Markets, 1)
	pair, err := cfg.Markets[0].Pair()
	require.NoError(t, err)
	assert.True(t, pair.PriceAsset.IsNative())

	restrictions, err := cfg.RestrictionsByPair()
	require.NoError(t, err)
	r, ok := restrictions[pair.Key()]
	require.True(t, ok)
	assert.Equal(t, uint64(10), r.MinAmount)
	assert.Equal(t, uint64(5), r.StepPrice)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MAKO_HTTP_ADDR", ":7777")
	t.Setenv("MAKO_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTP.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestValidateRejectsBadMarket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
markets:
  - amountAsset: MAKO
    priceAsset: MAKO
`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
