package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Handshake.Timeout.Duration())
	assert.Equal(t, 10000, cfg.Dedup.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.Dedup.TTL.Duration())
	assert.False(t, cfg.Adapter.LoopbackBroadcast)
}

// TestConfig_ValidateNil 测试空配置
func TestConfig_ValidateNil(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrNilConfig)
}

// TestConfig_Validate 测试各子配置的错误
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad key type", func(c *Config) { c.Identity.KeyType = "rsa" }},
		{"bad key hex", func(c *Config) { c.Identity.PrivateKeyHex = "zz" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"empty session", func(c *Config) { c.Handshake.SessionID = "" }},
		{"zero timeout", func(c *Config) { c.Handshake.Timeout = 0 }},
		{"sweep exceeds timeout", func(c *Config) { c.Handshake.SweepInterval = Duration(time.Minute) }},
		{"negative ttl", func(c *Config) { c.Dedup.TTL = Duration(-time.Second) }},
		{"bad party", func(c *Config) { c.Handshake.Parties = []string{"xyz"} }},
		{"zero capacity", func(c *Config) { c.Dedup.Capacity = 0 }},
		{"empty topic", func(c *Config) { c.Host.Topic = "" }},
		{"bad namespace", func(c *Config) { c.Metrics.Namespace = "1-bad" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestFromJSON 测试 JSON 覆盖默认值
func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"handshake": {"session_id": "epoch-7", "timeout": "10s"},
		"dedup": {"capacity": 3, "ttl": 1000000000}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "epoch-7", cfg.Handshake.SessionID)
	assert.Equal(t, 10*time.Second, cfg.Handshake.Timeout.Duration())
	assert.Equal(t, 5*time.Second, cfg.Handshake.SweepInterval.Duration())
	assert.Equal(t, 3, cfg.Dedup.Capacity)
	assert.Equal(t, time.Second, cfg.Dedup.TTL.Duration())
	assert.Equal(t, "roundnet/gossip", cfg.Host.Topic)

	_, err = FromJSON([]byte(`{"handshake": {"timeout": "soon"}}`))
	assert.Error(t, err)
}

// TestDuration_UnmarshalJSON 测试时长的两种写法
func TestDuration_UnmarshalJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(` "1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalJSON([]byte(`250000000`)))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`1.5`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := Duration(1500 * time.Millisecond).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))
}

// TestHandshakeConfig_WithTimeout 测试缩短超时时清理周期随之缩短
func TestHandshakeConfig_WithTimeout(t *testing.T) {
	c := DefaultHandshakeConfig().WithTimeout(time.Second)
	assert.Equal(t, time.Second, c.SweepInterval.Duration())
	assert.NoError(t, c.Validate())

	c = DefaultHandshakeConfig().WithTimeout(time.Minute)
	assert.Equal(t, 5*time.Second, c.SweepInterval.Duration())

	c.SweepInterval = Duration(2 * time.Minute)
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep_interval")
}

// TestToJSON_RoundTrip 测试序列化后可重新加载
func TestToJSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Handshake = cfg.Handshake.WithParties([]byte{1, 2}, []byte{3})

	data, err := cfg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timeout": "30s"`)

	path := filepath.Join(t.TempDir(), "roundnet.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	back, err := LoadFile(path)
	require.NoError(t, err)
	keys, err := back.Handshake.PartyKeys()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2}, {3}}, keys)
}
