// Package config 提供 roundnet 的统一配置
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 并各自提供 DefaultXxxConfig、Validate 以及 WithXxx 构造器。
//
//	cfg := config.NewConfig()
//	cfg.Handshake = cfg.Handshake.WithSessionID("dkg-2024-epoch-7")
//	cfg.Dedup.Capacity = 50000
//
//	// 从 JSON 加载，缺省字段保留默认值
//	cfg, err := config.FromJSON(data)
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ErrNilConfig 配置为空
var ErrNilConfig = errors.New("config: nil config")

// Config roundnet 节点完整配置
//
//   - Identity: 本地密钥
//   - Log: 日志输出
//   - Handshake: 握手协调与会话参与方
//   - Dedup: gossip 去重缓存
//   - Host: 入站路由与主题
//   - Adapter: 轮次适配器
//   - Metrics: Prometheus 指标
type Config struct {
	Identity  IdentityConfig  `json:"identity"`
	Log       LogConfig       `json:"log"`
	Handshake HandshakeConfig `json:"handshake"`
	Dedup     DedupConfig     `json:"dedup"`
	Host      HostConfig      `json:"host"`
	Adapter   AdapterConfig   `json:"adapter"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Log:       DefaultLogConfig(),
		Handshake: DefaultHandshakeConfig(),
		Dedup:     DefaultDedupConfig(),
		Host:      DefaultHostConfig(),
		Adapter:   DefaultAdapterConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 依次验证所有子配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := c.Identity.Validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Handshake.Validate(); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if err := c.Dedup.Validate(); err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if err := c.Host.Validate(); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// FromJSON 从 JSON 解析配置
//
// 以默认配置为底，JSON 中出现的字段覆盖默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
