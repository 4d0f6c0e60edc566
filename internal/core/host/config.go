package host

import (
	"errors"
	"time"
)

// Config Host 配置
type Config struct {
	// Topic gossip 广播主题
	Topic string

	// InboxCapacity 每个协议入站队列容量
	InboxCapacity int

	// Regossip 转发首次见到的 gossip 帧
	Regossip bool

	// AutoInitiate 连接建立后自动发起握手
	AutoInitiate bool

	// GCInterval 去重缓存清理周期
	GCInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Topic:         "roundnet/gossip",
		InboxCapacity: 4096,
		AutoInitiate:  true,
		GCInterval:    time.Minute,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Topic == "" {
		return errors.New("topic cannot be empty")
	}
	if c.InboxCapacity <= 0 {
		return errors.New("inbox capacity must be positive")
	}
	if c.GCInterval <= 0 {
		return errors.New("gc interval must be positive")
	}
	return nil
}
