package config

import (
	"errors"
	"time"
)

// DedupConfig gossip 去重缓存配置
type DedupConfig struct {
	// Capacity 缓存的最大消息哈希数
	Capacity int `json:"capacity"`

	// TTL 哈希条目的有效期
	TTL Duration `json:"ttl"`

	// GCInterval 主动清理过期条目的周期
	GCInterval Duration `json:"gc_interval"`

	// EnableStats 是否统计 processed/duplicates/regossiped/send_failures
	EnableStats bool `json:"enable_stats"`
}

// DefaultDedupConfig 返回默认去重配置
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		Capacity:    10000,
		TTL:         Duration(5 * time.Minute),
		GCInterval:  Duration(time.Minute),
		EnableStats: true,
	}
}

// Validate 验证去重配置
func (c DedupConfig) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("capacity must be positive")
	}
	if err := c.TTL.positive("ttl"); err != nil {
		return err
	}
	if err := c.GCInterval.positive("gc_interval"); err != nil {
		return err
	}
	return nil
}
