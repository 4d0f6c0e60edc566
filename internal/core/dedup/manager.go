package dedup

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"lukechampine.com/blake3"
)

// Config 去重管理器配置
type Config struct {
	// Capacity 最大缓存哈希数
	Capacity int

	// TTL 哈希有效期
	TTL time.Duration

	// EnableStats 是否统计
	EnableStats bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Capacity:    10000,
		TTL:         5 * time.Minute,
		EnableStats: true,
	}
}

// ForTesting 返回测试用配置（小容量、短 TTL）
func ForTesting() Config {
	return Config{
		Capacity:    100,
		TTL:         30 * time.Second,
		EnableStats: true,
	}
}

// Stats 去重统计快照
type Stats struct {
	Processed  uint64
	Duplicates uint64
	Regossiped uint64
	// SendFailures 转发失败次数
	SendFailures uint64
}

// Option 管理器选项
type Option func(*Manager)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// Manager gossip 去重管理器
type Manager struct {
	cfg   Config
	clock clock.Clock
	cache *Cache

	processed    atomic.Uint64
	duplicates   atomic.Uint64
	regossiped   atomic.Uint64
	sendFailures atomic.Uint64
}

// NewManager 创建去重管理器
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:   cfg,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewCache(cfg.Capacity, cfg.TTL, m.clock)
	return m
}

// HashMessage 计算消息哈希（BLAKE3-256）
func HashMessage(data []byte) MessageHash {
	return blake3.Sum256(data)
}

// ShouldProcess 消息是否应当处理
func (m *Manager) ShouldProcess(h MessageHash) bool {
	return m.cache.ShouldProcess(h)
}

// MarkProcessed 记录已处理
func (m *Manager) MarkProcessed(h MessageHash) {
	m.cache.MarkSeen(h)
	if m.cfg.EnableStats {
		m.processed.Add(1)
	}
}

// CheckAndMark 原子检查并记录，同时更新 processed/duplicates 计数
func (m *Manager) CheckAndMark(h MessageHash) bool {
	fresh := m.cache.CheckAndMark(h)
	if m.cfg.EnableStats {
		if fresh {
			m.processed.Add(1)
		} else {
			m.duplicates.Add(1)
		}
	}
	return fresh
}

// RecordDuplicate 记录一次重复
func (m *Manager) RecordDuplicate() {
	if m.cfg.EnableStats {
		m.duplicates.Add(1)
	}
}

// RecordRegossip 记录一次转发
func (m *Manager) RecordRegossip() {
	if m.cfg.EnableStats {
		m.regossiped.Add(1)
	}
}

// RecordSendFailure 记录一次发送失败
func (m *Manager) RecordSendFailure() {
	if m.cfg.EnableStats {
		m.sendFailures.Add(1)
	}
}

// Stats 返回统计快照，未开启统计时 ok 为 false
//
// 计数器只增不减，读取不会阻塞写入方。
func (m *Manager) Stats() (Stats, bool) {
	if !m.cfg.EnableStats {
		return Stats{}, false
	}
	return Stats{
		Processed:    m.processed.Load(),
		Duplicates:   m.duplicates.Load(),
		Regossiped:   m.regossiped.Load(),
		SendFailures: m.sendFailures.Load(),
	}, true
}

// GC 清理过期条目
func (m *Manager) GC() int {
	return m.cache.GC()
}

// Cache 返回底层缓存
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Config 返回配置
func (m *Manager) Config() Config {
	return m.cfg
}
