// Package dedup 实现 gossip 消息去重
//
// Cache 是有界的 LRU+TTL 哈希缓存：容量满时驱逐最久未使用的条目，
// 超过 TTL 的条目视为未见过。Manager 在 Cache 之上增加统计与配置，
// 并固定消息哈希算法（BLAKE3-256），同一主题的所有节点必须使用相同算法。
package dedup

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// MessageHash 32 字节消息哈希
type MessageHash = [32]byte

// entry 缓存条目
type entry struct {
	firstSeen time.Time
	seenCount uint32
}

// Cache LRU+TTL 去重缓存
//
// 内部加锁，可被多个入站任务并发调用。
type Cache struct {
	mu    sync.Mutex
	lru   *simplelru.LRU[MessageHash, *entry]
	ttl   time.Duration
	clock clock.Clock
}

// NewCache 创建去重缓存，容量小于 1 时按 1 处理
func NewCache(capacity int, ttl time.Duration, clk clock.Clock) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	if clk == nil {
		clk = clock.New()
	}
	// 仅在 size <= 0 时返回错误
	lru, _ := simplelru.NewLRU[MessageHash, *entry](capacity, nil) //nolint:errcheck
	return &Cache{
		lru:   lru,
		ttl:   ttl,
		clock: clk,
	}
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.firstSeen) > c.ttl
}

// ShouldProcess 消息是否应当处理
//
// 未见过或已过期返回 true，过期条目在此时移除；TTL 内重复返回 false。
func (c *Cache) ShouldProcess(h MessageHash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(h)
	if !ok {
		return true
	}
	if c.expired(e, c.clock.Now()) {
		c.lru.Remove(h)
		return true
	}
	return false
}

// MarkSeen 记录已见
//
// 已存在的条目只增加计数，不刷新首次时间。超出容量时驱逐最久未使用的条目。
func (c *Cache) MarkSeen(h MessageHash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Get(h); ok {
		if e.seenCount < ^uint32(0) {
			e.seenCount++
		}
		return
	}
	c.lru.Add(h, &entry{firstSeen: c.clock.Now(), seenCount: 1})
}

// CheckAndMark 原子地检查并记录
//
// 新消息（或已过期）返回 true 并记录；TTL 内重复返回 false。
// 两个并发调用者不会同时得到 true。
func (c *Cache) CheckAndMark(h MessageHash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if e, ok := c.lru.Get(h); ok {
		if c.expired(e, now) {
			e.firstSeen = now
			e.seenCount = 1
			return true
		}
		if e.seenCount < ^uint32(0) {
			e.seenCount++
		}
		return false
	}
	c.lru.Add(h, &entry{firstSeen: now, seenCount: 1})
	return true
}

// SeenCount 返回条目的累计次数，不影响 LRU 顺序
func (c *Cache) SeenCount(h MessageHash) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.lru.Peek(h); ok {
		return e.seenCount
	}
	return 0
}

// GC 移除所有过期条目，返回移除数量
func (c *Cache) GC() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for _, h := range c.lru.Keys() {
		if e, ok := c.lru.Peek(h); ok && c.expired(e, now) {
			c.lru.Remove(h)
			removed++
		}
	}
	return removed
}

// Len 返回条目数
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
