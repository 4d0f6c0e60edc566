package dedup

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-roundnet/config"
)

func hashOf(b byte) MessageHash {
	var h MessageHash
	h[0] = b
	return h
}

// ============================================================================
//                              Cache 测试
// ============================================================================

// TestCache_Basic 测试标记后视为重复
func TestCache_Basic(t *testing.T) {
	c := NewCache(100, time.Minute, clock.NewMock())
	h := hashOf(1)

	assert.True(t, c.ShouldProcess(h))
	c.MarkSeen(h)
	assert.False(t, c.ShouldProcess(h))

	c.MarkSeen(h)
	assert.Equal(t, uint32(2), c.SeenCount(h))
}

// TestCache_CheckAndMark 测试连续调用返回 (true, false)
func TestCache_CheckAndMark(t *testing.T) {
	c := NewCache(100, time.Minute, clock.NewMock())
	h := hashOf(2)

	assert.True(t, c.CheckAndMark(h))
	assert.False(t, c.CheckAndMark(h))
	assert.Equal(t, uint32(2), c.SeenCount(h))
}

// TestCache_CheckAndMark_Concurrent 测试并发调用只有一个得到 true
func TestCache_CheckAndMark_Concurrent(t *testing.T) {
	c := NewCache(100, time.Minute, nil)
	h := hashOf(3)

	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.CheckAndMark(h) {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fresh.Load())
}

// TestCache_TTLAndGC 测试过期后 GC 与重新处理
func TestCache_TTLAndGC(t *testing.T) {
	mock := clock.NewMock()
	c := NewCache(100, time.Minute, mock)

	require.True(t, c.CheckAndMark(hashOf(1)))
	mock.Add(30 * time.Second)
	require.True(t, c.CheckAndMark(hashOf(2)))

	// 恰好等于 TTL 仍未过期
	mock.Add(30 * time.Second)
	assert.Equal(t, 0, c.GC())
	assert.False(t, c.ShouldProcess(hashOf(1)))

	mock.Add(time.Second)
	assert.Equal(t, 1, c.GC())
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.ShouldProcess(hashOf(1)))
	assert.False(t, c.ShouldProcess(hashOf(2)))
}

// TestCache_ShouldProcessEvictsExpired 测试检查时移除过期条目
func TestCache_ShouldProcessEvictsExpired(t *testing.T) {
	mock := clock.NewMock()
	c := NewCache(100, time.Second, mock)

	c.MarkSeen(hashOf(1))
	mock.Add(2 * time.Second)

	assert.True(t, c.ShouldProcess(hashOf(1)))
	assert.Equal(t, 0, c.Len())
}

// TestCache_CheckAndMarkRefreshesExpired 测试过期条目重新计时
func TestCache_CheckAndMarkRefreshesExpired(t *testing.T) {
	mock := clock.NewMock()
	c := NewCache(100, time.Second, mock)

	require.True(t, c.CheckAndMark(hashOf(1)))
	c.MarkSeen(hashOf(1))
	mock.Add(2 * time.Second)

	assert.True(t, c.CheckAndMark(hashOf(1)))
	assert.Equal(t, uint32(1), c.SeenCount(hashOf(1)))
	assert.False(t, c.CheckAndMark(hashOf(1)))
}

// TestCache_LRUEviction 测试容量上限与 LRU 驱逐
func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(3, time.Minute, clock.NewMock())

	for i := byte(0); i < 3; i++ {
		c.MarkSeen(hashOf(i))
	}
	assert.Equal(t, 3, c.Len())

	c.MarkSeen(hashOf(10))
	assert.Equal(t, 3, c.Len())
	assert.True(t, c.ShouldProcess(hashOf(0)), "最久未使用的条目应被驱逐")
	assert.False(t, c.ShouldProcess(hashOf(1)))
}

// TestCache_LRURecency 测试访问会刷新使用顺序
func TestCache_LRURecency(t *testing.T) {
	c := NewCache(2, time.Minute, clock.NewMock())

	c.MarkSeen(hashOf(1))
	c.MarkSeen(hashOf(2))
	assert.False(t, c.ShouldProcess(hashOf(1)))

	c.MarkSeen(hashOf(3))
	assert.False(t, c.ShouldProcess(hashOf(1)))
	assert.True(t, c.ShouldProcess(hashOf(2)))
}

func TestCache_ZeroCapacity(t *testing.T) {
	c := NewCache(0, time.Minute, nil)
	c.MarkSeen(hashOf(1))
	c.MarkSeen(hashOf(2))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

// ============================================================================
//                              Manager 测试
// ============================================================================

// TestManager_Stats 测试统计计数
func TestManager_Stats(t *testing.T) {
	m := NewManager(ForTesting())
	h := HashMessage([]byte("test message"))

	assert.True(t, m.ShouldProcess(h))
	m.MarkProcessed(h)
	assert.False(t, m.ShouldProcess(h))
	m.RecordDuplicate()

	assert.False(t, m.CheckAndMark(h))
	m.RecordRegossip()
	m.RecordSendFailure()

	stats, ok := m.Stats()
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(2), stats.Duplicates)
	assert.Equal(t, uint64(1), stats.Regossiped)
	assert.Equal(t, uint64(1), stats.SendFailures)
}

// TestManager_StatsDisabled 测试关闭统计
func TestManager_StatsDisabled(t *testing.T) {
	cfg := ForTesting()
	cfg.EnableStats = false
	m := NewManager(cfg)
	m.CheckAndMark(hashOf(1))

	_, ok := m.Stats()
	assert.False(t, ok)
}

// TestManager_GC 测试管理器使用注入时钟
func TestManager_GC(t *testing.T) {
	mock := clock.NewMock()
	m := NewManager(Config{Capacity: 10, TTL: time.Second}, WithClock(mock))

	require.True(t, m.CheckAndMark(hashOf(1)))
	mock.Add(2 * time.Second)
	assert.Equal(t, 1, m.GC())
	assert.True(t, m.ShouldProcess(hashOf(1)))
}

// TestHashMessage 测试哈希稳定性
func TestHashMessage(t *testing.T) {
	a := HashMessage([]byte("payload"))
	b := HashMessage([]byte("payload"))
	c := HashMessage([]byte("payload!"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestConfigFromUnified(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Dedup.Capacity = 7
	c := ConfigFromUnified(cfg)
	assert.Equal(t, 7, c.Capacity)
	assert.Equal(t, 5*time.Minute, c.TTL)

	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil))
	assert.NotNil(t, ProvideManager(Params{UnifiedCfg: cfg}))
}
