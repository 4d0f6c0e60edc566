package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/registry"
)

// gather 收集并按名称与 event 标签索引指标值
func gather(t *testing.T, g prometheus.Gatherer) map[string]float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "event" {
					key += "{" + lp.GetValue() + "}"
				}
			}
			out[key] = metricValue(mf.GetType(), m)
		}
	}
	return out
}

func metricValue(typ dto.MetricType, m *dto.Metric) float64 {
	switch typ {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return 0
	}
}

// ============================================================================
//                              Collector
// ============================================================================

// TestNewCollector_NoSources 测试没有来源
func TestNewCollector_NoSources(t *testing.T) {
	_, err := NewCollector("x", Sources{})
	assert.ErrorIs(t, err, ErrNoSources)
}

// TestCollector_DedupAndRegistry 测试去重与注册表指标
func TestCollector_DedupAndRegistry(t *testing.T) {
	m := dedup.NewManager(dedup.ForTesting())
	m.CheckAndMark(dedup.HashMessage([]byte("a")))
	m.CheckAndMark(dedup.HashMessage([]byte("a")))
	m.RecordRegossip()

	reg := registry.New()
	require.NoError(t, reg.SetParties([][]byte{{1}, {2}, {3}}))

	c, err := NewCollector("test", Sources{Dedup: m, Registry: reg})
	require.NoError(t, err)

	pr := prometheus.NewRegistry()
	require.NoError(t, c.Register(pr))
	require.NoError(t, c.Register(pr))

	values := gather(t, pr)
	assert.Equal(t, float64(1), values["test_dedup_events_total{processed}"])
	assert.Equal(t, float64(1), values["test_dedup_events_total{duplicate}"])
	assert.Equal(t, float64(1), values["test_dedup_events_total{regossiped}"])
	assert.Equal(t, float64(1), values["test_dedup_cache_entries"])
	assert.Equal(t, float64(3), values["test_registry_parties"])
	assert.Equal(t, float64(0), values["test_registry_verified_peers"])

	_, ok := values["test_host_messages_total{ingress_frame}"]
	assert.False(t, ok)
}

// TestHandler 测试 HTTP 导出
func TestHandler(t *testing.T) {
	reg := registry.New()
	c, err := NewCollector("", Sources{Registry: reg})
	require.NoError(t, err)

	pr := prometheus.NewRegistry()
	require.NoError(t, c.Register(pr))

	rec := httptest.NewRecorder()
	Handler(pr).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "roundnet_registry_verified_peers 0")
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// TestModule_Disabled 测试关闭指标
func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false

	var got *Collector
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&got),
	)
	app.RequireStart().RequireStop()
	assert.Nil(t, got)
}

// TestModule_Registers 测试模块自动注册
func TestModule_Registers(t *testing.T) {
	pr := prometheus.NewRegistry()

	var got *Collector
	app := fxtest.New(t,
		fx.Provide(func() prometheus.Registerer { return pr }),
		dedup.Module(),
		Module(),
		fx.Populate(&got),
	)
	app.RequireStart().RequireStop()
	require.NotNil(t, got)

	values := gather(t, pr)
	_, ok := values["roundnet_dedup_cache_entries"]
	assert.True(t, ok)
}
