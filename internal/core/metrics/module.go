package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/host"
	"github.com/dep2p/go-roundnet/internal/core/registry"
)

// Config 指标配置
type Config struct {
	// Enabled 是否创建收集器
	Enabled bool

	// Namespace 指标名前缀
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: DefaultNamespace,
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
	}
}

// Params 指标模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg  *config.Config         `optional:"true"`
	Registerer  prometheus.Registerer  `optional:"true"`
	Dedup       *dedup.Manager         `optional:"true"`
	Coordinator *handshake.Coordinator `optional:"true"`
	Registry    *registry.Registry     `optional:"true"`
	Host        *host.Host             `optional:"true"`
}

// ProvideCollector 提供收集器
//
// 未启用时返回 nil。提供了 Registerer 时自动注册。
func ProvideCollector(p Params) (*Collector, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if !cfg.Enabled {
		return nil, nil
	}

	c, err := NewCollector(cfg.Namespace, Sources{
		Dedup:       p.Dedup,
		Coordinator: p.Coordinator,
		Registry:    p.Registry,
		Host:        p.Host,
	})
	if err != nil {
		return nil, err
	}
	if p.Registerer != nil {
		if err := c.Register(p.Registerer); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCollector),
	)
}
