package dedup

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-roundnet/config"
)

// Params 去重模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// ConfigFromUnified 从统一配置创建去重配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Capacity = cfg.Dedup.Capacity
	c.TTL = cfg.Dedup.TTL.Duration()
	c.EnableStats = cfg.Dedup.EnableStats
	return c
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("dedup",
		fx.Provide(ProvideManager),
	)
}

// ProvideManager 提供去重管理器
func ProvideManager(p Params) *Manager {
	var opts []Option
	if p.Clock != nil {
		opts = append(opts, WithClock(p.Clock))
	}
	return NewManager(ConfigFromUnified(p.UnifiedCfg), opts...)
}
