package roundbased

import (
	"github.com/dep2p/go-roundnet/config"
)

// ConfigFromUnified 从统一配置创建适配器选项
func ConfigFromUnified(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithLoopbackBroadcast(cfg.Adapter.LoopbackBroadcast),
	}
}
