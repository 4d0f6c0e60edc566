package registry

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-roundnet/config"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
)

// Params 注册表依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Output 注册表模块输出
type Output struct {
	fx.Out

	Registry *Registry
	Resolver pkgif.PeerResolver
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvideRegistry),
	)
}

// ProvideRegistry 从统一配置创建注册表并载入会话参与方
func ProvideRegistry(p Params) (Output, error) {
	var opts []Option
	if p.Clock != nil {
		opts = append(opts, WithClock(p.Clock))
	}
	r := New(opts...)

	if p.UnifiedCfg != nil {
		keys, err := p.UnifiedCfg.Handshake.PartyKeys()
		if err != nil {
			return Output{}, err
		}
		if err := r.SetParties(keys); err != nil {
			return Output{}, err
		}
	}
	return Output{Registry: r, Resolver: r}, nil
}
