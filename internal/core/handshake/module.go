package handshake

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
)

// Params 握手模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
	TieBreaker TieBreaker     `optional:"true"`

	Signer    pkgif.Signer
	Verifier  pkgif.Verifier
	Registry  *registry.Registry
	Transport pkgif.Transport
}

// ConfigFromUnified 从统一配置创建握手配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	h := cfg.Handshake
	c.SessionID = h.SessionID
	c.Timeout = h.Timeout.Duration()
	c.SweepInterval = h.SweepInterval.Duration()
	c.RequestRate = rate.Limit(h.RequestRate)
	c.RequestBurst = h.RequestBurst
	return c
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("handshake",
		fx.Provide(ProvideCoordinator),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideCoordinator 提供握手协调器
func ProvideCoordinator(p Params) *Coordinator {
	var opts []Option
	if p.Clock != nil {
		opts = append(opts, WithClock(p.Clock))
	}
	if p.TieBreaker != nil {
		opts = append(opts, WithTieBreaker(p.TieBreaker))
	}
	return New(ConfigFromUnified(p.UnifiedCfg), p.Signer, p.Verifier, p.Registry,
		NewTransportSender(p.Transport), opts...)
}

// lifecycleInput 生命周期注册输入
type lifecycleInput struct {
	fx.In

	LC          fx.Lifecycle
	Coordinator *Coordinator
}

// registerLifecycle 停止时唤醒所有 WaitVerified
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Coordinator.Close()
		},
	})
}
