package host

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	// 配置
	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
	Verifier   pkgif.Verifier `optional:"true"`

	// 必需依赖
	Transport   pkgif.Transport
	Signer      pkgif.Signer
	Registry    *registry.Registry
	Coordinator *handshake.Coordinator
	Dedup       *dedup.Manager
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Host    *Host
	Network pkgif.Network
}

// ConfigFromUnified 从统一配置创建 Host 配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Topic = cfg.Host.Topic
	c.InboxCapacity = cfg.Host.InboxCapacity
	c.Regossip = cfg.Host.Regossip
	c.AutoInitiate = cfg.Handshake.AutoInitiate
	c.GCInterval = cfg.Dedup.GCInterval.Duration()
	return c
}

// ProvideHost 提供 Host 服务
func ProvideHost(input ModuleInput) (ModuleOutput, error) {
	opts := []Option{
		WithConfig(ConfigFromUnified(input.UnifiedCfg)),
		WithTransport(input.Transport),
		WithSigner(input.Signer),
		WithRegistry(input.Registry),
		WithCoordinator(input.Coordinator),
		WithDedup(input.Dedup),
	}
	if input.Clock != nil {
		opts = append(opts, WithClock(input.Clock))
	}
	if input.Verifier != nil {
		opts = append(opts, WithVerifier(input.Verifier))
	}

	h, err := New(opts...)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Host: h, Network: h}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("host",
		fx.Provide(ProvideHost),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput Lifecycle 注册输入
type lifecycleInput struct {
	fx.In
	LC   fx.Lifecycle
	Host *Host
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Host.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Host.Close()
		},
	})
}
