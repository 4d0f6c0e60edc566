package roundnet

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/host"
	"github.com/dep2p/go-roundnet/internal/core/identity"
	"github.com/dep2p/go-roundnet/internal/core/metrics"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
)

var fxLogger = log.Logger("roundnet/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Identity → Transport
//  2. Registry → Dedup → Handshake
//  3. Host（生命周期内启动入站循环）
//  4. Metrics（可选）
func buildFxApp(o *options, node *Node) (*fx.App, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if o.transport == nil {
		return nil, ErrNoTransport
	}

	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置与可选注入
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(o.config),
	}
	if o.identity != nil {
		modules = append(modules, fx.Supply(fx.Annotated{Name: "preset_identity", Target: o.identity}))
	}
	if o.clock != nil {
		modules = append(modules, fx.Provide(func() clock.Clock { return o.clock }))
	}
	if o.tieBreaker != nil {
		modules = append(modules, fx.Provide(func() handshake.TieBreaker { return o.tieBreaker }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		identity.Module(),
		fx.Provide(provideTransport(o.transport)),
		registry.Module(),
		dedup.Module(),
		handshake.Module(),
		host.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 3. 指标（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if o.config.Metrics.Enabled {
		reg := o.registerer
		if reg == nil {
			pr := prometheus.NewRegistry()
			node.gatherer = pr
			reg = pr
		} else if g, ok := reg.(prometheus.Gatherer); ok {
			node.gatherer = g
		}
		modules = append(modules,
			fx.Provide(func() prometheus.Registerer { return reg }),
			metrics.Module(),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展与组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.userFxOptions...)
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		if o.config.Log.FxEvents {
			l, err := zap.NewDevelopment()
			if err == nil {
				return &fxevent.ZapLogger{Logger: l}
			}
			fxLogger.Warn("创建 Fx 事件日志失败", "err", err)
		}
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}))

	return fx.New(modules...), nil
}

// provideTransport 用本地身份创建传输
func provideTransport(f TransportFactory) func(id *identity.Identity) (pkgif.Transport, error) {
	return func(id *identity.Identity) (pkgif.Transport, error) {
		t, err := f(id)
		if err != nil {
			return nil, fmt.Errorf("create transport: %w", err)
		}
		if t.LocalPeer() != id.PeerID() {
			_ = t.Close()
			return nil, fmt.Errorf("transport local peer %s does not match identity %s",
				t.LocalPeer().ShortString(), id.PeerID().ShortString())
		}
		return t, nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Identity    *identity.Identity
	Registry    *registry.Registry
	Coordinator *handshake.Coordinator
	Dedup       *dedup.Manager
	Host        *host.Host
	Collector   *metrics.Collector `optional:"true"`
}

// injectNodeComponents 把 Fx 创建的组件注入 Node
func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.identity = p.Identity
		node.registry = p.Registry
		node.coordinator = p.Coordinator
		node.dedup = p.Dedup
		node.host = p.Host
		node.collector = p.Collector
	}
}
