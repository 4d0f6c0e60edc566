package roundnet

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/host"
	"github.com/dep2p/go-roundnet/internal/core/identity"
	"github.com/dep2p/go-roundnet/internal/core/metrics"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var logger = log.Logger("roundnet")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateRunning 运行中
	StateRunning

	// StateStopped 已停止，不可重新启动
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats 节点统计快照
type Stats struct {
	Host      host.Stats
	Handshake handshake.Stats
	Dedup     dedup.Stats

	// Verified 已验证节点数（不含本节点）
	Verified int
}

// Node roundnet 节点
//
// Node 是门面，聚合身份、注册表、握手协调器、主机与指标收集器。
// 轮次协议通过 NewAdapter 在节点之上收发消息。
type Node struct {
	config *config.Config
	app    *fx.App

	// 由 Fx 注入
	identity    *identity.Identity
	registry    *registry.Registry
	coordinator *handshake.Coordinator
	dedup       *dedup.Manager
	host        *host.Host
	collector   *metrics.Collector
	gatherer    prometheus.Gatherer

	mu    sync.RWMutex
	state NodeState
}

// New 创建节点
//
// 组件在此时构造，网络活动在 Start 之后开始。
func New(ctx context.Context, opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if o.config.Log.Setup {
		if err := log.Setup(o.config.Log.Level, o.config.Log.Format); err != nil {
			return nil, err
		}
	}

	node := &Node{config: o.config}
	app, err := buildFxApp(o, node)
	if err != nil {
		return nil, err
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build node: %w", err)
	}
	node.app = app

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info("节点已创建", "peer", node.LocalPeer().ShortString(), "session", o.config.Handshake.SessionID)
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrNodeClosed
	}

	if err := n.app.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	n.state = StateRunning
	return nil
}

// Stop 停止节点，停止后不可重新启动
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	prev := n.state
	if prev == StateStopped {
		return nil
	}
	n.state = StateStopped
	if prev == StateIdle {
		// 未启动时 Host 不会经由生命周期关闭
		return n.host.Close()
	}
	return n.app.Stop(ctx)
}

// Close 使用默认超时停止节点
func (n *Node) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), n.app.StopTimeout())
	defer cancel()
	return n.Stop(ctx)
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              身份与会话
// ════════════════════════════════════════════════════════════════════════════

// LocalPeer 返回本地节点 ID
func (n *Node) LocalPeer() types.PeerID {
	return n.identity.PeerID()
}

// PublicKey 返回本地序列化公钥
func (n *Node) PublicKey() []byte {
	return n.identity.PublicKey()
}

// Config 返回节点配置
func (n *Node) Config() *config.Config {
	return n.config
}

// PartyIndex 返回本节点的参与方索引
//
// 节点启动后才登记本地身份。
func (n *Node) PartyIndex() (types.PartyIndex, bool) {
	return n.registry.IndexOf(n.LocalPeer())
}

// PartyCount 返回会话参与方数量，开放会话为 0
func (n *Node) PartyCount() int {
	return n.registry.PartyCount()
}

// VerifiedPeers 返回已验证节点
func (n *Node) VerifiedPeers() []types.VerifiedPeerEntry {
	return n.registry.VerifiedPeers()
}

// IsVerified 节点是否已完成握手
func (n *Node) IsVerified(peer types.PeerID) bool {
	return n.coordinator.IsVerified(peer)
}

// HandshakeState 返回与节点的握手状态
func (n *Node) HandshakeState(peer types.PeerID) types.HandshakeState {
	return n.coordinator.State(peer)
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接与握手
// ════════════════════════════════════════════════════════════════════════════

// Connect 拨号地址并发起握手，仅 stream 传输支持
func (n *Node) Connect(ctx context.Context, addr string) (types.PeerID, error) {
	if n.State() != StateRunning {
		return types.EmptyPeerID, ErrNotStarted
	}
	d, ok := n.host.Transport().(dialer)
	if !ok {
		return types.EmptyPeerID, ErrDialUnsupported
	}
	peer, err := d.Dial(ctx, addr)
	if err != nil {
		return types.EmptyPeerID, err
	}
	if err := n.coordinator.Initiate(ctx, peer); err != nil {
		return peer, err
	}
	return peer, nil
}

// ListenAddrs 返回传输的监听地址
func (n *Node) ListenAddrs() []net.Addr {
	if l, ok := n.host.Transport().(listener); ok {
		return l.ListenAddrs()
	}
	return nil
}

// Initiate 向已连接节点发起握手
func (n *Node) Initiate(ctx context.Context, peer types.PeerID) error {
	if n.State() != StateRunning {
		return ErrNotStarted
	}
	return n.coordinator.Initiate(ctx, peer)
}

// WaitVerified 等待指定节点全部完成握手
func (n *Node) WaitVerified(ctx context.Context, peers ...types.PeerID) error {
	return n.coordinator.WaitVerified(ctx, peers...)
}

// WaitParties 等待除本节点外的全部会话参与方完成握手
func (n *Node) WaitParties(ctx context.Context) error {
	count := n.registry.PartyCount()
	if count == 0 {
		return ErrOpenSession
	}
	if _, ok := n.PartyIndex(); !ok {
		return ErrNotParty
	}
	return n.coordinator.WaitCount(ctx, count-1)
}

// ════════════════════════════════════════════════════════════════════════════
//                              网络与观测
// ════════════════════════════════════════════════════════════════════════════

// Network 返回供轮次适配器使用的网络
func (n *Node) Network() pkgif.Network {
	return n.host
}

// Resolver 返回参与方解析器
func (n *Node) Resolver() pkgif.PeerResolver {
	return n.registry
}

// Stats 返回统计快照
func (n *Node) Stats() Stats {
	st := Stats{
		Host:      n.host.Stats(),
		Handshake: n.coordinator.Stats(),
		Verified:  n.registry.VerifiedCount(),
	}
	if d, ok := n.dedup.Stats(); ok {
		st.Dedup = d
	}
	return st
}

// MetricsHandler 返回 Prometheus 导出处理器，未启用指标时返回 nil
func (n *Node) MetricsHandler() http.Handler {
	if n.collector == nil || n.gatherer == nil {
		return nil
	}
	return metrics.Handler(n.gatherer)
}
