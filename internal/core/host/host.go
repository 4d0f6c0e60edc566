package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	"github.com/dep2p/go-roundnet/internal/core/wire"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var logger = log.Logger("core/host")

var _ pkgif.Network = (*Host)(nil)

// Stats 主机统计快照
type Stats struct {
	IngressFrames      uint64
	DirectDelivered    uint64
	GossipDelivered    uint64
	DirectSent         uint64
	GossipSent         uint64
	RejectedUnverified uint64
	Duplicates         uint64
	IdentityMismatch   uint64
	ForgedAuthor       uint64
	Misaddressed       uint64
	DecodeErrors       uint64
	InboxDropped       uint64
	Unrouted           uint64
}

type counters struct {
	ingressFrames      atomic.Uint64
	directDelivered    atomic.Uint64
	gossipDelivered    atomic.Uint64
	directSent         atomic.Uint64
	gossipSent         atomic.Uint64
	rejectedUnverified atomic.Uint64
	duplicates         atomic.Uint64
	identityMismatch   atomic.Uint64
	forgedAuthor       atomic.Uint64
	misaddressed       atomic.Uint64
	decodeErrors       atomic.Uint64
	inboxDropped       atomic.Uint64
	unrouted           atomic.Uint64
}

// Host 节点主机
// 采用门面（Facade）模式，聚合传输、握手与去重
type Host struct {
	cfg   Config
	clock clock.Clock

	// 核心组件
	transport   pkgif.Transport
	signer      pkgif.Signer
	verifier    pkgif.Verifier
	registry    *registry.Registry
	coordinator *handshake.Coordinator
	dedup       *dedup.Manager

	inboxMu sync.Mutex
	inboxes map[string]*inbox

	// 生命周期
	cancel  context.CancelFunc
	group   *errgroup.Group
	started atomic.Bool
	closed  atomic.Bool

	stats counters
}

// New 创建新的 Host
func New(opts ...Option) (*Host, error) {
	h := &Host{
		cfg:      DefaultConfig(),
		clock:    clock.New(),
		verifier: crypto.StdVerifier{},
		inboxes:  make(map[string]*inbox),
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	switch {
	case h.transport == nil:
		return nil, fmt.Errorf("%w: transport", ErrMissingDependency)
	case h.signer == nil:
		return nil, fmt.Errorf("%w: signer", ErrMissingDependency)
	case h.registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	case h.coordinator == nil:
		return nil, fmt.Errorf("%w: coordinator", ErrMissingDependency)
	case h.dedup == nil:
		return nil, fmt.Errorf("%w: dedup", ErrMissingDependency)
	}
	if h.transport.LocalPeer() != h.signer.PeerID() {
		return nil, fmt.Errorf("%w: transport peer %s does not match identity %s",
			ErrMissingDependency, h.transport.LocalPeer().ShortString(), h.signer.PeerID().ShortString())
	}
	return h, nil
}

// LocalPeer 返回本地节点 ID
func (h *Host) LocalPeer() types.PeerID {
	return h.signer.PeerID()
}

// Transport 返回底层传输
func (h *Host) Transport() pkgif.Transport {
	return h.transport
}

// Registry 返回身份注册表
func (h *Host) Registry() *registry.Registry {
	return h.registry
}

// Coordinator 返回握手协调器
func (h *Host) Coordinator() *handshake.Coordinator {
	return h.coordinator
}

// Resolver 返回参与方解析器
func (h *Host) Resolver() pkgif.PeerResolver {
	return h.registry
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动 Host
//
// 登记本地身份、订阅 gossip 主题并启动后台任务。后台任务不受 ctx 约束，
// 由 Close 停止。
func (h *Host) Start(ctx context.Context) error {
	if h.closed.Load() {
		return ErrClosed
	}
	if !h.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	logger.Info("正在启动 Host", "peer", h.LocalPeer().ShortString())

	if err := h.registry.BindIdentity(h.LocalPeer(), h.signer.PublicKey()); err != nil {
		return fmt.Errorf("bind local identity: %w", err)
	}
	if err := h.transport.Subscribe(h.cfg.Topic); err != nil {
		return fmt.Errorf("subscribe %s: %w", h.cfg.Topic, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	h.cancel = cancel
	h.group = g

	g.Go(func() error { return h.ingressLoop(gctx) })
	g.Go(func() error { return h.coordinator.Run(gctx) })
	g.Go(func() error { return h.gcLoop(gctx) })

	if h.cfg.AutoInitiate {
		for _, p := range h.transport.Peers() {
			h.initiate(ctx, p)
		}
	}

	logger.Info("Host 已启动", "topic", h.cfg.Topic)
	return nil
}

// Close 停止后台任务，关闭入站队列与传输
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	logger.Info("正在关闭 Host")

	var errs error
	if h.cancel != nil {
		h.cancel()
	}
	errs = multierr.Append(errs, h.coordinator.Close())
	errs = multierr.Append(errs, h.transport.Close())
	if h.group != nil {
		errs = multierr.Append(errs, h.group.Wait())
	}
	h.closeInboxes()
	return errs
}

func (h *Host) gcLoop(ctx context.Context) error {
	ticker := h.clock.Ticker(h.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := h.dedup.GC(); n > 0 {
				logger.Debug("清理过期去重条目", "count", n)
			}
		}
	}
}

// ============================================================================
//                              出站
// ============================================================================

// SendDirect 单播协议消息
//
// 目标必须已完成握手，否则对端会以 403 拒绝。
func (h *Host) SendDirect(ctx context.Context, to types.PeerID, msg *types.ProtocolMessage) error {
	if h.closed.Load() {
		return ErrClosed
	}
	if to == h.LocalPeer() {
		return ErrSelfSend
	}
	if !h.registry.IsVerified(to) {
		return fmt.Errorf("%w: %s", ErrPeerNotVerified, to.ShortString())
	}

	env := handshake.ProtocolEnvelope(wire.EncodeMessage(msg))
	if err := h.transport.Send(ctx, to, env.Encode()); err != nil {
		return fmt.Errorf("send to %s: %w", to.ShortString(), err)
	}
	h.stats.directSent.Add(1)
	return nil
}

// Broadcast 通过 gossip 主题广播协议消息
//
// 消息由本地身份签名，接收方据此校验作者；发送方字段必须是本节点。
func (h *Host) Broadcast(ctx context.Context, msg *types.ProtocolMessage) error {
	if h.closed.Load() {
		return ErrClosed
	}
	if msg.Routing.Sender != h.LocalPeer() {
		return fmt.Errorf("%w: %s", ErrForeignSender, msg.Routing.Sender.ShortString())
	}

	body := wire.EncodeMessage(msg)
	sig, err := h.signer.Sign(wire.AuthorChallenge(h.cfg.Topic, body))
	if err != nil {
		return fmt.Errorf("sign broadcast: %w", err)
	}
	signed := wire.SignedMessage{Message: body, PublicKey: h.signer.PublicKey(), Signature: sig}
	data := signed.Encode()

	h.dedup.MarkProcessed(dedup.HashMessage(data))
	if err := h.transport.Publish(ctx, h.cfg.Topic, data); err != nil {
		h.dedup.RecordSendFailure()
		return fmt.Errorf("publish: %w", err)
	}
	h.stats.gossipSent.Add(1)
	return nil
}

// ============================================================================
//                              统计
// ============================================================================

// Stats 返回统计快照
func (h *Host) Stats() Stats {
	return Stats{
		IngressFrames:      h.stats.ingressFrames.Load(),
		DirectDelivered:    h.stats.directDelivered.Load(),
		GossipDelivered:    h.stats.gossipDelivered.Load(),
		DirectSent:         h.stats.directSent.Load(),
		GossipSent:         h.stats.gossipSent.Load(),
		RejectedUnverified: h.stats.rejectedUnverified.Load(),
		Duplicates:         h.stats.duplicates.Load(),
		IdentityMismatch:   h.stats.identityMismatch.Load(),
		ForgedAuthor:       h.stats.forgedAuthor.Load(),
		Misaddressed:       h.stats.misaddressed.Load(),
		DecodeErrors:       h.stats.decodeErrors.Load(),
		InboxDropped:       h.stats.inboxDropped.Load(),
		Unrouted:           h.stats.unrouted.Load(),
	}
}

// isClosedErr 传输或上下文已结束
func isClosedErr(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, types.ErrTransportClosed)
}
