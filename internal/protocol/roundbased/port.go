package roundbased

import (
	"context"
	"errors"

	"github.com/dep2p/go-roundnet/internal/util/queue"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// PortKind 端口类型
type PortKind int

const (
	// PortLoopback 本地回环
	PortLoopback PortKind = iota
	// PortUnicast 单播
	PortUnicast
	// PortGossip 主题广播
	PortGossip
)

// String 返回端口类型名称
func (k PortKind) String() string {
	switch k {
	case PortLoopback:
		return "loopback"
	case PortUnicast:
		return "unicast"
	case PortGossip:
		return "gossip"
	default:
		return "unknown"
	}
}

// NetworkPort 消息出口
type NetworkPort interface {
	Kind() PortKind
	Deliver(ctx context.Context, msg *types.ProtocolMessage) error
}

var (
	_ NetworkPort = (*LoopbackPort)(nil)
	_ NetworkPort = (*UnicastPort)(nil)
	_ NetworkPort = (*GossipPort)(nil)
)

// LoopbackPort 本地回环端口，消息直接进入同一适配器的 Receiver
type LoopbackPort struct {
	q *queue.Queue[*types.ProtocolMessage]
}

// NewLoopbackPort 创建回环端口，capacity <= 0 表示不限制
func NewLoopbackPort(capacity int) *LoopbackPort {
	return &LoopbackPort{q: queue.New[*types.ProtocolMessage](capacity)}
}

// Kind 返回端口类型
func (p *LoopbackPort) Kind() PortKind { return PortLoopback }

// Deliver 放入回环队列
func (p *LoopbackPort) Deliver(_ context.Context, msg *types.ProtocolMessage) error {
	dropped, err := p.q.Push(msg)
	if errors.Is(err, queue.ErrClosed) {
		return ErrReceiverClosed
	}
	if dropped > 0 {
		logger.Warn("回环队列已满，丢弃最旧消息", "tag", msg.ProtocolTag, "dropped", dropped)
	}
	return err
}

// Len 返回回环队列中的消息数
func (p *LoopbackPort) Len() int {
	return p.q.Len()
}

// UnicastPort 单播端口
type UnicastPort struct {
	net pkgif.Network
}

// NewUnicastPort 创建单播端口
func NewUnicastPort(net pkgif.Network) *UnicastPort {
	return &UnicastPort{net: net}
}

// Kind 返回端口类型
func (p *UnicastPort) Kind() PortKind { return PortUnicast }

// Deliver 单播给消息的接收方
func (p *UnicastPort) Deliver(ctx context.Context, msg *types.ProtocolMessage) error {
	if msg.Routing.Recipient == nil {
		return errors.New("unicast message without recipient")
	}
	return p.net.SendDirect(ctx, *msg.Routing.Recipient, msg)
}

// GossipPort 主题广播端口
type GossipPort struct {
	net pkgif.Network
}

// NewGossipPort 创建广播端口
func NewGossipPort(net pkgif.Network) *GossipPort {
	return &GossipPort{net: net}
}

// Kind 返回端口类型
func (p *GossipPort) Kind() PortKind { return PortGossip }

// Deliver 广播消息
func (p *GossipPort) Deliver(ctx context.Context, msg *types.ProtocolMessage) error {
	return p.net.Broadcast(ctx, msg)
}
