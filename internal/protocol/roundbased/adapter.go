package roundbased

import (
	"context"
	"fmt"
	"sync/atomic"

	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var logger = log.Logger("protocol/roundbased")

// Config 适配器配置
type Config struct {
	// LoopbackBroadcast 广播消息是否同时投递给本地 Receiver
	LoopbackBroadcast bool

	// LoopbackCapacity 回环队列容量，<= 0 表示不限制
	LoopbackCapacity int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		LoopbackBroadcast: false,
		LoopbackCapacity:  1024,
	}
}

// Option 适配器选项
type Option func(*Config)

// WithLoopbackBroadcast 设置广播是否回环
func WithLoopbackBroadcast(enabled bool) Option {
	return func(c *Config) {
		c.LoopbackBroadcast = enabled
	}
}

// WithLoopbackCapacity 设置回环队列容量
func WithLoopbackCapacity(n int) Option {
	return func(c *Config) {
		c.LoopbackCapacity = n
	}
}

// Stats 适配器统计快照
type Stats struct {
	SentP2P           uint64
	SentBroadcast     uint64
	SentLoopback      uint64
	Received          uint64
	DroppedUnresolved uint64
	DecodeErrors      uint64
}

type counters struct {
	sentP2P           atomic.Uint64
	sentBroadcast     atomic.Uint64
	sentLoopback      atomic.Uint64
	received          atomic.Uint64
	droppedUnresolved atomic.Uint64
	decodeErrors      atomic.Uint64
}

// Delivery 轮次协议驱动使用的收发契约
type Delivery[M RoundMessage] interface {
	Split() (*Receiver[M], *Sender[M])
}

var _ Delivery[noopMessage] = (*Adapter[noopMessage])(nil)

type noopMessage struct{}

func (noopMessage) Round() uint16 { return 0 }

// Adapter 轮次协议传输适配器
type Adapter[M RoundMessage] struct {
	protocol string
	cfg      Config
	sender   *Sender[M]
	receiver *Receiver[M]
	stats    *counters
}

// New 创建适配器
//
// codec 为 nil 时使用 JSONCodec。self 已登记时必须对应本节点。
func New[M RoundMessage](net pkgif.Network, resolver pkgif.PeerResolver, protocol string, self types.PartyIndex, codec Codec[M], opts ...Option) (*Adapter[M], error) {
	if protocol == "" {
		return nil, ErrEmptyProtocol
	}
	if codec == nil {
		codec = JSONCodec[M]{}
	}
	local := net.LocalPeer()
	if peer, ok := resolver.PeerOf(self); ok && peer != local {
		return nil, fmt.Errorf("%w: index %d is %s", ErrSelfIndexMismatch, self, peer.ShortString())
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	stats := &counters{}
	loopback := NewLoopbackPort(cfg.LoopbackCapacity)
	done, cancel := context.WithCancel(context.Background())

	a := &Adapter[M]{
		protocol: protocol,
		cfg:      cfg,
		stats:    stats,
		sender: &Sender[M]{
			protocol:          protocol,
			self:              self,
			localPeer:         local,
			codec:             codec,
			resolver:          resolver,
			loopback:          loopback,
			unicast:           NewUnicastPort(net),
			gossip:            NewGossipPort(net),
			loopbackBroadcast: cfg.LoopbackBroadcast,
			ids:               make(map[string]uint64),
			stats:             stats,
		},
		receiver: &Receiver[M]{
			protocol:  protocol,
			self:      self,
			localPeer: local,
			codec:     codec,
			resolver:  resolver,
			inbox:     net.Inbox(protocol),
			loopback:  loopback,
			done:      done,
			closeDone: cancel,
			stats:     stats,
		},
	}
	logger.Debug("创建轮次适配器", "protocol", protocol, "self", self)
	return a, nil
}

// Split 返回接收与发送半部
func (a *Adapter[M]) Split() (*Receiver[M], *Sender[M]) {
	return a.receiver, a.sender
}

// Protocol 返回协议名
func (a *Adapter[M]) Protocol() string {
	return a.protocol
}

// Stats 返回统计快照
func (a *Adapter[M]) Stats() Stats {
	return Stats{
		SentP2P:           a.stats.sentP2P.Load(),
		SentBroadcast:     a.stats.sentBroadcast.Load(),
		SentLoopback:      a.stats.sentLoopback.Load(),
		Received:          a.stats.received.Load(),
		DroppedUnresolved: a.stats.droppedUnresolved.Load(),
		DecodeErrors:      a.stats.decodeErrors.Load(),
	}
}

// Close 关闭接收半部
func (a *Adapter[M]) Close() error {
	return a.receiver.Close()
}
