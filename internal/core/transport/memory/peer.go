package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-roundnet/internal/util/queue"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var _ pkgif.Transport = (*Peer)(nil)

// Peer 进程内网络中的一个节点
type Peer struct {
	hub    *Hub
	id     types.PeerID
	events *queue.Queue[types.TransportEvent]

	mu     sync.RWMutex
	topics map[string]struct{}

	closed atomic.Bool
}

// LocalPeer 返回本地节点 ID
func (p *Peer) LocalPeer() types.PeerID {
	return p.id
}

// Send 向已连接的对端单播
func (p *Peer) Send(ctx context.Context, to types.PeerID, data []byte) error {
	if p.closed.Load() {
		return types.ErrTransportClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.hub.unicast(p.id, to, data)
}

// Publish 向主题广播
func (p *Peer) Publish(ctx context.Context, topic string, data []byte) error {
	if p.closed.Load() {
		return types.ErrTransportClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.hub.publish(p.id, topic, data)
	return nil
}

// Subscribe 订阅主题
func (p *Peer) Subscribe(topic string) error {
	if p.closed.Load() {
		return types.ErrTransportClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics[topic] = struct{}{}
	return nil
}

func (p *Peer) subscribed(topic string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.topics[topic]
	return ok
}

// Next 阻塞等待下一个入站事件
func (p *Peer) Next(ctx context.Context) (types.TransportEvent, error) {
	ev, err := p.events.Pop(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return types.TransportEvent{}, types.ErrTransportClosed
	}
	return ev, err
}

// Peers 返回已连接的对端（按字节序）
func (p *Peer) Peers() []types.PeerID {
	p.hub.mu.RLock()
	defer p.hub.mu.RUnlock()
	out := make([]types.PeerID, 0, len(p.hub.links[p.id]))
	for id := range p.hub.links[p.id] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Close 离开网络并结束事件流
func (p *Peer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.hub.remove(p.id)
	p.events.Close()
	return nil
}

func (p *Peer) push(ev types.TransportEvent) {
	if dropped, err := p.events.Push(ev); err == nil && dropped > 0 {
		logger.Warn("事件队列已满，丢弃最旧事件", "peer", p.id.ShortString(), "dropped", dropped)
	}
}
