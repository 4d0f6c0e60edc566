package memory

import (
	"sort"
	"sync"

	"github.com/dep2p/go-roundnet/internal/util/queue"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var logger = log.Logger("core/transport/memory")

// DropFunc 丢包规则，返回 true 时该帧被丢弃
type DropFunc func(from, to types.PeerID, ch types.Channel) bool

// Hub 进程内网络
type Hub struct {
	mu    sync.RWMutex
	peers map[types.PeerID]*Peer
	links map[types.PeerID]map[types.PeerID]struct{}
	drop  DropFunc

	// eventQueueSize 每个节点的事件队列容量，<= 0 表示不限制
	eventQueueSize int
}

// HubOption Hub 选项
type HubOption func(*Hub)

// WithEventQueueSize 设置每个节点的事件队列容量
func WithEventQueueSize(n int) HubOption {
	return func(h *Hub) {
		h.eventQueueSize = n
	}
}

// NewHub 创建进程内网络
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		peers: make(map[types.PeerID]*Peer),
		links: make(map[types.PeerID]map[types.PeerID]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetDropFunc 设置丢包规则，nil 表示不丢包
func (h *Hub) SetDropFunc(f DropFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop = f
}

// NewPeer 在网络中创建节点
func (h *Hub) NewPeer(id types.PeerID) (*Peer, error) {
	if id.IsEmpty() {
		return nil, types.ErrEmptyPeerID
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.peers[id]; ok {
		return nil, ErrDuplicatePeer
	}
	p := &Peer{
		hub:    h,
		id:     id,
		events: queue.New[types.TransportEvent](h.eventQueueSize),
		topics: make(map[string]struct{}),
	}
	h.peers[id] = p
	h.links[id] = make(map[types.PeerID]struct{})
	return p, nil
}

// Connect 连接两个节点，已连接时不做任何事
func (h *Hub) Connect(a, b types.PeerID) error {
	if a == b {
		return ErrSelfConnect
	}

	h.mu.Lock()
	pa, okA := h.peers[a]
	pb, okB := h.peers[b]
	if !okA || !okB {
		h.mu.Unlock()
		return ErrUnknownPeer
	}
	if _, ok := h.links[a][b]; ok {
		h.mu.Unlock()
		return nil
	}
	h.links[a][b] = struct{}{}
	h.links[b][a] = struct{}{}
	h.mu.Unlock()

	pa.push(types.TransportEvent{Kind: types.EventConnected, From: b})
	pb.push(types.TransportEvent{Kind: types.EventConnected, From: a})
	logger.Debug("节点已连接", "a", a.ShortString(), "b", b.ShortString())
	return nil
}

// ConnectAll 两两连接所有节点
func (h *Hub) ConnectAll() error {
	ids := h.PeerIDs()
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if err := h.Connect(ids[i], ids[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Disconnect 断开两个节点，未连接时不做任何事
func (h *Hub) Disconnect(a, b types.PeerID) error {
	h.mu.Lock()
	if _, ok := h.links[a][b]; !ok {
		h.mu.Unlock()
		return nil
	}
	delete(h.links[a], b)
	delete(h.links[b], a)
	pa, pb := h.peers[a], h.peers[b]
	h.mu.Unlock()

	pa.push(types.TransportEvent{Kind: types.EventDisconnected, From: b})
	pb.push(types.TransportEvent{Kind: types.EventDisconnected, From: a})
	return nil
}

// PeerIDs 返回网络中所有节点（按字节序）
func (h *Hub) PeerIDs() []types.PeerID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]types.PeerID, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// remove 从网络中移除节点，向其所有连接方发出断开事件
func (h *Hub) remove(id types.PeerID) {
	h.mu.Lock()
	var notify []*Peer
	for other := range h.links[id] {
		delete(h.links[other], id)
		if p, ok := h.peers[other]; ok {
			notify = append(notify, p)
		}
	}
	delete(h.links, id)
	delete(h.peers, id)
	h.mu.Unlock()

	for _, p := range notify {
		p.push(types.TransportEvent{Kind: types.EventDisconnected, From: id})
	}
}

// unicast 投递单播帧
func (h *Hub) unicast(from, to types.PeerID, data []byte) error {
	h.mu.RLock()
	_, linked := h.links[from][to]
	dst := h.peers[to]
	drop := h.drop
	h.mu.RUnlock()

	if !linked || dst == nil {
		return ErrNotConnected
	}
	if drop != nil && drop(from, to, types.ChannelDirect) {
		logger.Debug("丢弃单播帧", "from", from.ShortString(), "to", to.ShortString())
		return nil
	}
	dst.push(types.TransportEvent{
		Kind:    types.EventFrame,
		From:    from,
		Channel: types.ChannelDirect,
		Data:    append([]byte(nil), data...),
	})
	return nil
}

// publish 向已连接且订阅主题的节点投递，返回投递数量
func (h *Hub) publish(from types.PeerID, topic string, data []byte) int {
	h.mu.RLock()
	var targets []*Peer
	for other := range h.links[from] {
		if p, ok := h.peers[other]; ok && p.subscribed(topic) {
			targets = append(targets, p)
		}
	}
	drop := h.drop
	h.mu.RUnlock()

	delivered := 0
	for _, p := range targets {
		if drop != nil && drop(from, p.id, types.ChannelGossip) {
			continue
		}
		p.push(types.TransportEvent{
			Kind:    types.EventFrame,
			From:    from,
			Channel: types.ChannelGossip,
			Topic:   topic,
			Data:    append([]byte(nil), data...),
		})
		delivered++
	}
	return delivered
}
