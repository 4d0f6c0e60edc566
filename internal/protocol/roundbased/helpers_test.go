package roundbased

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-roundnet/internal/util/queue"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// testMsg 测试用轮次消息
type testMsg struct {
	R    uint16 `json:"r"`
	Body string `json:"body"`
}

func (m testMsg) Round() uint16 { return m.R }

// failCodec 编码总是失败
type failCodec struct{}

func (failCodec) Marshal(testMsg) ([]byte, error)   { return nil, errors.New("boom") }
func (failCodec) Unmarshal([]byte) (testMsg, error) { return testMsg{}, errors.New("boom") }

type directSend struct {
	to  types.PeerID
	msg *types.ProtocolMessage
}

// fakeInbox 基于队列的入站队列
type fakeInbox struct {
	q *queue.Queue[*types.ProtocolMessage]
}

func (i *fakeInbox) Next(ctx context.Context) (*types.ProtocolMessage, error) {
	msg, err := i.q.Pop(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return nil, types.ErrTransportClosed
	}
	return msg, err
}

// fakeNet 记录发送的网络
type fakeNet struct {
	local   types.PeerID
	inbox   *fakeInbox
	sendErr error

	mu         sync.Mutex
	direct     []directSend
	broadcasts []*types.ProtocolMessage
}

var _ pkgif.Network = (*fakeNet)(nil)

func newFakeNet(local types.PeerID) *fakeNet {
	return &fakeNet{
		local: local,
		inbox: &fakeInbox{q: queue.New[*types.ProtocolMessage](0)},
	}
}

func (n *fakeNet) LocalPeer() types.PeerID { return n.local }

func (n *fakeNet) SendDirect(_ context.Context, to types.PeerID, msg *types.ProtocolMessage) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct = append(n.direct, directSend{to: to, msg: msg})
	return nil
}

func (n *fakeNet) Broadcast(_ context.Context, msg *types.ProtocolMessage) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, msg)
	return nil
}

func (n *fakeNet) Inbox(string) pkgif.Inbox { return n.inbox }

func (n *fakeNet) sentDirect() []directSend {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]directSend(nil), n.direct...)
}

func (n *fakeNet) sentBroadcasts() []*types.ProtocolMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.ProtocolMessage(nil), n.broadcasts...)
}

// inject 模拟主机投递一条入站消息
func (n *fakeNet) inject(msg *types.ProtocolMessage) {
	_, _ = n.inbox.q.Push(msg)
}

// fakeResolver 下标即参与方索引
type fakeResolver struct {
	peers []types.PeerID
}

func (r fakeResolver) IndexOf(peer types.PeerID) (types.PartyIndex, bool) {
	for i, p := range r.peers {
		if p == peer {
			return types.PartyIndex(i), true
		}
	}
	return 0, false
}

func (r fakeResolver) PeerOf(index types.PartyIndex) (types.PeerID, bool) {
	if int(index) >= len(r.peers) {
		return types.EmptyPeerID, false
	}
	return r.peers[index], true
}

var (
	peerA = types.PeerID{0xa}
	peerB = types.PeerID{0xb}
	peerC = types.PeerID{0xc}
)

// newTestAdapter 创建三方会话中索引 0 的适配器
func newTestAdapter(opts ...Option) (*Adapter[testMsg], *fakeNet) {
	net := newFakeNet(peerA)
	resolver := fakeResolver{peers: []types.PeerID{peerA, peerB, peerC}}
	a, err := New[testMsg](net, resolver, "dkg-round", 0, nil, opts...)
	if err != nil {
		panic(err)
	}
	return a, net
}
