package handshake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-roundnet/internal/core/identity"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// sent 一条已发送的信封
type sent struct {
	from, to types.PeerID
	env      *Envelope
}

// fakeNet 按 FIFO 顺序由测试手动投递信封
type fakeNet struct {
	mu    sync.Mutex
	queue []sent
}

func (n *fakeNet) push(s sent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = append(n.queue, s)
}

func (n *fakeNet) pop() (sent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.queue) == 0 {
		return sent{}, false
	}
	s := n.queue[0]
	n.queue = n.queue[1:]
	return s, true
}

// drain 取出所有待投递信封而不投递
func (n *fakeNet) drain() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queue
	n.queue = nil
	return out
}

// pump 经过编解码投递所有信封，直到队列为空
func (n *fakeNet) pump(t *testing.T, nodes ...*testNode) int {
	t.Helper()
	byID := make(map[types.PeerID]*testNode, len(nodes))
	for _, nd := range nodes {
		byID[nd.id.PeerID()] = nd
	}

	delivered := 0
	for {
		s, ok := n.pop()
		if !ok {
			return delivered
		}
		dst, ok := byID[s.to]
		if !ok {
			continue
		}
		env, err := DecodeEnvelope(s.env.Encode())
		require.NoError(t, err)
		require.NoError(t, dst.co.HandleEnvelope(context.Background(), s.from, env))
		delivered++
	}
}

// netSender 把信封放入 fakeNet
type netSender struct {
	net  *fakeNet
	from types.PeerID
}

func (s *netSender) SendEnvelope(_ context.Context, to types.PeerID, env *Envelope) error {
	s.net.push(sent{from: s.from, to: to, env: env})
	return nil
}

type testNode struct {
	id  *identity.Identity
	reg *registry.Registry
	co  *Coordinator
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SessionID = "test-session"
	return cfg
}

func newTestNode(t *testing.T, net *fakeNet, clk clock.Clock, cfg Config, opts ...Option) *testNode {
	t.Helper()
	id, err := identity.Generate(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	return newTestNodeWithIdentity(t, net, clk, cfg, id, opts...)
}

func newTestNodeWithIdentity(t *testing.T, net *fakeNet, clk clock.Clock, cfg Config, id *identity.Identity, opts ...Option) *testNode {
	t.Helper()
	reg := registry.New(registry.WithClock(clk))
	opts = append([]Option{WithClock(clk)}, opts...)
	co := New(cfg, id, crypto.StdVerifier{}, reg, &netSender{net: net, from: id.PeerID()}, opts...)
	return &testNode{id: id, reg: reg, co: co}
}

// signedRequest 构造 from 发给 to 的合法握手请求
func signedRequest(t *testing.T, from *identity.Identity, to types.PeerID, session, attempt string) *Envelope {
	t.Helper()
	sig, err := from.Sign(Challenge(session, from.PeerID(), to))
	require.NoError(t, err)
	return &Envelope{Kind: KindRequest, AttemptID: attempt, PublicKey: from.PublicKey(), Signature: sig}
}

func waitTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}
