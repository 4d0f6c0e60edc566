package roundnet

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-roundnet/internal/protocol/roundbased"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// roundMsg 测试用轮次消息
type roundMsg struct {
	R     uint16 `json:"r"`
	Share string `json:"share"`
}

func (m roundMsg) Round() uint16 { return m.R }

// newParties 生成 n 个身份及其公钥
func newParties(t *testing.T, n int) ([]*Identity, [][]byte) {
	t.Helper()
	ids := make([]*Identity, n)
	keys := make([][]byte, n)
	for i := range ids {
		id, err := NewIdentity("ed25519")
		require.NoError(t, err)
		ids[i] = id
		keys[i] = id.PublicKey()
	}
	return ids, keys
}

// newMemoryCluster 在同一 hub 上创建并启动全部会话参与方
func newMemoryCluster(t *testing.T, n int, extra ...Option) ([]*Node, *MemoryHub) {
	t.Helper()
	ctx := context.Background()
	hub := NewMemoryHub()
	ids, keys := newParties(t, n)

	nodes := make([]*Node, n)
	for i, id := range ids {
		opts := append([]Option{
			WithSessionID("cluster-test"),
			WithParties(keys...),
			WithIdentity(id),
			WithMemoryTransport(hub),
		}, extra...)
		node, err := New(ctx, opts...)
		require.NoError(t, err)
		require.NoError(t, node.Start(ctx))
		t.Cleanup(func() { _ = node.Close() })
		nodes[i] = node
	}
	require.NoError(t, hub.ConnectAll())
	return nodes, hub
}

func waitAllParties(t *testing.T, nodes []*Node) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, n := range nodes {
		require.NoError(t, n.WaitParties(ctx))
	}
}

// ============================================================================
//                              构造与生命周期
// ============================================================================

// TestNew_NoTransport 测试缺少传输
func TestNew_NoTransport(t *testing.T) {
	_, err := New(context.Background())
	assert.ErrorIs(t, err, ErrNoTransport)
}

// TestNew_InvalidConfig 测试配置校验
func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(),
		WithSessionID(""),
		WithMemoryTransport(NewMemoryHub()),
	)
	assert.Error(t, err)
}

// TestNode_Lifecycle 测试启动与停止
func TestNode_Lifecycle(t *testing.T) {
	ctx := context.Background()
	node, err := New(ctx, WithMemoryTransport(NewMemoryHub()))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, node.State())
	assert.False(t, node.LocalPeer().IsEmpty())

	_, err = NewAdapter[roundMsg](node, "dkg", nil)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, node.Start(ctx))
	assert.ErrorIs(t, node.Start(ctx), ErrAlreadyStarted)
	assert.Equal(t, "running", node.State().String())

	// 开放会话没有固定参与方
	assert.ErrorIs(t, node.WaitParties(ctx), ErrOpenSession)
	_, err = node.Connect(ctx, "127.0.0.1:1")
	assert.ErrorIs(t, err, ErrDialUnsupported)
	assert.Nil(t, node.ListenAddrs())

	require.NoError(t, node.Close())
	require.NoError(t, node.Close())
	assert.Equal(t, StateStopped, node.State())
	assert.ErrorIs(t, node.Start(ctx), ErrNodeClosed)
}

// TestNode_CloseWithoutStart 测试未启动直接关闭
func TestNode_CloseWithoutStart(t *testing.T) {
	node, err := New(context.Background(), WithMemoryTransport(NewMemoryHub()))
	require.NoError(t, err)
	require.NoError(t, node.Close())
}

// TestNode_NotParty 测试非参与方
func TestNode_NotParty(t *testing.T) {
	ctx := context.Background()
	_, keys := newParties(t, 2)

	node, err := New(ctx, WithParties(keys...), WithMemoryTransport(NewMemoryHub()))
	require.NoError(t, err)
	defer node.Close()
	require.NoError(t, node.Start(ctx))

	assert.ErrorIs(t, node.WaitParties(ctx), ErrNotParty)
	_, err = NewAdapter[roundMsg](node, "dkg", nil)
	assert.ErrorIs(t, err, ErrNotParty)
}

// ============================================================================
//                              三方会话
// ============================================================================

// TestCluster_RoundTrip 测试三方握手后的广播与点对点消息
func TestCluster_RoundTrip(t *testing.T) {
	nodes, _ := newMemoryCluster(t, 3)
	waitAllParties(t, nodes)

	for i, n := range nodes {
		idx, ok := n.PartyIndex()
		require.True(t, ok)
		assert.Equal(t, types.PartyIndex(i), idx)
		assert.Len(t, n.VerifiedPeers(), 2)
	}

	rxs := make([]*roundbased.Receiver[roundMsg], 3)
	txs := make([]*roundbased.Sender[roundMsg], 3)
	for i, n := range nodes {
		a, err := NewAdapter[roundMsg](n, "dkg", nil)
		require.NoError(t, err)
		rxs[i], txs[i] = a.Split()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 轮次 1：party 0 广播
	require.NoError(t, txs[0].Send(ctx, roundbased.Outgoing[roundMsg]{
		Recipient: types.AllParties(),
		Msg:       roundMsg{R: 1, Share: "commit-0"},
	}))
	for _, i := range []int{1, 2} {
		in, err := rxs[i].Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.PartyIndex(0), in.Sender)
		assert.Equal(t, types.MessageTypeBroadcast, in.Type)
		assert.Equal(t, "commit-0", in.Msg.Share)
	}

	// 轮次 2：party 1 单播给 party 2
	require.NoError(t, txs[1].Send(ctx, roundbased.Outgoing[roundMsg]{
		Recipient: types.OneParty(2),
		Msg:       roundMsg{R: 2, Share: "share-1-2"},
	}))
	in, err := rxs[2].Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.PartyIndex(1), in.Sender)
	assert.Equal(t, types.MessageTypeP2P, in.Type)
	assert.Equal(t, "share-1-2", in.Msg.Share)
	assert.Equal(t, uint64(0), in.ID)

	// party 0 不会收到发给 party 2 的消息
	short, shortCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer shortCancel()
	_, err = rxs[0].Recv(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	st := nodes[2].Stats()
	assert.Equal(t, 2, st.Verified)
	assert.Equal(t, uint64(1), st.Host.DirectDelivered)
	assert.Equal(t, uint64(1), st.Host.GossipDelivered)
}

// TestCluster_BroadcastLoopback 测试节点级广播回环配置
func TestCluster_BroadcastLoopback(t *testing.T) {
	nodes, _ := newMemoryCluster(t, 2, WithLoopbackBroadcast(true))
	waitAllParties(t, nodes)

	a, err := NewAdapter[roundMsg](nodes[0], "dkg", nil)
	require.NoError(t, err)
	rx, tx := a.Split()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tx.Send(ctx, roundbased.Outgoing[roundMsg]{Recipient: types.AllParties(), Msg: roundMsg{R: 1}}))

	in, err := rx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.PartyIndex(0), in.Sender)
	assert.Equal(t, types.MessageTypeBroadcast, in.Type)
}

// TestNode_MetricsHandler 测试指标导出
func TestNode_MetricsHandler(t *testing.T) {
	nodes, _ := newMemoryCluster(t, 2)
	waitAllParties(t, nodes)

	h := nodes[0].MetricsHandler()
	require.NotNil(t, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "roundnet_registry_verified_peers 1")
	assert.Contains(t, string(body), `roundnet_handshake_events_total{event="verified"}`)
}

// ============================================================================
//                              TCP 传输
// ============================================================================

// TestStream_Connect 测试 TCP 传输上的握手与消息
func TestStream_Connect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ids, keys := newParties(t, 2)

	nodes := make([]*Node, 2)
	for i, id := range ids {
		node, err := New(ctx,
			WithSessionID("stream-test"),
			WithParties(keys...),
			WithIdentity(id),
			WithStreamTransport("127.0.0.1:0"),
		)
		require.NoError(t, err)
		require.NoError(t, node.Start(ctx))
		t.Cleanup(func() { _ = node.Close() })
		nodes[i] = node
	}

	addrs := nodes[0].ListenAddrs()
	require.Len(t, addrs, 1)
	peer, err := nodes[1].Connect(ctx, addrs[0].String())
	require.NoError(t, err)
	assert.Equal(t, nodes[0].LocalPeer(), peer)

	waitAllParties(t, nodes)

	a0, err := NewAdapter[roundMsg](nodes[0], "sign", nil)
	require.NoError(t, err)
	a1, err := NewAdapter[roundMsg](nodes[1], "sign", nil)
	require.NoError(t, err)
	_, tx := a0.Split()
	rx, _ := a1.Split()

	require.NoError(t, tx.Send(ctx, roundbased.Outgoing[roundMsg]{Recipient: types.OneParty(1), Msg: roundMsg{R: 3, Share: "tcp"}}))
	in, err := rx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.PartyIndex(0), in.Sender)
	assert.Equal(t, "tcp", in.Msg.Share)
}
