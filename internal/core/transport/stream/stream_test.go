package stream

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-roundnet/internal/core/identity"
	"github.com/dep2p/go-roundnet/internal/core/wire"
	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
	"github.com/dep2p/go-roundnet/pkg/types"
)

func testPeerID(b byte) types.PeerID {
	return types.PeerIDFromPublicKey([]byte{b})
}

func newIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	return id
}

func newTransport(t *testing.T) *Transport {
	t.Helper()
	tr := New(newIdentity(t), DefaultConfig())
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func nextEvent(t *testing.T, tr *Transport) types.TransportEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := tr.Next(ctx)
	require.NoError(t, err)
	return ev
}

// pipePair 通过 net.Pipe 连接两个传输
func pipePair(t *testing.T) (*Transport, *Transport) {
	t.Helper()
	a := newTransport(t)
	b := newTransport(t)

	ca, cb := net.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := b.AddConn(ctx, cb)
		errCh <- err
	}()
	remote, err := a.AddConn(ctx, ca)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, b.LocalPeer(), remote)

	assert.Equal(t, types.EventConnected, nextEvent(t, a).Kind)
	assert.Equal(t, types.EventConnected, nextEvent(t, b).Kind)
	return a, b
}

// ============================================================================
//                              数据包
// ============================================================================

// TestPacket_RoundTrip 测试数据包编解码
func TestPacket_RoundTrip(t *testing.T) {
	p := packet{channel: types.ChannelGossip, topic: "t", data: []byte("d")}
	got, err := decodePacket(p.encode())
	require.NoError(t, err)
	assert.Equal(t, &p, got)

	bad := packet{channel: types.Channel(7)}
	_, err = decodePacket(bad.encode())
	assert.ErrorIs(t, err, ErrBadPacket)
}

// ============================================================================
//                              连接与收发
// ============================================================================

// TestTransport_Send 测试单播
func TestTransport_Send(t *testing.T) {
	a, b := pipePair(t)

	go func() { _ = a.Send(context.Background(), b.LocalPeer(), []byte("hello")) }()
	ev := nextEvent(t, b)
	assert.Equal(t, types.EventFrame, ev.Kind)
	assert.Equal(t, types.ChannelDirect, ev.Channel)
	assert.Equal(t, a.LocalPeer(), ev.From)
	assert.Equal(t, []byte("hello"), ev.Data)

	assert.ErrorIs(t, a.Send(context.Background(), testPeerID(9), nil), ErrNotConnected)
	assert.Equal(t, []types.PeerID{b.LocalPeer()}, a.Peers())
}

// TestTransport_Publish 测试只上报已订阅主题
func TestTransport_Publish(t *testing.T) {
	a, b := pipePair(t)
	require.NoError(t, b.Subscribe("yes"))

	go func() {
		_ = a.Publish(context.Background(), "no", []byte("skip"))
		_ = a.Publish(context.Background(), "yes", []byte("keep"))
	}()

	ev := nextEvent(t, b)
	assert.Equal(t, types.ChannelGossip, ev.Channel)
	assert.Equal(t, "yes", ev.Topic)
	assert.Equal(t, []byte("keep"), ev.Data)
}

// TestTransport_Disconnect 测试对端关闭后产生断开事件
func TestTransport_Disconnect(t *testing.T) {
	a, b := pipePair(t)

	require.NoError(t, a.Close())
	ev := nextEvent(t, b)
	assert.Equal(t, types.EventDisconnected, ev.Kind)
	assert.Equal(t, a.LocalPeer(), ev.From)
	assert.Empty(t, b.Peers())

	_, err := a.Next(context.Background())
	assert.ErrorIs(t, err, types.ErrTransportClosed)
}

// TestTransport_SelfConnect 测试拒绝与自身建立连接
func TestTransport_SelfConnect(t *testing.T) {
	id := newIdentity(t)
	a := New(id, DefaultConfig())
	b := New(id, DefaultConfig())
	defer a.Close()
	defer b.Close()

	ca, cb := net.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() { _, _ = b.AddConn(ctx, cb) }()
	_, err := a.AddConn(ctx, ca)
	assert.ErrorIs(t, err, ErrSelfConnect)
}

// TestTransport_TCP 测试 TCP 监听与拨号
func TestTransport_TCP(t *testing.T) {
	a := newTransport(t)
	b := newTransport(t)

	addr, err := a.Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	remote, err := b.Dial(ctx, addr.String())
	require.NoError(t, err)
	assert.Equal(t, a.LocalPeer(), remote)

	assert.Equal(t, types.EventConnected, nextEvent(t, a).Kind)
	assert.Equal(t, types.EventConnected, nextEvent(t, b).Kind)

	require.NoError(t, b.Send(ctx, a.LocalPeer(), []byte("over tcp")))
	assert.Equal(t, []byte("over tcp"), nextEvent(t, a).Data)
}

// ============================================================================
//                              hello 认证
// ============================================================================

// impersonate 以 victim 的公钥发起 hello，但用 signer 的私钥签名
//
// 返回目标端 AddConn 的结果，返回前连接已关闭。
func impersonate(t *testing.T, target *Transport, victimKey []byte, signer *identity.Identity) (types.PeerID, error) {
	t.Helper()
	ca, cb := net.Pipe()
	defer cb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	type result struct {
		peer types.PeerID
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		peer, err := target.AddConn(ctx, ca)
		resCh <- result{peer, err}
	}()

	br := bufio.NewReader(cb)
	offer := helloOffer{publicKey: victimKey, nonce: make([]byte, NonceSize)}
	theirs, err := exchange(cb, br, offer.encode())
	require.NoError(t, err)
	got, err := decodeHelloOffer(theirs)
	require.NoError(t, err)

	victim := types.PeerIDFromPublicKey(victimKey)
	sig, err := signer.Sign(HelloChallenge(got.nonce, victim, target.LocalPeer()))
	require.NoError(t, err)
	go func() {
		_ = wire.WriteFrame(cb, sig)
		_, _ = wire.ReadFrame(br)
	}()
	res := <-resCh
	return res.peer, res.err
}

// TestTransport_HelloRejectsForgedIdentity 测试不持有私钥时无法冒用他人 ID
func TestTransport_HelloRejectsForgedIdentity(t *testing.T) {
	target := newTransport(t)
	victim := newIdentity(t)
	attacker := newIdentity(t)

	_, err := impersonate(t, target, victim.PublicKey(), attacker)
	assert.ErrorIs(t, err, ErrHelloAuth)
	assert.Empty(t, target.Peers())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = target.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "认证失败不产生连接事件")
}

// TestTransport_HelloAcceptsOwnKey 测试持有私钥的一方通过认证
func TestTransport_HelloAcceptsOwnKey(t *testing.T) {
	target := newTransport(t)
	self := newIdentity(t)

	peer, err := impersonate(t, target, self.PublicKey(), self)
	require.NoError(t, err)
	assert.Equal(t, self.PeerID(), peer)

	ev := nextEvent(t, target)
	assert.Equal(t, types.EventConnected, ev.Kind)
	assert.Equal(t, self.PeerID(), ev.From)
}

// TestTransport_HelloBadOffer 测试格式错误的 hello
func TestTransport_HelloBadOffer(t *testing.T) {
	_, err := decodeHelloOffer((&helloOffer{publicKey: []byte("k"), nonce: []byte("short")}).encode())
	assert.ErrorIs(t, err, ErrBadHello)

	_, err = decodeHelloOffer(nil)
	assert.ErrorIs(t, err, ErrBadHello)
}

// TestHelloChallenge 测试挑战绑定签名方与验证方
func TestHelloChallenge(t *testing.T) {
	nonce := make([]byte, NonceSize)
	a, b := testPeerID(1), testPeerID(2)
	assert.NotEqual(t, HelloChallenge(nonce, a, b), HelloChallenge(nonce, b, a))
}
