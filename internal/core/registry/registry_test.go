package registry

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/pkg/types"
)

func peerOf(key string) types.PeerID {
	return types.PeerIDFromPublicKey([]byte(key))
}

// ============================================================================
//                              验证状态
// ============================================================================

// TestRegistry_Verify 测试验证的幂等性
func TestRegistry_Verify(t *testing.T) {
	mock := clock.NewMock()
	r := New(WithClock(mock))
	a := peerOf("a")

	assert.False(t, r.IsVerified(a))

	_, err := r.Verify(a)
	assert.ErrorIs(t, err, ErrNotBound)
	assert.False(t, r.IsVerified(a))

	require.NoError(t, r.BindIdentity(a, []byte("a")))
	first, err := r.Verify(a)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, r.IsVerified(a))

	at := mock.Now()
	mock.Add(time.Minute)

	again, err := r.Verify(a)
	require.NoError(t, err)
	assert.False(t, again)

	entry, ok := r.VerifiedEntry(a)
	require.True(t, ok)
	assert.Equal(t, at, entry.VerifiedAt)
	assert.Equal(t, []byte("a"), entry.PublicKey)
	assert.Equal(t, 1, r.VerifiedCount())
}

// TestRegistry_Unverify 测试撤销验证后保留公钥绑定
func TestRegistry_Unverify(t *testing.T) {
	r := New()
	a := peerOf("a")

	assert.False(t, r.Unverify(a))

	require.NoError(t, r.BindIdentity(a, []byte("a")))
	_, err := r.Verify(a)
	require.NoError(t, err)

	assert.True(t, r.Unverify(a))
	assert.False(t, r.IsVerified(a))
	assert.Zero(t, r.VerifiedCount())
	assert.False(t, r.Unverify(a))

	key, ok := r.PublicKeyOf(a)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), key)

	// 重新验证视为首次
	first, err := r.Verify(a)
	require.NoError(t, err)
	assert.True(t, first)
}

// TestRegistry_VerifiedPeers 测试快照排序
func TestRegistry_VerifiedPeers(t *testing.T) {
	mock := clock.NewMock()
	r := New(WithClock(mock))

	for _, k := range []string{"x", "y", "z"} {
		require.NoError(t, r.BindIdentity(peerOf(k), []byte(k)))
		_, err := r.Verify(peerOf(k))
		require.NoError(t, err)
		mock.Add(time.Second)
	}

	peers := r.VerifiedPeers()
	require.Len(t, peers, 3)
	assert.Equal(t, peerOf("x"), peers[0].Peer)
	assert.Equal(t, peerOf("z"), peers[2].Peer)
}

// ============================================================================
//                              参与方索引
// ============================================================================

// TestRegistry_IndexBijection 测试索引与节点的双向解析
func TestRegistry_IndexBijection(t *testing.T) {
	r := New()
	require.NoError(t, r.SetParties([][]byte{[]byte("k0"), []byte("k1"), []byte("k2")}))

	p1 := peerOf("k1")
	require.NoError(t, r.BindIdentity(p1, []byte("k1")))

	idx, ok := r.IndexOf(p1)
	require.True(t, ok)
	assert.Equal(t, types.PartyIndex(1), idx)

	got, ok := r.PeerOf(1)
	require.True(t, ok)
	assert.Equal(t, p1, got)

	_, ok = r.PeerOf(0)
	assert.False(t, ok, "未绑定的参与方不可解析")

	_, ok = r.PeerOf(7)
	assert.False(t, ok)

	_, ok = r.IndexOf(peerOf("nobody"))
	assert.False(t, ok)
}

// TestRegistry_Rebind 测试重新绑定保持双射
func TestRegistry_Rebind(t *testing.T) {
	r := New()
	require.NoError(t, r.SetParties([][]byte{[]byte("k0"), []byte("k1")}))

	a, b := peerOf("a"), peerOf("b")
	require.NoError(t, r.BindIdentity(a, []byte("k0")))
	_, err := r.Verify(a)
	require.NoError(t, err)

	// 公钥移到 b，a 失去绑定与验证状态
	require.NoError(t, r.BindIdentity(b, []byte("k0")))
	_, ok := r.IndexOf(a)
	assert.False(t, ok)
	assert.False(t, r.IsVerified(a))
	got, ok := r.PeerOf(0)
	require.True(t, ok)
	assert.Equal(t, b, got)

	// b 换成 k1，k0 不再有节点
	require.NoError(t, r.BindIdentity(b, []byte("k1")))
	_, ok = r.PeerOf(0)
	assert.False(t, ok)
	idx, ok := r.IndexOf(b)
	require.True(t, ok)
	assert.Equal(t, types.PartyIndex(1), idx)

	_, ok = r.PeerOfKey([]byte("k0"))
	assert.False(t, ok)
}

// TestRegistry_SetParties 测试参与方列表校验
func TestRegistry_SetParties(t *testing.T) {
	r := New()
	assert.True(t, r.IsOpen())
	assert.True(t, r.IsAllowed([]byte("anyone")))
	assert.False(t, r.IsAllowed(nil))

	err := r.SetParties([][]byte{[]byte("k"), []byte("k")})
	assert.ErrorIs(t, err, ErrDuplicateParty)

	err = r.SetParties([][]byte{{}})
	assert.ErrorIs(t, err, ErrEmptyPublicKey)

	require.NoError(t, r.SetParties([][]byte{[]byte("k")}))
	assert.False(t, r.IsOpen())
	assert.True(t, r.IsAllowed([]byte("k")))
	assert.False(t, r.IsAllowed([]byte("other")))
}

func TestRegistry_BindInvalid(t *testing.T) {
	r := New()
	assert.ErrorIs(t, r.BindIdentity(types.EmptyPeerID, []byte("k")), ErrEmptyPeerID)
	assert.ErrorIs(t, r.BindIdentity(peerOf("a"), nil), ErrEmptyPublicKey)
}

// TestProvideRegistry 测试从统一配置载入参与方
func TestProvideRegistry(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Handshake = cfg.Handshake.WithParties([]byte("k0"), []byte("k1"))

	out, err := ProvideRegistry(Params{UnifiedCfg: cfg})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Registry.PartyCount())
	assert.NotNil(t, out.Resolver)
	assert.NotNil(t, Module())
}
