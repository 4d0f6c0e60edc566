// Package registry 实现节点验证注册表
//
// Registry 记录会话参与方（有序公钥列表）、节点与公钥的绑定关系以及
// 验证通过的节点集合，并据此提供参与方索引与节点 ID 的双向解析。
//
// 并发模型：单写多读，所有方法都可并发调用。状态只在会话内有效，不做持久化。
package registry

import (
	"math"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-roundnet/pkg/lib/log"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var logger = log.Logger("core/registry")

// Option 注册表选项
type Option func(*Registry)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// Registry 节点验证注册表
type Registry struct {
	mu    sync.RWMutex
	clock clock.Clock

	// parties 会话参与方公钥，下标即参与方索引；为空表示开放会话
	parties    [][]byte
	partyIndex map[string]types.PartyIndex

	// keys 与 owners 维持节点与公钥之间的双射
	keys   map[types.PeerID][]byte
	owners map[string]types.PeerID

	verified map[types.PeerID]types.VerifiedPeerEntry
}

// New 创建注册表
func New(opts ...Option) *Registry {
	r := &Registry{
		clock:      clock.New(),
		partyIndex: make(map[string]types.PartyIndex),
		keys:       make(map[types.PeerID][]byte),
		owners:     make(map[string]types.PeerID),
		verified:   make(map[types.PeerID]types.VerifiedPeerEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ============================================================================
//                              会话参与方
// ============================================================================

// SetParties 设置会话参与方
//
// keys 为序列化公钥，顺序即参与方索引。空列表表示开放会话。
func (r *Registry) SetParties(keys [][]byte) error {
	if len(keys) > math.MaxUint16+1 {
		return ErrTooManyParties
	}

	index := make(map[string]types.PartyIndex, len(keys))
	parties := make([][]byte, len(keys))
	for i, k := range keys {
		if len(k) == 0 {
			return ErrEmptyPublicKey
		}
		if _, dup := index[string(k)]; dup {
			return ErrDuplicateParty
		}
		index[string(k)] = types.PartyIndex(i)
		parties[i] = append([]byte(nil), k...)
	}

	r.mu.Lock()
	r.parties = parties
	r.partyIndex = index
	r.mu.Unlock()

	logger.Debug("会话参与方已设置", "parties", len(keys))
	return nil
}

// PartyCount 返回参与方数量
func (r *Registry) PartyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parties)
}

// IsOpen 是否为开放会话
func (r *Registry) IsOpen() bool {
	return r.PartyCount() == 0
}

// IsAllowed 公钥是否允许参与会话
func (r *Registry) IsAllowed(pubKey []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.parties) == 0 {
		return len(pubKey) > 0
	}
	_, ok := r.partyIndex[string(pubKey)]
	return ok
}

// ============================================================================
//                              身份绑定
// ============================================================================

// BindIdentity 绑定节点与公钥
//
// 绑定保持双射：公钥已属于其他节点时从原节点移走，节点已有其他公钥时替换。
func (r *Registry) BindIdentity(peer types.PeerID, pubKey []byte) error {
	if peer.IsEmpty() {
		return ErrEmptyPeerID
	}
	if len(pubKey) == 0 {
		return ErrEmptyPublicKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[string(pubKey)]; ok && owner != peer {
		delete(r.keys, owner)
		delete(r.verified, owner)
		logger.Debug("公钥换绑", "from", owner.ShortString(), "to", peer.ShortString())
	}
	if old, ok := r.keys[peer]; ok {
		delete(r.owners, string(old))
	}

	k := append([]byte(nil), pubKey...)
	r.keys[peer] = k
	r.owners[string(k)] = peer
	return nil
}

// PublicKeyOf 返回节点绑定的公钥
func (r *Registry) PublicKeyOf(peer types.PeerID) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[peer]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), k...), true
}

// PeerOfKey 返回绑定了该公钥的节点
func (r *Registry) PeerOfKey(pubKey []byte) (types.PeerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.owners[string(pubKey)]
	return p, ok
}

// IndexOf 返回节点的参与方索引
func (r *Registry) IndexOf(peer types.PeerID) (types.PartyIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[peer]
	if !ok {
		return 0, false
	}
	idx, ok := r.partyIndex[string(k)]
	return idx, ok
}

// PeerOf 返回参与方索引对应的节点
func (r *Registry) PeerOf(index types.PartyIndex) (types.PeerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(index) >= len(r.parties) {
		return types.EmptyPeerID, false
	}
	p, ok := r.owners[string(r.parties[index])]
	return p, ok
}

// ============================================================================
//                              验证状态
// ============================================================================

// Verify 标记节点已验证
//
// 节点必须已绑定公钥。重复调用是幂等的：只有首次调用返回 true，
// VerifiedAt 保持首次验证时间。
func (r *Registry) Verify(peer types.PeerID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[peer]
	if !ok {
		return false, ErrNotBound
	}
	if _, done := r.verified[peer]; done {
		return false, nil
	}
	r.verified[peer] = types.VerifiedPeerEntry{
		Peer:       peer,
		PublicKey:  k,
		VerifiedAt: r.clock.Now(),
	}
	return true, nil
}

// Unverify 撤销节点的验证记录，公钥绑定保留
//
// 链路断开后调用，使新的链路必须重新握手。返回是否存在被撤销的记录。
func (r *Registry) Unverify(peer types.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.verified[peer]; !ok {
		return false
	}
	delete(r.verified, peer)
	logger.Debug("撤销验证记录", "peer", peer.ShortString())
	return true
}

// IsVerified 节点是否已验证
func (r *Registry) IsVerified(peer types.PeerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.verified[peer]
	return ok
}

// VerifiedEntry 返回节点的验证记录
func (r *Registry) VerifiedEntry(peer types.PeerID) (types.VerifiedPeerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.verified[peer]
	return e, ok
}

// VerifiedPeers 返回验证记录快照，按验证时间排序
func (r *Registry) VerifiedPeers() []types.VerifiedPeerEntry {
	r.mu.RLock()
	out := make([]types.VerifiedPeerEntry, 0, len(r.verified))
	for _, e := range r.verified {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].VerifiedAt.Equal(out[j].VerifiedAt) {
			return out[i].Peer.Compare(out[j].Peer) < 0
		}
		return out[i].VerifiedAt.Before(out[j].VerifiedAt)
	})
	return out
}

// VerifiedCount 返回已验证节点数
func (r *Registry) VerifiedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.verified)
}
