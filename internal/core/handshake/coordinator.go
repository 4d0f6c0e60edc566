// Package handshake 实现节点握手协调
//
// 握手在请求-响应通道上交换 Request/Response 信封，双方各自对绑定了
// 会话、签名方与验证方的挑战签名。验证通过后在注册表中绑定身份并标记
// 已验证，此后对端的协议消息才会被接受。
//
// 每个对端的状态迁移：
//
//	None → {InboundPending, OutboundPending} → {Verified, Failed}
//
// 双方同时发起时由 TieBreaker 裁决：让步方取消出站握手并处理对端请求，
// 另一方忽略对端请求、等待自己的响应，双方无需额外协调即可收敛。
package handshake

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-roundnet/internal/core/registry"
	"github.com/dep2p/go-roundnet/pkg/lib/log"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

var logger = log.Logger("core/handshake")

// ============================================================================
//                              配置
// ============================================================================

// Config 握手协调器配置
type Config struct {
	// SessionID 会话标识，参与签名挑战
	SessionID string

	// Timeout 进行中握手的最长存活时间
	Timeout time.Duration

	// SweepInterval 超时清理周期
	SweepInterval time.Duration

	// RequestRate 单个对端每秒允许的入站请求数
	RequestRate rate.Limit

	// RequestBurst 入站请求突发上限
	RequestBurst int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		SessionID:     "roundnet-default",
		Timeout:       30 * time.Second,
		SweepInterval: 5 * time.Second,
		RequestRate:   5,
		RequestBurst:  10,
	}
}

// Option 协调器选项
type Option func(*Coordinator)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// WithTieBreaker 替换同时握手的裁决规则
func WithTieBreaker(tb TieBreaker) Option {
	return func(co *Coordinator) {
		co.tieBreak = tb
	}
}

// ============================================================================
//                              统计
// ============================================================================

// Stats 握手统计快照
type Stats struct {
	RequestsIn         uint64
	ResponsesIn        uint64
	ErrorsIn           uint64
	Verified           uint64
	Failed             uint64
	Timeouts           uint64
	Deferred           uint64
	Stale              uint64
	RateLimited        uint64
	RejectedUnverified uint64
}

type counters struct {
	requestsIn         atomic.Uint64
	responsesIn        atomic.Uint64
	errorsIn           atomic.Uint64
	verified           atomic.Uint64
	failed             atomic.Uint64
	timeouts           atomic.Uint64
	deferred           atomic.Uint64
	stale              atomic.Uint64
	rateLimited        atomic.Uint64
	rejectedUnverified atomic.Uint64
}

// ============================================================================
//                              Coordinator
// ============================================================================

// peerState 单个对端的握手状态
type peerState struct {
	state   types.HandshakeState
	pending *types.PendingHandshake
	failure error
}

// outgoing 待发送信封，在释放锁之后发送
type outgoing struct {
	to  types.PeerID
	env *Envelope
}

// Coordinator 握手协调器
type Coordinator struct {
	cfg      Config
	clock    clock.Clock
	signer   pkgif.Signer
	verifier pkgif.Verifier
	registry *registry.Registry
	sender   EnvelopeSender
	tieBreak TieBreaker

	mu       sync.Mutex
	peers    map[types.PeerID]*peerState
	limiters map[types.PeerID]*rate.Limiter
	// changed 在任何对端完成验证或协调器关闭时关闭并替换
	changed chan struct{}
	closed  bool

	stats counters
}

// New 创建握手协调器
func New(cfg Config, signer pkgif.Signer, verifier pkgif.Verifier, reg *registry.Registry, sender EnvelopeSender, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		clock:    clock.New(),
		signer:   signer,
		verifier: verifier,
		registry: reg,
		sender:   sender,
		tieBreak: LowerKeyYields,
		peers:    make(map[types.PeerID]*peerState),
		limiters: make(map[types.PeerID]*rate.Limiter),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) local() types.PeerIdentity {
	return types.PeerIdentity{ID: c.signer.PeerID(), PublicKey: c.signer.PublicKey()}
}

func (c *Coordinator) stateLocked(peer types.PeerID) *peerState {
	st, ok := c.peers[peer]
	if !ok {
		st = &peerState{state: types.HandshakeNone}
		c.peers[peer] = st
	}
	return st
}

// ============================================================================
//                              出站握手
// ============================================================================

// Initiate 向对端发起握手
//
// 对端已验证或已有进行中的握手时不做任何事。发送失败时对端标记为 Failed。
func (c *Coordinator) Initiate(ctx context.Context, peer types.PeerID) error {
	if peer == c.signer.PeerID() {
		return ErrSelfHandshake
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.registry.IsVerified(peer) {
		c.mu.Unlock()
		return nil
	}
	st := c.stateLocked(peer)
	if st.state.IsPending() {
		c.mu.Unlock()
		return nil
	}
	attempt := uuid.NewString()
	st.state = types.HandshakeOutboundPending
	st.failure = nil
	st.pending = &types.PendingHandshake{
		Peer:      peer,
		StartedAt: c.clock.Now(),
		Direction: types.DirOutbound,
		AttemptID: attempt,
	}
	c.mu.Unlock()

	sig, err := c.signer.Sign(Challenge(c.cfg.SessionID, c.signer.PeerID(), peer))
	if err == nil {
		err = c.sender.SendEnvelope(ctx, peer, &Envelope{
			Kind:      KindRequest,
			AttemptID: attempt,
			PublicKey: c.signer.PublicKey(),
			Signature: sig,
		})
	}
	if err != nil {
		c.mu.Lock()
		if st.pending != nil && st.pending.AttemptID == attempt {
			c.failLocked(peer, st, fmt.Errorf("send request: %w", err))
		}
		c.mu.Unlock()
		return fmt.Errorf("handshake: initiate %s: %w", peer.ShortString(), err)
	}

	logger.Debug("已发送握手请求", "peer", peer.ShortString(), "attempt", attempt)
	return nil
}

// ============================================================================
//                              入站信封
// ============================================================================

// HandleEnvelope 处理来自对端的握手信封
//
// 握手失败只影响该对端的状态，不作为错误返回；返回的错误仅表示
// 信封类型不属于握手或协调器已关闭。
func (c *Coordinator) HandleEnvelope(ctx context.Context, from types.PeerID, env *Envelope) error {
	var out []outgoing

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch env.Kind {
	case KindRequest:
		out = c.handleRequestLocked(from, env)
	case KindResponse:
		c.handleResponseLocked(from, env)
	case KindError:
		c.handleErrorLocked(from, env)
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnexpectedEnvelope, env.Kind)
	}
	c.mu.Unlock()

	c.flush(ctx, out)
	return nil
}

func (c *Coordinator) flush(ctx context.Context, out []outgoing) {
	for _, o := range out {
		if err := c.sender.SendEnvelope(ctx, o.to, o.env); err != nil {
			logger.Warn("发送握手信封失败", "peer", o.to.ShortString(), "kind", o.env.Kind.String(), "err", err)
		}
	}
}

func (c *Coordinator) handleRequestLocked(from types.PeerID, env *Envelope) []outgoing {
	c.stats.requestsIn.Add(1)

	if !c.limiterLocked(from).AllowN(c.clock.Now(), 1) {
		c.stats.rateLimited.Add(1)
		logger.Warn("握手请求过于频繁", "peer", from.ShortString())
		return []outgoing{{from, ErrorEnvelope(env.AttemptID, CodeRateLimited, ErrRateLimited.Error())}}
	}

	alreadyVerified := c.registry.IsVerified(from)
	st := c.stateLocked(from)

	if !from.MatchesPublicKey(env.PublicKey) {
		return c.rejectRequestLocked(from, st, env, alreadyVerified, ErrIdentityMismatch, nil)
	}

	if st.state == types.HandshakeOutboundPending {
		remote := types.PeerIdentity{ID: from, PublicKey: env.PublicKey}
		if !c.tieBreak(c.local(), remote) {
			c.stats.deferred.Add(1)
			logger.Debug("同时握手，等待本端出站响应", "peer", from.ShortString())
			return nil
		}
		logger.Debug("同时握手，本端让步", "peer", from.ShortString())
	}

	if !alreadyVerified {
		st.state = types.HandshakeInboundPending
		st.pending = &types.PendingHandshake{
			Peer:      from,
			StartedAt: c.clock.Now(),
			Direction: types.DirInbound,
			AttemptID: env.AttemptID,
		}
	}

	ok, err := c.verifier.Verify(env.PublicKey, Challenge(c.cfg.SessionID, from, c.signer.PeerID()), env.Signature)
	switch {
	case err != nil:
		return c.rejectRequestLocked(from, st, env, alreadyVerified, ErrUnknownPublicKey, err)
	case !ok:
		return c.rejectRequestLocked(from, st, env, alreadyVerified, ErrInvalidSignature, nil)
	case !c.registry.IsAllowed(env.PublicKey):
		return c.rejectRequestLocked(from, st, env, alreadyVerified, ErrUnknownPublicKey, registry.ErrNotAllowed)
	}

	if err := c.completeLocked(from, st, env.PublicKey); err != nil {
		return c.rejectRequestLocked(from, st, env, alreadyVerified, ErrUnknownPublicKey, err)
	}

	sig, err := c.signer.Sign(Challenge(c.cfg.SessionID, c.signer.PeerID(), from))
	if err != nil {
		logger.Error("签名握手响应失败", "peer", from.ShortString(), "err", err)
		return nil
	}
	return []outgoing{{from, &Envelope{
		Kind:      KindResponse,
		AttemptID: env.AttemptID,
		PublicKey: c.signer.PublicKey(),
		Signature: sig,
	}}}
}

// rejectRequestLocked 回复错误；已验证的对端不会因无效请求降级
func (c *Coordinator) rejectRequestLocked(from types.PeerID, st *peerState, env *Envelope, alreadyVerified bool, kind, cause error) []outgoing {
	herr := newError(kind, from, cause)
	if alreadyVerified {
		logger.Warn("已验证对端发来无效握手请求", "peer", from.ShortString(), "err", herr)
	} else {
		c.failLocked(from, st, herr)
	}
	return []outgoing{{from, ErrorEnvelope(env.AttemptID, codeOf(kind), herr.Error())}}
}

func (c *Coordinator) handleResponseLocked(from types.PeerID, env *Envelope) {
	c.stats.responsesIn.Add(1)

	st, ok := c.peers[from]
	if !ok || st.state != types.HandshakeOutboundPending || st.pending == nil || st.pending.AttemptID != env.AttemptID {
		c.stats.stale.Add(1)
		logger.Debug("忽略过期的握手响应", "peer", from.ShortString(), "attempt", env.AttemptID)
		return
	}

	if !from.MatchesPublicKey(env.PublicKey) {
		c.failLocked(from, st, newError(ErrIdentityMismatch, from, nil))
		return
	}
	ok, err := c.verifier.Verify(env.PublicKey, Challenge(c.cfg.SessionID, from, c.signer.PeerID()), env.Signature)
	switch {
	case err != nil:
		c.failLocked(from, st, newError(ErrUnknownPublicKey, from, err))
		return
	case !ok:
		c.failLocked(from, st, newError(ErrInvalidSignature, from, nil))
		return
	case !c.registry.IsAllowed(env.PublicKey):
		c.failLocked(from, st, newError(ErrUnknownPublicKey, from, registry.ErrNotAllowed))
		return
	}

	if err := c.completeLocked(from, st, env.PublicKey); err != nil {
		c.failLocked(from, st, newError(ErrUnknownPublicKey, from, err))
	}
}

func (c *Coordinator) handleErrorLocked(from types.PeerID, env *Envelope) {
	c.stats.errorsIn.Add(1)
	logger.Warn("收到错误响应", "peer", from.ShortString(), "code", env.Code, "message", env.Message)

	st, ok := c.peers[from]
	if !ok || st.pending == nil || st.pending.AttemptID != env.AttemptID || env.AttemptID == "" {
		return
	}
	c.failLocked(from, st, fmt.Errorf("%w: code %d: %s", ErrRejected, env.Code, env.Message))
}

// completeLocked 绑定身份并标记已验证
func (c *Coordinator) completeLocked(peer types.PeerID, st *peerState, pubKey []byte) error {
	if err := c.registry.BindIdentity(peer, pubKey); err != nil {
		return err
	}
	first, err := c.registry.Verify(peer)
	if err != nil {
		return err
	}
	st.state = types.HandshakeVerified
	st.pending = nil
	st.failure = nil
	if first {
		c.stats.verified.Add(1)
		logger.Info("握手完成", "peer", peer.ShortString())
	}
	c.notifyLocked()
	return nil
}

func (c *Coordinator) failLocked(peer types.PeerID, st *peerState, reason error) {
	st.state = types.HandshakeFailed
	st.pending = nil
	st.failure = reason
	c.stats.failed.Add(1)
	logger.Warn("握手失败", "peer", peer.ShortString(), "err", reason)
}

func (c *Coordinator) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Coordinator) limiterLocked(peer types.PeerID) *rate.Limiter {
	l, ok := c.limiters[peer]
	if !ok {
		l = rate.NewLimiter(c.cfg.RequestRate, c.cfg.RequestBurst)
		c.limiters[peer] = l
	}
	return l
}

// ============================================================================
//                              未验证对端
// ============================================================================

// RejectUnverified 拒绝未验证对端的协议消息，回复 403
func (c *Coordinator) RejectUnverified(ctx context.Context, from types.PeerID) {
	c.stats.rejectedUnverified.Add(1)
	logger.Warn("拒绝未验证对端的协议消息", "peer", from.ShortString())
	env := ErrorEnvelope("", CodeHandshakeRequired, "handshake required")
	if err := c.sender.SendEnvelope(ctx, from, env); err != nil {
		logger.Debug("发送 403 失败", "peer", from.ShortString(), "err", err)
	}
}

// ============================================================================
//                              超时清理
// ============================================================================

// Sweep 将超时的进行中握手标记为 Failed，返回数量
func (c *Coordinator) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	expired := 0
	for peer, st := range c.peers {
		if st.pending == nil || now.Sub(st.pending.StartedAt) <= c.cfg.Timeout {
			continue
		}
		dir := st.pending.Direction
		c.failLocked(peer, st, newError(ErrTimeout, peer, fmt.Errorf("%s handshake", dir)))
		c.stats.timeouts.Add(1)
		expired++
	}
	return expired
}

// Run 周期性执行 Sweep，直到 ctx 取消
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := c.clock.Ticker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				logger.Debug("清理超时握手", "count", n)
			}
		}
	}
}

// ============================================================================
//                              查询
// ============================================================================

// State 返回与对端的握手状态
func (c *Coordinator) State(peer types.PeerID) types.HandshakeState {
	if c.registry.IsVerified(peer) {
		return types.HandshakeVerified
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.peers[peer]; ok {
		return st.state
	}
	return types.HandshakeNone
}

// IsVerified 对端是否已验证
func (c *Coordinator) IsVerified(peer types.PeerID) bool {
	return c.registry.IsVerified(peer)
}

// FailureReason 返回对端最近一次握手失败的原因，未失败时返回 nil
func (c *Coordinator) FailureReason(peer types.PeerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.peers[peer]
	if !ok || st.state != types.HandshakeFailed {
		return nil
	}
	return st.failure
}

// Pending 返回进行中握手的快照
func (c *Coordinator) Pending() []types.PendingHandshake {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.PendingHandshake, 0, len(c.peers))
	for _, st := range c.peers {
		if st.pending != nil {
			out = append(out, *st.pending)
		}
	}
	return out
}

// Forget 清除对端的握手状态并撤销其验证记录
//
// 验证只对当前链路有效：链路断开后对端必须重新握手才能再发送协议消息。
func (c *Coordinator) Forget(peer types.PeerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.peers, peer)
	delete(c.limiters, peer)
	if c.registry.Unverify(peer) {
		c.notifyLocked()
	}
}

// WaitVerified 等待所有给定对端完成验证
func (c *Coordinator) WaitVerified(ctx context.Context, peers ...types.PeerID) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		done := true
		for _, p := range peers {
			if !c.registry.IsVerified(p) {
				done = false
				break
			}
		}
		wait := c.changed
		c.mu.Unlock()

		if done {
			return nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitCount 等待已验证对端数量达到 n
func (c *Coordinator) WaitCount(ctx context.Context, n int) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		done := c.registry.VerifiedCount() >= n
		wait := c.changed
		c.mu.Unlock()

		if done {
			return nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats 返回统计快照
func (c *Coordinator) Stats() Stats {
	return Stats{
		RequestsIn:         c.stats.requestsIn.Load(),
		ResponsesIn:        c.stats.responsesIn.Load(),
		ErrorsIn:           c.stats.errorsIn.Load(),
		Verified:           c.stats.verified.Load(),
		Failed:             c.stats.failed.Load(),
		Timeouts:           c.stats.timeouts.Load(),
		Deferred:           c.stats.deferred.Load(),
		Stale:              c.stats.stale.Load(),
		RateLimited:        c.stats.rateLimited.Load(),
		RejectedUnverified: c.stats.rejectedUnverified.Load(),
	}
}

// Close 关闭协调器并唤醒所有等待者
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.notifyLocked()
	return nil
}
